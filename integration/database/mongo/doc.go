// Package mongo connects to MongoDB for the eventlog Mongo writer.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "")
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	w := eventlog.NewMongoWriter(db.Collection("security_events"))
//
// New retries the initial ping so that cold managed clusters do not fail a
// service start. Settings come from MONGODB_* environment variables.
package mongo
