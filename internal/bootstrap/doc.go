// Package bootstrap turns a Config read from the environment into a wired
// security stack: backend connections, counter and session stores, event
// writers and the request pipeline.
//
//	cfg, err := bootstrap.Load()
//	if err != nil {
//		return err
//	}
//	app, err := bootstrap.Build(ctx, cfg, bootstrap.Logger(cfg))
//	if err != nil {
//		return err
//	}
//	defer app.Close()
//
//	g, ctx := errgroup.WithContext(ctx)
//	for _, job := range app.Jobs(ctx) {
//		g.Go(job)
//	}
//
// Backends are connected only when a component is configured to use them
// (COUNTER_BACKEND, SESSION_BACKEND, EVENT_SINKS).
package bootstrap
