package eventlog

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Inserter is the subset of *mongo.Collection used by MongoWriter.
type Inserter interface {
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
}

type mongoEvent struct {
	ID        string         `bson:"_id"`
	Timestamp time.Time      `bson:"timestamp"`
	Type      string         `bson:"type"`
	Severity  string         `bson:"severity"`
	Context   map[string]any `bson:"data,omitempty"`
	Message   string         `bson:"message,omitempty"`
}

// MongoWriter inserts one document per event.
type MongoWriter struct {
	coll Inserter
}

// NewMongoWriter creates a writer for the collection.
func NewMongoWriter(coll Inserter) *MongoWriter {
	return &MongoWriter{coll: coll}
}

func (w *MongoWriter) Write(ctx context.Context, e Event) error {
	doc := mongoEvent{
		ID:        e.ID.String(),
		Timestamp: e.Timestamp,
		Type:      string(e.Type),
		Severity:  e.Severity.String(),
		Context:   e.Context,
		Message:   e.Message,
	}
	if _, err := w.coll.InsertOne(ctx, doc); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}
