package eventlog_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/sentinel/core/eventlog"
)

func sampleEvent() eventlog.Event {
	return eventlog.Event{
		ID:        uuid.MustParse("2f1c3c1e-8a4e-4c52-9c1b-6f7c2d1e0a11"),
		Timestamp: time.Date(2026, 6, 7, 8, 9, 10, 0, time.UTC),
		Type:      eventlog.TypeCommandInjection,
		Severity:  eventlog.SeverityHigh,
		Context:   map[string]any{"ip": "198.51.100.4"},
	}
}

func TestPostgresWriter(t *testing.T) {
	t.Parallel()

	t.Run("inserts event", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		e := sampleEvent()
		mock.ExpectExec("INSERT INTO security_events").
			WithArgs(e.ID, e.Timestamp, "command_injection", "high", pgxmock.AnyArg(), "").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		w, err := eventlog.NewPostgresWriter(mock, "security_events")
		require.NoError(t, err)
		require.NoError(t, w.Write(context.Background(), e))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec failure", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO security_alerts").WillReturnError(errors.New("connection reset"))

		w, err := eventlog.NewPostgresWriter(mock, "security_alerts")
		require.NoError(t, err)
		assert.ErrorIs(t, w.Write(context.Background(), sampleEvent()), eventlog.ErrWriteFailed)
	})

	t.Run("rejects unsafe table", func(t *testing.T) {
		t.Parallel()
		_, err := eventlog.NewPostgresWriter(nil, "events; DROP TABLE users")
		assert.ErrorIs(t, err, eventlog.ErrInvalidTable)
	})
}

type fakeCollection struct {
	mu   sync.Mutex
	docs []any
	err  error
}

func (f *fakeCollection) InsertOne(_ context.Context, doc any, _ ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, doc)
	return &mongo.InsertOneResult{InsertedID: "ok"}, nil
}

func TestMongoWriter(t *testing.T) {
	t.Parallel()

	coll := &fakeCollection{}
	w := eventlog.NewMongoWriter(coll)
	require.NoError(t, w.Write(context.Background(), sampleEvent()))
	assert.Len(t, coll.docs, 1)

	coll.err = errors.New("not primary")
	assert.ErrorIs(t, w.Write(context.Background(), sampleEvent()), eventlog.ErrWriteFailed)
}

func TestOpenSearchWriter(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		paths []string
		body  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		body = string(b)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	w := eventlog.NewOpenSearchWriter(client, "security-events")
	e := sampleEvent()
	assert.Equal(t, "security-events-2026.06.07", w.Index(e))
	require.NoError(t, w.Write(context.Background(), e))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 1)
	assert.True(t, strings.HasPrefix(paths[0], "/security-events-2026.06.07/_doc/"))
	assert.Contains(t, body, `"type":"command_injection"`)
	assert.Contains(t, body, `"severity":"high"`)
}

func TestOpenSearchWriter_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	err = eventlog.NewOpenSearchWriter(client, "security-events").Write(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, eventlog.ErrWriteFailed)
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	a := eventlog.NewMemoryWriter()
	b := eventlog.NewMemoryWriter()
	boom := errors.New("boom")
	failing := eventlog.WriterFunc(func(context.Context, eventlog.Event) error { return boom })

	w := eventlog.MultiWriter(a, nil, failing, b)
	err := w.Write(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
	assert.Len(t, b.ByType(eventlog.TypeCommandInjection), 1)
}
