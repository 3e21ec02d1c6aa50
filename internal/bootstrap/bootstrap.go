package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/sentinel/core/config"
	"github.com/dmitrymomot/sentinel/core/csrf"
	"github.com/dmitrymomot/sentinel/core/eventlog"
	"github.com/dmitrymomot/sentinel/core/health"
	"github.com/dmitrymomot/sentinel/core/logger"
	"github.com/dmitrymomot/sentinel/core/pipeline"
	"github.com/dmitrymomot/sentinel/core/session"
	"github.com/dmitrymomot/sentinel/core/threat"
	"github.com/dmitrymomot/sentinel/integration/database/mongo"
	"github.com/dmitrymomot/sentinel/integration/database/opensearch"
	"github.com/dmitrymomot/sentinel/integration/database/pg"
	"github.com/dmitrymomot/sentinel/integration/database/redis"
	"github.com/dmitrymomot/sentinel/pkg/clientip"
	"github.com/dmitrymomot/sentinel/pkg/ratelimiter"
)

var (
	ErrUnknownBackend = errors.New("bootstrap: unknown storage backend")
	ErrUnknownSink    = errors.New("bootstrap: unknown event sink")
	ErrBuild          = errors.New("bootstrap: failed to build security pipeline")
)

// pruneInterval is how often expired counters, buckets and sessions are
// swept from backends that do not expire keys themselves.
const pruneInterval = 5 * time.Minute

// Job is a background task started with the server, shaped for errgroup.
type Job func(ctx context.Context) func() error

// App is the wired security stack.
type App struct {
	Config      Config
	Logger      *slog.Logger
	Registry    *prometheus.Registry
	Pipeline    *pipeline.Pipeline
	Detector    *threat.Detector
	IPExtractor *clientip.Extractor
	Checks      []health.Check

	jobs    []Job
	closers []func() error
}

// Logger builds the process logger for cfg.
func Logger(cfg Config) *slog.Logger {
	var env logger.Option
	switch cfg.Env {
	case config.Production:
		env = logger.WithProduction(cfg.Name)
	case config.Staging:
		env = logger.WithStaging(cfg.Name)
	default:
		env = logger.WithDevelopment(cfg.Name)
	}
	opts := []logger.Option{env}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	}
	return logger.New(opts...)
}

// Build connects the configured backends and assembles the pipeline. The
// returned App must be closed. On error everything opened so far is closed.
func Build(ctx context.Context, cfg Config, log *slog.Logger) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   log,
		Registry: prometheus.NewRegistry(),
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := app.build(ctx); err != nil {
		_ = app.Close()
		return nil, errors.Join(ErrBuild, err)
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	production := cfg.Production()

	extractor, err := ipExtractor(cfg.TrustedProxies)
	if err != nil {
		return err
	}
	a.IPExtractor = extractor

	var pool *pgxpool.Pool
	if cfg.needsPostgres() {
		if pool, err = pg.Connect(ctx, cfg.Postgres); err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		a.Checks = append(a.Checks, health.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})
	}

	var rdb *goredis.Client
	if cfg.needsRedis() {
		if rdb, err = redis.Connect(ctx, cfg.Redis); err != nil {
			return err
		}
		a.closers = append(a.closers, rdb.Close)
		a.Checks = append(a.Checks, health.Check{Name: "redis", Fn: redis.Healthcheck(rdb)})
	}

	sink, err := a.sink(ctx, pool)
	if err != nil {
		return err
	}

	sessions, err := a.sessionStore(rdb)
	if err != nil {
		return err
	}
	guard := session.NewGuard(sessions, cfg.Session,
		session.WithProduction(production),
		session.WithLogger(a.Logger),
	)

	opts := []pipeline.Option{
		pipeline.WithRecorder(sink),
		pipeline.WithConfig(cfg.Pipeline),
		pipeline.WithLogger(a.Logger),
		pipeline.WithMetrics(a.Registry),
	}
	if cfg.CSRFEnabled {
		opts = append(opts, pipeline.WithCSRF(csrf.New(cfg.CSRF)))
	}

	a.Detector = threat.New(cfg.Threat.Rules())
	if cfg.ThreatEnabled {
		policy, err := cfg.Threat.Policy(production)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithDetector(a.Detector, policy))
	}

	if cfg.RateLimit.Enabled {
		limiter, err := a.limiter(pool, rdb)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithLimiter(limiter))
	}

	a.Pipeline = pipeline.New(guard, opts...)

	a.Logger.InfoContext(ctx, "security pipeline ready",
		logger.Component("bootstrap"),
		slog.String("env", cfg.Env.String()),
		slog.String("session_backend", cfg.Session.Backend),
		slog.String("counter_backend", string(cfg.RateLimit.Backend)),
		slog.Any("event_sinks", cfg.EventLog.Sinks),
		slog.Bool("csrf", cfg.CSRFEnabled),
		slog.Bool("threat", cfg.ThreatEnabled),
		slog.Bool("rate_limit", cfg.RateLimit.Enabled),
	)
	return nil
}

func ipExtractor(cidrs []string) (*clientip.Extractor, error) {
	if len(cidrs) == 0 {
		return clientip.New(), nil
	}
	prefixes, err := threat.ParseAllowList(cidrs)
	if err != nil {
		return nil, err
	}
	return clientip.New(clientip.WithTrustedProxies(prefixes...)), nil
}

func (a *App) sessionStore(rdb *goredis.Client) (session.Store, error) {
	switch a.Config.Session.Backend {
	case "", "memory":
		store := session.NewMemoryStore()
		a.jobs = append(a.jobs, a.every("session_prune", func(ctx context.Context) error {
			_, err := store.DeleteExpired(ctx)
			return err
		}))
		return store, nil
	case "redis":
		return session.NewRedisStore(rdb, a.Config.Session.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("%w: session backend %q", ErrUnknownBackend, a.Config.Session.Backend)
	}
}

func (a *App) limiter(pool *pgxpool.Pool, rdb *goredis.Client) (ratelimiter.Checker, error) {
	cfg := a.Config.RateLimit
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}

	if cfg.Algorithm == ratelimiter.AlgorithmTokenBucket {
		bucket := ratelimiter.NewBucketLimiter(cfg.Rules)
		a.jobs = append(a.jobs, a.every("bucket_prune", func(context.Context) error {
			bucket.Prune(time.Hour)
			return nil
		}))
		return bucket, nil
	}

	var store ratelimiter.Store
	switch cfg.Backend {
	case ratelimiter.BackendMemory, "":
		ms := ratelimiter.NewMemoryStore(
			ratelimiter.WithCleanupInterval(cfg.CleanupInterval),
			ratelimiter.WithMemoryStoreLogger(a.Logger),
		)
		a.jobs = append(a.jobs, ms.Run)
		a.Checks = append(a.Checks, health.Check{Name: "counters", Fn: ms.Healthcheck})
		store = ms
	case ratelimiter.BackendFile:
		fs, err := ratelimiter.OpenFileStore(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, fs.Close)
		a.jobs = append(a.jobs, a.every("counter_prune", func(ctx context.Context) error {
			_, err := fs.Prune(ctx)
			return err
		}))
		store = fs
	case ratelimiter.BackendPostgres:
		ps := ratelimiter.NewPostgresStore(pool)
		a.jobs = append(a.jobs, a.every("counter_prune", func(ctx context.Context) error {
			_, err := ps.Prune(ctx)
			return err
		}))
		store = ps
	case ratelimiter.BackendRedis:
		store = ratelimiter.NewRedisStore(rdb, ratelimiter.WithKeyPrefix(cfg.KeyPrefix))
	default:
		return nil, fmt.Errorf("%w: counter backend %q", ErrUnknownBackend, cfg.Backend)
	}

	return ratelimiter.New(store, cfg.Rules,
		ratelimiter.WithLogger(a.Logger),
	), nil
}

func (a *App) sink(ctx context.Context, pool *pgxpool.Pool) (*eventlog.Sink, error) {
	cfg := a.Config.EventLog

	events := eventlog.NewFileWriter(cfg.Dir, cfg.Prefix)
	alerts := eventlog.NewFileWriter(cfg.AlertDir, cfg.AlertPrefix)
	a.closers = append(a.closers, events.Close, alerts.Close)

	writers := []eventlog.Writer{events}
	alertWriters := []eventlog.Writer{alerts}

	for _, name := range cfg.Sinks {
		switch name {
		case "", "file":
		case "postgres":
			w, err := eventlog.NewPostgresWriter(pool, cfg.PostgresTable)
			if err != nil {
				return nil, err
			}
			aw, err := eventlog.NewPostgresWriter(pool, cfg.PostgresAlerts)
			if err != nil {
				return nil, err
			}
			writers = append(writers, w)
			alertWriters = append(alertWriters, aw)
		case "mongo":
			db, err := mongo.NewWithDatabase(ctx, a.Config.Mongo, "")
			if err != nil {
				return nil, err
			}
			client := db.Client()
			a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })
			a.Checks = append(a.Checks, health.Check{Name: "mongo", Fn: mongo.Healthcheck(client)})
			writers = append(writers, eventlog.NewMongoWriter(db.Collection(cfg.MongoCollection)))
		case "opensearch":
			client, err := opensearch.New(ctx, a.Config.OpenSearch)
			if err != nil {
				return nil, err
			}
			a.Checks = append(a.Checks, health.Check{Name: "opensearch", Fn: opensearch.Healthcheck(client)})
			writers = append(writers, eventlog.NewOpenSearchWriter(client, cfg.OpenSearchPrefix))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownSink, name)
		}
	}

	return eventlog.NewSink(eventlog.MultiWriter(writers...),
		eventlog.WithAlertWriter(eventlog.MultiWriter(alertWriters...)),
		eventlog.WithAlertTypes(cfg.AlertTypes...),
		eventlog.WithAlertThreshold(cfg.Threshold(a.Config.Production())),
		eventlog.WithLogger(a.Logger),
		eventlog.WithMetrics(a.Registry),
	), nil
}

// every runs fn on pruneInterval until ctx is done. Failures are logged.
func (a *App) every(name string, fn func(context.Context) error) Job {
	return func(ctx context.Context) func() error {
		return func() error {
			t := time.NewTicker(pruneInterval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
					if err := fn(ctx); err != nil {
						a.Logger.WarnContext(ctx, "background job failed",
							logger.Component("bootstrap"),
							slog.String("job", name),
							logger.Error(err),
						)
					}
				}
			}
		}
	}
}

// Jobs returns the background tasks bound to ctx.
func (a *App) Jobs(ctx context.Context) []func() error {
	out := make([]func() error, 0, len(a.jobs))
	for _, j := range a.jobs {
		out = append(out, j(ctx))
	}
	return out
}

// Close releases every backend in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for _, c := range slices.Backward(a.closers) {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

