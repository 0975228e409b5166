package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/formdraft/internal/config"
	"github.com/aretw0/formdraft/pkg/adapters/file"
	"github.com/aretw0/formdraft/pkg/adapters/memory"
	"github.com/aretw0/formdraft/pkg/adapters/redis"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/draft"
	"github.com/aretw0/formdraft/pkg/observability"
	"github.com/aretw0/formdraft/pkg/persistence/middleware"
	"github.com/aretw0/formdraft/pkg/ports"
	"github.com/aretw0/formdraft/pkg/schema"
	"github.com/aretw0/formdraft/pkg/session"
	"github.com/aretw0/formdraft/pkg/stepper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App wires storage, schemas and the session manager from a Config.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	KV       ports.KVStore
	Drafts   *draft.Store
	Registry *schema.Registry
	Manager  *session.Manager
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer

	closers []func() error
}

// AppOption customises NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	registry  *schema.Registry
	submitter func(context.Context, domain.Draft) error
}

// WithRegistry skips loading schemas from Config.Dir.
func WithRegistry(reg *schema.Registry) AppOption {
	return func(o *appOptions) {
		o.registry = reg
	}
}

// WithSubmitter sets where completed forms go.
func WithSubmitter(fn func(context.Context, domain.Draft) error) AppOption {
	return func(o *appOptions) {
		o.submitter = fn
	}
}

// NewApp builds the store chain, loads schemas and creates the manager.
func NewApp(cfg *config.Config, logger *slog.Logger, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg, Logger: logger}

	kv, locker, err := app.openStore()
	if err != nil {
		return nil, err
	}
	kv, err = wrapStore(cfg, kv)
	if err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}
	app.KV = kv

	reg := o.registry
	if reg == nil {
		reg, err = schema.LoadDir(cfg.Dir)
		if err != nil {
			_ = app.Close(context.Background())
			return nil, fmt.Errorf("failed to load forms from %s: %w", cfg.Dir, err)
		}
	}
	app.Registry = reg

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = observability.NewMetrics(promReg)
	app.Gatherer = promReg

	hooks := app.Metrics.Hooks()
	if cfg.Debug {
		hooks = domain.ComposeHooks(hooks, observability.LogHooks(logger))
	}

	app.Drafts = draft.New(kv,
		draft.WithNamespace(cfg.Namespace),
		draft.WithExcludedFields(cfg.Exclude...),
		draft.WithLogger(logger),
		draft.WithLifecycleHooks(hooks),
	)

	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithAutosave(cfg.Debounce),
		session.WithControllerOptions(stepper.WithLifecycleHooks(hooks)),
	}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}
	if o.submitter != nil {
		sessionOpts = append(sessionOpts, session.WithSubmitter(o.submitter))
	}
	app.Manager = session.NewManager(reg, app.Drafts, sessionOpts...)
	return app, nil
}

// Close flushes pending autosaves and releases the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Manager != nil {
		if err := a.Manager.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush drafts: %w", err))
		}
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore() (ports.KVStore, ports.DistributedLocker, error) {
	cfg := a.Config
	switch cfg.Store {
	case config.StoreMemory:
		return memory.NewStore(), nil, nil
	case config.StoreFile:
		return file.New(cfg.DataDir), nil, nil
	case config.StoreRedis:
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithTTL(cfg.Redis.TTL))
		if err := store.Client().Ping(context.Background()).Err(); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, store.Close)

		var locker ports.DistributedLocker
		if cfg.Redis.Lock {
			locker = redis.NewLocker(store.Client(), cfg.Namespace+":")
		}
		return store, locker, nil
	default:
		return nil, nil, fmt.Errorf("unknown store '%s'", cfg.Store)
	}
}

// wrapStore applies the configured middleware. Sanitising runs first so
// masking and encryption see clean values.
func wrapStore(cfg *config.Config, kv ports.KVStore) (ports.KVStore, error) {
	var mws []middleware.Middleware
	if cfg.Sanitize {
		mws = append(mws, middleware.NewSanitizeMiddleware(nil))
	}
	if len(cfg.PII) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.PII))
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	return middleware.Chain(kv, mws...), nil
}
