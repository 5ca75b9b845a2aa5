package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fincli/internal/api"
	"fincli/internal/auth"
	"fincli/internal/cache"
	"fincli/internal/config"
	"fincli/internal/gateway"
	"fincli/internal/log"
	"fincli/internal/middleware/ratelimit"
	"fincli/internal/middleware/trace"
	"fincli/internal/session"
)

// App is the wired client: session, gateway, resource API and auth
// service sharing one credential store.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Store     CredentialStore
	Session   *session.Session
	Navigator *gateway.MemoryNavigator
	Gateway   *gateway.Gateway
	API       *api.Client
	Auth      *auth.Service

	Trace   *trace.Transport
	limiter *ratelimit.Limiter
	caches  *cache.Manager
}

// NewApp opens the credential store, restores the session and builds the
// request pipeline.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	store, err := OpenCredentialStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	sess := session.New(store)
	if err := sess.Load(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Session:   sess,
		Navigator: gateway.NewMemoryNavigator(gateway.DashboardLocation),
	}

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.RateLimitPerMinute > 0 {
		app.limiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerWindow: cfg.RateLimitPerMinute,
			Window:            time.Minute,
		})
		transport = app.limiter.Transport(transport)
	}
	app.Trace = trace.NewTransport(transport, logger)

	gw, err := gateway.New(gateway.Config{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.APITimeout,
		Transport: app.Trace,
		Navigator: app.Navigator,
		Logger:    logger,
	}, sess)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Gateway = gw

	app.API = api.New(gw, api.Config{CacheTTL: cfg.CacheTTL, Logger: logger})
	if c := app.API.Cache(); c != nil {
		app.caches = cache.NewManager(logger)
		app.caches.Register(c)
		app.caches.StartCleanup(cfg.CacheTTL)
	}

	app.Auth = auth.NewService(app.API, sess, app.Navigator, logger)
	return app, nil
}

// SessionExpired reports whether the last commands ended in a forced
// logout.
func (a *App) SessionExpired() bool {
	return a.Navigator.Location() == gateway.LoginLocation
}

// Close waits for background auth calls and releases resources.
func (a *App) Close() error {
	if a.Auth != nil {
		a.Auth.Wait()
	}
	if a.caches != nil {
		a.caches.Stop()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}

	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("credential store: %w", err))
		}
	}
	return errors.Join(errs...)
}
