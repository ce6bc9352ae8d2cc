package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"shopify-storefront/internal/cache"
	"shopify-storefront/internal/config"
	"shopify-storefront/internal/controllers"
	"shopify-storefront/internal/logger"
	"shopify-storefront/internal/revalidate"
	"shopify-storefront/internal/shopify"
)

// MigrationsDir holds the cache schema migrations, relative to the working
// directory.
const MigrationsDir = "migrations"

type Server struct {
	srv    *http.Server
	ctx    context.Context
	option *config.Options
	Log    *logger.Logger

	mx      sync.Mutex
	stopped bool
	closers []func()
}

// NewServer creates a new Server instance with the provided context and a
// logger at the configured level.
func NewServer(ctx context.Context, option *config.Options) (*Server, error) {
	nLogger, err := logger.NewLogger(option.LogLevel())
	if err != nil {
		return nil, errors.Wrap(err, "creating logger")
	}
	return &Server{
		srv: &http.Server{
			Addr:              option.RunAddr(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		ctx:    ctx,
		option: option,
		Log:    nLogger,
	}, nil
}

// Serve wires the storefront and blocks until the listener stops. It
// returns nil without listening when Shutdown already ran.
func (server *Server) Serve() error {
	if err := server.option.Validate(); err != nil {
		return err
	}
	if server.option.RevalidationSecret() == "" {
		server.Log.Warn("SHOPIFY_REVALIDATION_SECRET is empty; every revalidation webhook will be rejected")
	}

	handler, closers, err := NewHandler(server.ctx, server.option, server.Log)
	if err != nil {
		return err
	}

	server.mx.Lock()
	if server.stopped {
		server.mx.Unlock()
		for _, c := range closers {
			c()
		}
		return nil
	}
	server.srv.Handler = handler
	server.closers = closers
	server.mx.Unlock()

	server.Log.Info("server starting",
		zap.String("address", server.option.RunAddr()),
		zap.String("domain", server.option.StoreDomain()),
		zap.String("api_version", server.option.APIVersion()),
	)
	// a Shutdown that lands before this call makes it return ErrServerClosed
	if err := server.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server failed")
	}
	return nil
}

// Shutdown stops accepting requests and waits up to timeout for in-flight
// ones, then releases the cache. It is safe to call before Serve.
func (server *Server) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	server.mx.Lock()
	server.stopped = true
	closers := server.closers
	server.closers = nil
	server.mx.Unlock()

	if err := server.srv.Shutdown(ctx); err != nil {
		server.Log.Error("server shutdown failed", zap.Error(err))
	}
	for _, c := range closers {
		c()
	}
	server.Log.Info("server stopped")
	_ = server.Log.Sync()
}

// NewHandler builds the cache, the Storefront API client and the router.
// The returned closers release the cache backend.
func NewHandler(ctx context.Context, option *config.Options, log *logger.Logger) (http.Handler, []func(), error) {
	var (
		store   cache.Cache
		healthy func(context.Context) bool
		closers []func()
	)

	if dsn := option.DataBaseDSN(); dsn != "" {
		pc, err := cache.NewPostgresCache(ctx, dsn, MigrationsDir, log.Named("cache"))
		if err != nil {
			return nil, nil, err
		}
		store = pc
		healthy = pc.Ping
		closers = append(closers, func() { pc.Close() })
	} else {
		log.Info("using in-memory cache")
		store = cache.NewMemoryCache()
	}

	client := shopify.NewClient(option.StoreDomain(), option.APIVersion(), option.AccessToken(), log.Named("shopify"))
	loader := cache.NewLoader(store, log.Named("cache"))
	storefront := shopify.NewStorefront(client, loader, option.StoreDomain(), log.Named("storefront"))
	webhook := revalidate.NewHandler(option.RevalidationSecret(), storefront, log.Named("revalidate"))

	basecontr := controllers.NewBaseController(storefront, webhook, healthy, log.Named("http"))
	return basecontr.Route(), closers, nil
}
