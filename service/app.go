package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"blogapi/app/auth"
	"blogapi/app/config"
	"blogapi/app/metrics"
	"blogapi/app/repositories"
	"blogapi/app/routes"
	"blogapi/app/search"
	"blogapi/app/services"

	"go.uber.org/zap"
)

// App holds everything the blog server needs, wired from one Config.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *repositories.Store
	index   *search.Index
	metrics *metrics.Metrics

	Posts    *services.PostService
	Votes    *services.VoteService
	Comments *services.CommentService
	Users    *services.UserService
	Search   *services.SearchService

	handler http.Handler
}

// NewApp opens storage, rebuilds the search index and builds the HTTP
// handler. Close releases the store.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, version string) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := repositories.Open(repositories.Options{
		Path:       cfg.Storage.Path,
		InMemory:   cfg.Storage.InMemory,
		SyncWrites: cfg.Storage.SyncWrites,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	app, err := newApp(ctx, cfg, logger, store, version)
	if err != nil {
		store.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, store *repositories.Store, version string) (*App, error) {
	index, err := search.NewIndex(cfg.Search.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}
	tokens, err := auth.NewTokenIssuer(auth.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TokenTTL,
	})
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.RegisterSearchCache(index.CacheStats, index.Len)
	}

	locks := services.NewKeyedMutex()
	app := &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		index:   index,
		metrics: m,
		Posts:   services.NewPostService(store.Posts(), index, locks, logger),
		Votes: services.NewVoteService(store.Votes(), locks, services.VoteServiceOptions{
			Retry:   services.RetryPolicy{MaxAttempts: cfg.Votes.MaxAttempts, Delay: cfg.Votes.RetryDelay},
			Metrics: m,
			Logger:  logger,
		}),
		Comments: services.NewCommentService(store.Comments(), store.Posts(), logger),
		Users:    services.NewUserService(store.Users(), tokens, logger),
		Search: services.NewSearchService(index, store.Posts(), services.SearchOptions{
			DefaultPerPage: cfg.Search.DefaultPerPage,
			MaxPerPage:     cfg.Search.MaxPerPage,
			Metrics:        m,
			Logger:         logger,
		}),
	}

	indexed, err := app.Posts.RebuildIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("building search index: %w", err)
	}
	logger.Info("search index built", zap.Int("posts", indexed))

	app.handler = routes.NewHandler(routes.Dependencies{
		Posts:          app.Posts,
		Votes:          app.Votes,
		Comments:       app.Comments,
		Users:          app.Users,
		Search:         app.Search,
		Metrics:        m,
		Logger:         logger,
		Version:        version,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	return app, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests for up to server.shutdown_timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      a.handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		ErrorLog:     zap.NewStdLog(a.logger.Named("http")),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("blog service listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// ListenAndServe listens on server.addr and calls Serve.
func (a *App) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Close closes the store.
func (a *App) Close() error {
	return a.store.Close()
}
