// Package api exposes the sync engine, provider list and holiday calendar
// over HTTP.
//
// Every route except GET /healthz requires an HS256 bearer token signed with
// the configured jwt_secret. Tokens are issued elsewhere; this package only
// verifies them.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/njoerd114/holidaysync/internal/model"
	"github.com/njoerd114/holidaysync/internal/state"
	syncengine "github.com/njoerd114/holidaysync/internal/sync"
)

const shutdownTimeout = 10 * time.Second

// Syncer runs syncs and reads the sync log. Implemented by [syncengine.Engine].
type Syncer interface {
	Run(ctx context.Context, year int) (syncengine.Result, error)
	RecentLogs(ctx context.Context, limit int) ([]*model.SyncLogEntry, error)
}

// Providers is the provider list. Implemented by [providerstore.Store].
type Providers interface {
	Load(ctx context.Context) ([]model.ProviderConfig, error)
	Get(ctx context.Context, id string) (model.ProviderConfig, error)
	Add(ctx context.Context, p model.ProviderConfig) error
	Update(ctx context.Context, p model.ProviderConfig) error
	Remove(ctx context.Context, id string) error
}

// Store is the calendar and sync log. Implemented by [state.Store].
type Store interface {
	ListHolidays(ctx context.Context, f state.HolidayFilter) ([]*model.HolidayRecord, error)
	GetHoliday(ctx context.Context, id string) (*model.HolidayRecord, error)
	SetHolidayFlags(ctx context.Context, id string, visible, recurring bool) error
	DeleteHoliday(ctx context.Context, id string) error
	DeleteSyncLogsBefore(ctx context.Context, t time.Time) (int64, error)
}

// Options configures a Server.
type Options struct {
	// JWTSecret verifies bearer tokens. Required.
	JWTSecret string

	// DefaultLimit is the sync log page size when ?limit is absent.
	DefaultLimit int
}

// Server is the HTTP front end.
type Server struct {
	router    *gin.Engine
	syncer    Syncer
	providers Providers
	store     Store
	limit     int
	log       *slog.Logger
}

// New builds a Server and registers its routes.
func New(syncer Syncer, providers Providers, store Store, opts Options, logger *slog.Logger) (*Server, error) {
	if opts.JWTSecret == "" {
		return nil, errors.New("api: JWT secret is required")
	}
	s := &Server{
		router:    gin.New(),
		syncer:    syncer,
		providers: providers,
		store:     store,
		limit:     opts.DefaultLimit,
		log:       logger,
	}
	s.routes([]byte(opts.JWTSecret))
	return s, nil
}

func (s *Server) routes(secret []byte) {
	r := s.router
	r.Use(gin.Recovery(), tracing(), requestLogger(s.log))

	r.GET("/healthz", s.handleHealth)

	authed := r.Group("/", bearerAuth(secret))
	authed.POST("/sync", s.handleSync)
	authed.GET("/sync/logs", s.handleSyncLogs)
	authed.DELETE("/sync/logs", s.handlePurgeLogs)

	authed.GET("/holidays", s.handleHolidays)
	authed.PATCH("/holidays/:id", s.handleUpdateHoliday)
	authed.DELETE("/holidays/:id", s.handleDeleteHoliday)

	providers := authed.Group("/providers")
	providers.GET("", s.handleListProviders)
	providers.POST("", s.handleCreateProvider)
	providers.GET("/:id", s.handleGetProvider)
	providers.PUT("/:id", s.handleUpdateProvider)
	providers.DELETE("/:id", s.handleDeleteProvider)
}

// Handler returns the router, for tests and custom servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}
