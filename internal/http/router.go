package http

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/open-builders/reward-rush-bot/internal/common/config"
	apperrors "github.com/open-builders/reward-rush-bot/internal/common/errors"
	mw "github.com/open-builders/reward-rush-bot/internal/http/middleware"
	rplatform "github.com/open-builders/reward-rush-bot/internal/platform/redis"
)

// statsCacheTTL bounds how stale the cached admin stats may be.
const statsCacheTTL = 10 * time.Second

// RouterDeps are the services behind the HTTP surface. Redis is optional.
type RouterDeps struct {
	Admin     AdminAPI
	Giveaways GiveawayLister
	Timers    TimerLister
	Store     DocumentLoader
	Redis     *rplatform.Client
}

// NewRouter builds the gin engine with the ops and admin routes.
func NewRouter(cfg *config.Config, deps RouterDeps, logger zerolog.Logger) *gin.Engine {
	logger = logger.With().Str("component", "http").Logger()

	r := gin.New()
	r.Use(mw.RequestID())
	r.Use(mw.Recovery(logger))
	r.Use(mw.Logger(logger))
	r.Use(cors.New(corsConfig(cfg.Server.Origin)))

	r.NoRoute(func(c *gin.Context) {
		mw.Abort(c, apperrors.NewNotFoundError("route", c.Request.URL.Path))
	})
	NewOpsHandlers(deps.Store, deps.Redis).Register(r)

	api := r.Group("/api")
	v1 := api.Group("/v1")
	adminGroup := v1.Group("/admin",
		mw.InitData(cfg.Telegram.BotToken, cfg.Server.InitDataTTL),
		mw.RequireAdmin(deps.Admin.IsAdmin),
	)
	NewAdminHandlers(deps.Admin, deps.Giveaways, deps.Timers, deps.Redis, statsCacheTTL).Register(adminGroup)

	return r
}

func corsConfig(origin string) cors.Config {
	c := cors.DefaultConfig()
	if origin == "" || origin == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = []string{origin}
	}
	c.AllowMethods = []string{"GET", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept", mw.InitDataHeader}
	c.ExposeHeaders = []string{"X-Request-ID", "X-Cache"}
	return c
}

// Server wraps net/http.Server with context-aware start and stop.
type Server struct {
	srv    *nethttp.Server
	logger zerolog.Logger
}

func NewServer(port int, handler nethttp.Handler, logger zerolog.Logger) *Server {
	return &Server{
		srv: &nethttp.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With().Str("component", "http").Logger(),
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("Starting HTTP server")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}
	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
