// Package server exposes the sweep trigger, the Telegram webhook and the
// operational endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/polywhales/internal/metrics"
	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/notify"
	"github.com/rickgao/polywhales/internal/telegram"
)

// Sweeper runs one sweep over all tracked wallets.
type Sweeper interface {
	Run(ctx context.Context) (model.SweepStats, error)
}

// UpdateHandler processes Telegram webhook updates.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u telegram.Update) error
}

// AlertDispatcher sends an alert to a wallet's subscribers.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, wallet string, alert notify.Alert) (notify.Result, error)
}

// Pinger checks a dependency's health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators behind each route. Nil members disable the
// route or answer with a configuration error.
type Deps struct {
	Sweeper    Sweeper
	Bot        UpdateHandler
	Dispatcher AlertDispatcher
	Store      Pinger
	Feed       http.Handler
	Metrics    *metrics.Metrics
}

// Config holds server configuration.
type Config struct {
	Addr            string
	AllowedOrigin   string
	WebhookSecret   string
	ShutdownTimeout time.Duration
}

// Server is the HTTP surface of the tracker.
type Server struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	engine *gin.Engine
	srv    *http.Server
}

// New builds the router and the underlying http.Server.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{cfg: cfg, deps: deps, logger: logger}
	s.engine = s.routes()
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe(), cors(s.cfg.AllowedOrigin))

	r.POST("/track-wallet-activity", s.handleTrackWalletActivity)
	r.GET("/track-wallet-activity", s.handleTrackWalletActivity)
	r.POST("/send-notification", s.handleSendNotification)
	r.POST("/telegram/webhook", s.handleTelegramWebhook)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	if s.deps.Feed != nil {
		r.GET("/feed", gin.WrapH(s.deps.Feed))
	}

	// Global middleware also runs here, so preflights are answered by cors.
	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", "addr", s.srv.Addr)
		serverErr <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		s.logger.Info("http server stopped")
		return nil
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}
