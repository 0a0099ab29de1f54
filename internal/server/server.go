// Package server exposes the market streams and smart-money endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/veithly/PolyAlpha/internal/feed"
	"github.com/veithly/PolyAlpha/internal/model"
	"github.com/veithly/PolyAlpha/internal/orderbook"
	"github.com/veithly/PolyAlpha/internal/stream"
)

// FeedService is the upstream feed as seen by the HTTP layer.
type FeedService interface {
	stream.Subscriber
	Stats() feed.ManagerStats
}

// MarketSource looks up Gamma market metadata.
type MarketSource interface {
	GetMarket(ctx context.Context, marketID string) (*model.MarketDetail, error)
}

// Pinger is a dependency reported by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds HTTP server configuration.
type Config struct {
	Addr              string
	StreamEnabled     bool          // Serve /api/markets/stream (503 otherwise)
	Stream            stream.Config // Per-session settings
	DetailInterval    time.Duration // Market detail push interval
	DetailMaxPushes   int           // Frames per detail stream
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		Stream:            stream.DefaultConfig(),
		DetailInterval:    15 * time.Second,
		DetailMaxPushes:   10,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Deps are the collaborators the handlers use. Recorder and Checks may be nil.
type Deps struct {
	Feed     FeedService
	Books    orderbook.Fetcher
	Markets  MarketSource
	Recorder stream.Recorder
	Checks   map[string]Pinger
	Version  string
}

// Server is the HTTP front end.
type Server struct {
	cfg      Config
	deps     Deps
	logger   *slog.Logger
	validate *validator.Validate
	router   *mux.Router

	httpServer *http.Server
	cancel     context.CancelFunc
	errCh      chan error
}

// New creates a Server and registers its routes.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		validate: newValidator(),
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Handle("/api/markets/stream", withAPILogging("markets.stream", s.logger, s.handleStream)).Methods(http.MethodGet)
	s.router.Handle("/api/markets/{id}/smart-money", withAPILogging("markets.smartMoney", s.logger, s.handleSmartMoney)).Methods(http.MethodGet)
	s.router.Handle("/api/markets/{id}/stream", withAPILogging("markets.detailStream", s.logger, s.handleDetailStream)).Methods(http.MethodGet)
	s.router.Handle("/health", withAPILogging("health", s.logger, s.handleHealth)).Methods(http.MethodGet)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on cfg.Addr. Request contexts derive from ctx, so cancelling
// ctx ends every open stream.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}

	base, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	s.errCh = make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
			s.errCh <- err
		}
		close(s.errCh)
	}()

	return nil
}

// Errors reports a fatal serve error. It is closed when the server stops.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Stop ends open streams and shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
