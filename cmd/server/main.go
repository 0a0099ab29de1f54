package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/veithly/PolyAlpha/internal/api"
	"github.com/veithly/PolyAlpha/internal/cache"
	"github.com/veithly/PolyAlpha/internal/config"
	"github.com/veithly/PolyAlpha/internal/database"
	"github.com/veithly/PolyAlpha/internal/feed"
	"github.com/veithly/PolyAlpha/internal/orderbook"
	"github.com/veithly/PolyAlpha/internal/server"
	"github.com/veithly/PolyAlpha/internal/stream"
	"github.com/veithly/PolyAlpha/internal/version"
	"github.com/veithly/PolyAlpha/internal/writer"
)

func main() {
	configPath := flag.String("config", "", "path to config file (empty: environment and defaults only)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the config")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting server",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"config", *configPath,
		"stream_enabled", cfg.Stream.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	checks := make(map[string]server.Pinger)

	// Upstream feed
	feedCfg := feed.DefaultManagerConfig()
	feedCfg.ReconnectDelay = cfg.Feed.ReconnectDelay
	feedCfg.Client.URL = cfg.Feed.URL
	feedCfg.Client.PingInterval = cfg.Feed.PingInterval
	feedCfg.Client.PingTimeout = cfg.Feed.PingTimeout
	feedCfg.Client.HandshakeTimeout = cfg.Feed.HandshakeTimeout
	feedCfg.Client.BufferSize = cfg.Feed.BufferSize

	feedManager := feed.NewManager(feedCfg, logger.With("component", "feed"))
	if err := feedManager.Start(ctx); err != nil {
		logger.Error("failed to start feed manager", "error", err)
		os.Exit(1)
	}

	// REST client
	apiClient := api.NewClient(
		cfg.API.CLOBURL,
		cfg.API.GammaURL,
		api.WithLogger(logger.With("component", "api")),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, 200*time.Millisecond),
		api.WithUserAgent("PolyAlpha/"+version.Version),
	)

	// Optional orderbook cache
	var bookCache orderbook.Cache
	if cfg.Cache.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		store := cache.NewRedisStore(rdb, cfg.Cache.TTL)
		if err := store.Ping(ctx); err != nil {
			// Serve without the cache while Redis is down.
			logger.Warn("redis unavailable, orderbook cache disabled", "addr", cfg.Cache.Addr, "error", err)
			store.Close()
		} else {
			defer store.Close()
			bookCache = store
			checks["redis"] = store
			logger.Info("orderbook cache connected", "addr", cfg.Cache.Addr, "ttl", cfg.Cache.TTL)
		}
	}

	books := orderbook.NewSource(apiClient, bookCache, orderbook.Config{
		RatePerSecond: cfg.API.RatePerSecond,
		Burst:         cfg.API.Burst,
		FetchTimeout:  cfg.Stream.RefreshTimeout,
	}, logger.With("component", "orderbook"))

	// Optional session audit store
	var recorder stream.Recorder
	var sessionWriter *writer.SessionWriter
	if cfg.Database.Enabled {
		logger.Info("connecting to database", "target", database.Redacted(cfg.Database.Postgres))

		pool, err := database.Connect(ctx, cfg.Database.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := writer.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to prepare schema", "error", err)
			os.Exit(1)
		}

		sessionWriter = writer.NewSessionWriter(writer.WriterConfig{
			BatchSize:     cfg.Writers.BatchSize,
			FlushInterval: cfg.Writers.FlushInterval,
			BufferSize:    cfg.Writers.BufferSize,
		}, pool, logger.With("component", "writer"))
		if err := sessionWriter.Start(ctx); err != nil {
			logger.Error("failed to start session writer", "error", err)
			os.Exit(1)
		}

		recorder = sessionWriter
		checks["postgres"] = pool
		logger.Info("database connected")
	}

	// HTTP server
	srvCfg := server.DefaultConfig()
	srvCfg.Addr = fmt.Sprintf(":%d", cfg.HTTP.Port)
	srvCfg.StreamEnabled = cfg.Stream.Enabled
	srvCfg.Stream = stream.Config{
		RingSize:          cfg.Stream.RingSize,
		PulseWindow:       cfg.Stream.PulseWindow,
		TickBuffer:        cfg.Stream.TickBuffer,
		RefreshInterval:   cfg.Stream.RefreshInterval,
		RefreshTimeout:    cfg.Stream.RefreshTimeout,
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
	}
	srvCfg.DetailInterval = cfg.Stream.DetailInterval
	srvCfg.DetailMaxPushes = cfg.Stream.DetailMaxPushes
	srvCfg.ReadHeaderTimeout = cfg.HTTP.ReadHeaderTimeout
	srvCfg.ShutdownTimeout = cfg.HTTP.ShutdownTimeout

	srv := server.New(srvCfg, server.Deps{
		Feed:     feedManager,
		Books:    books,
		Markets:  apiClient,
		Recorder: recorder,
		Checks:   checks,
		Version:  version.String(),
	}, logger.With("component", "server"))

	if err := srv.Start(ctx); err != nil {
		logger.Error("failed to start http server", "error", err)
		os.Exit(1)
	}

	logger.Info("server running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.HTTP.Port),
	)

	// Wait for shutdown or a fatal serve error
	select {
	case <-ctx.Done():
	case err, ok := <-srv.Errors():
		if ok {
			logger.Error("http server failed", "error", err)
		}
		cancel()
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", "error", err)
	}
	if err := feedManager.Stop(shutdownCtx); err != nil {
		logger.Warn("feed manager shutdown", "error", err)
	}
	// Sessions record on exit, so the writer stops after the server.
	if sessionWriter != nil {
		sessionWriter.Stop(shutdownCtx)
		stats := sessionWriter.Stats()
		logger.Info("session writer totals",
			"inserts", stats.Inserts,
			"conflicts", stats.Conflicts,
			"errors", stats.Errors,
			"dropped", stats.Dropped,
		)
	}

	logger.Info("server stopped")
}

// newLogger builds the process logger from logging config. Validate has
// already rejected unknown levels and formats.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
