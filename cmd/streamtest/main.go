// streamtest watches one or more market streams on a running server and logs
// every tick with its smart-money pulse.
//
// Usage:
//
//	go run ./cmd/streamtest --url http://localhost:8080 --market 0xabc --market 0xdef --duration 1m
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/veithly/PolyAlpha/internal/streamclient"
)

func watchAction(ctx context.Context, cmd *cli.Command) error {
	baseURL := cmd.String("url")
	markets := cmd.StringSlice("market")
	duration := cmd.Duration("duration")

	if len(markets) == 0 {
		return errors.New("at least one --market is required")
	}

	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	var updates atomic.Int64
	client := streamclient.New(baseURL, func(u streamclient.Update) {
		updates.Add(1)
		logger.Info("tick",
			"market_id", u.MarketID,
			"price", u.Price,
			"amount", u.Amount,
			"inflow_usd", u.Smart.InflowUSD,
			"whale_score", u.Smart.WhaleScore,
			"trades", u.Smart.Trades,
			"book_imbalance", u.Smart.BookImbalance,
			"book_depth_usd", u.Smart.BookDepthUSD,
			"ts", u.TS.Format(time.RFC3339),
		)
	}, streamclient.WithLogger(logger))

	logger.Info("watching markets", "url", baseURL, "markets", markets, "duration", duration)
	client.Watch(markets...)

	if limit := int(cmd.Int("max-reconnects")); limit > 0 {
		go dropFailing(ctx, client, limit, logger)
	}

	<-ctx.Done()
	client.Close()

	logger.Info("done", "updates", updates.Load())
	for _, id := range markets {
		if n := client.Attempts(id); n > 0 {
			logger.Info("reconnects", "market_id", id, "count", n)
		}
	}
	return nil
}

// dropFailing unwatches markets whose stream has reconnected more than limit times.
func dropFailing(ctx context.Context, client *streamclient.Client, limit int, logger *slog.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, id := range client.Watching() {
			if n := client.Attempts(id); n > limit {
				logger.Warn("giving up on market", "market_id", id, "reconnects", n)
				client.Unwatch(id)
			}
		}
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "streamtest",
		Usage: "Watch realtime market streams and print each update",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"u"},
				Usage:   "Base URL of the signal server",
				Value:   "http://localhost:8080",
				Sources: cli.EnvVars("STREAMTEST_URL"),
			},
			&cli.StringSliceFlag{
				Name:     "market",
				Aliases:  []string{"m"},
				Usage:    "Market id to watch (repeatable)",
				Required: true,
			},
			&cli.DurationFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Usage:   "Stop after this long (0 runs until interrupted)",
			},
			&cli.IntFlag{
				Name:  "max-reconnects",
				Usage: "Stop watching a market after this many reconnects (0 never gives up)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log reconnects and stream frames",
			},
		},
		Action: watchAction,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
