package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/veithly/PolyAlpha/internal/api"
	"github.com/veithly/PolyAlpha/internal/feed"
	"github.com/veithly/PolyAlpha/internal/model"
	"github.com/veithly/PolyAlpha/internal/poller"
	"github.com/veithly/PolyAlpha/internal/pulse"
	"github.com/veithly/PolyAlpha/internal/stream"
)

// handleStream serves GET /api/markets/stream?marketId=.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.StreamEnabled {
		writeError(w, NewError(CodeWSDisabled, http.StatusServiceUnavailable,
			"Realtime market stream is disabled in this environment."))
		return
	}

	req := streamRequest{
		Accept:   r.Header.Get("Accept"),
		MarketID: r.URL.Query().Get("marketId"),
	}
	if err := s.validateStream(req); err != nil {
		writeError(w, err)
		return
	}

	session := stream.NewSession(w, req.MarketID, s.cfg.Stream, s.deps.Feed, s.deps.Books, s.deps.Recorder, s.logger)
	session.Run(r.Context())
}

// handleSmartMoney serves GET /api/markets/{id}/smart-money.
func (s *Server) handleSmartMoney(w http.ResponseWriter, r *http.Request) {
	marketID := mux.Vars(r)["id"]
	if marketID == "" {
		writeError(w, NewError(CodeInvalidRequest, http.StatusBadRequest, "marketId is required"))
		return
	}

	detail, err := s.deps.Markets.GetMarket(r.Context(), marketID)
	switch {
	case errors.Is(err, api.ErrMarketNotFound):
		writeError(w, NewError(CodeNotFound, http.StatusNotFound, "Market not found"))
		return
	case err != nil:
		s.logger.Warn("market lookup failed", "market_id", marketID, "error", err)
		writeError(w, WrapError(CodeUpstreamUnavailable, http.StatusBadGateway, "Market data unavailable", err))
		return
	}

	sm := pulse.SmartMoney(*detail, time.Now().UTC())
	sm.MarketID = marketID
	writeSuccess(w, sm)
}

// handleDetailStream serves GET /api/markets/{id}/stream: market detail pushed on
// an interval for a bounded number of frames.
func (s *Server) handleDetailStream(w http.ResponseWriter, r *http.Request) {
	marketID := mux.Vars(r)["id"]
	if marketID == "" {
		writeError(w, NewError(CodeInvalidRequest, http.StatusBadRequest, "id is required"))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	rc := http.NewResponseController(w)
	write := func(format string, args ...any) error {
		if _, err := fmt.Fprintf(w, format, args...); err != nil {
			cancel()
			return err
		}
		if err := rc.Flush(); err != nil {
			cancel()
			return err
		}
		return nil
	}

	stream.SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)
	if err := write("event: open\n\n"); err != nil {
		return
	}

	push := func(v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return write("data: %s\n\n", data)
	}

	p := poller.New(
		poller.Config{
			Interval: s.cfg.DetailInterval,
			Timeout:  s.cfg.DetailInterval,
			MaxPolls: s.cfg.DetailMaxPushes,
		},
		func(ctx context.Context) (*model.MarketDetail, error) {
			return s.deps.Markets.GetMarket(ctx, marketID)
		},
		poller.HandlerFunc[*model.MarketDetail](func(detail *model.MarketDetail) error {
			return push(detail)
		}),
		s.logger,
	).OnError(func(err error) {
		if errors.Is(err, api.ErrMarketNotFound) {
			return
		}
		push(map[string]string{"error": "fetch_failed"})
	})

	p.Start(ctx)
	select {
	case <-ctx.Done():
	case <-p.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), s.cfg.DetailInterval+time.Second)
	defer stopCancel()
	p.Stop(stopCtx)
}

type healthResponse struct {
	Status     string         `json:"status"`
	Version    string         `json:"version,omitempty"`
	Components map[string]any `json:"components"`
}

// handleHealth serves GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := healthResponse{
		Status:     "healthy",
		Version:    s.deps.Version,
		Components: make(map[string]any),
	}

	if s.deps.Feed != nil {
		stats := s.deps.Feed.Stats()
		health.Components["feed"] = stats
		if stats.Markets > 0 && stats.State != feed.StateOpen.String() {
			health.Status = "degraded"
		}
	}
	health.Components["stream_enabled"] = s.cfg.StreamEnabled

	for name, check := range s.deps.Checks {
		if err := check.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components[name] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
			continue
		}
		health.Components[name] = "connected"
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
