package server

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder captures the response status while keeping Flush reachable.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(p)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withAPILogging logs one line per request tagged with action.
func withAPILogging(action string, logger *slog.Logger, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			status := rec.status
			if p := recover(); p != nil {
				status = http.StatusInternalServerError
				logger.Error("handler panic", "action", action, "panic", p)
				if rec.status == 0 {
					writeError(rec, NewError(CodeInternal, status, "Internal server error"))
				}
			}
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []any{
				"source", "api",
				"action", action,
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if wallet := r.Header.Get("X-Wallet-Address"); wallet != "" {
				attrs = append(attrs, "wallet", wallet)
			}
			logger.Info("api request", attrs...)
		}()

		next(rec, r)
	})
}
