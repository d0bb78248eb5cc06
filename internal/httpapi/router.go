package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"community-bot/internal/common/config"
	"community-bot/internal/common/logger"
	"community-bot/internal/membership"
	syncmembership "community-bot/internal/workers/storefront/sync-membership"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	Sync           *syncmembership.Service
	Pending        membership.PendingLinks
	Checks         map[string]ReadinessCheck
	RequestTimeout time.Duration
	BasicAuth      config.BasicAuthConfig
	AppName        string
	Version        string
	Logger         logger.Logger
}

type healthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// NewRouter builds the HTTP surface of the bot.
func NewRouter(opts Options) *chi.Mux {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Pending == nil {
		opts.Pending = membership.LogPendingLinks{Logger: opts.Logger}
	}
	log := opts.Logger.WithFields(map[string]interface{}{"component": "http"})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Service: opts.AppName, Version: opts.Version})
	})
	r.Get("/ready", ready(opts))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))
		if opts.BasicAuth.Enabled() {
			r.Use(middleware.BasicAuth(opts.AppName, map[string]string{
				opts.BasicAuth.Username: opts.BasicAuth.Password,
			}))
		}

		r.Put("/customers/{id}/syncMembership", syncMembership(opts.Sync, log))
		r.Get("/pending-links", listPendingLinks(opts.Pending, log))
		r.Delete("/pending-links/{userId}", resolvePendingLink(opts.Pending, log))
	})

	return r
}

func ready(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ready", Service: opts.AppName, Checks: map[string]string{}}
		status := http.StatusOK
		for name, check := range opts.Checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "not ready"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		writeJSON(w, status, resp)
	}
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			// Probes and scrapes would drown the log.
			if r.URL.Path == "/metrics" || r.URL.Path == "/health" || r.URL.Path == "/ready" {
				return
			}
			log.Info("HTTP request", map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"durationMs": time.Since(start).Milliseconds(),
				"requestId":  middleware.GetReqID(r.Context()),
			})
		})
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
