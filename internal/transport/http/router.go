package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"adega/internal/platform/metrics"
	"adega/internal/platform/middleware"
	"adega/internal/transport/http/shared"
)

const requestTimeout = 30 * time.Second

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterConfig wires the storefront API.
type RouterConfig struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	CookieSecure bool
	Handlers     []Registrar
	Health       map[string]HealthCheck
}

// NewRouter builds the chi router. Storefront routes run under the storage
// scope middleware; /health and /metrics do not issue cookies.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(cfg.Logger))

	r.Get("/health", healthHandler(cfg.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(middleware.LatencyMiddleware(cfg.Metrics))
		r.Use(middleware.StorageScope(cfg.CookieSecure))
		r.Use(middleware.ContentTypeJSON)
		for _, h := range cfg.Handlers {
			h.Register(r)
		}
	})
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status[name] = "down"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "up"
		}
		shared.WriteJSON(w, code, map[string]any{
			"status":       http.StatusText(code),
			"dependencies": status,
		})
	}
}
