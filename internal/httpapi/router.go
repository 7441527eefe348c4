// Package httpapi holds the HTTP plumbing shared by the feature handlers:
// the chi router, access logging, request decoding and the JSON envelope.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fekuna/omnipos-catalog-service/internal/pkg/logger"
)

// RouteRegistrar is implemented by the feature handlers. Routes are mounted
// under /api/v1.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// HealthFunc reports whether the service can take traffic.
type HealthFunc func(ctx context.Context) error

type RouterConfig struct {
	AllowedOrigins []string
	Health         HealthFunc
}

func NewRouter(cfg RouterConfig, log logger.ZapLogger, registrars ...RouteRegistrar) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(AccessLog(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler(cfg.Health))

	r.Route("/api/v1", func(r chi.Router) {
		for _, reg := range registrars {
			reg.RegisterRoutes(r)
		}
	})

	return r
}

func healthHandler(check HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}
