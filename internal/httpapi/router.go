package httpapi

import (
	"context"
	"net/http"
	"time"

	"order-service/internal/logger"
	"order-service/internal/metrics"
	"order-service/internal/middleware"
	"order-service/internal/order"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// HealthFunc reports whether a dependency is usable, e.g. (*sql.DB).PingContext.
type HealthFunc func(ctx context.Context) error

type Config struct {
	Orders      order.Service
	Metrics     *metrics.Metrics
	RateLimiter *middleware.RateLimiter
	JWTSecret   string
	CORSOrigin  string
	Health      HealthFunc
}

func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(logger.RequestIDMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics(cfg.Metrics))

	r.Get("/health", healthHandler(cfg.Health))
	r.Handle("/metrics", cfg.Metrics.Handler())

	r.Route("/api/orders", func(api chi.Router) {
		api.Use(middleware.Auth(cfg.JWTSecret))
		if cfg.RateLimiter != nil {
			api.Use(cfg.RateLimiter.Middleware)
		}
		NewOrderHandler(cfg.Orders).Routes(api)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

func healthHandler(check HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.FromCtx(r.Context()).Warn("health check failed", zap.Error(err))
				writeFailure(w, http.StatusServiceUnavailable, "DOWN")
				return
			}
		}
		writeSuccess(w, http.StatusOK, "OK", map[string]string{"status": "UP"})
	}
}
