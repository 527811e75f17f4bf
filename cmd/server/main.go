package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-service/internal/config"
	"order-service/internal/db"
	"order-service/internal/events"
	"order-service/internal/httpapi"
	"order-service/internal/logger"
	"order-service/internal/metrics"
	"order-service/internal/middleware"
	"order-service/internal/order"
	"order-service/internal/product"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Overridable in tests.
var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server exited", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, cleanup := newServer(ctx, cfg, database)
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.L().Info("order service listening", zap.String("addr", srv.Addr))
	return serve(ctx, srv)
}

// newServer wires every dependency and returns the root handler plus a
// cleanup func releasing what it opened.
func newServer(ctx context.Context, cfg *config.Config, database *sql.DB) (http.Handler, func()) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	catalog := product.NewHTTPClient(
		cfg.ProductServiceURL,
		cfg.ProductClientTimeout,
		product.WithMetrics(m),
	)
	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.OrderEventsTopic)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, catalog, publisher, m)

	handler := httpapi.NewRouter(httpapi.Config{
		Orders:      orderSvc,
		Metrics:     m,
		RateLimiter: middleware.NewRateLimiter(ctx, cfg.InternalSecretKey),
		JWTSecret:   cfg.JWTSecret,
		CORSOrigin:  cfg.CORSAllowedOrigin,
		Health:      database.PingContext,
	})

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			logger.L().Warn("failed to close event publisher", zap.Error(err))
		}
	}
	return handler, cleanup
}

func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- startServerFunc(srv) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.L().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
