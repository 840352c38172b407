// Command analytics starts the standalone analytics aggregation service.
//
// It consumes cloud events from Kafka, aggregates them in memory (clouds
// built, failures, latency percentiles, cache hit rate, top sources) and
// serves GET /api/v1/analytics. With a PostgreSQL store configured it also
// snapshots the totals periodically and serves them at
// GET /api/v1/analytics/history.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/postgres"
)

const snapshotInterval = time.Hour

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents,
		cfg.Kafka.ConsumerGroup+"-analytics", analytics.HandleEvent(aggregator))
	defer consumer.Close()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	checker := health.NewChecker()
	checker.Register("kafka", health.KafkaCheck(cfg.Kafka.Brokers))

	var snapshots analytics.SnapshotLister
	if cfg.Store.Driver == "postgres" {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, snapshot history disabled", "error", err)
		} else {
			defer db.Close()
			snapStore, err := analytics.NewSnapshotStore(ctx, db)
			if err != nil {
				slog.Error("failed to prepare snapshot store", "error", err)
				os.Exit(1)
			}
			snapStore.StartPeriodicSave(ctx, aggregator, snapshotInterval)
			snapshots = snapStore
			checker.Register("postgres", health.OptionalCheck(health.PingCheck(db)))
		}
	}

	analyticsHandler := analytics.NewHandler(aggregator, snapshots)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /api/v1/analytics/history", analyticsHandler.History)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
