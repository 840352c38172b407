// Command cloudworker consumes queued cloud jobs from Kafka, builds each
// cloud and stores the outcome under the job id.
//
// Usage:
//
//	go run ./cmd/cloudworker [-config configs/development.yaml]
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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/store"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting cloud worker",
		"topic", cfg.Kafka.Topics.CloudJobs,
		"group", cfg.Kafka.ConsumerGroup,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clouds, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open cloud store", "error", err)
		os.Exit(1)
	}
	defer clouds.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()
	checker.Register("store", health.PingCheck(clouds))
	checker.Register("kafka", health.KafkaCheck(cfg.Kafka.Brokers))

	cacheCfg := cache.Config{TTL: cfg.Redis.CacheTTL}
	if m != nil {
		cacheCfg.OnBreakerChange = m.BreakerStateHook()
	}
	var backend cache.Backend
	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, cloud caching disabled", "error", err)
		} else {
			defer client.Close()
			backend = cache.Redis(client)
			checker.Register("redis", health.OptionalCheck(health.PingCheck(client)))
		}
	}

	eventProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer eventProducer.Close()
	collector := analytics.NewCollector(eventProducer, 500, 5*time.Second)
	collector.Start(ctx)
	defer collector.Close()

	worker := jobs.NewWorker(jobs.WorkerConfig{
		Engine:  cloud.NewEngine(),
		Store:   clouds,
		Cache:   cache.New(backend, cacheCfg),
		Events:  collector,
		Metrics: m,
		Timeout: cfg.Cloud.BuildTimeout,
	})

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CloudJobs, cfg.Kafka.ConsumerGroup, worker.Handle)
	defer consumer.Close()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("job consumer stopped", "error", err)
			stop()
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.RequestID(mux),
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

	slog.Info("cloud worker health endpoint listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("cloud worker stopped")
}
