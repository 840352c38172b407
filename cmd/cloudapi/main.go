// Command cloudapi starts the tag cloud HTTP API.
//
// It generates clouds inside requests, queues larger documents as Kafka
// jobs for cloudworker, stores every cloud, and serves stored clouds as JSON
// or as a rendered HTML page.
//
// Usage:
//
//	go run ./cmd/cloudapi [-config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/api"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/ratelimit"
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
	slog.Info("starting cloud api", "port", cfg.Server.Port, "store", cfg.Store.Driver)

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

	cloudCache := newCache(ctx, cfg, m, checker)

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CloudJobs)
	defer producer.Close()
	checker.Register("kafka", health.OptionalCheck(health.KafkaCheck(cfg.Kafka.Brokers)))

	eventProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer eventProducer.Close()
	collector := analytics.NewCollector(eventProducer, 500, 5*time.Second)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	h := api.NewHandler(api.Config{
		Builder:   jobs.NewBuilder(cloud.NewEngine(), cloudCache, cfg.Cloud.BuildTimeout),
		Store:     clouds,
		Cache:     cloudCache,
		Submitter: jobs.NewSubmitter(clouds, producer),
		Events:    collector,
		Metrics:   m,
		Limits:    cfg.Cloud,
	})

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Server.AllowOrigins
	routerCfg := api.RouterConfig{
		CORS:           cors,
		Metrics:        m,
		RequestTimeout: cfg.Server.RequestTimeout,
		Tracing:        cfg.Tracing.Enabled,
	}
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		defer limiter.Stop()
		routerCfg.Limiter = limiter
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(h, checker, routerCfg),
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

	slog.Info("cloud api listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("cloud api stopped")
}

// newCache connects to Redis when enabled. Without Redis every request is
// computed.
func newCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics, checker *health.Checker) *cache.CloudCache {
	cacheCfg := cache.Config{TTL: cfg.Redis.CacheTTL}
	if m != nil {
		cacheCfg.OnBreakerChange = m.BreakerStateHook()
	}
	if !cfg.Redis.Enabled {
		slog.Info("cloud cache disabled")
		return cache.New(nil, cacheCfg)
	}
	client, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, cloud caching disabled", "error", err)
		return cache.New(nil, cacheCfg)
	}
	go func() {
		<-ctx.Done()
		_ = client.Close()
	}()
	checker.Register("redis", health.OptionalCheck(health.PingCheck(client)))
	slog.Info("cloud cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	return cache.New(cache.Redis(client), cacheCfg)
}
