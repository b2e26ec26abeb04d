package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/me-karanm/cerebro-ai-sub001/cmd/mainconfig"
	"github.com/me-karanm/cerebro-ai-sub001/internal/api/router"
	"github.com/me-karanm/cerebro-ai-sub001/internal/app/bootstrap"
	"github.com/me-karanm/cerebro-ai-sub001/internal/archive"
	appconfig "github.com/me-karanm/cerebro-ai-sub001/internal/config"
	"github.com/me-karanm/cerebro-ai-sub001/internal/contacts"
	"github.com/me-karanm/cerebro-ai-sub001/internal/csvimport"
	"github.com/me-karanm/cerebro-ai-sub001/internal/events"
	httpmiddleware "github.com/me-karanm/cerebro-ai-sub001/internal/http/middleware"
	"github.com/me-karanm/cerebro-ai-sub001/internal/observability/metrics"
	"github.com/me-karanm/cerebro-ai-sub001/pkg/logging"
)

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting contacts API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, contactMetrics := setupContactMetrics()

	// Redis change events
	var publisher *events.RedisPublisher
	stopPublisher := func() {}
	if redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true); redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		publisher = events.NewRedisPublisher(redisClient, cfg.ContactEventsChannel, logger)
		stopPublisher = publisher.Run()
		logger.Info("contact events enabled", "channel", cfg.ContactEventsChannel)
	}

	registry := bootstrap.BuildContactRegistry(cfg, contactMetrics, publisher, logger)

	// Postgres snapshots
	var snapshots bootstrap.Snapshotter
	if pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger); pool != nil {
		defer pool.Close()
		snapshots = contacts.NewSnapshotRepository(pool)
		if err := bootstrap.HydrateRegistry(ctx, snapshots, registry, logger); err != nil {
			logger.Error("failed to restore contact snapshots", "error", err)
		}
	}

	archiver, err := buildExportArchiver(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to configure export archive", "error", err)
		os.Exit(1)
	}

	contactsHandler := contacts.NewHandler(registry, cfg.SimulatedLatency, archiver, logger)
	importHandler := csvimport.NewHandler(contactsHandler, cfg.MaxImportBytes, logger, contactMetrics)
	importLimiter := httpmiddleware.NewRateLimiter(cfg.ImportRateLimit, cfg.ImportRateBurst)
	defer importLimiter.Stop()

	r := router.New(&router.Config{
		Logger:             logger,
		ContactsHandler:    contactsHandler,
		ImportHandler:      importHandler,
		ImportLimiter:      importLimiter,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	if snapshots != nil {
		if err := bootstrap.SaveRegistry(shutdownCtx, snapshots, registry, logger); err != nil {
			logger.Error("failed to save contact snapshots", "error", err)
		}
	}

	// runs after Shutdown so events from drained requests are still published
	stopPublisher()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupContactMetrics builds a private registry so tests can call it more
// than once without duplicate registration panics.
func setupContactMetrics() (http.Handler, *metrics.ContactMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewContactMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// buildExportArchiver returns an S3-backed archive, or a disabled one when no
// bucket is configured.
func buildExportArchiver(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*archive.ExportStore, error) {
	if cfg.ExportArchiveBucket == "" {
		return archive.NewExportStore(nil, "", logger.Logger), nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client := mainconfig.NewS3Client(awsCfg, cfg)
	logger.Info("export archive enabled", "bucket", cfg.ExportArchiveBucket)
	return archive.NewExportStore(client, cfg.ExportArchiveBucket, logger.Logger), nil
}
