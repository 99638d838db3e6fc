package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tremorlab/quake-hazard-service/internal/adapter/feeds"
	httpadapter "github.com/tremorlab/quake-hazard-service/internal/adapter/http"
	kafkaadapter "github.com/tremorlab/quake-hazard-service/internal/adapter/kafka"
	"github.com/tremorlab/quake-hazard-service/internal/aggregate"
	"github.com/tremorlab/quake-hazard-service/internal/config"
	"github.com/tremorlab/quake-hazard-service/internal/hazard"
	"github.com/tremorlab/quake-hazard-service/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// The hazard datasets are optional at startup: a missing file degrades
	// the affected endpoint to 503 while the rest of the API stays up.
	raster, err := hazard.LoadRaster(cfg.Vs30DatasetPath)
	if err != nil {
		logger.Warn("vs30 raster unavailable", "path", cfg.Vs30DatasetPath, "error", err)
	} else {
		w, h := raster.Size()
		logger.Info("vs30 raster loaded", "width", w, "height", h)
	}

	faults, err := hazard.LoadFaults(cfg.FaultsGeoJSONPath)
	if err != nil {
		logger.Warn("fault geometry unavailable", "path", cfg.FaultsGeoJSONPath, "error", err)
	} else {
		logger.Info("fault geometry loaded", "lines", faults.LineCount())
	}

	adapters := []feeds.Adapter{
		feeds.NewAFADClient(cfg.ProviderTimeout, logger),
		feeds.NewKandilliClient(cfg.ProviderTimeout, logger),
		feeds.NewUSGSClient(cfg.ProviderTimeout, logger),
		feeds.NewEMSCClient(cfg.ProviderTimeout, logger),
		feeds.NewIRISClient(cfg.ProviderTimeout, logger),
	}

	// Canonical event publishing is feature-flagged via KAFKA_ENABLED.
	var publisher aggregate.EventPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	svc := aggregate.NewService(adapters, cfg.CacheTTL, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, raster, faults, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
