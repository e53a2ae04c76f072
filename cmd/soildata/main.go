package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/mayank-kumar-sharma/soil-data-service/internal/adapter/http"
	kafkaadapter "github.com/mayank-kumar-sharma/soil-data-service/internal/adapter/kafka"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/adapter/soilgrids"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/config"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/domain"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/observability"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := soilgrids.NewClient(soilgrids.Config{
		BaseURL:          cfg.SoilGridsBaseURL,
		Timeout:          cfg.SoilGridsTimeout,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown,
		RateLimit:        cfg.SoilGridsRateLimit,
	}, metrics, logger)

	var source domain.Source = client
	if cfg.SoilGridsCacheSize > 0 {
		source = soilgrids.NewCachedSource(client, cfg.SoilGridsCacheSize, metrics)
		logger.Info("observation cache enabled", "max_entries", cfg.SoilGridsCacheSize)
	} else {
		logger.Info("observation cache disabled")
	}

	resolver := domain.NewResolver(source, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ready httpadapter.ReadinessChecker
	var reader *kafkaadapter.Reader
	var writer *kafkaadapter.Writer

	if cfg.PipelineEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		enricher := pipeline.NewEnricher(resolver, metrics, logger)
		p := pipeline.New(reader, enricher, writer, logger, metrics, cfg.BatchSize)
		ready = p

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
		logger.Info("enrichment pipeline enabled",
			"brokers", cfg.KafkaBrokers,
			"source_topic", cfg.KafkaSourceTopic,
			"sink_topic", cfg.KafkaSinkTopic,
		)
	} else {
		logger.Info("enrichment pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, resolver, ready, metrics, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("soil data service started", "addr", cfg.HTTPAddr)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
