package pipeline

import (
	"context"
	"log/slog"

	"github.com/mayank-kumar-sharma/soil-data-service/internal/domain"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/observability"
)

// PropertyResolver resolves every soil property for a coordinate.
type PropertyResolver interface {
	ResolveAll(ctx context.Context, coord domain.Coordinate) []domain.Resolution
}

// SoilEnricher implements Transformer by attaching resolved soil properties
// to each site record.
type SoilEnricher struct {
	resolver PropertyResolver
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewEnricher creates a SoilEnricher.
func NewEnricher(resolver PropertyResolver, metrics *observability.Metrics, logger *slog.Logger) *SoilEnricher {
	return &SoilEnricher{
		resolver: resolver,
		metrics:  metrics,
		logger:   logger,
	}
}

func (e *SoilEnricher) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	record, err := domain.ParseRawSite(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	resolutions := e.resolver.ResolveAll(ctx, record.Coordinate)
	for _, res := range resolutions {
		e.metrics.Resolutions.WithLabelValues(string(res.Property), res.Source).Inc()
		e.metrics.ResolutionAttempts.Observe(float64(res.Attempts))
	}

	record = domain.EnrichSiteRecord(record, resolutions)
	e.logger.Debug("site record enriched",
		"id", record.ID, "site_id", record.SiteID, "properties", len(record.SoilProperties))

	return domain.SerializeSiteRecord(record)
}
