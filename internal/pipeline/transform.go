package pipeline

import (
	"context"
	"log/slog"

	"github.com/fleetsight/vehicle-telemetry-etl/internal/domain"
)

// TelemetryTransformer implements Transformer using the domain cleaning rules
// with optional reverse-geocoding enrichment.
type TelemetryTransformer struct {
	geocoder    domain.Geocoder
	concurrency int
	logger      *slog.Logger
}

// NewTransformer creates a TelemetryTransformer. Pass a nil geocoder to
// disable address enrichment.
func NewTransformer(geocoder domain.Geocoder, concurrency int, logger *slog.Logger) *TelemetryTransformer {
	return &TelemetryTransformer{
		geocoder:    geocoder,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (t *TelemetryTransformer) Transform(ctx context.Context, rows []domain.RawRecord) ([]domain.CleanRecord, domain.TransformStats) {
	records, stats := domain.CleanTable(rows)
	domain.EnrichWithAddresses(ctx, records, t.geocoder, t.concurrency, t.logger)
	return records, stats
}
