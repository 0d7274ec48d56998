package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetsight/vehicle-telemetry-etl/internal/domain"
	"github.com/fleetsight/vehicle-telemetry-etl/internal/observability"
)

// Extractor reads one source file into a raw in-memory table.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) ([]domain.RawRecord, error)
}

// Transformer cleans a raw table into persistable records. Transformation is
// table-scoped rather than row-scoped because mileage interpolation depends
// on the surviving row order.
type Transformer interface {
	Transform(ctx context.Context, rows []domain.RawRecord) ([]domain.CleanRecord, domain.TransformStats)
}

// Loader persists a cleaned table as one logical batch.
type Loader interface {
	LoadBatch(ctx context.Context, records []domain.CleanRecord) (domain.LoadResult, error)
	Ping(ctx context.Context) error
}

// Report summarizes one file load: transform-stage accounting plus what the
// loader committed. On failure the load counts cover whatever was persisted
// before the error, which callers need to decide about a re-run.
type Report struct {
	File      string                `json:"file"`
	Transform domain.TransformStats `json:"transform"`
	Load      domain.LoadResult     `json:"load"`
	Duration  time.Duration         `json:"-"`
}

// Pipeline wires the extract-transform-load stages for single-file, in-full,
// synchronous batch runs. Concurrent LoadFile calls against the same store
// are serialized by the loader, not here.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, t Transformer, l Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil when the target store is reachable.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	return p.loader.Ping(ctx)
}

// LoadFile runs one complete extract-transform-load cycle for a single CSV
// file. The returned Report is meaningful even when err is non-nil.
func (p *Pipeline) LoadFile(ctx context.Context, path string) (Report, error) {
	start := time.Now()
	report := Report{File: path}

	rows, err := p.extractor.ExtractFile(ctx, path)
	if err != nil {
		p.metrics.LoadsTotal.WithLabelValues("failure").Inc()
		return report, fmt.Errorf("extract %s: %w", path, err)
	}
	p.metrics.RowsExtracted.Add(float64(len(rows)))

	records, stats := p.transformer.Transform(ctx, rows)
	report.Transform = stats
	p.metrics.RowsDropped.WithLabelValues("missing_vin").Add(float64(stats.DroppedMissingVIN))
	p.metrics.RowsDropped.WithLabelValues("bad_timestamp").Add(float64(stats.DroppedBadTimestamp))
	p.metrics.CoercionErrors.Add(float64(stats.CoercionFailures))

	if stats.DroppedMissingVIN > 0 || stats.DroppedBadTimestamp > 0 {
		p.logger.Warn("rows dropped during cleaning",
			"file", path,
			"missing_vin", stats.DroppedMissingVIN,
			"bad_timestamp", stats.DroppedBadTimestamp,
		)
	}

	result, err := p.loader.LoadBatch(ctx, records)
	report.Load = result
	report.Duration = time.Since(start)
	if err != nil {
		p.metrics.LoadsTotal.WithLabelValues("failure").Inc()
		p.logger.Error("load failed",
			"file", path,
			"rows_accepted", result.RowsAccepted,
			"error", err,
		)
		return report, fmt.Errorf("load %s: %w", path, err)
	}

	p.metrics.LoadsTotal.WithLabelValues("success").Inc()
	p.metrics.LoadDuration.Observe(report.Duration.Seconds())
	p.metrics.SamplesInserted.Add(float64(result.SamplesInserted))
	p.metrics.VehiclesCreated.Add(float64(result.VehiclesCreated))

	p.logger.Info("file loaded",
		"file", path,
		"rows_in", stats.RowsIn,
		"rows_out", stats.RowsOut,
		"samples_inserted", result.SamplesInserted,
		"vehicles_created", result.VehiclesCreated,
		"duration", report.Duration,
	)
	return report, nil
}
