// Package pipeline drives the Kafka enrichment loop: raw site readings are
// extracted in batches, enriched with resolved soil properties, and loaded
// onto the sink topic.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mayank-kumar-sharma/soil-data-service/internal/domain"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/observability"
)

// Backoff window applied to transient extract and load failures.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts one raw event into its enriched output form.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader writes enriched events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline runs the extract-enrich-load loop. Offsets are committed only
// after their batch has been loaded, so a crash between load and commit
// re-delivers records rather than dropping them; deterministic record ids
// keep that replay idempotent downstream.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int

	ready atomic.Bool

	// backoff is touched only from the Run goroutine.
	backoff time.Duration
}

// New assembles a Pipeline from its three stages.
func New(extractor BatchExtractor, transformer Transformer, loader BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   extractor,
		transformer: transformer,
		loader:      loader,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		backoff:     initialBackoff,
	}
}

// CheckReadiness reports whether the pipeline has landed at least one
// enriched record on the sink.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any records yet")
	}
	return nil
}

// Run drives the enrichment loop until ctx is cancelled. Cancellation is the
// only way out; transient extract and load failures are retried with
// exponential backoff instead of being surfaced.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for ctx.Err() == nil {
		p.runCycle(ctx)
	}

	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// runCycle performs one extract-enrich-load pass.
func (p *Pipeline) runCycle(ctx context.Context) {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("extract batch failed", "error", err)
			p.holdOff(ctx)
		}
		return
	}
	if len(batch) == 0 {
		return
	}

	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	p.backoff = initialBackoff

	enriched, loadable := p.enrichBatch(ctx, batch)
	if len(enriched) == 0 {
		return
	}

	if err := p.loader.LoadBatch(ctx, enriched); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(enriched))
		p.holdOff(ctx)
		return
	}
	p.metrics.MessagesProduced.Add(float64(len(enriched)))

	for _, raw := range loadable {
		p.commit(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
}

// enrichBatch transforms each record in the batch. Records that fail are
// committed and skipped so a poison record cannot wedge the partition; the
// raw events behind the successes are returned for commit after load.
func (p *Pipeline) enrichBatch(ctx context.Context, batch []domain.RawEvent) ([]domain.OutputEvent, []domain.RawEvent) {
	enriched := make([]domain.OutputEvent, 0, len(batch))
	loadable := make([]domain.RawEvent, 0, len(batch))

	for _, raw := range batch {
		out, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping record",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commit(ctx, raw)
			continue
		}
		enriched = append(enriched, out)
		loadable = append(loadable, raw)
	}

	return enriched, loadable
}

// commit acknowledges one record's offset when the extractor provided a hook.
func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// holdOff sleeps for the current backoff and doubles it up to the cap,
// returning early on cancellation.
func (p *Pipeline) holdOff(ctx context.Context) {
	timer := time.NewTimer(p.backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	if next := p.backoff * 2; next <= maxBackoff {
		p.backoff = next
	} else {
		p.backoff = maxBackoff
	}
}
