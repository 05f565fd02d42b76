package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/lead-scout-bot/internal/core/errors"
	"github.com/lueurxax/lead-scout-bot/internal/observability"
	"github.com/lueurxax/lead-scout-bot/internal/worker"
)

// Extractor sends one batch to the language model and returns the structured
// signal records it extracted. Implementations classify failures as
// ErrTransientCall, ErrFatalCall or ErrMalformedResponse.
type Extractor interface {
	Extract(ctx context.Context, batch Batch, keywords []string) ([]SignalRecord, error)
}

// RunConfig is the immutable configuration for one analysis run.
type RunConfig struct {
	TokenBudget        int
	MessageCountBudget int
	// MaxMessageTokens is the hard cap above which a lone oversized message
	// is skipped instead of sent to the model.
	MaxMessageTokens int
	Keywords         []string
	MaxRetries       int
	BackoffBase      time.Duration
}

// Result carries the outcome of a run: the terminal Run state, the ranked
// scoring records (partial on failure), the skip list, and how many batches
// completed before the run ended.
type Result struct {
	Run              Run
	Records          []ScoringRecord
	Skipped          []SkipEntry
	BatchesCompleted int
	TotalBatches     int
}

// Orchestrator drives batching, extraction and aggregation over a channel's
// message history. One orchestrator instance serves one run at a time;
// independent runs for different channels use independent calls and share
// no mutable state.
type Orchestrator struct {
	extractor  Extractor
	aggregator *Aggregator
	estimator  Estimator
	logger     *zerolog.Logger
}

func NewOrchestrator(extractor Extractor, aggregator *Aggregator, estimator Estimator, logger *zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		extractor:  extractor,
		aggregator: aggregator,
		estimator:  estimator,
		logger:     logger,
	}
}

// Analyze runs the full pipeline over messages. Batches are processed
// strictly in source order with one model call outstanding. Transient call
// failures are retried with exponential backoff; fatal and malformed-response
// failures end the run as failed at that batch index, preserving the records
// aggregated from prior batches. Cancellation is honored at batch boundaries.
// Empty input completes with an empty record list.
func (o *Orchestrator) Analyze(ctx context.Context, channelID string, messages []Message, cfg RunConfig) (*Result, error) {
	run := Run{
		ID:        uuid.New().String(),
		ChannelID: channelID,
		Status:    StatusInProgress,
		StartedAt: time.Now().UTC(),
	}

	logger := o.logger.With().Str("run_id", run.ID).Str("channel_id", channelID).Logger()

	batches := BatchMessages(messages, cfg.TokenBudget, cfg.MessageCountBudget, o.estimator)
	result := &Result{Run: run, TotalBatches: len(batches)}

	logger.Info().Int("messages", len(messages)).Int("batches", len(batches)).Msg("starting analysis run")

	var signals []SignalRecord

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return o.fail(result, signals, i, coreerrors.ErrRunCancelled)
		}

		if cfg.MaxMessageTokens > 0 && len(batch.Messages) == 1 && batch.EstimatedTokens > cfg.MaxMessageTokens {
			logger.Warn().Int("batch", i).Int("tokens", batch.EstimatedTokens).Msg("skipping oversized message")
			result.Skipped = append(result.Skipped, SkipEntry{
				BatchIndex: i,
				Reason:     fmt.Sprintf("%v: %d tokens estimated", coreerrors.ErrBudgetExceeded, batch.EstimatedTokens),
			})
			observability.BatchesProcessed.WithLabelValues("skipped").Inc()

			continue
		}

		batchSignals, err := o.extractWithRetry(ctx, batch, cfg, logger)
		if err != nil {
			observability.BatchesProcessed.WithLabelValues("failed").Inc()
			return o.fail(result, signals, i, err)
		}

		signals = append(signals, batchSignals...)
		result.BatchesCompleted++
		observability.BatchesProcessed.WithLabelValues("ok").Inc()

		logger.Debug().Int("batch", i).Int("signals", len(batchSignals)).Msg("batch extracted")
	}

	result.Records = o.aggregator.Aggregate(signals)
	result.Run.Status = StatusCompleted
	result.Run.CompletedAt = time.Now().UTC()

	observability.RunsTotal.WithLabelValues(StatusCompleted).Inc()
	logger.Info().Int("participants", len(result.Records)).Int("skipped", len(result.Skipped)).Msg("analysis run completed")

	return result, nil
}

func (o *Orchestrator) extractWithRetry(ctx context.Context, batch Batch, cfg RunConfig, logger zerolog.Logger) ([]SignalRecord, error) {
	delay := cfg.BackoffBase
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			observability.LLMCallRetries.Inc()
			logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("backoff", delay).Msg("retrying batch extraction")

			if err := worker.Wait(ctx, delay); err != nil {
				return nil, coreerrors.ErrRunCancelled
			}

			delay *= 2
		}

		records, err := o.extractor.Extract(ctx, batch, cfg.Keywords)
		if err == nil {
			return records, nil
		}

		lastErr = err

		if !coreerrors.Is(err, coreerrors.ErrTransientCall) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

// fail aggregates whatever was extracted before the failure and marks the run
// failed. Partial records are preserved so the caller can still use them.
func (o *Orchestrator) fail(result *Result, signals []SignalRecord, batchIndex int, cause error) (*Result, error) {
	result.Records = o.aggregator.Aggregate(signals)
	result.Run.Status = StatusFailed
	result.Run.CompletedAt = time.Now().UTC()
	result.Run.Error = fmt.Sprintf("batch %d: %v", batchIndex, cause)

	observability.RunsTotal.WithLabelValues(StatusFailed).Inc()
	o.logger.Error().Err(cause).Str("run_id", result.Run.ID).Int("batch", batchIndex).
		Int("batches_completed", result.BatchesCompleted).Msg("analysis run failed")

	return result, fmt.Errorf("batch %d: %w", batchIndex, cause)
}
