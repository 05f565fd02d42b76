// Package scout coordinates analysis runs: it fetches a channel's message
// window from storage, drives the analysis pipeline over it, persists the
// outcome, and folds completed runs into the cumulative lead profiles.
package scout

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/lead-scout-bot/internal/analysis"
	"github.com/lueurxax/lead-scout-bot/internal/config"
	coreerrors "github.com/lueurxax/lead-scout-bot/internal/core/errors"
	"github.com/lueurxax/lead-scout-bot/internal/observability"
	"github.com/lueurxax/lead-scout-bot/internal/storage"
)

// Repository is the storage surface the scout needs.
type Repository interface {
	GetChannelMessages(ctx context.Context, channelID string, since time.Time, limit int) ([]analysis.Message, error)
	SaveRunResult(ctx context.Context, result *analysis.Result) error
	UpsertLeads(ctx context.Context, records []analysis.ScoringRecord, tier storage.TierFunc) error
	GetLatestRun(ctx context.Context, channelID string) (*storage.RunRecord, error)
	GetRunLeads(ctx context.Context, runID string) ([]analysis.ScoringRecord, error)
	ChannelsWithBacklog(ctx context.Context, minPending int) ([]storage.ChannelBacklog, error)
}

// Scout runs channel analyses. Runs for different channels may execute
// concurrently; per channel only one run is active at a time.
type Scout struct {
	cfg          *config.Config
	repo         Repository
	orchestrator *analysis.Orchestrator
	aggregator   *analysis.Aggregator
	registry     *runRegistry
	logger       *zerolog.Logger
}

func New(cfg *config.Config, repo Repository, extractor analysis.Extractor, logger *zerolog.Logger) *Scout {
	policy := analysis.ScoringPolicy{
		HighTierScoreThreshold:     cfg.HighTierScoreThreshold,
		HighTierMessageThreshold:   cfg.HighTierMessageThreshold,
		MediumTierScoreThreshold:   cfg.MediumTierScoreThreshold,
		MediumTierMessageThreshold: cfg.MediumTierMessageThreshold,
		FrequencyBonus:             cfg.FrequencyBonus,
		FrequencyBonusCap:          cfg.FrequencyBonusCap,
	}

	aggregator := analysis.NewAggregator(policy)

	return &Scout{
		cfg:          cfg,
		repo:         repo,
		orchestrator: analysis.NewOrchestrator(extractor, aggregator, analysis.CharEstimator{}, logger),
		aggregator:   aggregator,
		registry:     newRunRegistry(),
		logger:       logger,
	}
}

// RunConfig builds the immutable per-run configuration from the loaded config.
func (s *Scout) RunConfig() analysis.RunConfig {
	return analysis.RunConfig{
		TokenBudget:        s.cfg.TokenBudget,
		MessageCountBudget: s.cfg.MessageCountBudget,
		MaxMessageTokens:   s.cfg.MaxMessageTokens,
		Keywords:           s.cfg.CustomerKeywords,
		MaxRetries:         s.cfg.MaxRetries,
		BackoffBase:        s.cfg.BackoffBase,
	}
}

// AnalyzeChannel runs a full analysis over the channel's message window and
// persists the outcome. The returned result is non-nil even when the run
// failed partway: it carries the records aggregated before the failure.
func (s *Scout) AnalyzeChannel(ctx context.Context, channelID string, since time.Time, limit int) (*analysis.Result, error) {
	runCtx, release, err := s.registry.acquire(ctx, channelID)
	if err != nil {
		return nil, err
	}
	defer release()

	messages, err := s.repo.GetChannelMessages(runCtx, channelID, since, limit)
	if err != nil {
		result := failedResult(channelID, err)
		s.persist(ctx, result)

		return result, err
	}

	result, runErr := s.orchestrator.Analyze(runCtx, channelID, messages, s.RunConfig())

	// Persist with the parent context so a cancelled run still gets recorded.
	s.persist(ctx, result)

	if result.Run.Status == analysis.StatusCompleted && len(result.Records) > 0 {
		if err := s.repo.UpsertLeads(ctx, result.Records, s.aggregator.Tier); err != nil {
			s.logger.Error().Err(err).Str("run_id", result.Run.ID).Msg("failed to upsert leads")
		}

		for _, rec := range result.Records {
			observability.LeadsIdentified.WithLabelValues(rec.EngagementTier).Inc()
		}
	}

	return result, runErr
}

// Cancel requests cancellation of the channel's active run. The run stops at
// the next batch boundary. Returns false when no run is active.
func (s *Scout) Cancel(channelID string) bool {
	return s.registry.cancel(channelID)
}

// Active reports whether a run is currently in progress for the channel.
func (s *Scout) Active(channelID string) bool {
	return s.registry.active(channelID)
}

// LatestRun returns the channel's most recent persisted run and its leads.
func (s *Scout) LatestRun(ctx context.Context, channelID string) (*storage.RunRecord, []analysis.ScoringRecord, error) {
	rec, err := s.repo.GetLatestRun(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}

	leads, err := s.repo.GetRunLeads(ctx, rec.Run.ID)
	if err != nil {
		return nil, nil, err
	}

	return rec, leads, nil
}

// SweepBacklog analyzes every channel whose unanalyzed backlog reached the
// configured minimum. Used by the worker mode.
func (s *Scout) SweepBacklog(ctx context.Context) error {
	backlogs, err := s.repo.ChannelsWithBacklog(ctx, s.cfg.WorkerMinBacklog)
	if err != nil {
		return fmt.Errorf("sweep backlog: %w", err)
	}

	observability.AnalysisBacklog.Set(float64(len(backlogs)))

	since := time.Now().UTC().Add(-s.cfg.AnalyzeDefaultWindow)

	for _, backlog := range backlogs {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := s.AnalyzeChannel(ctx, backlog.ChannelID, since, s.cfg.AnalyzeDefaultLimit)
		if err != nil {
			if coreerrors.Is(err, coreerrors.ErrRunAlreadyActive) {
				continue
			}

			s.logger.Error().Err(err).Str("channel_id", backlog.ChannelID).Msg("backlog analysis failed")
		}
	}

	return nil
}

func (s *Scout) persist(ctx context.Context, result *analysis.Result) {
	if err := s.repo.SaveRunResult(ctx, result); err != nil {
		s.logger.Error().Err(err).Str("run_id", result.Run.ID).Msg("failed to persist run result")
	}
}

func failedResult(channelID string, cause error) *analysis.Result {
	now := time.Now().UTC()

	return &analysis.Result{
		Run: analysis.Run{
			ID:          newRunID(),
			ChannelID:   channelID,
			Status:      analysis.StatusFailed,
			StartedAt:   now,
			CompletedAt: now,
			Error:       cause.Error(),
		},
	}
}
