package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/lead-scout-bot/internal/analysis"
	coreerrors "github.com/lueurxax/lead-scout-bot/internal/core/errors"
)

// RunRecord is a persisted analysis run with its progress counters.
type RunRecord struct {
	Run              analysis.Run
	BatchesCompleted int
	TotalBatches     int
}

// SaveRunResult persists a finished run together with its scoring records and
// skip list in one transaction. Concurrent runs for different channels write
// independently; rows are keyed by (run_id, participant_id).
func (db *DB) SaveRunResult(ctx context.Context, result *analysis.Result) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	run := result.Run

	_, err = tx.Exec(ctx, `
		INSERT INTO analysis_runs (id, channel_id, status, batches_completed, total_batches, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.ChannelID, run.Status, result.BatchesCompleted, result.TotalBatches,
		run.Error, toTimestamptz(run.StartedAt), toTimestamptz(run.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, rec := range result.Records {
		_, err = tx.Exec(ctx, `
			INSERT INTO run_leads (run_id, participant_id, participant_name, combined_score, qualifying_messages, pain_points, interests, engagement_tier)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			run.ID, rec.ParticipantID, SanitizeUTF8(rec.ParticipantName), rec.CombinedScore,
			rec.QualifyingMessages, rec.PainPoints, rec.Interests, rec.EngagementTier)
		if err != nil {
			return fmt.Errorf("insert run lead: %w", err)
		}
	}

	for _, skip := range result.Skipped {
		_, err = tx.Exec(ctx, `
			INSERT INTO run_skips (run_id, batch_index, reason)
			VALUES ($1, $2, $3)`,
			run.ID, skip.BatchIndex, skip.Reason)
		if err != nil {
			return fmt.Errorf("insert run skip: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run tx: %w", err)
	}

	return nil
}

// GetLatestRun returns the most recently started run for a channel.
func (db *DB) GetLatestRun(ctx context.Context, channelID string) (*RunRecord, error) {
	var (
		rec         RunRecord
		startedAt   pgtype.Timestamptz
		completedAt pgtype.Timestamptz
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT id, channel_id, status, batches_completed, total_batches, error, started_at, completed_at
		FROM analysis_runs
		WHERE channel_id = $1
		ORDER BY started_at DESC
		LIMIT 1`,
		channelID).Scan(&rec.Run.ID, &rec.Run.ChannelID, &rec.Run.Status,
		&rec.BatchesCompleted, &rec.TotalBatches, &rec.Run.Error, &startedAt, &completedAt)
	if err != nil {
		if coreerrors.Is(err, pgx.ErrNoRows) {
			return nil, coreerrors.ErrRunNotFound
		}

		return nil, fmt.Errorf("get latest run: %w", err)
	}

	rec.Run.StartedAt = fromTimestamptz(startedAt)
	rec.Run.CompletedAt = fromTimestamptz(completedAt)

	return &rec, nil
}

// GetRunLeads returns the ranked scoring records of one run, in the order the
// aggregator produced them.
func (db *DB) GetRunLeads(ctx context.Context, runID string) ([]analysis.ScoringRecord, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT participant_id, participant_name, combined_score, qualifying_messages, pain_points, interests, engagement_tier
		FROM run_leads
		WHERE run_id = $1
		ORDER BY combined_score DESC, qualifying_messages DESC, participant_id ASC`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("get run leads: %w", err)
	}
	defer rows.Close()

	var records []analysis.ScoringRecord

	for rows.Next() {
		var rec analysis.ScoringRecord
		if err := rows.Scan(&rec.ParticipantID, &rec.ParticipantName, &rec.CombinedScore,
			&rec.QualifyingMessages, &rec.PainPoints, &rec.Interests, &rec.EngagementTier); err != nil {
			return nil, fmt.Errorf("get run leads: %w", err)
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountRunSkips returns how many batches a run skipped.
func (db *DB) CountRunSkips(ctx context.Context, runID string) (int, error) {
	var count int

	err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM run_skips WHERE run_id = $1`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count run skips: %w", err)
	}

	return count, nil
}
