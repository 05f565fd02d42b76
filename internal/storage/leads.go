package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lueurxax/lead-scout-bot/internal/analysis"
)

// Lead is the cumulative profile of one participant across analysis runs.
type Lead struct {
	ParticipantID   string
	ParticipantName string
	Score           float64
	PainPoints      []string
	Interests       []string
	EngagementTier  string
	MessageCount    int
	FirstSeen       time.Time
	LastSeen        time.Time
}

// TierFunc derives an engagement tier from a merged score and message count.
type TierFunc func(score float64, msgCount int) string

// UpsertLeads merges a run's scoring records into the cumulative lead
// profiles. The merge rule is owned here, not by the pipeline: scores are
// averaged with the prior profile, pain points and interests are unioned,
// message counts summed, and the tier recomputed from the merged values.
func (db *DB) UpsertLeads(ctx context.Context, records []analysis.ScoringRecord, tier TierFunc) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin leads tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, rec := range records {
		if err := upsertLead(ctx, tx, rec, tier); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit leads tx: %w", err)
	}

	return nil
}

func upsertLead(ctx context.Context, tx pgx.Tx, rec analysis.ScoringRecord, tier TierFunc) error {
	var existing Lead

	err := tx.QueryRow(ctx, `
		SELECT score, pain_points, interests, message_count
		FROM leads WHERE participant_id = $1 FOR UPDATE`,
		rec.ParticipantID).Scan(&existing.Score, &existing.PainPoints, &existing.Interests, &existing.MessageCount)

	switch {
	case err == nil:
		score := (existing.Score + rec.CombinedScore) / 2
		msgCount := existing.MessageCount + rec.QualifyingMessages

		_, err = tx.Exec(ctx, `
			UPDATE leads
			SET participant_name = $2,
			    score = $3,
			    pain_points = $4,
			    interests = $5,
			    engagement_tier = $6,
			    message_count = $7,
			    last_seen = now()
			WHERE participant_id = $1`,
			rec.ParticipantID, SanitizeUTF8(rec.ParticipantName), score,
			unionStrings(existing.PainPoints, rec.PainPoints),
			unionStrings(existing.Interests, rec.Interests),
			tier(score, msgCount), msgCount)
		if err != nil {
			return fmt.Errorf("update lead: %w", err)
		}

	case errors.Is(err, pgx.ErrNoRows):
		_, err = tx.Exec(ctx, `
			INSERT INTO leads (participant_id, participant_name, score, pain_points, interests, engagement_tier, message_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ParticipantID, SanitizeUTF8(rec.ParticipantName), rec.CombinedScore,
			rec.PainPoints, rec.Interests, rec.EngagementTier, rec.QualifyingMessages)
		if err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}

	default:
		return fmt.Errorf("select lead: %w", err)
	}

	return nil
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	return out
}

// PainPointCount is one pain point with its mention count across leads.
type PainPointCount struct {
	PainPoint string
	Count     int
}

// LeadReport aggregates the cumulative lead table for the report command.
type LeadReport struct {
	TotalLeads    int
	HighTierCount int
	TotalMessages int
	TopPainPoints []PainPointCount
	TopLeads      []Lead
}

// BuildLeadReport assembles the cumulative customer report.
func (db *DB) BuildLeadReport(ctx context.Context, topLeads, topPainPoints int) (*LeadReport, error) {
	report := &LeadReport{}

	err := db.Pool.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE engagement_tier = 'high'),
		       COALESCE(sum(message_count), 0)
		FROM leads`).Scan(&report.TotalLeads, &report.HighTierCount, &report.TotalMessages)
	if err != nil {
		return nil, fmt.Errorf("lead report totals: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT p.point, count(*)
		FROM leads, unnest(pain_points) AS p(point)
		GROUP BY p.point
		ORDER BY count(*) DESC, p.point ASC
		LIMIT $1`, topPainPoints)
	if err != nil {
		return nil, fmt.Errorf("lead report pain points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pp PainPointCount
		if err := rows.Scan(&pp.PainPoint, &pp.Count); err != nil {
			return nil, fmt.Errorf("lead report pain points: %w", err)
		}

		report.TopPainPoints = append(report.TopPainPoints, pp)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	leads, err := db.TopLeads(ctx, topLeads)
	if err != nil {
		return nil, err
	}

	report.TopLeads = leads

	return report, nil
}

// TopLeads returns the highest-scoring cumulative leads.
func (db *DB) TopLeads(ctx context.Context, limit int) ([]Lead, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT participant_id, participant_name, score, pain_points, interests, engagement_tier, message_count, first_seen, last_seen
		FROM leads
		ORDER BY score DESC, message_count DESC, participant_id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead

	for rows.Next() {
		var l Lead
		if err := rows.Scan(&l.ParticipantID, &l.ParticipantName, &l.Score, &l.PainPoints,
			&l.Interests, &l.EngagementTier, &l.MessageCount, &l.FirstSeen, &l.LastSeen); err != nil {
			return nil, fmt.Errorf("top leads: %w", err)
		}

		leads = append(leads, l)
	}

	return leads, rows.Err()
}
