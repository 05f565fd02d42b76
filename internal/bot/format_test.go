package bot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/lead-scout-bot/internal/analysis"
	"github.com/lueurxax/lead-scout-bot/internal/config"
	"github.com/lueurxax/lead-scout-bot/internal/storage"
)

func TestFormatRunResult_Completed(t *testing.T) {
	result := &analysis.Result{
		Run: analysis.Run{Status: analysis.StatusCompleted},
		Records: []analysis.ScoringRecord{
			{
				ParticipantID:      "u1",
				ParticipantName:    "Alice",
				CombinedScore:      0.95,
				QualifyingMessages: 4,
				EngagementTier:     analysis.TierMedium,
				PainPoints:         []string{"slow exports", "pricing"},
			},
			{
				ParticipantID:      "u2",
				CombinedScore:      0.4,
				QualifyingMessages: 1,
				EngagementTier:     analysis.TierLow,
			},
		},
		BatchesCompleted: 2,
		TotalBatches:     2,
	}

	out := formatRunResult(result, nil)

	assert.Contains(t, out, "Channel Analysis Complete")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "0.95")
	assert.Contains(t, out, "Medium tier")
	assert.Contains(t, out, "slow exports")
	// Participant with no name falls back to the ID.
	assert.Contains(t, out, "u2")
}

func TestFormatRunResult_FailedShowsPartials(t *testing.T) {
	result := &analysis.Result{
		Run: analysis.Run{
			Status: analysis.StatusFailed,
			Error:  "batch 3: malformed model response",
		},
		Records: []analysis.ScoringRecord{
			{ParticipantID: "u1", ParticipantName: "Alice", CombinedScore: 0.9, QualifyingMessages: 2, EngagementTier: analysis.TierMedium},
		},
		BatchesCompleted: 3,
		TotalBatches:     5,
	}

	out := formatRunResult(result, errors.New("batch 3: malformed model response"))

	assert.Contains(t, out, "Channel Analysis Failed")
	assert.Contains(t, out, "3/5")
	assert.Contains(t, out, "Partial results")
	assert.Contains(t, out, "Alice")
}

func TestFormatRunResult_SkippedBatchesReported(t *testing.T) {
	result := &analysis.Result{
		Run:          analysis.Run{Status: analysis.StatusCompleted},
		Skipped:      []analysis.SkipEntry{{BatchIndex: 1, Reason: "oversized"}},
		TotalBatches: 3,
	}

	out := formatRunResult(result, nil)

	assert.Contains(t, out, "Skipped batches")
	assert.Contains(t, out, "<code>1</code>")
}

func TestFormatRunResult_EscapesHTML(t *testing.T) {
	result := &analysis.Result{
		Run: analysis.Run{Status: analysis.StatusCompleted},
		Records: []analysis.ScoringRecord{
			{ParticipantID: "u1", ParticipantName: "<script>alert(1)</script>", CombinedScore: 0.9, QualifyingMessages: 1, EngagementTier: analysis.TierLow},
		},
	}

	out := formatRunResult(result, nil)

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestFormatRunStatus(t *testing.T) {
	rec := &storage.RunRecord{
		Run: analysis.Run{
			Status:      analysis.StatusCompleted,
			StartedAt:   time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
			CompletedAt: time.Date(2026, 8, 1, 10, 5, 0, 0, time.UTC),
		},
		BatchesCompleted: 4,
		TotalBatches:     4,
	}
	leads := []analysis.ScoringRecord{{ParticipantID: "u1"}, {ParticipantID: "u2"}}

	out := formatRunStatus(rec, leads)

	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "2026-08-01 10:00 UTC")
	assert.Contains(t, out, "4/4")
	assert.Contains(t, out, "<code>2</code>")
}

func TestFormatLeadReport(t *testing.T) {
	report := &storage.LeadReport{
		TotalLeads:    12,
		HighTierCount: 3,
		TotalMessages: 240,
		TopPainPoints: []storage.PainPointCount{
			{PainPoint: "onboarding", Count: 7},
		},
		TopLeads: []storage.Lead{
			{ParticipantID: "u1", ParticipantName: "Alice", Score: 0.92, EngagementTier: analysis.TierHigh, MessageCount: 9},
		},
	}

	out := formatLeadReport(report)

	assert.Contains(t, out, "<code>12</code>")
	assert.Contains(t, out, "<code>3</code>")
	assert.Contains(t, out, "onboarding (7 mentions)")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "High tier")
}

func testBot() *Bot {
	return &Bot{cfg: &config.Config{
		AnalyzeDefaultWindow: 720 * time.Hour,
		AnalyzeDefaultLimit:  1000,
	}}
}

func TestParseAnalyzeArgs_Defaults(t *testing.T) {
	b := testBot()

	since, limit, err := b.parseAnalyzeArgs("")

	require.NoError(t, err)
	assert.Equal(t, 1000, limit)
	assert.WithinDuration(t, time.Now().UTC().Add(-720*time.Hour), since, time.Minute)
}

func TestParseAnalyzeArgs_Duration(t *testing.T) {
	b := testBot()

	since, limit, err := b.parseAnalyzeArgs("72h 50")

	require.NoError(t, err)
	assert.Equal(t, 50, limit)
	assert.WithinDuration(t, time.Now().UTC().Add(-72*time.Hour), since, time.Minute)
}

func TestParseAnalyzeArgs_Date(t *testing.T) {
	b := testBot()

	since, _, err := b.parseAnalyzeArgs("2026-08-01")

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), since)
}

func TestParseAnalyzeArgs_Invalid(t *testing.T) {
	b := testBot()

	_, _, err := b.parseAnalyzeArgs("yesterday-ish")
	require.Error(t, err)

	_, _, err = b.parseAnalyzeArgs("72h nope")
	require.Error(t, err)

	_, _, err = b.parseAnalyzeArgs("72h -3")
	require.Error(t, err)
}
