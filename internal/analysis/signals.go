package analysis

import "time"

// Engagement tiers, ordered low < medium < high.
const (
	TierLow    = "low"
	TierMedium = "medium"
	TierHigh   = "high"
)

// Run statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// SignalRecord is the extraction output for one participant observed in one
// batch. Produced by the LLM client, consumed by the aggregator.
type SignalRecord struct {
	ParticipantID   string
	ParticipantName string
	IntentScore     float64 // clamped into [0,1]
	PainPoints      []string
	Interests       []string
	MessageCount    int // qualifying messages in the batch, >= 1
}

// ScoringRecord is the per-participant aggregate for one analysis run.
// Never mutated after creation; a new run produces new records.
type ScoringRecord struct {
	ParticipantID     string
	ParticipantName   string
	CombinedScore     float64
	QualifyingMessages int
	PainPoints        []string // union across batches, normalized
	Interests         []string // union across batches, normalized
	EngagementTier    string
}

// SkipEntry records why a batch was skipped without halting the run.
type SkipEntry struct {
	BatchIndex int
	Reason     string
}

// Run describes one end-to-end analysis of a channel's message window.
type Run struct {
	ID          string
	ChannelID   string
	Status      string
	StartedAt   time.Time
	CompletedAt time.Time
	Error       string
}

// TierRank maps a tier to its ordinal for comparisons (low=0, medium=1, high=2).
func TierRank(tier string) int {
	switch tier {
	case TierHigh:
		return 2
	case TierMedium:
		return 1
	default:
		return 0
	}
}
