package analysis

import (
	"sort"
	"strings"
)

// ScoringPolicy holds the tunable thresholds and the frequency-bonus blend
// used when merging per-batch signals into one score per participant.
type ScoringPolicy struct {
	HighTierScoreThreshold     float64
	HighTierMessageThreshold   int
	MediumTierScoreThreshold   float64
	MediumTierMessageThreshold int

	// FrequencyBonus is added to the peak intent score once per qualifying
	// message beyond the first, up to FrequencyBonusCap. Keeps the combined
	// score monotonic in both peak and message count.
	FrequencyBonus    float64
	FrequencyBonusCap float64
}

// DefaultScoringPolicy returns the thresholds the original product shipped with.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		HighTierScoreThreshold:     0.8,
		HighTierMessageThreshold:   5,
		MediumTierScoreThreshold:   0.6,
		MediumTierMessageThreshold: 3,
		FrequencyBonus:             0.05,
		FrequencyBonusCap:          0.15,
	}
}

// Aggregator merges signal records across all batches of a run into one
// scoring record per participant.
type Aggregator struct {
	policy ScoringPolicy
}

func NewAggregator(policy ScoringPolicy) *Aggregator {
	return &Aggregator{policy: policy}
}

type participantState struct {
	name       string
	peakScore  float64
	msgCount   int
	painPoints map[string]struct{}
	interests  map[string]struct{}
}

// Aggregate combines all signal records of a run. Output is sorted by
// combined score descending, ties broken by qualifying message count
// descending, then participant ID ascending.
func (a *Aggregator) Aggregate(records []SignalRecord) []ScoringRecord {
	byParticipant := make(map[string]*participantState)

	for _, rec := range records {
		state, ok := byParticipant[rec.ParticipantID]
		if !ok {
			state = &participantState{
				painPoints: make(map[string]struct{}),
				interests:  make(map[string]struct{}),
			}
			byParticipant[rec.ParticipantID] = state
		}

		if rec.ParticipantName != "" {
			state.name = rec.ParticipantName
		}

		score := clampScore(rec.IntentScore)
		if score > state.peakScore {
			state.peakScore = score
		}

		count := rec.MessageCount
		if count < 1 {
			count = 1
		}

		state.msgCount += count

		for _, p := range rec.PainPoints {
			if norm := NormalizeTerm(p); norm != "" {
				state.painPoints[norm] = struct{}{}
			}
		}

		for _, in := range rec.Interests {
			if norm := NormalizeTerm(in); norm != "" {
				state.interests[norm] = struct{}{}
			}
		}
	}

	results := make([]ScoringRecord, 0, len(byParticipant))

	for id, state := range byParticipant {
		combined := a.CombineScore(state.peakScore, state.msgCount)
		results = append(results, ScoringRecord{
			ParticipantID:      id,
			ParticipantName:    state.name,
			CombinedScore:      combined,
			QualifyingMessages: state.msgCount,
			PainPoints:         sortedKeys(state.painPoints),
			Interests:          sortedKeys(state.interests),
			EngagementTier:     a.Tier(combined, state.msgCount),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}

		if results[i].QualifyingMessages != results[j].QualifyingMessages {
			return results[i].QualifyingMessages > results[j].QualifyingMessages
		}

		return results[i].ParticipantID < results[j].ParticipantID
	})

	return results
}

// CombineScore blends the peak intent score with a capped frequency bonus.
func (a *Aggregator) CombineScore(peak float64, msgCount int) float64 {
	bonus := a.policy.FrequencyBonus * float64(msgCount-1)
	if bonus < 0 {
		bonus = 0
	}

	if bonus > a.policy.FrequencyBonusCap {
		bonus = a.policy.FrequencyBonusCap
	}

	return clampScore(peak + bonus)
}

// Tier derives the engagement tier. Ordered, first match wins.
func (a *Aggregator) Tier(score float64, msgCount int) string {
	if score > a.policy.HighTierScoreThreshold && msgCount > a.policy.HighTierMessageThreshold {
		return TierHigh
	}

	if score > a.policy.MediumTierScoreThreshold || msgCount > a.policy.MediumTierMessageThreshold {
		return TierMedium
	}

	return TierLow
}

// NormalizeTerm lowercases and trims a pain point or interest so repeated
// phrasings across batches dedupe on exact match.
func NormalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
