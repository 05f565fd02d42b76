package llm

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/lead-scout-bot/internal/analysis"
	"github.com/lueurxax/lead-scout-bot/internal/config"
)

// Client extracts customer-intent signals from one batch of chat messages.
// Implementations classify failures with the core error sentinels so the
// orchestrator can decide between retry and abort.
type Client interface {
	Extract(ctx context.Context, batch analysis.Batch, keywords []string) ([]analysis.SignalRecord, error)
}

// New returns the OpenAI-backed client, or a deterministic mock when no API
// key is configured (or it is set to "mock").
func New(cfg *config.Config, logger *zerolog.Logger) Client {
	if cfg.LLMAPIKey == "" || cfg.LLMAPIKey == apiKeyMock {
		return &mockClient{}
	}

	return NewOpenAI(cfg, logger)
}

const apiKeyMock = "mock"

// mockClient scores a participant high when any of their messages contains a
// configured keyword. Deterministic for identical input.
type mockClient struct{}

func (c *mockClient) Extract(_ context.Context, batch analysis.Batch, keywords []string) ([]analysis.SignalRecord, error) {
	type state struct {
		name    string
		matched int
		total   int
	}

	byAuthor := make(map[string]*state)
	order := make([]string, 0, len(batch.Messages))

	for _, msg := range batch.Messages {
		s, ok := byAuthor[msg.AuthorID]
		if !ok {
			s = &state{name: msg.AuthorName}
			byAuthor[msg.AuthorID] = s
			order = append(order, msg.AuthorID)
		}

		s.total++

		lower := strings.ToLower(msg.Text)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				s.matched++
				break
			}
		}
	}

	records := make([]analysis.SignalRecord, 0, len(order))

	for _, id := range order {
		s := byAuthor[id]

		score := 0.1
		count := s.total

		if s.matched > 0 {
			score = 0.9
			count = s.matched
		}

		records = append(records, analysis.SignalRecord{
			ParticipantID:   id,
			ParticipantName: s.name,
			IntentScore:     score,
			MessageCount:    count,
		})
	}

	return records, nil
}
