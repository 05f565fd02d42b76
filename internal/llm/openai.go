package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/lueurxax/lead-scout-bot/internal/analysis"
	"github.com/lueurxax/lead-scout-bot/internal/config"
	coreerrors "github.com/lueurxax/lead-scout-bot/internal/core/errors"
	"github.com/lueurxax/lead-scout-bot/internal/observability"
)

const rateLimiterBurst = 5

type openaiClient struct {
	cfg         *config.Config
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

func NewOpenAI(cfg *config.Config, logger *zerolog.Logger) Client {
	return &openaiClient{
		cfg:         cfg,
		client:      openai.NewClient(cfg.LLMAPIKey),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), rateLimiterBurst),
	}
}

// serializedMessage is the wire shape of one chat message in the prompt.
type serializedMessage struct {
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
}

// participantResult is the expected shape of one entry in the model response.
type participantResult struct {
	ParticipantID   string   `json:"participant_id"`
	ParticipantName string   `json:"participant_name"`
	IntentScore     float64  `json:"intent_score"`
	PainPoints      []string `json:"pain_points"`
	Interests       []string `json:"interests"`
	MessageCount    int      `json:"message_count"`
}

func (c *openaiClient) Extract(ctx context.Context, batch analysis.Batch, keywords []string) ([]analysis.SignalRecord, error) {
	prompt, err := buildPrompt(batch, keywords)
	if err != nil {
		return nil, err
	}

	// Acquire a call slot before going out on the wire.
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", coreerrors.ErrTransientCall, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.LLMCallTimeout)
	defer cancel()

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.cfg.LLMModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})

	observability.LLMRequestDuration.WithLabelValues(c.cfg.LLMModel).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, classifyCallError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", coreerrors.ErrMalformedResponse)
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug().Str("content", content).Msg("LLM extraction response")

	return parseExtractionResponse(content)
}

func buildPrompt(batch analysis.Batch, keywords []string) (string, error) {
	serialized := make([]serializedMessage, len(batch.Messages))
	for i, m := range batch.Messages {
		serialized[i] = serializedMessage{
			AuthorID:   m.AuthorID,
			AuthorName: m.AuthorName,
			Content:    m.Text,
			Timestamp:  m.Timestamp.UTC().Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(serialized)
	if err != nil {
		return "", fmt.Errorf("serialize batch: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(extractionPromptHeader)
	sb.WriteString("- ")
	sb.WriteString(strings.Join(keywords, "\n- "))
	sb.WriteString("\n")
	sb.WriteString(extractionPromptFooter)
	sb.Write(data)

	return sb.String(), nil
}

// parseExtractionResponse validates the structured response and converts it
// into signal records. Anything that does not conform is rejected rather than
// patched up; intent scores are clamped because the model is untrusted input.
func parseExtractionResponse(content string) ([]analysis.SignalRecord, error) {
	var wrapper struct {
		Participants []participantResult `json:"participants"`
	}

	if err := json.Unmarshal([]byte(content), &wrapper); err != nil {
		// The json_object response format still allows a bare array to slip
		// through on some models.
		var list []participantResult
		if err2 := json.Unmarshal([]byte(content), &list); err2 != nil {
			return nil, fmt.Errorf("%w: %v", coreerrors.ErrMalformedResponse, err)
		}

		wrapper.Participants = list
	}

	records := make([]analysis.SignalRecord, 0, len(wrapper.Participants))

	for i, p := range wrapper.Participants {
		if strings.TrimSpace(p.ParticipantID) == "" {
			return nil, fmt.Errorf("%w: entry %d has no participant_id", coreerrors.ErrMalformedResponse, i)
		}

		count := p.MessageCount
		if count < 1 {
			count = 1
		}

		records = append(records, analysis.SignalRecord{
			ParticipantID:   p.ParticipantID,
			ParticipantName: p.ParticipantName,
			IntentScore:     clamp01(p.IntentScore),
			PainPoints:      p.PainPoints,
			Interests:       p.Interests,
			MessageCount:    count,
		})
	}

	return records, nil
}

// classifyCallError maps transport failures onto the core error taxonomy:
// auth and quota problems are fatal, everything else is worth a retry.
func classifyCallError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusPaymentRequired:
			return fmt.Errorf("%w: %v", coreerrors.ErrFatalCall, err)
		}

		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return fmt.Errorf("%w: %v", coreerrors.ErrFatalCall, err)
		}

		return fmt.Errorf("%w: %v", coreerrors.ErrTransientCall, err)
	}

	// Timeouts and network errors are transient by definition.
	return fmt.Errorf("%w: %v", coreerrors.ErrTransientCall, err)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}
