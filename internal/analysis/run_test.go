package analysis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/lead-scout-bot/internal/core/errors"
)

const testChannelID = "chan-1"

// scriptedExtractor answers each call from a script of responses; once the
// script runs out it returns the fallback signals. failUntil makes the first
// N calls fail with err before succeeding.
type scriptedExtractor struct {
	callCount atomic.Int32
	failUntil int32
	err       error
	signals   []SignalRecord
}

func (e *scriptedExtractor) Extract(_ context.Context, _ Batch, _ []string) ([]SignalRecord, error) {
	count := e.callCount.Add(1)
	if count <= e.failUntil {
		return nil, e.err
	}

	return e.signals, nil
}

// perBatchExtractor keys responses and errors by call index.
type perBatchExtractor struct {
	callCount atomic.Int32
	signals   map[int][]SignalRecord
	errs      map[int]error
}

func (e *perBatchExtractor) Extract(_ context.Context, _ Batch, _ []string) ([]SignalRecord, error) {
	idx := int(e.callCount.Add(1)) - 1
	if err, ok := e.errs[idx]; ok {
		return nil, err
	}

	return e.signals[idx], nil
}

func testRunConfig() RunConfig {
	return RunConfig{
		TokenBudget:        100,
		MessageCountBudget: 2,
		MaxMessageTokens:   400,
		MaxRetries:         3,
		BackoffBase:        time.Millisecond,
	}
}

func newTestOrchestrator(extractor Extractor) *Orchestrator {
	logger := zerolog.Nop()
	return NewOrchestrator(extractor, defaultAggregator(), fixedEstimator{tokens: 10}, &logger)
}

func TestAnalyze_EmptyHistoryCompletes(t *testing.T) {
	o := newTestOrchestrator(&scriptedExtractor{})

	result, err := o.Analyze(context.Background(), testChannelID, nil, testRunConfig())

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Run.Status)
	assert.Empty(t, result.Records)
	assert.Zero(t, result.TotalBatches)
	assert.NotEmpty(t, result.Run.ID)
	assert.False(t, result.Run.CompletedAt.IsZero())
}

func TestAnalyze_SingleBatchRanking(t *testing.T) {
	extractor := &scriptedExtractor{
		signals: []SignalRecord{
			{ParticipantID: "u2", ParticipantName: "Bob", IntentScore: 0.4, MessageCount: 1},
			{ParticipantID: "u1", ParticipantName: "Alice", IntentScore: 0.9, MessageCount: 2, PainPoints: []string{"billing"}},
		},
	}
	o := newTestOrchestrator(extractor)

	result, err := o.Analyze(context.Background(), testChannelID, makeMessages(2), testRunConfig())

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Run.Status)
	assert.Equal(t, 1, result.BatchesCompleted)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "u1", result.Records[0].ParticipantID)
	assert.Equal(t, "u2", result.Records[1].ParticipantID)
	assert.Equal(t, int32(1), extractor.callCount.Load())
}

func TestAnalyze_TransientErrorsRetriedThenSucceed(t *testing.T) {
	extractor := &scriptedExtractor{
		failUntil: 2,
		err:       coreerrors.ErrTransientCall,
		signals:   []SignalRecord{{ParticipantID: "u1", IntentScore: 0.7, MessageCount: 1}},
	}
	o := newTestOrchestrator(extractor)

	result, err := o.Analyze(context.Background(), testChannelID, makeMessages(1), testRunConfig())

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Run.Status)
	assert.Equal(t, int32(3), extractor.callCount.Load(), "expected 2 failures then 1 success")
	require.Len(t, result.Records, 1)
}

func TestAnalyze_RetriesExhausted(t *testing.T) {
	extractor := &scriptedExtractor{
		failUntil: 100,
		err:       coreerrors.ErrTransientCall,
	}
	o := newTestOrchestrator(extractor)

	result, err := o.Analyze(context.Background(), testChannelID, makeMessages(1), testRunConfig())

	require.Error(t, err)
	assert.ErrorIs(t, err, coreerrors.ErrTransientCall)
	assert.Equal(t, StatusFailed, result.Run.Status)
	// Initial attempt plus MaxRetries.
	assert.Equal(t, int32(4), extractor.callCount.Load())
}

func TestAnalyze_FatalErrorNotRetried(t *testing.T) {
	extractor := &scriptedExtractor{
		failUntil: 100,
		err:       coreerrors.ErrFatalCall,
	}
	o := newTestOrchestrator(extractor)

	result, err := o.Analyze(context.Background(), testChannelID, makeMessages(1), testRunConfig())

	require.Error(t, err)
	assert.ErrorIs(t, err, coreerrors.ErrFatalCall)
	assert.Equal(t, StatusFailed, result.Run.Status)
	assert.Equal(t, int32(1), extractor.callCount.Load(), "fatal errors must not be retried")
}

func TestAnalyze_MalformedResponsePreservesPartials(t *testing.T) {
	extractor := &perBatchExtractor{
		signals: map[int][]SignalRecord{
			0: {{ParticipantID: "u1", ParticipantName: "Alice", IntentScore: 0.8, MessageCount: 1}},
		},
		errs: map[int]error{
			1: coreerrors.ErrMalformedResponse,
		},
	}
	o := newTestOrchestrator(extractor)

	// Count budget 2 over 4 messages: two batches, second fails.
	result, err := o.Analyze(context.Background(), testChannelID, makeMessages(4), testRunConfig())

	require.Error(t, err)
	assert.ErrorIs(t, err, coreerrors.ErrMalformedResponse)
	assert.Equal(t, StatusFailed, result.Run.Status)
	assert.Equal(t, 1, result.BatchesCompleted)
	assert.Equal(t, 2, result.TotalBatches)
	assert.Contains(t, result.Run.Error, "batch 1")

	// Records from the completed first batch survive the failure.
	require.Len(t, result.Records, 1)
	assert.Equal(t, "u1", result.Records[0].ParticipantID)
}

func TestAnalyze_OversizedMessageSkipped(t *testing.T) {
	extractor := &scriptedExtractor{
		signals: []SignalRecord{{ParticipantID: "u1", IntentScore: 0.5, MessageCount: 1}},
	}

	logger := zerolog.Nop()
	est := estimatorByAuthor{"big": 1000, "ok": 10}
	o := NewOrchestrator(extractor, defaultAggregator(), est, &logger)

	messages := []Message{
		{AuthorID: "big", Text: "wall of text"},
		{AuthorID: "ok", Text: "hi"},
	}

	cfg := testRunConfig()
	result, err := o.Analyze(context.Background(), testChannelID, messages, cfg)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Run.Status)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 0, result.Skipped[0].BatchIndex)
	assert.Contains(t, result.Skipped[0].Reason, "1000 tokens")
	assert.Equal(t, 1, result.BatchesCompleted)
	assert.Equal(t, int32(1), extractor.callCount.Load(), "oversized batch must not reach the model")
}

func TestAnalyze_CancelledAtBatchBoundary(t *testing.T) {
	extractor := &scriptedExtractor{
		signals: []SignalRecord{{ParticipantID: "u1", IntentScore: 0.5, MessageCount: 1}},
	}
	o := newTestOrchestrator(extractor)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := o.Analyze(ctx, testChannelID, makeMessages(2), testRunConfig())

	require.Error(t, err)
	assert.ErrorIs(t, err, coreerrors.ErrRunCancelled)
	assert.Equal(t, StatusFailed, result.Run.Status)
	assert.Zero(t, extractor.callCount.Load())
}

func TestAnalyze_DeterministicForIdenticalInput(t *testing.T) {
	signals := []SignalRecord{
		{ParticipantID: "u1", IntentScore: 0.9, MessageCount: 2, PainPoints: []string{"B", "a"}},
		{ParticipantID: "u2", IntentScore: 0.9, MessageCount: 2, Interests: []string{"x"}},
	}

	run := func() []ScoringRecord {
		o := newTestOrchestrator(&scriptedExtractor{signals: signals})
		result, err := o.Analyze(context.Background(), testChannelID, makeMessages(2), testRunConfig())
		require.NoError(t, err)

		return result.Records
	}

	assert.Equal(t, run(), run())
}
