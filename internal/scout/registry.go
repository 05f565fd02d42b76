package scout

import (
	"context"
	"sync"

	"github.com/google/uuid"

	coreerrors "github.com/lueurxax/lead-scout-bot/internal/core/errors"
)

// runRegistry tracks the active run per channel so operators can cancel it
// and so a channel never has two overlapping runs.
type runRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newRunRegistry() *runRegistry {
	return &runRegistry{cancels: make(map[string]context.CancelFunc)}
}

// acquire registers a run for the channel and returns a cancellable context
// for it. Fails with ErrRunAlreadyActive when one is in flight.
func (r *runRegistry) acquire(ctx context.Context, channelID string) (context.Context, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cancels[channelID]; ok {
		return nil, nil, coreerrors.ErrRunAlreadyActive
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancels[channelID] = cancel

	release := func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		cancel()
		delete(r.cancels, channelID)
	}

	return runCtx, release, nil
}

func (r *runRegistry) cancel(channelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancel, ok := r.cancels[channelID]
	if !ok {
		return false
	}

	cancel()

	return true
}

func (r *runRegistry) active(channelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.cancels[channelID]

	return ok
}

func newRunID() string {
	return uuid.New().String()
}
