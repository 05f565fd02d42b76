// Package errors provides centralized error definitions for the application.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Chat source errors.
var (
	// ErrSourceUnavailable indicates the message source could not be reached.
	// Fatal to the run it occurs in.
	ErrSourceUnavailable = errors.New("message source unavailable")
)

// LLM call errors.
var (
	// ErrTransientCall indicates a retryable model-call failure
	// (rate limit, network, timeout).
	ErrTransientCall = errors.New("transient model call failure")

	// ErrFatalCall indicates a non-retryable model-call failure
	// (auth, quota). Halts the run immediately.
	ErrFatalCall = errors.New("fatal model call failure")

	// ErrMalformedResponse indicates the model response violated the
	// structured output contract.
	ErrMalformedResponse = errors.New("malformed model response")
)

// Run errors.
var (
	// ErrBudgetExceeded indicates a single message cannot fit any batch
	// even alone. Reported per batch, does not halt the run.
	ErrBudgetExceeded = errors.New("message exceeds token budget")

	// ErrRunCancelled indicates the run was cancelled between batches.
	ErrRunCancelled = errors.New("run cancelled")

	// ErrRunAlreadyActive indicates an analysis run is already in progress
	// for the channel.
	ErrRunAlreadyActive = errors.New("analysis run already active")

	// ErrRunNotFound indicates no analysis run exists for the channel.
	ErrRunNotFound = errors.New("analysis run not found")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
