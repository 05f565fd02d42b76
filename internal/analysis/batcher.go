package analysis

// BatchMessages groups messages into batches bounded by an estimated-token
// budget and a message-count budget, preserving source order within and
// across batches. Every message lands in exactly one batch; a message whose
// own estimate exceeds tokenBudget is placed alone in its own batch.
// Boundaries are deterministic for identical input and budgets.
func BatchMessages(messages []Message, tokenBudget, countBudget int, est Estimator) []Batch {
	if len(messages) == 0 {
		return nil
	}

	if countBudget <= 0 {
		countBudget = len(messages)
	}

	batches := make([]Batch, 0, 1)
	current := Batch{}

	for _, msg := range messages {
		tokens := est.EstimateTokens(msg)

		exceedsTokens := len(current.Messages) > 0 && current.EstimatedTokens+tokens > tokenBudget
		exceedsCount := len(current.Messages) >= countBudget

		if exceedsTokens || exceedsCount {
			batches = append(batches, current)
			current = Batch{}
		}

		current.Messages = append(current.Messages, msg)
		current.EstimatedTokens += tokens
	}

	if len(current.Messages) > 0 {
		batches = append(batches, current)
	}

	return batches
}
