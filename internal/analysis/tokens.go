package analysis

// Estimator estimates how many model tokens a message consumes.
// The default implementation uses a character heuristic; provide a custom
// implementation for exact counting (e.g. tiktoken bindings).
type Estimator interface {
	EstimateTokens(msg Message) int
}

const (
	defaultCharsPerToken = 4
	// perMessageOverhead accounts for role markers, author name and
	// separators added during serialization.
	perMessageOverhead = 8
)

// CharEstimator estimates tokens using a characters-per-token ratio.
// A rough approximation, good enough for batch sizing but not for billing.
type CharEstimator struct {
	CharsPerToken int // defaults to 4 if zero
}

func (e CharEstimator) ratio() int {
	if e.CharsPerToken <= 0 {
		return defaultCharsPerToken
	}

	return e.CharsPerToken
}

func (e CharEstimator) EstimateTokens(msg Message) int {
	n := perMessageOverhead
	n += len(msg.Text) / e.ratio()
	n += len(msg.AuthorName) / e.ratio()

	return n
}
