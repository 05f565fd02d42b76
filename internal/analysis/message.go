// Package analysis implements the message analysis and scoring pipeline:
// token-budgeted batching of chat messages, LLM signal extraction per batch,
// and aggregation of the extracted signals into a ranked lead list.
package analysis

import "time"

// Message is one chat message as seen by the pipeline. Messages pass through
// unmodified; the pipeline never mutates them.
type Message struct {
	AuthorID   string
	AuthorName string
	Text       string
	Timestamp  time.Time
	ChannelID  string
}

// Batch is an ordered, contiguous slice of messages from one channel,
// together with the estimated token total for the slice.
type Batch struct {
	Messages        []Message
	EstimatedTokens int
}
