// Package observer measures what one agent run cost: wall-clock time and
// token consumption. Backends that report token counts contribute exact
// numbers; for the rest, counts are estimated from text length.
package observer

import (
	"time"

	"github.com/edstats/schema-chat/internal/conversation"
)

// approxCharsPerToken is the character-to-token ratio used when the backend
// does not report counts
const approxCharsPerToken = 4

// EstimateTokens approximates the token count of a text by length
func EstimateTokens(text string) int {
	return len(text) / approxCharsPerToken
}

// Observer accumulates token counts and elapsed time for one run. It is not
// safe for concurrent use; each run gets its own observer or calls Start to
// reset.
type Observer struct {
	start        time.Time
	inputTokens  int
	outputTokens int
	exact        bool
}

// New creates an observer with the clock already running
func New() *Observer {
	o := &Observer{}
	o.Start()

	return o
}

// Start resets all counters and restarts the clock. time.Now carries a
// monotonic reading, so elapsed time is immune to wall-clock adjustments.
func (o *Observer) Start() {
	o.start = time.Now()
	o.inputTokens = 0
	o.outputTokens = 0
	o.exact = false
}

// AddExact records backend-reported token counts
func (o *Observer) AddExact(promptTokens, completionTokens int) {
	o.inputTokens += promptTokens
	o.outputTokens += completionTokens
	o.exact = true
}

// AddApproximate records length-estimated token counts for one exchange
func (o *Observer) AddApproximate(promptText, responseText string) {
	o.inputTokens += EstimateTokens(promptText)
	o.outputTokens += EstimateTokens(responseText)
}

// Exact reports whether every recorded count came from the backend
func (o *Observer) Exact() bool {
	return o.exact
}

// Usage returns the accumulated totals and elapsed seconds
func (o *Observer) Usage() conversation.TokenUsage {
	return conversation.TokenUsage{
		InputTokens:    o.inputTokens,
		OutputTokens:   o.outputTokens,
		TotalTokens:    o.inputTokens + o.outputTokens,
		ElapsedSeconds: time.Since(o.start).Seconds(),
	}
}
