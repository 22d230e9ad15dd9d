package llm

import "sync"

// TokenUsage is aggregated token usage.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TokenTracker accumulates API-reported token usage across calls.
type TokenTracker struct {
	mu           sync.Mutex
	inputTokens  int64
	outputTokens int64
}

// NewTokenTracker creates an empty tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records usage from one API response.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTokens += input
	t.outputTokens += output
}

// Usage returns the accumulated totals.
func (t *TokenTracker) Usage() TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TokenUsage{
		InputTokens:  t.inputTokens,
		OutputTokens: t.outputTokens,
		TotalTokens:  t.inputTokens + t.outputTokens,
	}
}
