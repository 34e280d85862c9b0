package api

import (
	"strings"
	"sync"
)

// Pricing is the USD cost per million tokens.
type Pricing struct {
	Input  float64
	Output float64
}

// PricingFor returns approximate list pricing for a model name. Unknown
// models are priced like Sonnet.
func PricingFor(model string) Pricing {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "haiku"):
		return Pricing{Input: 1, Output: 5}
	case strings.Contains(m, "opus"):
		return Pricing{Input: 15, Output: 75}
	case strings.Contains(m, "gpt-4o-mini"):
		return Pricing{Input: 0.15, Output: 0.6}
	case strings.Contains(m, "gpt-4o"):
		return Pricing{Input: 2.5, Output: 10}
	case strings.Contains(m, "gemini") && strings.Contains(m, "flash"):
		return Pricing{Input: 0.3, Output: 2.5}
	case strings.Contains(m, "gemini"):
		return Pricing{Input: 1.25, Output: 10}
	default:
		return Pricing{Input: 3, Output: 15}
	}
}

// TokenTracker tracks token usage across API calls. It is safe for
// concurrent use by executors running in parallel.
type TokenTracker struct {
	mu        sync.Mutex
	pricing   Pricing
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker(p Pricing) *TokenTracker {
	return &TokenTracker{pricing: p}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Reset clears all tracked token usage.
func (t *TokenTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok = 0
	t.outputTok = 0
	t.calls = 0
}

// Cost estimates the cost in USD.
func (t *TokenTracker) Cost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	inputCost := float64(t.inputTok) / 1_000_000 * t.pricing.Input
	outputCost := float64(t.outputTok) / 1_000_000 * t.pricing.Output
	return inputCost + outputCost
}
