package api

import (
	"sync"
	"testing"
)

func TestTokenTracker_Add(t *testing.T) {
	tracker := NewTokenTracker(Pricing{Input: 3, Output: 15})

	tracker.Add(100, 50)

	in, out := tracker.Total()
	if in != 100 || out != 50 {
		t.Errorf("Total = (%d, %d), want (100, 50)", in, out)
	}
	if tracker.Calls() != 1 {
		t.Errorf("Calls = %d, want 1", tracker.Calls())
	}
}

func TestTokenTracker_Concurrent(t *testing.T) {
	tracker := NewTokenTracker(Pricing{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Add(10, 5)
		}()
	}
	wg.Wait()

	in, out := tracker.Total()
	if in != 200 || out != 100 || tracker.Calls() != 20 {
		t.Errorf("unexpected totals: %d/%d over %d calls", in, out, tracker.Calls())
	}
}

func TestTokenTracker_Reset(t *testing.T) {
	tracker := NewTokenTracker(Pricing{Input: 3, Output: 15})
	tracker.Add(100, 50)
	tracker.Reset()

	in, out := tracker.Total()
	if in != 0 || out != 0 || tracker.Calls() != 0 {
		t.Errorf("expected zero after reset, got %d/%d/%d", in, out, tracker.Calls())
	}
}

func TestTokenTracker_Cost(t *testing.T) {
	tracker := NewTokenTracker(Pricing{Input: 3, Output: 15})
	tracker.Add(1_000_000, 1_000_000)

	if cost := tracker.Cost(); cost != 18.0 {
		t.Errorf("Cost = %f, want 18.0", cost)
	}
}

func TestPricingFor(t *testing.T) {
	tests := []struct {
		model string
		want  Pricing
	}{
		{"claude-sonnet-4-20250514", Pricing{Input: 3, Output: 15}},
		{"us.anthropic.claude-opus-4-1-20250805-v1:0", Pricing{Input: 15, Output: 75}},
		{"claude-haiku-4-5-20251001", Pricing{Input: 1, Output: 5}},
		{"gpt-4o-mini", Pricing{Input: 0.15, Output: 0.6}},
		{"gpt-4o", Pricing{Input: 2.5, Output: 10}},
		{"gemini-2.0-flash", Pricing{Input: 0.3, Output: 2.5}},
		{"something-else", Pricing{Input: 3, Output: 15}},
	}
	for _, tt := range tests {
		if got := PricingFor(tt.model); got != tt.want {
			t.Errorf("PricingFor(%q) = %+v, want %+v", tt.model, got, tt.want)
		}
	}
}
