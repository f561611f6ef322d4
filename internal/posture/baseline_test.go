package posture

import (
	"math"
	"testing"
)

func TestBaselineTracker_warmup_returns_neutral(t *testing.T) {
	bt := NewBaselineTracker()
	for i := 1; i < BaselineWarmup; i++ {
		if r := bt.Add(float64(i)); r != 1 {
			t.Fatalf("sample %d: ratio = %v, want 1 while warming up", i, r)
		}
	}
	if _, ok := bt.Baseline(); ok {
		t.Fatal("baseline should not be set before the 15th sample")
	}
}

func TestBaselineTracker_established_once_from_first_15(t *testing.T) {
	bt := NewBaselineTracker()
	for i := 1; i <= BaselineWarmup; i++ {
		bt.Add(float64(i))
	}
	b, ok := bt.Baseline()
	if !ok || b != 8 {
		t.Fatalf("baseline = %v (set=%v), want mean(1..15) = 8", b, ok)
	}

	// Later samples, normal or collapsed, never move it.
	for i := 0; i < 40; i++ {
		bt.Add(0.1)
	}
	if b2, _ := bt.Baseline(); b2 != 8 {
		t.Errorf("baseline moved to %v", b2)
	}
	if r := bt.Add(4); r != 0.5 {
		t.Errorf("ratio = %v, want 4/8", r)
	}
}

func TestBaselineTracker_window_is_fifo_capped(t *testing.T) {
	bt := NewBaselineTracker()
	for i := 1; i <= BaselineWindow+5; i++ {
		bt.Add(float64(i))
	}
	s := bt.Samples()
	if len(s) != BaselineWindow {
		t.Fatalf("window len = %d, want %d", len(s), BaselineWindow)
	}
	if s[0] != 6 || s[len(s)-1] != BaselineWindow+5 {
		t.Errorf("window = %v..%v, want 6..%d", s[0], s[len(s)-1], BaselineWindow+5)
	}
}

func TestBaselineTracker_zero_baseline_is_neutral(t *testing.T) {
	bt := NewBaselineTracker()
	for i := 0; i < BaselineWarmup; i++ {
		bt.Add(0)
	}
	if _, ok := bt.Baseline(); !ok {
		t.Fatal("baseline should be set even when zero")
	}
	if r := bt.Add(0.3); r != 1 || math.IsInf(r, 0) {
		t.Errorf("ratio = %v, want 1 for zero baseline", r)
	}
	if bt.establish(5) {
		t.Error("establish must not overwrite an existing baseline")
	}
}
