package posture

import "gonum.org/v1/gonum/stat"

const (
	// BaselineWindow is the number of recent head-height samples retained.
	BaselineWindow = 30
	// BaselineWarmup is the number of samples averaged into the baseline.
	BaselineWarmup = 15
)

// BaselineTracker learns the subject's normal standing head height from the
// first BaselineWarmup measurements and normalizes later ones against it.
// The baseline is set once and never adapts afterwards, including after a
// fall and recovery.
type BaselineTracker struct {
	samples  []float64
	baseline float64
	set      bool
}

// NewBaselineTracker returns a tracker with no baseline.
func NewBaselineTracker() *BaselineTracker {
	return &BaselineTracker{samples: make([]float64, 0, BaselineWindow)}
}

// Add records diff (hipMid.Y - nose.Y) and returns its head-height ratio.
func (t *BaselineTracker) Add(diff float64) float64 {
	if len(t.samples) == BaselineWindow {
		copy(t.samples, t.samples[1:])
		t.samples = t.samples[:BaselineWindow-1]
	}
	t.samples = append(t.samples, diff)

	if !t.set && len(t.samples) >= BaselineWarmup {
		t.establish(stat.Mean(t.samples[:BaselineWarmup], nil))
	}
	return t.Ratio(diff)
}

// Ratio normalizes diff against the baseline, or returns 1 while warming up.
// A zero baseline also yields 1 rather than dividing by zero.
func (t *BaselineTracker) Ratio(diff float64) float64 {
	if !t.set || t.baseline == 0 {
		return 1
	}
	return diff / t.baseline
}

// Baseline returns the established baseline and whether it is set.
func (t *BaselineTracker) Baseline() (float64, bool) {
	return t.baseline, t.set
}

// Samples returns a copy of the retained window, oldest first.
func (t *BaselineTracker) Samples() []float64 {
	out := make([]float64, len(t.samples))
	copy(out, t.samples)
	return out
}

// establish sets the baseline the first time it is called and reports
// whether it did.
func (t *BaselineTracker) establish(v float64) bool {
	if t.set {
		return false
	}
	t.baseline = v
	t.set = true
	return true
}
