package perception

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// AdaptiveThreshold recomputes a decision threshold from recent signal
// amplitude: max(Base, mean(|last Window values|) × Sensitivity).
type AdaptiveThreshold struct {
	Base        float64
	Sensitivity float64
	Window      int // number of trailing samples averaged
	MinSamples  int // below this the base threshold is returned
}

// Compute returns the threshold for the given values (oldest first).
func (a AdaptiveThreshold) Compute(values []float64) float64 {
	if len(values) < a.MinSamples || len(values) == 0 {
		return a.Base
	}
	recent := values
	if a.Window > 0 && len(recent) > a.Window {
		recent = recent[len(recent)-a.Window:]
	}
	abs := make([]float64, len(recent))
	for i, v := range recent {
		abs[i] = math.Abs(v)
	}
	return math.Max(a.Base, stat.Mean(abs, nil)*a.Sensitivity)
}

// Of computes the threshold over a float history.
func (a AdaptiveThreshold) Of(h *History[float64]) float64 {
	return a.Compute(h.Values(a.Window))
}
