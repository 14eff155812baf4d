package perception

import "time"

// zeroCrossCapacity bounds stored flips; at 30 fps a 0.3s window never holds
// more than 10.
const zeroCrossCapacity = 32

// ZeroCrossCounter counts sign changes of a scalar signal within a trailing
// time window. Zero counts as positive.
type ZeroCrossCounter struct {
	window   time.Duration
	prevSign int // 0 until the first sample
	flips    *History[struct{}]
}

// NewZeroCrossCounter creates a counter over the given trailing window.
func NewZeroCrossCounter(window time.Duration) *ZeroCrossCounter {
	return &ZeroCrossCounter{
		window: window,
		flips:  NewHistory[struct{}](zeroCrossCapacity, window),
	}
}

// Update records value at time t and returns the number of flips within
// the window ending at t.
func (z *ZeroCrossCounter) Update(value float64, t time.Duration) int {
	sign := signOf(value)
	z.flips.Prune(t)
	if z.prevSign != 0 && sign != z.prevSign {
		z.flips.Push(struct{}{}, t)
	}
	z.prevSign = sign
	return z.flips.Len()
}

// Count returns the number of flips within the window ending at now.
func (z *ZeroCrossCounter) Count(now time.Duration) int {
	z.flips.Prune(now)
	return z.flips.Len()
}

// Clear drops recorded flips and re-arms the counter with the sign of
// current, so the next flip is measured from the present state.
func (z *ZeroCrossCounter) Clear(current float64) {
	z.flips.Clear()
	z.prevSign = signOf(current)
}

// Reset forgets everything, including the previous sign.
func (z *ZeroCrossCounter) Reset() {
	z.flips.Clear()
	z.prevSign = 0
}

func signOf(v float64) int {
	if v >= 0 {
		return 1
	}
	return -1
}
