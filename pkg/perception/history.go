package perception

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Sample is a value stamped with the frame time it was observed at.
type Sample[T any] struct {
	Value T
	At    time.Duration
}

// History is a fixed-capacity, time-pruned sample buffer.
// The oldest sample is dropped on overflow, and samples strictly older than
// MaxAge (relative to the latest Prune/Push time) are discarded.
// A zero MaxAge disables time pruning.
type History[T any] struct {
	samples  []Sample[T]
	capacity int
	maxAge   time.Duration
}

// NewHistory creates a history holding at most capacity samples.
func NewHistory[T any](capacity int, maxAge time.Duration) *History[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &History[T]{
		samples:  make([]Sample[T], 0, capacity),
		capacity: capacity,
		maxAge:   maxAge,
	}
}

// Push appends v at time t after pruning samples that have aged out.
func (h *History[T]) Push(v T, t time.Duration) {
	h.Prune(t)
	if len(h.samples) == h.capacity {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:len(h.samples)-1]
	}
	h.samples = append(h.samples, Sample[T]{Value: v, At: t})
}

// Prune drops samples older than MaxAge relative to now.
func (h *History[T]) Prune(now time.Duration) {
	if h.maxAge <= 0 {
		return
	}
	cutoff := now - h.maxAge
	i := 0
	for i < len(h.samples) && h.samples[i].At < cutoff {
		i++
	}
	if i > 0 {
		h.samples = append(h.samples[:0], h.samples[i:]...)
	}
}

// Len returns the number of retained samples.
func (h *History[T]) Len() int { return len(h.samples) }

// Full reports whether the history is at capacity.
func (h *History[T]) Full() bool { return len(h.samples) >= h.capacity }

// Clear drops all samples.
func (h *History[T]) Clear() { h.samples = h.samples[:0] }

// Latest returns the newest sample.
func (h *History[T]) Latest() (Sample[T], bool) {
	if len(h.samples) == 0 {
		return Sample[T]{}, false
	}
	return h.samples[len(h.samples)-1], true
}

// Samples returns the retained samples, oldest first. The slice is shared
// with the history and is only valid until the next mutation.
func (h *History[T]) Samples() []Sample[T] { return h.samples }

// Values returns a copy of the last n values, oldest first.
// n <= 0 or n > Len returns every value.
func (h *History[T]) Values(n int) []T {
	if n <= 0 || n > len(h.samples) {
		n = len(h.samples)
	}
	out := make([]T, n)
	for i, s := range h.samples[len(h.samples)-n:] {
		out[i] = s.Value
	}
	return out
}

// EMA returns alpha·current + (1-alpha)·previous.
func EMA(previous, current, alpha float64) float64 {
	return alpha*current + (1-alpha)*previous
}

// SmoothPush smooths v against the newest value in h with EMA and appends
// the smoothed result. An empty history stores v unchanged.
func SmoothPush(h *History[float64], v, alpha float64, t time.Duration) float64 {
	h.Prune(t)
	if last, ok := h.Latest(); ok {
		v = EMA(last.Value, v, alpha)
	}
	h.Push(v, t)
	return v
}

// MeanLast returns the mean of the last n values, or 0 for an empty history.
func MeanLast(h *History[float64], n int) float64 {
	if h.Len() == 0 {
		return 0
	}
	return stat.Mean(h.Values(n), nil)
}
