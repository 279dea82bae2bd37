package strategy

import (
	"errors"
	"fmt"
)

// Window is a fixed-capacity rolling buffer of prices. Pushing onto a full
// window evicts the oldest price. Capacity is chosen as the longest lookback
// a strategy needs.
type Window struct {
	values []float64
	size   int
	index  int
	filled bool
}

// NewWindow creates a Window holding at most size prices. It panics when
// size is not positive; a zero-capacity window has no meaningful Push.
func NewWindow(size int) *Window {
	if size <= 0 {
		panic(fmt.Sprintf("strategy: window size must be positive, got %d", size))
	}
	return &Window{
		values: make([]float64, size),
		size:   size,
	}
}

// Push appends a price, evicting the oldest one once the window is full.
func (w *Window) Push(value float64) {
	w.values[w.index] = value
	w.index = (w.index + 1) % w.size
	if w.index == 0 {
		w.filled = true
	}
}

// Len returns the number of prices currently held.
func (w *Window) Len() int {
	if w.filled {
		return w.size
	}
	return w.index
}

// Values returns the held prices in insertion order, oldest first.
func (w *Window) Values() []float64 {
	length := w.Len()
	result := make([]float64, 0, length)
	if length == 0 {
		return result
	}
	if w.filled {
		result = append(result, w.values[w.index:]...)
	}
	result = append(result, w.values[:w.index]...)
	return result
}

// SMA returns the simple moving average of the most recent n prices.
func (w *Window) SMA(n int) (float64, error) {
	if n <= 0 {
		return 0, errors.New("window must be positive")
	}
	values := w.Values()
	if len(values) < n {
		return 0, errors.New("not enough data for SMA")
	}
	start := len(values) - n
	sum := 0.0
	for _, v := range values[start:] {
		sum += v
	}
	return sum / float64(n), nil
}
