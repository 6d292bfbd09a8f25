package frameloop

import (
	"sync/atomic"

	"github.com/banshee-data/floorobjects/internal/tracking"
)

// TapQueue buffers taps between the UI goroutine and the frame thread.
// When full, new taps are dropped: taps are rare compared to the frame rate
// so losing one under a burst is acceptable.
type TapQueue struct {
	ch      chan tracking.Tap
	dropped atomic.Int64
}

// NewTapQueue creates a queue holding at most capacity taps.
func NewTapQueue(capacity int) *TapQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &TapQueue{ch: make(chan tracking.Tap, capacity)}
}

// Offer enqueues tap without blocking and reports whether it was accepted.
func (q *TapQueue) Offer(tap tracking.Tap) bool {
	select {
	case q.ch <- tap:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Poll dequeues one tap without blocking.
func (q *TapQueue) Poll() (tracking.Tap, bool) {
	select {
	case tap := <-q.ch:
		return tap, true
	default:
		return tracking.Tap{}, false
	}
}

// Len returns the number of queued taps.
func (q *TapQueue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *TapQueue) Cap() int { return cap(q.ch) }

// Dropped returns how many taps were rejected because the queue was full.
func (q *TapQueue) Dropped() int64 { return q.dropped.Load() }
