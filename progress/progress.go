// Package progress reports the completion of long running operations as
// integer percentages.
//
// An operation made of n units reports floor(done/n*100) after every unit,
// but at least 1, and ends with exactly 100. An operation with no units
// reports a single 100.
package progress

import "sync"

// Sink receives progress events. Report must not block.
type Sink interface {
	Report(percent int)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(percent int)

// Report calls f(percent).
func (f SinkFunc) Report(percent int) { f(percent) }

// Percent returns floor(done/total*100), clamped to [0, 100]. A zero
// total counts as complete.
func Percent(done, total int) int {
	if total <= 0 || done >= total {
		return 100
	}
	if done <= 0 {
		return 0
	}
	return done * 100 / total
}

// Tracker counts completed units of one operation. A nil sink discards
// events.
type Tracker struct {
	sink  Sink
	total int
	done  int
	last  int
}

// NewTracker creates a tracker for total units.
func NewTracker(sink Sink, total int) *Tracker {
	return &Tracker{sink: sink, total: total, last: -1}
}

// Step marks one unit complete and reports the new percentage. A
// completed unit never reports 0, even when there are more than 100.
func (t *Tracker) Step() {
	if t.done < t.total {
		t.done++
	}
	t.report(max(1, Percent(t.done, t.total)))
}

// Finish reports 100 unless it was already the last event.
func (t *Tracker) Finish() {
	if t.last != 100 {
		t.report(100)
	}
}

func (t *Tracker) report(percent int) {
	t.last = percent
	if t.sink != nil {
		t.sink.Report(percent)
	}
}

// Channel is a Sink backed by a buffered channel. When the buffer is
// full the oldest event is dropped, so Report never blocks.
type Channel struct {
	mu     sync.Mutex
	ch     chan int
	closed bool
}

// NewChannel creates a Channel holding up to size events.
func NewChannel(size int) *Channel {
	if size < 1 {
		size = 1
	}
	return &Channel{ch: make(chan int, size)}
}

// C returns the receive side.
func (c *Channel) C() <-chan int { return c.ch }

// Report queues percent, evicting the oldest event if needed.
func (c *Channel) Report(percent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for {
		select {
		case c.ch <- percent:
			return
		default:
		}
		select {
		case <-c.ch:
		default:
		}
	}
}

// Close closes the channel. Later reports are discarded.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
