package platform

import (
	"context"
	"sync/atomic"
	"time"
)

// Ticker is a TickSource driven by time.Ticker. Run calls isr once per
// period from its own goroutine, which plays the role of the timer
// interrupt.
type Ticker struct {
	period atomic.Uint32
	reset  chan struct{}
	ticks  atomic.Uint64
}

var _ TickSource = (*Ticker)(nil)

func NewTicker(ms uint32) *Ticker {
	t := &Ticker{reset: make(chan struct{}, 1)}
	t.period.Store(normPeriod(ms))
	return t
}

func normPeriod(ms uint32) uint32 {
	if ms == 0 {
		return DefaultTickMs
	}
	return ms
}

func (t *Ticker) Period() uint32 { return t.period.Load() }

// Ticks reports how many times isr has been called.
func (t *Ticker) Ticks() uint64 { return t.ticks.Load() }

// SetPeriod stores the new period and nudges Run. Repeated calls before Run
// observes them coalesce; the last value wins.
func (t *Ticker) SetPeriod(ms uint32) {
	t.period.Store(normPeriod(ms))
	select {
	case t.reset <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (t *Ticker) Run(ctx context.Context, isr func()) {
	cur := t.period.Load()
	tk := time.NewTicker(time.Duration(cur) * time.Millisecond)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.reset:
			if p := t.period.Load(); p != cur {
				cur = p
				tk.Reset(time.Duration(cur) * time.Millisecond)
			}
		case <-tk.C:
			t.ticks.Add(1)
			isr()
		}
	}
}
