// Package softtimer implements a fixed-capacity bank of software timers
// counted down by a periodic tick.
//
// Tick runs in the tick ("interrupt") context and never allocates or blocks
// on foreground callers: each slot keeps remaining+active in one atomic word
// and the tick applies a single compare-and-swap per slot. If a foreground
// write lands between the tick's load and its swap, that slot is skipped for
// one tick.
package softtimer

import (
	"sync"
	"sync/atomic"

	"timerbank-go/errcode"
	"timerbank-go/types"
)

// DefaultSlots is the bank size used when Config.Slots is unset.
const DefaultSlots = 10

// state word: bits 0..31 remaining ticks, bit 32 active.
const activeBit = uint64(1) << 32

func pack(remaining uint32, active bool) uint64 {
	s := uint64(remaining)
	if active {
		s |= activeBit
	}
	return s
}

func unpack(s uint64) (remaining uint32, active bool) {
	return uint32(s), s&activeBit != 0
}

// ExpiryFunc is called from the tick context with the expired slot's index.
// It must not block.
type ExpiryFunc func(id int)

type slot struct {
	duration atomic.Uint32
	state    atomic.Uint64
	claimed  atomic.Bool
	reserved atomic.Bool
}

type Config struct {
	Slots    int        // <= 0 selects DefaultSlots
	OnExpire ExpiryFunc // optional; see Registry.OnExpire
}

type Registry struct {
	slots   []slot
	handler atomic.Pointer[ExpiryFunc]

	fg   sync.Mutex // serialises foreground mutators; never taken by Tick
	mask sync.Mutex // held by Tick; see Masked
}

func New(cfg Config) *Registry {
	n := cfg.Slots
	if n <= 0 {
		n = DefaultSlots
	}
	r := &Registry{slots: make([]slot, n)}
	if cfg.OnExpire != nil {
		r.OnExpire(cfg.OnExpire)
	}
	return r
}

func (r *Registry) Cap() int { return len(r.slots) }

// OnExpire installs the expiration handler. Passing nil removes it.
func (r *Registry) OnExpire(fn ExpiryFunc) {
	if fn == nil {
		r.handler.Store(nil)
		return
	}
	r.handler.Store(&fn)
}

// Add claims the first inactive, non-reserved slot.
func (r *Registry) Add(duration uint32, autoStart bool) (int, error) {
	return r.claim(duration, autoStart, false)
}

// Reserve claims a slot that Add will never reclaim, even while inactive.
// The slot starts stopped.
func (r *Registry) Reserve(duration uint32) (int, error) {
	return r.claim(duration, false, true)
}

func (r *Registry) claim(duration uint32, autoStart, reserve bool) (int, error) {
	r.fg.Lock()
	defer r.fg.Unlock()
	for i := range r.slots {
		s := &r.slots[i]
		if s.reserved.Load() {
			continue
		}
		if _, active := unpack(s.state.Load()); active {
			continue
		}
		// Inactive slots are never written by Tick, so plain stores are safe.
		s.duration.Store(duration)
		s.claimed.Store(true)
		s.reserved.Store(reserve)
		s.state.Store(pack(duration, autoStart))
		return i, nil
	}
	return -1, errcode.RegistryFull
}

func (r *Registry) lookup(id int) (*slot, error) {
	if id < 0 || id >= len(r.slots) {
		return nil, errcode.InvalidSlot
	}
	s := &r.slots[id]
	if !s.claimed.Load() {
		return nil, errcode.UnclaimedSlot
	}
	return s, nil
}

// Start (re)arms a slot from its full duration.
func (r *Registry) Start(id int) error {
	r.fg.Lock()
	defer r.fg.Unlock()
	s, err := r.lookup(id)
	if err != nil {
		return err
	}
	s.state.Store(pack(s.duration.Load(), true))
	return nil
}

func (r *Registry) Stop(id int) error {
	r.fg.Lock()
	defer r.fg.Unlock()
	s, err := r.lookup(id)
	if err != nil {
		return err
	}
	for {
		st := s.state.Load()
		if s.state.CompareAndSwap(st, st&^activeBit) {
			return nil
		}
	}
}

// Update sets a new duration. A running slot restarts its countdown from it.
func (r *Registry) Update(id int, duration uint32) error {
	r.fg.Lock()
	defer r.fg.Unlock()
	s, err := r.lookup(id)
	if err != nil {
		return err
	}
	s.duration.Store(duration)
	for {
		st := s.state.Load()
		if _, active := unpack(st); !active {
			return nil
		}
		if s.state.CompareAndSwap(st, pack(duration, true)) {
			return nil
		}
	}
}

// Rearm restarts an inactive slot from its full duration.
// Safe to call from an ExpiryFunc; it takes no locks.
func (r *Registry) Rearm(id int) bool {
	if id < 0 || id >= len(r.slots) {
		return false
	}
	s := &r.slots[id]
	st := s.state.Load()
	if _, active := unpack(st); active {
		return false
	}
	return s.state.CompareAndSwap(st, pack(s.duration.Load(), true))
}

// Tick advances every active slot by one tick and returns how many expired.
func (r *Registry) Tick() int {
	r.mask.Lock()
	defer r.mask.Unlock()

	h := r.handler.Load()
	fired := 0
	for i := range r.slots {
		s := &r.slots[i]
		st := s.state.Load()
		rem, active := unpack(st)
		if !active {
			continue
		}
		next := uint64(0) // expired: inactive, remaining 0
		if rem > 1 {
			next = pack(rem-1, true)
		}
		if !s.state.CompareAndSwap(st, next) {
			continue
		}
		if next == 0 {
			fired++
			if h != nil {
				(*h)(i)
			}
		}
	}
	return fired
}

// Masked runs fn with ticks held off, the way firmware briefly masks the
// timer interrupt around a multi-field update. A tick arriving meanwhile is
// deferred until fn returns. fn must be short and must not call Tick.
func (r *Registry) Masked(fn func()) {
	r.mask.Lock()
	defer r.mask.Unlock()
	fn()
}

func (r *Registry) Slot(id int) (types.TimerSlot, error) {
	if id < 0 || id >= len(r.slots) {
		return types.TimerSlot{}, errcode.InvalidSlot
	}
	return r.snapshot(id), nil
}

func (r *Registry) Snapshot() []types.TimerSlot {
	out := make([]types.TimerSlot, len(r.slots))
	for i := range r.slots {
		out[i] = r.snapshot(i)
	}
	return out
}

func (r *Registry) snapshot(id int) types.TimerSlot {
	s := &r.slots[id]
	rem, active := unpack(s.state.Load())
	return types.TimerSlot{
		ID:        id,
		Duration:  s.duration.Load(),
		Remaining: rem,
		Active:    active,
		Claimed:   s.claimed.Load(),
		Reserved:  s.reserved.Load(),
	}
}
