// Package blink holds the LED blink configuration and the controller that
// applies it: a reserved software timer whose expiry toggles the LED while
// blinking is enabled.
package blink

import "sync/atomic"

// DefaultPeriodMs is the boot period.
const DefaultPeriodMs = 1000

// State is shared between the command handler and the tick context.
// Each field is a single atomic word.
type State struct {
	period  atomic.Uint32
	running atomic.Bool
}

// NewState returns the boot state: 1000 ms, not running.
func NewState() *State {
	s := &State{}
	s.period.Store(DefaultPeriodMs)
	return s
}

func (s *State) Period() uint32 { return s.period.Load() }
func (s *State) Running() bool  { return s.running.Load() }
