package blink

import (
	"timerbank-go/ledcmd"
	"timerbank-go/platform"
	"timerbank-go/types"
	"timerbank-go/x/mathx"
	"timerbank-go/x/timex"
)

// DefaultBlinkTicks is the blink timer duration: one toggle per tick.
const DefaultBlinkTicks = 1

// Timers is the part of the timer bank the controller needs.
type Timers interface {
	Reserve(duration uint32) (int, error)
	Start(id int) error
	Stop(id int) error
	Update(id int, duration uint32) error
	Rearm(id int) bool
	Masked(fn func())
}

type Config struct {
	PeriodMs   uint32 // 0 selects DefaultPeriodMs
	BlinkTicks uint32 // 0 selects DefaultBlinkTicks
	Running    bool

	// OnError is told when the timer bank rejects a Start or Stop of the
	// blink slot. Optional.
	OnError func(op string, err error)
}

type Controller struct {
	state  *State
	timers Timers
	pin    platform.Pin
	ticks  platform.TickSource
	slot   int
	onErr  func(op string, err error)
}

var _ ledcmd.Target = (*Controller)(nil)

// New reserves the blink slot, drives the LED low and programs the tick
// source with the configured period.
func New(t Timers, pin platform.Pin, ticks platform.TickSource, cfg Config) (*Controller, error) {
	slot, err := t.Reserve(mathx.Or(cfg.BlinkTicks, DefaultBlinkTicks))
	if err != nil {
		return nil, err
	}
	if err := pin.ConfigureOutput(false); err != nil {
		return nil, err
	}
	c := &Controller{
		state:  NewState(),
		timers: t,
		pin:    pin,
		ticks:  ticks,
		slot:   slot,
		onErr:  cfg.OnError,
	}
	c.SetPeriod(mathx.Or(cfg.PeriodMs, DefaultPeriodMs))
	if cfg.Running {
		c.Start()
	}
	return c, nil
}

// Slot is the reserved blink timer's id.
func (c *Controller) Slot() int { return c.slot }

func (c *Controller) Period() uint32 { return c.state.Period() }
func (c *Controller) Running() bool  { return c.state.Running() }
func (c *Controller) Level() bool    { return c.pin.Get() }

// Start enables blinking and restarts the blink countdown. The LED keeps its
// current level.
func (c *Controller) Start() {
	c.timers.Masked(func() {
		c.state.running.Store(true)
		c.report("start", c.timers.Start(c.slot))
	})
}

// Stop disables blinking and forces the LED low. No tick can toggle the LED
// after Stop returns.
func (c *Controller) Stop() {
	c.timers.Masked(func() {
		c.state.running.Store(false)
		c.report("stop", c.timers.Stop(c.slot))
		c.pin.Set(false)
	})
}

func (c *Controller) report(op string, err error) {
	if err != nil && c.onErr != nil {
		c.onErr(op, err)
	}
}

// SetPeriod stores the period and reprograms the tick source before
// returning.
func (c *Controller) SetPeriod(ms uint32) {
	c.state.period.Store(ms)
	c.ticks.SetPeriod(ms)
}

// SetBlinkTicks changes how many ticks pass between toggles.
func (c *Controller) SetBlinkTicks(n uint32) error {
	return c.timers.Update(c.slot, mathx.Or(n, DefaultBlinkTicks))
}

// HandleExpiry runs in the tick context. It reports whether id is the blink
// slot; if so and blinking is enabled, it toggles the LED and re-arms.
func (c *Controller) HandleExpiry(id int) bool {
	if id != c.slot {
		return false
	}
	if c.state.Running() {
		c.pin.Toggle()
		c.timers.Rearm(c.slot)
	}
	return true
}

func (c *Controller) Snapshot() types.BlinkState {
	return types.BlinkState{
		PeriodMs: c.Period(),
		Running:  c.Running(),
		Level:    c.Level(),
		TS:       timex.NowMs(),
	}
}
