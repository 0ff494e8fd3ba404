package platform

import "sync/atomic"

// SimPin is an in-memory output pin. It counts level changes so tests and
// the monitor can observe blinking.
type SimPin struct {
	n          int
	level      atomic.Bool
	configured atomic.Bool
	edges      atomic.Uint32
}

var _ Pin = (*SimPin)(nil)

func NewSimPin(n int) *SimPin { return &SimPin{n: n} }

func (p *SimPin) Number() int { return p.n }

func (p *SimPin) ConfigureOutput(initial bool) error {
	p.level.Store(initial)
	p.configured.Store(true)
	return nil
}

func (p *SimPin) Set(level bool) {
	if p.level.Swap(level) != level {
		p.edges.Add(1)
	}
}

func (p *SimPin) Get() bool { return p.level.Load() }

func (p *SimPin) Toggle() {
	for {
		old := p.level.Load()
		if p.level.CompareAndSwap(old, !old) {
			p.edges.Add(1)
			return
		}
	}
}

// Edges returns the number of level changes since creation.
func (p *SimPin) Edges() uint32 { return p.edges.Load() }

func (p *SimPin) Configured() bool { return p.configured.Load() }
