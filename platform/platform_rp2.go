//go:build rp2040 || rp2350

package platform

import (
	"context"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

type rp2Pin struct {
	p machine.Pin
}

func (r *rp2Pin) Number() int { return int(r.p) }

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }
func (r *rp2Pin) Toggle()        { r.p.Set(!r.p.Get()) }

// rp2Serial adapts the interrupt-driven uartx UART.
type rp2Serial struct{ u *uartx.UART }

func (s *rp2Serial) Readable() <-chan struct{} { return s.u.Readable() }
func (s *rp2Serial) Write(b []byte) (int, error) { return s.u.Write(b) }
func (s *rp2Serial) RecvSomeContext(ctx context.Context, b []byte) (int, error) {
	return s.u.RecvSomeContext(ctx, b)
}

// Open brings up the on-board LED and UART0 on its default pins.
func Open(cfg Config) (*Resources, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	u := uartx.UART0
	if err := u.Configure(uartx.UARTConfig{
		BaudRate: baud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	}); err != nil {
		return nil, err
	}
	return &Resources{
		LED:       &rp2Pin{p: machine.LED},
		Serial:    &rp2Serial{u: u},
		SerialDev: "uart0",
		Ticker:    NewTicker(cfg.TickMs),
	}, nil
}
