//go:build stm32

package platform

import (
	"context"
	"machine"
	"time"
)

type stm32Pin struct {
	p machine.Pin
}

func (s *stm32Pin) Number() int { return int(s.p) }

func (s *stm32Pin) ConfigureOutput(initial bool) error {
	s.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.p.Set(initial)
	return nil
}

func (s *stm32Pin) Set(level bool) { s.p.Set(level) }
func (s *stm32Pin) Get() bool      { return s.p.Get() }
func (s *stm32Pin) Toggle()        { s.p.Set(!s.p.Get()) }

// stm32Serial wraps machine.UART, whose ISR fills a ring but raises no
// readiness signal; a poller provides one.
type stm32Serial struct {
	u  *machine.UART
	rd chan struct{}
}

const stm32PollEvery = 2 * time.Millisecond

func newSTM32Serial(u *machine.UART) *stm32Serial {
	s := &stm32Serial{u: u, rd: make(chan struct{}, 1)}
	go func() {
		for {
			if s.u.Buffered() > 0 {
				select {
				case s.rd <- struct{}{}:
				default:
				}
			}
			time.Sleep(stm32PollEvery)
		}
	}()
	return s
}

func (s *stm32Serial) Readable() <-chan struct{} { return s.rd }
func (s *stm32Serial) Write(b []byte) (int, error) { return s.u.Write(b) }

func (s *stm32Serial) RecvSomeContext(ctx context.Context, b []byte) (int, error) {
	for {
		if s.u.Buffered() > 0 {
			return s.u.Read(b)
		}
		select {
		case <-s.rd:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Open brings up LED and the default UART (USART2 on the Discovery board).
func Open(cfg Config) (*Resources, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	u := machine.DefaultUART
	if err := u.Configure(machine.UARTConfig{BaudRate: baud}); err != nil {
		return nil, err
	}
	return &Resources{
		LED:       &stm32Pin{p: machine.LED},
		Serial:    newSTM32Serial(u),
		SerialDev: "usart2",
		Ticker:    NewTicker(cfg.TickMs),
	}, nil
}
