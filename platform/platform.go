// Package platform abstracts the board resources the firmware touches: the
// LED pin, the command UART and the periodic tick source. Each target
// provides Open; the host build backs them with simulated devices.
package platform

import "context"

// Pin is a push-pull GPIO output.
type Pin interface {
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Toggle()
	Number() int
}

// SerialPort is the byte transport: a readiness signal, a bounded receive
// and a blocking write.
type SerialPort interface {
	Readable() <-chan struct{}
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
	Write(p []byte) (int, error)
}

// TickSource raises the periodic tick. SetPeriod takes effect no later
// than the next tick boundary.
type TickSource interface {
	SetPeriod(ms uint32)
	Period() uint32
}

// Config selects what Open brings up.
type Config struct {
	TickMs uint32 // initial tick period; 0 selects DefaultTickMs
	Baud   uint32 // 0 selects DefaultBaud
	Device string // host only: TTY path; empty uses stdin/stdout
}

const (
	DefaultTickMs = 1000
	DefaultBaud   = 9600
)

// Resources is what a board hands the application.
type Resources struct {
	LED       Pin
	Serial    SerialPort
	SerialDev string
	Ticker    *Ticker

	close func() error
}

// Close releases host resources. It is a no-op on boards.
func (r *Resources) Close() error {
	if r == nil || r.close == nil {
		return nil
	}
	return r.close()
}
