//go:build !rp2040 && !rp2350 && !stm32

package platform

import (
	"os"

	tty "github.com/mattn/go-tty"
)

// HostLEDPin is the simulated LED's pin number.
const HostLEDPin = 25

// Open builds simulated resources. With cfg.Device set the command port is
// that TTY in raw mode, otherwise stdin/stdout.
func Open(cfg Config) (*Resources, error) {
	led := NewSimPin(HostLEDPin)
	res := &Resources{
		LED:    led,
		Ticker: NewTicker(cfg.TickMs),
	}
	if cfg.Device == "" {
		res.Serial = NewStreamPort(os.Stdin, os.Stdout)
		res.SerialDev = "stdio"
		return res, nil
	}
	t, restore, err := OpenTTY(cfg.Device)
	if err != nil {
		return nil, err
	}
	res.Serial = NewStreamPort(t.Input(), t.Output())
	res.SerialDev = cfg.Device
	res.close = func() error {
		_ = restore()
		return t.Close()
	}
	return res, nil
}

// OpenTTY opens path in raw mode. The returned func restores the previous
// terminal mode.
func OpenTTY(path string) (*tty.TTY, func() error, error) {
	t, err := tty.OpenDevice(path)
	if err != nil {
		return nil, nil, err
	}
	restore, err := t.Raw()
	if err != nil {
		_ = t.Close()
		return nil, nil, err
	}
	return t, restore, nil
}
