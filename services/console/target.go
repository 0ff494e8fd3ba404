//go:build !rp2040 && !rp2350 && !stm32

package console

import (
	"context"
	"sync"
	"time"

	"timerbank-go/bus"
	"timerbank-go/errcode"
	"timerbank-go/platform"
	"timerbank-go/services/blinker"
	"timerbank-go/services/serial"
	"timerbank-go/types"
)

const defaultReplyWait = 2 * time.Second

// Target runs one command line and returns the firmware's response.
type Target interface {
	Exec(ctx context.Context, line string) (string, error)
}

// SerialTarget talks to a board over its command UART: one line out, one
// line back.
type SerialTarget struct {
	port    platform.SerialPort
	timeout time.Duration

	mu  sync.Mutex
	asm *serial.LineAssembler
	buf [64]byte
}

func NewSerialTarget(port platform.SerialPort, timeout time.Duration) *SerialTarget {
	if timeout <= 0 {
		timeout = defaultReplyWait
	}
	return &SerialTarget{
		port:    port,
		timeout: timeout,
		asm:     serial.NewLineAssembler(serial.DefaultLineSize),
	}
}

func (t *SerialTarget) Exec(ctx context.Context, line string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.port.Write([]byte(line + "\n")); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	for {
		n, err := t.port.RecvSomeContext(ctx, t.buf[:])
		for _, b := range t.buf[:n] {
			if out, ok := t.asm.OnByte(b); ok {
				// Bytes after the reply belong to nothing we asked for.
				return string(out), nil
			}
		}
		if err != nil {
			t.asm.Reset()
			if ctx.Err() != nil {
				return "", errcode.Wrap(errcode.Timeout, "console", "no reply", err)
			}
			return "", err
		}
	}
}

// BusTarget runs lines on an in-process blinker service.
type BusTarget struct {
	conn    *bus.Connection
	timeout time.Duration
}

func NewBusTarget(conn *bus.Connection, timeout time.Duration) *BusTarget {
	if timeout <= 0 {
		timeout = defaultReplyWait
	}
	return &BusTarget{conn: conn, timeout: timeout}
}

func (t *BusTarget) Exec(ctx context.Context, line string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	msg := t.conn.NewMessage(blinker.TopicControl(blinker.VerbCommand), types.CommandRequest{Line: line}, false)
	reply, err := t.conn.RequestWait(ctx, msg)
	if err != nil {
		return "", err
	}
	switch p := reply.Payload.(type) {
	case types.CommandReply:
		return p.Response, nil
	case types.ErrorReply:
		return "", errcode.Code(p.Error)
	default:
		return "", errcode.Wrap(errcode.InvalidPayload, "console", "unexpected reply", nil)
	}
}
