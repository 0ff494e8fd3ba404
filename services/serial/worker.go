// Package serial moves text lines over a byte transport: a reader goroutine
// per port assembles lines and emits them as events, Send writes a
// terminated response.
package serial

import (
	"context"
	"io"
	"sync"
	"time"

	"timerbank-go/errcode"
	"timerbank-go/platform"
)

const (
	DirRX = "rx"
	DirTX = "tx"
)

type Event struct {
	Dev  string
	Dir  string
	Line string
	TS   time.Time
}

type ReaderCfg struct {
	Dev           string
	Port          platform.SerialPort
	LineSize      int // see NewLineAssembler
	PublishTXEcho bool
}

type port struct {
	p    platform.SerialPort
	echo bool
	wmu  sync.Mutex
}

type Worker struct {
	outQ chan Event

	mu    sync.Mutex
	ports map[string]*port
}

func New(outBuf int) *Worker {
	if outBuf <= 0 {
		outBuf = 16
	}
	return &Worker{
		outQ:  make(chan Event, outBuf),
		ports: make(map[string]*port),
	}
}

func (w *Worker) Events() <-chan Event { return w.outQ }

// recvWait bounds each blocking receive so cancellation is noticed.
const recvWait = 250 * time.Millisecond

// Register starts a reader goroutine for cfg.Port. Returns cancel.
func (w *Worker) Register(ctx context.Context, cfg ReaderCfg) (func(), error) {
	if cfg.Port == nil || cfg.Dev == "" {
		return nil, errcode.InvalidParams
	}
	w.mu.Lock()
	if _, dup := w.ports[cfg.Dev]; dup {
		w.mu.Unlock()
		return nil, errcode.Busy
	}
	w.ports[cfg.Dev] = &port{p: cfg.Port, echo: cfg.PublishTXEcho}
	w.mu.Unlock()

	cctx, cancel := context.WithCancel(ctx)
	asm := NewLineAssembler(cfg.LineSize)

	go func() {
		defer func() {
			w.mu.Lock()
			delete(w.ports, cfg.Dev)
			w.mu.Unlock()
		}()
		buf := make([]byte, 64)
		for {
			select {
			case <-cctx.Done():
				return
			case <-cfg.Port.Readable():
				rctx, rcancel := context.WithTimeout(cctx, recvWait)
				n, err := cfg.Port.RecvSomeContext(rctx, buf)
				expired := rctx.Err() != nil
				rcancel()
				now := time.Now()
				for i := 0; i < n; i++ {
					if line, ok := asm.OnByte(buf[i]); ok {
						w.emit(Event{Dev: cfg.Dev, Dir: DirRX, Line: string(line), TS: now})
					}
				}
				if err != nil && !expired {
					// Port closed or failed; nothing more will arrive.
					return
				}
			}
		}
	}()

	return cancel, nil
}

func (w *Worker) emit(ev Event) {
	select {
	case w.outQ <- ev:
	default:
		// drop if consumer is slow
	}
}

// Send writes text plus the line terminator to dev. It blocks until the
// port has accepted every byte.
func (w *Worker) Send(dev, text string) error {
	w.mu.Lock()
	p := w.ports[dev]
	w.mu.Unlock()
	if p == nil {
		return errcode.Wrap(errcode.InvalidParams, "send", "unknown port "+dev, nil)
	}
	msg := make([]byte, 0, len(text)+1)
	msg = append(msg, text...)
	msg = append(msg, '\n')

	p.wmu.Lock()
	err := writeAll(p.p, msg)
	p.wmu.Unlock()
	if err != nil {
		return err
	}
	if p.echo {
		w.emit(Event{Dev: dev, Dir: DirTX, Line: text, TS: time.Now()})
	}
	return nil
}

func writeAll(p platform.SerialPort, b []byte) error {
	for len(b) > 0 {
		n, err := p.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}
