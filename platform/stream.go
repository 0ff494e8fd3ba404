package platform

import (
	"context"
	"io"
	"sync"
)

// StreamPort adapts a blocking reader/writer pair to SerialPort. A pump
// goroutine moves input into a small buffer and raises Readable, the same
// shape as the interrupt-fed UART ring.
type StreamPort struct {
	w io.Writer

	mu  sync.Mutex
	rx  []byte
	err error
	rd  chan struct{}

	wmu sync.Mutex
}

var _ SerialPort = (*StreamPort)(nil)

// rxLimit bounds buffered input; bytes beyond it are dropped like a full
// hardware ring.
const rxLimit = 256

func NewStreamPort(r io.Reader, w io.Writer) *StreamPort {
	p := &StreamPort{w: w, rd: make(chan struct{}, 1)}
	if r != nil {
		go p.pump(r)
	}
	return p
}

func (p *StreamPort) pump(r io.Reader) {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			p.Inject(buf[:n])
		}
		if err != nil {
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
			p.notify()
			return
		}
	}
}

// Inject appends bytes as if they had arrived on the wire.
func (p *StreamPort) Inject(b []byte) {
	p.mu.Lock()
	room := rxLimit - len(p.rx)
	if room < len(b) {
		b = b[:max(room, 0)]
	}
	p.rx = append(p.rx, b...)
	p.mu.Unlock()
	p.notify()
}

func (p *StreamPort) notify() {
	select {
	case p.rd <- struct{}{}:
	default:
	}
}

func (p *StreamPort) Readable() <-chan struct{} { return p.rd }

func (p *StreamPort) tryRead(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rx) == 0 {
		return 0, p.err
	}
	n := copy(b, p.rx)
	p.rx = p.rx[n:]
	if len(p.rx) > 0 {
		p.notify()
	}
	return n, nil
}

// RecvSomeContext returns at least one byte, or the pump's terminal error,
// or ctx.Err().
func (p *StreamPort) RecvSomeContext(ctx context.Context, b []byte) (int, error) {
	for {
		if n, err := p.tryRead(b); n > 0 || err != nil {
			return n, err
		}
		select {
		case <-p.rd:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func (p *StreamPort) Write(b []byte) (int, error) {
	if p.w == nil {
		return len(b), nil
	}
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return p.w.Write(b)
}
