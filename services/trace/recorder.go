//go:build !rp2040 && !rp2350 && !stm32

// Package trace records bus traffic to a CBOR file and reads it back.
package trace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"timerbank-go/bus"
)

// Record is one bus message as written to a trace file.
type Record struct {
	Stream   string          `cbor:"1,keyasint"`
	Seq      uint64          `cbor:"2,keyasint"`
	TS       time.Time       `cbor:"3,keyasint"`
	Topic    []string        `cbor:"4,keyasint"`
	Retained bool            `cbor:"5,keyasint,omitempty"`
	Payload  cbor.RawMessage `cbor:"6,keyasint,omitempty"`
}

// Value decodes the payload. A cleared retained topic yields nil.
func (r Record) Value() (any, error) {
	if len(r.Payload) == 0 {
		return nil, nil
	}
	var v any
	if err := decMode.Unmarshal(r.Payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Recorder appends bus messages to a file. It is safe for concurrent use.
type Recorder struct {
	stream string
	log    *slog.Logger

	mu     sync.Mutex
	file   *os.File
	enc    *cbor.Encoder
	seq    uint64
	closed bool
}

// NewRecorder opens path for appending. Each recorder gets its own stream ID
// so several runs can share one file.
func NewRecorder(path string, log *slog.Logger) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		stream: uuid.NewString(),
		log:    log,
		file:   f,
		enc:    newEncoder(f),
	}, nil
}

func (r *Recorder) Stream() string { return r.stream }

// Count returns the number of records written.
func (r *Recorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Record writes m. Messages after Close are dropped.
func (r *Recorder) Record(m *bus.Message) {
	rec := Record{
		Stream:   r.stream,
		TS:       time.Now(),
		Topic:    topicStrings(m.Topic),
		Retained: m.Retained,
	}
	if m.Payload != nil {
		raw, err := encMode.Marshal(m.Payload)
		if err != nil {
			r.log.Warn("trace: payload not encodable", "topic", rec.Topic, "err", err)
			raw, _ = encMode.Marshal(fmt.Sprint(m.Payload))
		}
		rec.Payload = raw
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.seq++
	rec.Seq = r.seq
	if err := r.enc.Encode(rec); err != nil {
		r.log.Warn("trace: write failed", "err", err)
	}
}

// Run records everything delivered on sub until ctx is done or sub closes.
func (r *Recorder) Run(ctx context.Context, sub *bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-sub.Channel():
			if !ok {
				return
			}
			r.Record(m)
		}
	}
}

// Close flushes and closes the file. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.file.Sync(); err != nil {
		_ = r.file.Close()
		return err
	}
	return r.file.Close()
}

func topicStrings(t bus.Topic) []string {
	out := make([]string, t.Len())
	for i := range out {
		out[i] = fmt.Sprint(t.At(i))
	}
	return out
}
