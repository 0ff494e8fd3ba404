//go:build !rp2040 && !rp2350 && !stm32

package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects records. Empty fields match everything.
type Filter struct {
	Stream string
	// Prefix matches leading topic levels, e.g. "timer" or "serial/host".
	Prefix string
}

func (f Filter) matches(r Record) bool {
	if f.Stream != "" && r.Stream != f.Stream {
		return false
	}
	if f.Prefix == "" {
		return true
	}
	want := strings.Split(strings.Trim(f.Prefix, "/"), "/")
	if len(want) > len(r.Topic) {
		return false
	}
	for i, w := range want {
		if r.Topic[i] != w {
			return false
		}
	}
	return true
}

type Reader struct {
	file   *os.File
	dec    *cbor.Decoder
	filter Filter
}

func NewReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, dec: newDecoder(f), filter: filter}, nil
}

// Next returns the next matching record, or io.EOF.
func (r *Reader) Next() (Record, error) {
	for {
		var rec Record
		if err := r.dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, err
		}
		if r.filter.matches(rec) {
			return rec, nil
		}
	}
}

func (r *Reader) Close() error { return r.file.Close() }

// Dump writes one line per record: time, stream prefix, seq, topic and the
// payload as JSON. It returns the number of records written.
func Dump(w io.Writer, r *Reader) (int, error) {
	n := 0
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		v, err := rec.Value()
		if err != nil {
			return n, err
		}
		body := []byte("null")
		if v != nil {
			if body, err = json.Marshal(v); err != nil {
				return n, err
			}
		}
		flag := ""
		if rec.Retained {
			flag = " [retained]"
		}
		stream := rec.Stream
		if len(stream) > 8 {
			stream = stream[:8]
		}
		if _, err := fmt.Fprintf(w, "%s %s #%d %s%s %s\n",
			rec.TS.Format("15:04:05.000"), stream, rec.Seq, strings.Join(rec.Topic, "/"), flag, body); err != nil {
			return n, err
		}
		n++
	}
}
