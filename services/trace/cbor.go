//go:build !rp2040 && !rp2350 && !stm32

package trace

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	if encMode, err = encOpts.EncMode(); err != nil {
		panic(fmt.Sprintf("trace: cbor encoder mode: %v", err))
	}

	// Payloads decode to JSON-friendly maps so dump can print them.
	decOpts := cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyQuiet,
		IndefLength:    cbor.IndefLengthAllowed,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(fmt.Sprintf("trace: cbor decoder mode: %v", err))
	}
}

func newEncoder(w io.Writer) *cbor.Encoder { return encMode.NewEncoder(w) }
func newDecoder(r io.Reader) *cbor.Decoder { return decMode.NewDecoder(r) }
