// Package ledcmd parses and executes the LED text commands received over
// the serial line.
//
//	LedStop    stop blinking, LED low        -> OK
//	LedStart   resume blinking               -> OK
//	Led<n>ms   period n ms, 1 <= n <= 1000   -> OK
//	Led<n>s    period n s, 1 <= n <= 10      -> OK
//	Led...     anything else                 -> Invalid value
//	...        not starting with Led         -> CmdError
package ledcmd

import (
	"strings"

	"timerbank-go/errcode"
	"timerbank-go/x/mathx"
)

// Responses written back to the transport.
const (
	RespOK       = "OK"
	RespInvalid  = "Invalid value"
	RespCmdError = "CmdError"
)

const (
	prefixLed   = "Led"
	prefixStop  = "LedStop"
	prefixStart = "LedStart"
)

// Period limits.
const (
	MinPeriodMs  = 1
	MaxPeriodMs  = 1000
	MinPeriodSec = 1
	MaxPeriodSec = 10
)

type Kind uint8

const (
	KindNone Kind = iota
	KindStop
	KindStart
	KindPeriod
)

func (k Kind) String() string {
	switch k {
	case KindStop:
		return "stop"
	case KindStart:
		return "start"
	case KindPeriod:
		return "period"
	default:
		return "none"
	}
}

// Command is the parse result. PeriodMs is set for KindPeriod only.
type Command struct {
	Kind     Kind
	PeriodMs uint32
}

// Parse classifies one line. Prefixes are tried in order, so "LedStopNow"
// is a stop and "LedStartX" a start.
func Parse(line string) (Command, error) {
	switch {
	case strings.HasPrefix(line, prefixStop):
		return Command{Kind: KindStop}, nil
	case strings.HasPrefix(line, prefixStart):
		return Command{Kind: KindStart}, nil
	case strings.HasPrefix(line, prefixLed):
		return parsePeriod(line[len(prefixLed):])
	default:
		return Command{}, errcode.UnrecognizedCommand
	}
}

func parsePeriod(arg string) (Command, error) {
	v, n := mathx.ScanUint32(arg)
	if n == 0 {
		return Command{}, errcode.Wrap(errcode.ParseError, "parse", "missing digits", nil)
	}
	switch arg[n:] {
	case "ms":
		if !mathx.Between(v, MinPeriodMs, MaxPeriodMs) {
			return Command{}, errcode.Wrap(errcode.OutOfRange, "parse", "ms outside [1,1000]", nil)
		}
		return Command{Kind: KindPeriod, PeriodMs: v}, nil
	case "s":
		if !mathx.Between(v, MinPeriodSec, MaxPeriodSec) {
			return Command{}, errcode.Wrap(errcode.OutOfRange, "parse", "s outside [1,10]", nil)
		}
		return Command{Kind: KindPeriod, PeriodMs: v * 1000}, nil
	default:
		return Command{}, errcode.Wrap(errcode.ParseError, "parse", "bad unit suffix", nil)
	}
}

// Response maps a Parse error to the text sent back on the wire.
func Response(err error) string {
	switch errcode.Of(err) {
	case errcode.OK:
		return RespOK
	case errcode.UnrecognizedCommand:
		return RespCmdError
	default:
		return RespInvalid
	}
}
