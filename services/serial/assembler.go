package serial

// DefaultLineSize matches the firmware's RX buffer: at most 63 payload bytes.
const DefaultLineSize = 64

const (
	minLineSize = 2
	maxLineSize = 256
)

// LineAssembler accumulates received bytes into lines. A line completes on
// LF, or on any byte that arrives while Max bytes are already held; that
// byte is discarded and the held bytes are handed over. CR is dropped.
type LineAssembler struct {
	buf []byte
	n   int
}

func NewLineAssembler(size int) *LineAssembler {
	if size <= 0 {
		size = DefaultLineSize
	}
	if size < minLineSize {
		size = minLineSize
	}
	if size > maxLineSize {
		size = maxLineSize
	}
	return &LineAssembler{buf: make([]byte, size)}
}

// Max is the longest payload a line can carry.
func (a *LineAssembler) Max() int { return len(a.buf) - 1 }

// Pending reports bytes buffered towards the next line.
func (a *LineAssembler) Pending() int { return a.n }

// OnByte feeds one byte. The returned slice aliases internal storage and is
// valid until the next call.
func (a *LineAssembler) OnByte(b byte) ([]byte, bool) {
	if b == '\r' {
		return nil, false
	}
	if b == '\n' || a.n >= a.Max() {
		return a.take(), true
	}
	a.buf[a.n] = b
	a.n++
	return nil, false
}

func (a *LineAssembler) take() []byte {
	line := a.buf[:a.n]
	a.n = 0
	return line
}

// Reset discards a partial line.
func (a *LineAssembler) Reset() { a.n = 0 }
