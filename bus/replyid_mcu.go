//go:build rp2040 || rp2350 || stm32

package bus

import (
	"sync/atomic"

	"timerbank-go/x/strconvx"
)

var replySeq atomic.Uint32

func newReplyID() string { return strconvx.FormatUint(uint64(replySeq.Add(1)), 10) }
