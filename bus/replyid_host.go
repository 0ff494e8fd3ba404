//go:build !rp2040 && !rp2350 && !stm32

package bus

import "github.com/rs/xid"

func newReplyID() string { return xid.New().String() }
