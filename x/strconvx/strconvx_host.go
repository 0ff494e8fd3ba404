//go:build !rp2040 && !rp2350 && !stm32

// Package strconvx is the slice of strconv the firmware needs.
package strconvx

import "strconv"

func FormatUint(u uint64, base int) string { return strconv.FormatUint(u, base) }
