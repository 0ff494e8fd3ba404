//go:build rp2040 || rp2350 || stm32

package strconvx

// FormatUint matches strconv.FormatUint without pulling strconv into the
// firmware image. Bases outside 2..36 format in base 10.
func FormatUint(u uint64, base int) string {
	if base < 2 || base > 36 {
		base = 10
	}
	if u == 0 {
		return "0"
	}
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	var buf [64]byte
	i := len(buf)
	b := uint64(base)
	for u > 0 {
		i--
		buf[i] = digits[u%b]
		u /= b
	}
	return string(buf[i:])
}
