package mathx

import "math"

// ScanUint32 reads leading ASCII decimal digits from s.
// It returns the value, saturated at math.MaxUint32, and the count of digits consumed.
// Parsing stops at the first non-digit; n == 0 means s did not start with a digit.
func ScanUint32(s string) (v uint32, n int) {
	sat := false
	for n < len(s) {
		c := s[n]
		if c < '0' || c > '9' {
			break
		}
		d := uint32(c - '0')
		if !sat {
			if v > (math.MaxUint32-d)/10 {
				sat = true
				v = math.MaxUint32
			} else {
				v = v*10 + d
			}
		}
		n++
	}
	return v, n
}
