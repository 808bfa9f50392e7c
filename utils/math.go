package utils

import "math"

// Clamp limits v to [lo, hi]. NaN becomes 0 when 0 is in range, lo otherwise.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		if lo <= 0 && hi >= 0 {
			return 0
		}
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// ScaleByPct scales a max number by a floating point percentage between two bounds [0, n].
func ScaleByPct(n int, pct float64) int {
	scaled := int(float64(n) * pct)
	if scaled < 0 {
		scaled = 0
	} else if scaled > n {
		scaled = n
	}
	return scaled
}

// MaxInt returns the maximum of two ints.
func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
