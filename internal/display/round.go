package display

import "math"

// Round rounds half away from negative infinity, so 2.5 -> 3 and -2.5 -> -2.
// Upstream temperatures are rounded this way everywhere on the screen.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// WindKPH converts a wind speed in m/s to rounded km/h.
func WindKPH(metersPerSecond float64) int {
	return Round(metersPerSecond * 3.6)
}
