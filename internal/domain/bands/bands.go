// Package bands maps continuous composite scores onto small integer bands.
package bands

// Cuts holds descending thresholds. A value v maps to band len(Cuts)-i+Floor
// for the first i where v >= Cuts[i], or to Floor when no threshold is met.
type Cuts []float64

// Valid reports whether the thresholds are strictly descending. Only
// descending cuts keep the band a non-decreasing function of the value.
func (c Cuts) Valid() bool {
	if len(c) == 0 {
		return false
	}
	for i := 1; i < len(c); i++ {
		if !(c[i] < c[i-1]) {
			return false
		}
	}
	return true
}

// Band returns the band for v with the lowest reachable band being floor.
// NaN maps to floor.
func (c Cuts) Band(v float64, floor int) int {
	if v != v {
		return floor
	}
	for i, cut := range c {
		if v >= cut {
			return floor + len(c) - i
		}
	}
	return floor
}

// OrDefault returns a copy of c when it is valid and has as many thresholds
// as def, otherwise def. Overrides may move thresholds but not change the scale.
func (c Cuts) OrDefault(def Cuts) Cuts {
	if c.Valid() && len(c) == len(def) {
		out := make(Cuts, len(c))
		copy(out, c)
		return out
	}
	return def
}
