package dsp

import "math"

// HannTable returns a periodic (DFT-even) Hann window of length n.
//
//	w[i] = 0.5 * (1 - cos(2*pi*i / n))
//
// This is the periodic variant, not the symmetric filter-design variant
// (which divides by n-1): with 75% overlap (hop = n/4) the periodic
// form is the one whose squared values sum to a constant (≈1.5) across
// four overlapping frames, which is required for artifact-free
// overlap-add reconstruction at this hop size.
func HannTable(n int) []float64 {
	if n <= 1 {
		return []float64{1.0}
	}
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}
