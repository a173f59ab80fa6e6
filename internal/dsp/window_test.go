package dsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHannTableEndpoints(t *testing.T) {
	w := HannTable(FrameSize)
	require.Equal(t, 0.0, w[0])
	// For an even-length periodic table the midpoint i = n/2 is exactly
	// 1; the trailing zero at i = n is not stored in the table.
	mid := FrameSize / 2
	require.InDelta(t, 1.0, w[mid], 1e-9)
}

func TestHannTableSymmetry(t *testing.T) {
	w := HannTable(FrameSize)
	for i := 1; i < FrameSize; i++ {
		j := FrameSize - i
		require.InDeltaf(t, w[i], w[j], 1e-9, "w[%d] vs w[%d]", i, j)
	}
}

// TestHannTableCOLA verifies the periodic Hann window's squared values
// sum to the constant overlapAddGain (1.5) across four frames
// overlapped at hop = N/4, which the processor's resynthesis
// normalization depends on.
func TestHannTableCOLA(t *testing.T) {
	n := 64
	hop := n / 4
	w := HannTable(n)

	for pos := 0; pos < hop; pos++ {
		var sum float64
		for shift := 0; shift < n; shift += hop {
			idx := (pos - shift + n*4) % n
			sum += w[idx] * w[idx]
		}
		require.InDeltaf(t, 1.5, sum, 1e-9, "position %d", pos)
	}
}
