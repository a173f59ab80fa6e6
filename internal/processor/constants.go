package processor

import "github.com/ajshooting/SpectralMorph-VST/internal/dsp"

// Fixed STFT sizing, mirrored from the dsp package for readability at
// call sites that only import processor.
const (
	FrameSize    = dsp.FrameSize
	HopSize      = dsp.HopSize
	HalfSpectrum = dsp.HalfSpectrum
)

const (
	// NumFormants is the size of the tracked formant vector (F1..F15).
	NumFormants = 15

	// envelopeFloor guards the scale-factor division against
	// near-zero original envelope values.
	envelopeFloor = 1e-7

	// maxEnvelopeGainDb is the maximum per-bin gain applied during
	// envelope substitution, expressed in dB.
	maxEnvelopeGainDb = 24.0

	// overlapAddGain is the sum of squared Hann window values across
	// four overlapping 75%-overlap frames (the COLA normalization
	// constant for this window/hop combination).
	overlapAddGain = 1.5

	// minFormantFloorHz is the minimum allowed value for the first
	// target formant.
	minFormantFloorHz = 200.0

	// minFormantSeparationHz is the minimum allowed gap between
	// consecutive target formants.
	minFormantSeparationHz = 20.0
)
