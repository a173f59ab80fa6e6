// Package dsp provides the fixed-size real FFT and analysis/synthesis
// window used by the spectral processor.
package dsp

import "gonum.org/v1/gonum/dsp/fourier"

// FrameSize is the STFT analysis/synthesis frame length N. It must be
// a power of two; the rest of the pipeline is sized off it.
const FrameSize = 1024

// HalfSpectrum is the number of unique bins (N/2+1) carried by a real FFT.
const HalfSpectrum = FrameSize/2 + 1

// HopSize is the distance between consecutive analysis frames (75% overlap).
const HopSize = FrameSize / 4

// Engine wraps gonum's real FFT for a fixed frame size of FrameSize.
//
// Convention: gonum's fourier.FFT.Sequence is unnormalized (its round
// trip with Coefficients multiplies by N), so Inverse divides by
// FrameSize and Inverse(Forward(x)) == x (up to floating point error)
// rather than N*x. Callers that port scaling constants from a convention
// where the round trip multiplies by N must drop that extra factor — see
// the processor's normalization step.
type Engine struct {
	fft    *fourier.FFT
	coeffs []complex128
	seq    []float64
}

// NewEngine constructs an Engine sized for FrameSize.
func NewEngine() *Engine {
	return &Engine{
		fft:    fourier.NewFFT(FrameSize),
		coeffs: make([]complex128, HalfSpectrum),
		seq:    make([]float64, FrameSize),
	}
}

// Forward transforms a length-FrameSize real frame into its half
// spectrum (length HalfSpectrum). The returned slice is owned by the
// Engine and is overwritten by the next call to Forward.
func (e *Engine) Forward(frame []float64) []complex128 {
	return e.fft.Coefficients(e.coeffs, frame)
}

// Inverse transforms a half spectrum (length HalfSpectrum) back into a
// length-FrameSize real sequence, scaled by 1/FrameSize. The returned
// slice is owned by the Engine and is overwritten by the next call to
// Inverse.
func (e *Engine) Inverse(half []complex128) []float64 {
	seq := e.fft.Sequence(e.seq, half)
	inv := 1.0 / float64(FrameSize)
	for i := range seq {
		seq[i] *= inv
	}
	return seq
}
