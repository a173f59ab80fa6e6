// Package envelope extracts a smooth spectral envelope from a magnitude
// spectrum via real cepstrum liftering.
package envelope

import (
	"math"

	"github.com/ajshooting/SpectralMorph-VST/internal/dsp"
)

const (
	// DefaultCutoffBin sets the cepstral lifter width. Quefrency indices
	// in [CutoffBin, N-CutoffBin) are zeroed, keeping only the slow
	// (low-quefrency) variation of the log spectrum that corresponds to
	// the vocal-tract filter rather than the excitation.
	DefaultCutoffBin = 30

	logFloor = 1e-9
	logClamp = 20.0
)

// Extractor computes a smooth envelope from a magnitude spectrum,
// reusing one FFT engine and a set of scratch buffers across calls so
// the audio-thread path never allocates.
type Extractor struct {
	engine    *dsp.Engine
	cutoffBin int

	logMag    []float64
	cepInput  []complex128
	liftered  []float64
	logEnvOut []complex128
	out       []float64
}

// NewExtractor builds an Extractor that shares fe for its FFT work.
func NewExtractor(fe *dsp.Engine, cutoffBin int) *Extractor {
	if cutoffBin <= 0 {
		cutoffBin = DefaultCutoffBin
	}
	return &Extractor{
		engine:    fe,
		cutoffBin: cutoffBin,
		logMag:    make([]float64, dsp.HalfSpectrum),
		cepInput:  make([]complex128, dsp.HalfSpectrum),
		liftered:  make([]float64, dsp.FrameSize),
		out:       make([]float64, dsp.HalfSpectrum),
	}
}

// Extract returns the smooth envelope for magnitude spectrum mag
// (length dsp.HalfSpectrum). The returned slice is owned by the
// Extractor and is overwritten by the next call.
func (x *Extractor) Extract(mag []float64) []float64 {
	// 1. log magnitude, floored.
	for k, m := range mag {
		x.logMag[k] = math.Log(math.Max(m, logFloor))
		x.cepInput[k] = complex(x.logMag[k], 0)
	}

	// 2-3. inverse real FFT of the log spectrum -> real cepstrum.
	cepstrum := x.engine.Inverse(x.cepInput)
	copy(x.liftered, cepstrum)

	// 4. lifter: zero the high-quefrency region, keep low + mirrored tail.
	n := dsp.FrameSize
	for i := x.cutoffBin; i < n-x.cutoffBin; i++ {
		x.liftered[i] = 0
	}

	// 5. forward real FFT back to the log-spectral domain.
	x.logEnvOut = x.engine.Forward(x.liftered)

	// 6. clamp and exponentiate (dsp.Engine.Inverse already normalizes
	// the round trip, so no extra 1/N scaling is applied here).
	for k := 0; k < dsp.HalfSpectrum; k++ {
		logEnv := real(x.logEnvOut[k])
		if logEnv > logClamp {
			logEnv = logClamp
		} else if logEnv < -logClamp {
			logEnv = -logClamp
		}
		x.out[k] = math.Exp(logEnv)
	}

	return x.out
}
