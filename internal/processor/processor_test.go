package processor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajshooting/SpectralMorph-VST/internal/dsp"
	"github.com/ajshooting/SpectralMorph-VST/internal/envelope"
)

func newPreparedProcessor(sampleRate float64) *SpectralProcessor {
	p := New()
	p.Prepare(sampleRate, 512, 1)
	return p
}

func runBlocks(p *SpectralProcessor, input []float64, blockLen int) []float64 {
	output := make([]float64, len(input))
	inBlock := make([]float64, blockLen)
	outBlock := make([]float64, blockLen)
	inChannels := [][]float64{inBlock}
	outChannels := [][]float64{outBlock}

	for start := 0; start < len(input); start += blockLen {
		n := blockLen
		if start+n > len(input) {
			n = len(input) - start
		}
		copy(inBlock[:n], input[start:start+n])
		for i := n; i < blockLen; i++ {
			inBlock[i] = 0
		}
		p.Process(inChannels, outChannels, blockLen)
		copy(output[start:start+n], outBlock[:n])
	}
	return output
}

func rms(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// TestSilenceBypass is scenario S4: 4096 zero samples in, all zeros
// (magnitude <= 1e-6) out, no NaNs.
func TestSilenceBypass(t *testing.T) {
	p := newPreparedProcessor(48000)
	input := make([]float64, 4096)

	output := runBlocks(p, input, 512)

	for i, v := range output {
		require.Falsef(t, math.IsNaN(v) || math.IsInf(v, 0), "sample %d: non-finite output %v", i, v)
		assert.LessOrEqualf(t, math.Abs(v), 1e-6, "sample %d: expected near-zero output, got %v", i, v)
	}
}

// TestEnvelopeOnSineLocatesExpectedBin is scenario S3: x[n] =
// cos(2*pi*440*n/48000), envelope peak bin within +/-1 of
// round(440/(48000/1024)) == 9.
func TestEnvelopeOnSineLocatesExpectedBin(t *testing.T) {
	sampleRate := 48000.0
	n := dsp.FrameSize

	frame := make([]float64, n)
	for i := range frame {
		frame[i] = math.Cos(2 * math.Pi * 440 * float64(i) / sampleRate)
	}
	window := dsp.HannTable(n)
	windowed := make([]float64, n)
	for i := range frame {
		windowed[i] = frame[i] * window[i]
	}

	engine := dsp.NewEngine()
	spectrum := engine.Forward(windowed)
	mag := make([]float64, len(spectrum))
	for k, c := range spectrum {
		mag[k] = math.Hypot(real(c), imag(c))
	}

	x := envelope.NewExtractor(engine, envelope.DefaultCutoffBin)
	env := x.Extract(mag)

	peakBin := 0
	for k := 1; k < len(env); k++ {
		if env[k] > env[peakBin] {
			peakBin = k
		}
	}

	const expected = 9
	require.InDelta(t, expected, peakBin, 1)
}

// TestMonotonization is scenario S6: setTargetFormantsHz([100, 90, ...])
// is clamped to [200, 220, 240, ...].
func TestMonotonization(t *testing.T) {
	p := newPreparedProcessor(48000)

	input := make([]float64, NumFormants)
	input[0] = 100
	input[1] = 90
	for i := 2; i < NumFormants; i++ {
		input[i] = 50
	}
	p.SetTargetFormantsHz(input)

	got := p.TargetFormantsHz()
	for i := 0; i < NumFormants; i++ {
		want := 200.0 + float64(i)*20
		assert.InDeltaf(t, want, got[i], 1e-9, "target %d", i)
	}
}

// TestMonotonizationPreservesAboveFloorValues checks invariant 2 with
// an already-valid, strictly increasing vector: it should pass through
// unchanged.
func TestMonotonizationPreservesAboveFloorValues(t *testing.T) {
	p := newPreparedProcessor(48000)

	input := make([]float64, NumFormants)
	for i := range input {
		input[i] = 300 + float64(i)*100
	}
	p.SetTargetFormantsHz(input)

	got := p.TargetFormantsHz()
	for i := range input {
		assert.InDeltaf(t, input[i], got[i], 1e-9, "target %d", i)
	}
	require.GreaterOrEqual(t, got[0], 200.0, "invariant violated: t[0] < 200")
	for i := 1; i < NumFormants; i++ {
		assert.GreaterOrEqualf(t, got[i], got[i-1]+20-1e-9, "invariant violated at %d: t[i]=%v < t[i-1]+20=%v", i, got[i], got[i-1]+20)
	}
}

func whiteNoise(n int, seed uint32) []float64 {
	out := make([]float64, n)
	state := seed
	for i := range out {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		out[i] = (float64(int32(state)) / float64(math.MaxInt32)) * 0.5
	}
	return out
}

// TestFormantShiftStabilityOnIdentityTargets is scenario S5: with
// TargetFormantsHz set to the input's own detected formants, one
// second of white noise at 48kHz should come back out within +/-3 dB
// RMS of the input (overlap-add plus envelope-substitution identity).
func TestFormantShiftStabilityOnIdentityTargets(t *testing.T) {
	sampleRate := 48000.0
	input := whiteNoise(int(sampleRate), 12345)

	p := newPreparedProcessor(sampleRate)
	estimate, ok := p.EstimateFormantsFromBuffer(input, sampleRate)
	require.True(t, ok, "expected a successful estimate on a non-empty buffer")
	p.SetTargetFormantsHz(estimate[:])

	output := runBlocks(p, input, 512)

	// Drop the first analysis frame's worth of samples: the STFT
	// pipeline has FrameSize samples of startup latency before steady
	// state envelope substitution is in effect.
	settleSamples := dsp.FrameSize
	inputRMS := rms(input[settleSamples:])
	outputRMS := rms(output[settleSamples:])

	ratioDb := 20 * math.Log10(outputRMS/inputRMS)
	assert.InDeltaf(t, 0.0, ratioDb, 3, "expected output RMS within +/-3 dB of input, got %.2f dB (in=%.6f out=%.6f)", ratioDb, inputRMS, outputRMS)
}

func TestProcessIsFiniteForFiniteInput(t *testing.T) {
	sampleRate := 48000.0
	p := newPreparedProcessor(sampleRate)
	input := whiteNoise(8192, 99999)
	p.SetTargetFormantsHz([]float64{
		250, 500, 900, 1300, 1800, 2300, 2900, 3500, 4200, 5000, 5800, 6600, 7400, 8100, 8800,
	})

	output := runBlocks(p, input, 256)

	for i, v := range output {
		assert.Falsef(t, math.IsNaN(v) || math.IsInf(v, 0), "sample %d: non-finite output %v", i, v)
	}
}

func TestResetClearsBufferedAudioOnly(t *testing.T) {
	p := newPreparedProcessor(48000)
	targets := []float64{
		250, 500, 900, 1300, 1800, 2300, 2900, 3500, 4200, 5000, 5800, 6600, 7400, 8100, 8800,
	}
	p.SetTargetFormantsHz(targets)

	input := whiteNoise(2048, 777)
	runBlocks(p, input, 256)

	p.Reset()

	got := p.TargetFormantsHz()
	for i, want := range targets {
		assert.InDeltaf(t, want, got[i], 1e-9, "target %d: expected Reset to preserve %v", i, want)
	}

	// After Reset, feeding silence should produce silence again rather
	// than tailing off previously buffered energy.
	silence := make([]float64, 2048)
	output := runBlocks(p, silence, 256)
	for i, v := range output {
		assert.LessOrEqualf(t, math.Abs(v), 1e-6, "sample %d after reset: expected near-zero output, got %v", i, v)
	}
}

func TestUnpreparedProcessorPassesThrough(t *testing.T) {
	p := New()
	input := []float64{0.1, -0.2, 0.3, -0.4}
	inChannels := [][]float64{input}
	out := make([]float64, len(input))
	outChannels := [][]float64{out}

	p.Process(inChannels, outChannels, len(input))

	assert.Equal(t, input, out)
}

func TestEstimateFormantsFromEmptyBufferKeepsTargets(t *testing.T) {
	p := newPreparedProcessor(48000)
	targets := []float64{
		250, 500, 900, 1300, 1800, 2300, 2900, 3500, 4200, 5000, 5800, 6600, 7400, 8100, 8800,
	}
	p.SetTargetFormantsHz(targets)

	estimate, ok := p.EstimateFormantsFromBuffer(nil, 48000)
	require.False(t, ok, "expected ok=false for an empty reference buffer")
	for i, want := range targets {
		assert.InDeltaf(t, want, estimate[i], 1e-9, "formant %d", i)
	}
}
