// Package processor implements the real-time formant-shifting spectral
// processor: STFT analysis, envelope extraction, formant detection,
// piecewise-linear warping, and phase-preserving resynthesis.
package processor

import (
	"math"
	"math/cmplx"

	"github.com/ajshooting/SpectralMorph-VST/internal/dsp"
	"github.com/ajshooting/SpectralMorph-VST/internal/envelope"
	"github.com/ajshooting/SpectralMorph-VST/internal/formant"
	"github.com/ajshooting/SpectralMorph-VST/internal/warp"
)

// State is the processor's lifecycle state (spec §4.4.4).
type State int

const (
	Unprepared State = iota
	Running
)

// SpectralProcessor is the single object an Audio I/O Adapter drives
// per block. It is a plain owned value: construct with New, call
// Prepare once, then Process per block from the audio thread.
//
// Process, Reset, and SetTargetFormantsHz are allocation-free and
// lock-free except for the non-blocking try-lock on the visualization
// snapshot. Prepare is the only method that allocates.
type SpectralProcessor struct {
	state        State
	sampleRate   float64
	channelCount int
	gMax         float64

	engine    *dsp.Engine
	window    []float64
	extractor *envelope.Extractor
	detector  *formant.Detector

	inputRing  *ring
	outputRing *outputRing
	hopCounter int

	targetFormantsHz   [NumFormants]float64
	currentFormantBins [NumFormants]float64

	// Scratch buffers, allocated once in Prepare.
	frame            []float64
	windowed         []float64
	magnitude        []float64
	analysisSpectrum []complex128
	warpNodes        []warp.Point
	warpMap          []float64
	warpedEnvelope   []float64

	snapshot snapshotSlot
}

// New constructs an unprepared processor with the default target
// formant vector (200 Hz floor, 20 Hz steps).
func New() *SpectralProcessor {
	p := &SpectralProcessor{state: Unprepared}
	p.SetTargetFormantsHz(p.targetFormantsHz[:]) // monotonizes the zero vector
	return p
}

// Prepare (re)allocates all scratch buffers for the given sample rate.
// It is idempotent: calling it again simply resizes and clears state.
// maxBlockSize and channelCount are accepted for interface parity with
// a real host negotiation but do not affect internal sizing, since the
// STFT frame/hop sizes are fixed constants independent of host block
// size.
func (p *SpectralProcessor) Prepare(sampleRate float64, maxBlockSize, channelCount int) {
	p.sampleRate = sampleRate
	p.channelCount = channelCount

	p.engine = dsp.NewEngine()
	p.window = dsp.HannTable(FrameSize)
	p.extractor = envelope.NewExtractor(p.engine, envelope.DefaultCutoffBin)
	p.detector = formant.NewDetector(HalfSpectrum)

	p.inputRing = newRing(FrameSize)
	p.outputRing = newOutputRing(FrameSize)
	p.hopCounter = 0

	p.frame = make([]float64, FrameSize)
	p.windowed = make([]float64, FrameSize)
	p.magnitude = make([]float64, HalfSpectrum)
	p.analysisSpectrum = make([]complex128, HalfSpectrum)
	p.warpNodes = make([]warp.Point, NumFormants+2)
	p.warpMap = make([]float64, HalfSpectrum)
	p.warpedEnvelope = make([]float64, HalfSpectrum)

	p.gMax = math.Pow(10, maxEnvelopeGainDb/20)

	p.snapshot.init(HalfSpectrum)

	p.state = Running
}

// Reset clears the input/output FIFOs and hop counter, discarding any
// buffered audio. FFT/window tables and target formants are kept.
func (p *SpectralProcessor) Reset() {
	if p.state != Running {
		return
	}
	p.inputRing.reset()
	p.outputRing.reset()
	p.hopCounter = 0
}

// Process is the audio-thread entry point. Channel 0 of inputChannels
// is analyzed; the resulting output is copied to every channel of
// outputChannels. If the processor has not been prepared, input is
// passed through unchanged (spec §7: pre-condition misuse degrades to
// pass-through).
func (p *SpectralProcessor) Process(inputChannels, outputChannels [][]float64, numSamples int) {
	if p.state != Running || len(inputChannels) == 0 {
		for _, out := range outputChannels {
			n := numSamples
			if len(inputChannels) > 0 {
				copy(out[:n], inputChannels[0][:n])
			}
		}
		return
	}

	in := inputChannels[0]
	for i := 0; i < numSamples; i++ {
		p.inputRing.push(in[i])
		sample := p.outputRing.popAndAdvance()

		p.hopCounter++
		if p.hopCounter == HopSize {
			p.hopCounter = 0
			p.processFrame()
		}

		for _, out := range outputChannels {
			out[i] = sample
		}
	}
}

// processFrame runs one full analysis/warp/resynthesis cycle and
// overlap-adds the result into the output ring, ahead of the current
// read cursor (spec §4.4, steps 1-13).
func (p *SpectralProcessor) processFrame() {
	p.inputRing.assembleFrame(p.frame)

	for i, s := range p.frame {
		p.windowed[i] = s * p.window[i]
	}

	spec := p.engine.Forward(p.windowed)
	copy(p.analysisSpectrum, spec)

	for k, c := range p.analysisSpectrum {
		p.magnitude[k] = cmplx.Abs(c)
	}

	envOrig := p.extractor.Extract(p.magnitude)

	bins := p.detector.Detect(envOrig, p.sampleRate, FrameSize, p.currentFormantBins[:])

	p.buildWarpNodes(bins)
	warp.BuildMapInto(p.warpMap, p.warpNodes)
	warp.Process(p.warpMap, envOrig, p.warpedEnvelope)

	p.snapshot.tryPublish(p.magnitude, p.warpedEnvelope, p.warpNodes[1].Dst, p.warpNodes[2].Dst)

	for k := range p.analysisSpectrum {
		scale := p.warpedEnvelope[k] / math.Max(envOrig[k], envelopeFloor)
		if scale < 0 {
			scale = 0
		} else if scale > p.gMax {
			scale = p.gMax
		}
		p.analysisSpectrum[k] *= complex(scale, 0)
	}

	timeFrame := p.engine.Inverse(p.analysisSpectrum)

	norm := 1.0 / overlapAddGain
	for j := 0; j < FrameSize; j++ {
		p.outputRing.addAt(j, timeFrame[j]*p.window[j]*norm)
	}
}

// buildWarpNodes fills p.warpNodes with the anchor-at-0, 15 clamped
// formant nodes, anchor-at-(N/2) sequence described in spec §4.4 step 6.
func (p *SpectralProcessor) buildWarpNodes(detectedBins []float64) {
	hzPerBin := formant.HzPerBin(p.sampleRate, FrameSize)
	lastBin := float64(HalfSpectrum - 1)

	p.warpNodes[0] = warp.Point{Src: 0, Dst: 0}

	lastDst := 0.0
	for i := 0; i < NumFormants; i++ {
		dst := p.targetFormantsHz[i] / hzPerBin
		minDst := lastDst + 1
		maxDst := lastBin - 1
		if dst < minDst {
			dst = minDst
		}
		if dst > maxDst {
			dst = maxDst
		}
		p.warpNodes[i+1] = warp.Point{Src: detectedBins[i], Dst: dst}
		lastDst = dst
	}

	p.warpNodes[NumFormants+1] = warp.Point{Src: lastBin, Dst: lastBin}
}

// SetTargetFormantsHz copies new into the target formant vector,
// enforcing strict monotone separation in place: t[0] >= 200 Hz, and
// each subsequent t[i] >= t[i-1] + 20 Hz. This is a wait-free linear
// pass safe to call from the audio thread as part of per-block
// parameter refresh.
func (p *SpectralProcessor) SetTargetFormantsHz(newTargets []float64) {
	floor := minFormantFloorHz
	for i := 0; i < NumFormants; i++ {
		v := 0.0
		if i < len(newTargets) {
			v = newTargets[i]
		}
		if v < floor {
			v = floor
		}
		p.targetFormantsHz[i] = v
		floor = v + minFormantSeparationHz
	}
}

// TargetFormantsHz returns a copy of the current target formant vector.
func (p *SpectralProcessor) TargetFormantsHz() [NumFormants]float64 {
	return p.targetFormantsHz
}

// GetLatestVisualizationData returns a copy of the most recently
// published snapshot. Safe to call from a UI thread at any rate; it
// blocks briefly if the audio thread is mid-publish.
func (p *SpectralProcessor) GetLatestVisualizationData() Snapshot {
	return p.snapshot.read()
}

// EstimateFormantsFromBuffer analyzes one FrameSize-sample window
// centered at the midpoint of reference (zero-padding if shorter),
// and returns 15 formant frequencies in Hz derived from sourceSampleRate.
// If reference is empty, it returns the processor's current targets
// unchanged and ok=false (spec §4.4.2, §7).
func (p *SpectralProcessor) EstimateFormantsFromBuffer(reference []float64, sourceSampleRate float64) (estimate [NumFormants]float64, ok bool) {
	if len(reference) == 0 {
		return p.targetFormantsHz, false
	}

	frame := make([]float64, FrameSize)
	mid := len(reference) / 2
	start := mid - FrameSize/2
	for i := 0; i < FrameSize; i++ {
		src := start + i
		if src >= 0 && src < len(reference) {
			frame[i] = reference[src]
		}
	}

	window := dsp.HannTable(FrameSize)
	for i := range frame {
		frame[i] *= window[i]
	}

	engine := dsp.NewEngine()
	spec := engine.Forward(frame)

	mag := make([]float64, HalfSpectrum)
	for k, c := range spec {
		mag[k] = cmplx.Abs(c)
	}

	extractor := envelope.NewExtractor(engine, envelope.DefaultCutoffBin)
	env := extractor.Extract(mag)

	var binsBuf [NumFormants]float64
	detector := formant.NewDetector(HalfSpectrum)
	bins := detector.Detect(env, sourceSampleRate, FrameSize, binsBuf[:])
	hz := formant.BinsToHz(bins, sourceSampleRate, FrameSize)

	copy(estimate[:], hz)
	return estimate, true
}
