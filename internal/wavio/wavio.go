// Package wavio reads and writes 16-bit PCM WAV files for the demo
// harness, and mixes stereo references to mono for the offline
// formant estimator and render path.
package wavio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Read decodes a WAV file into mono float64 samples normalized to
// [-1, 1], mixing down stereo (or wider) inputs by averaging channels.
func Read(path string) ([]float64, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("wavio: open %s: %w", path, err)
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes an in-memory WAV file the same way Read does.
func DecodeBytes(data []byte) ([]float64, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("wavio: not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wavio: decode PCM data: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	maxAmp := float64(int(1) << (buf.SourceBitDepth - 1))
	if buf.SourceBitDepth <= 0 {
		maxAmp = 32768
	}

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = (sum / float64(channels)) / maxAmp
	}

	return out, buf.Format.SampleRate, nil
}

// Write encodes mono float64 samples (expected in [-1, 1]; out-of-range
// values are clamped) as a 16-bit PCM mono WAV file on disk.
func Write(path string, samples []float64, sampleRate int) error {
	data, err := EncodeBytes(samples, sampleRate)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("wavio: write %s: %w", path, err)
	}
	return nil
}

// EncodeBytes encodes mono float64 samples as an in-memory 16-bit PCM
// mono WAV file. go-audio/wav's Encoder needs to seek back to patch
// the RIFF/data chunk sizes once writing is done, so encoding happens
// into a scratch temp file and is then read back into memory; this
// keeps the harness's HTTP response path free of any on-disk leftovers.
func EncodeBytes(samples []float64, sampleRate int) ([]byte, error) {
	tmp, err := os.CreateTemp("", "wavio-encode-*.wav")
	if err != nil {
		return nil, fmt.Errorf("wavio: create scratch file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	enc := wav.NewEncoder(tmp, sampleRate, 16, 1, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("wavio: write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wavio: close encoder: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("wavio: rewind scratch file: %w", err)
	}
	return io.ReadAll(tmp)
}
