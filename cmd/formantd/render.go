package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/ajshooting/SpectralMorph-VST/internal/config"
	"github.com/ajshooting/SpectralMorph-VST/internal/processor"
	"github.com/ajshooting/SpectralMorph-VST/internal/wavio"
)

func newRenderCmd() *cobra.Command {
	var (
		inPath   string
		outPath  string
		seedFrom string
		blockLen int
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Run a WAV file through the formant shifter and write the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(inPath, outPath, seedFrom, blockLen)
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "", "input WAV file (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "output WAV file (required)")
	cmd.Flags().StringVar(&seedFrom, "seed-from", "", "optional reference WAV to seed target formants via the offline estimator")
	cmd.Flags().IntVar(&blockLen, "block", 512, "simulated host block size in samples")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")

	return cmd
}

// runRender plays the role of a one-shot, non-real-time Audio I/O
// Adapter: it feeds an entire file through Process in fixed-size
// blocks, exactly as a real host would feed live audio, just without
// a live clock driving it.
func runRender(inPath, outPath, seedFrom string, blockLen int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	samples, sampleRate, err := wavio.Read(inPath)
	if err != nil {
		return err
	}

	proc := processor.New()
	proc.Prepare(float64(sampleRate), blockLen, cfg.Process.ChannelCount)

	targets := cfg.TargetFormantsHz
	if seedFrom != "" {
		refSamples, refRate, err := wavio.Read(seedFrom)
		if err != nil {
			return fmt.Errorf("render: loading seed reference: %w", err)
		}
		estimate, ok := proc.EstimateFormantsFromBuffer(refSamples, float64(refRate))
		if !ok {
			log.Printf("render: seed reference %s was empty, keeping configured targets", seedFrom)
		} else {
			targets = estimate[:]
		}
	}
	proc.SetTargetFormantsHz(targets)

	output := make([]float64, len(samples))

	inBlock := make([]float64, blockLen)
	outBlock := make([]float64, blockLen)
	inChannels := [][]float64{inBlock}
	outChannels := [][]float64{outBlock}

	for start := 0; start < len(samples); start += blockLen {
		n := blockLen
		if start+n > len(samples) {
			n = len(samples) - start
		}
		copy(inBlock[:n], samples[start:start+n])
		for i := n; i < blockLen; i++ {
			inBlock[i] = 0
		}

		proc.Process(inChannels, outChannels, blockLen)
		copy(output[start:start+n], outBlock[:n])
	}

	if err := wavio.Write(outPath, output, sampleRate); err != nil {
		return err
	}

	log.Printf("render: wrote %d samples at %d Hz to %s", len(output), sampleRate, outPath)
	return nil
}
