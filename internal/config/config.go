// Package config loads the demo harness's YAML configuration: the
// initial ProcessSpec, target formant vector, and harness-only
// settings (HTTP/metrics addresses). None of this is touched once the
// audio path is running.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProcessConfig mirrors the ProcessSpec entity from the data model:
// the prepared-for configuration handed to the processor at startup.
type ProcessConfig struct {
	SampleRate   float64 `yaml:"sample_rate"`
	MaxBlockSize int     `yaml:"max_block_size"`
	ChannelCount int     `yaml:"channel_count"`
}

// ServerConfig configures the demo harness's HTTP surface.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Config is the root document loaded from a YAML file.
type Config struct {
	Process          ProcessConfig `yaml:"process"`
	TargetFormantsHz []float64     `yaml:"target_formants_hz"`
	CutoffBin        int           `yaml:"cutoff_bin"`
	Server           ServerConfig  `yaml:"server"`
}

// Default returns a Config populated with the spec's numeric defaults.
func Default() Config {
	return Config{
		Process: ProcessConfig{
			SampleRate:   48000,
			MaxBlockSize: 1024,
			ChannelCount: 1,
		},
		TargetFormantsHz: defaultTargets(),
		CutoffBin:        30,
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsAddr: ":9090",
		},
	}
}

// defaultTargets reproduces SetTargetFormantsHz's monotonization of an
// all-zero vector: 200, 220, 240, ... Hz.
func defaultTargets() []float64 {
	out := make([]float64, 15)
	for i := range out {
		out[i] = 200 + float64(i)*20
	}
	return out
}

// Load reads and parses a YAML config file, filling any unset fields
// from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.Process.SampleRate <= 0 {
		return cfg, fmt.Errorf("config: process.sample_rate must be positive, got %v", cfg.Process.SampleRate)
	}
	if len(cfg.TargetFormantsHz) != 15 {
		return cfg, fmt.Errorf("config: target_formants_hz must have exactly 15 entries, got %d", len(cfg.TargetFormantsHz))
	}

	return cfg, nil
}
