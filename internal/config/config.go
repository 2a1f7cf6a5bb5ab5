// Package config defines service configuration and how it is loaded.
package config

import (
	"context"
	"fmt"
	"runtime"

	"github.com/okian/speakeval/internal/domain/bands"
	"github.com/okian/speakeval/internal/domain/content"
	"github.com/okian/speakeval/internal/domain/trait"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory attempt queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many attempt IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the evaluation store.
	ShardCount int `koanf:"shard_count"`

	// SampleRate and FrameSize describe audio posted to /tone.
	SampleRate int `koanf:"sample_rate"`
	FrameSize  int `koanf:"frame_size"`

	// Band thresholds. Empty lists keep the built-in defaults.
	PronunciationCuts  []float64 `koanf:"pronunciation_cuts"`
	ContentCuts        []float64 `koanf:"content_cuts"`
	RepeatSentenceCuts []float64 `koanf:"repeat_sentence_cuts"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:    "info",
		Addr:        ":9080",
		QueueSize:   10_000,
		WorkerCount: runtime.NumCPU() * 2,
		DedupeSize:  100_000,
		ShardCount:  8,
		SampleRate:  16_000,
		FrameSize:   2048,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.ShardCount <= 0:
		return fmt.Errorf("%w: shard_count must be positive, got %d", ErrInvalidConfig, c.ShardCount)
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	case c.FrameSize <= 0:
		return fmt.Errorf("%w: frame_size must be positive, got %d", ErrInvalidConfig, c.FrameSize)
	}
	if err := checkCuts("pronunciation_cuts", c.PronunciationCuts, trait.DefaultPronunciationCuts); err != nil {
		return err
	}
	if err := checkCuts("content_cuts", c.ContentCuts, content.DefaultCompositeCuts); err != nil {
		return err
	}
	return checkCuts("repeat_sentence_cuts", c.RepeatSentenceCuts, content.DefaultRepeatSentenceCuts)
}

func checkCuts(key string, cuts []float64, def bands.Cuts) error {
	if len(cuts) == 0 {
		return nil
	}
	if len(cuts) != len(def) {
		return fmt.Errorf("%w: %s needs %d thresholds, got %d", ErrInvalidConfig, key, len(def), len(cuts))
	}
	if !bands.Cuts(cuts).Valid() {
		return fmt.Errorf("%w: %s must be strictly descending", ErrInvalidConfig, key)
	}
	return nil
}
