package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"equirect/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DataDir = filepath.Join(base, "data")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	// The output directory is the user's responsibility at runtime; tests
	// always want it present.
	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatalf("mkdir output dir: %v", err)
	}
	return &cfg
}

// WithSegmentSeconds overrides the chunk length on the test config.
func WithSegmentSeconds(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.FFmpeg.SegmentSeconds = seconds
	}
}

// WithFFmpegBinary overrides the ffmpeg binary on the test config.
func WithFFmpegBinary(binary string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.FFmpeg.Binary = binary
	}
}
