package testsupport

import (
	"path/filepath"
	"testing"

	"rawwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The output directory is not created so callers can exercise bootstrap.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputDir = filepath.Join(base, "input")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Watch.HeartbeatInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithLedgerDisabled turns off the conversion history database.
func WithLedgerDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Enabled = false
	}
}

// WithDecoderBinary points the config at a specific decoder executable.
func WithDecoderBinary(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Decoder.Binary = path
	}
}

// WithStubDecoder installs a stub decoder script (see WriteStubDecoder) and
// points the config at it.
func WithStubDecoder() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Decoder.Binary = WriteStubDecoder(b.t, filepath.Join(b.baseDir, "bin"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.InputDir)
}
