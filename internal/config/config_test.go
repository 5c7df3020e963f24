package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"rawwatch/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "rawwatch", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.InputDir != filepath.Join(tempHome, "rawwatch", "upload") {
		t.Fatalf("unexpected input dir: %q", cfg.Paths.InputDir)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "rawwatch", "converted") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Encoder.Quality != 95 {
		t.Fatalf("unexpected jpeg quality: %d", cfg.Encoder.Quality)
	}
	if cfg.Watch.HeartbeatInterval != config.Default().Watch.HeartbeatInterval {
		t.Fatalf("unexpected heartbeat interval: %d", cfg.Watch.HeartbeatInterval)
	}
	if cfg.LedgerPath() != filepath.Join(cfg.Paths.StateDir, "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.LedgerPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
	if _, err := os.Stat(cfg.Paths.OutputDir); !os.IsNotExist(err) {
		t.Fatalf("output dir must not be created by EnsureDirectories, stat err=%v", err)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "rawwatch.toml")
	contents := `
[paths]
input_dir = "~/incoming"
output_dir = "/srv/jpeg"

[encoder]
quality = 88

[watch]
heartbeat_interval = 30
settle_delay_ms = 250

[ledger]
enabled = false

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be loaded, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.InputDir != filepath.Join(tempHome, "incoming") {
		t.Fatalf("unexpected input dir: %q", cfg.Paths.InputDir)
	}
	if cfg.Paths.OutputDir != "/srv/jpeg" {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Encoder.Quality != 88 {
		t.Fatalf("unexpected quality: %d", cfg.Encoder.Quality)
	}
	if got := cfg.SettleDelay().Milliseconds(); got != 250 {
		t.Fatalf("unexpected settle delay: %dms", got)
	}
	if cfg.LedgerPath() != "" {
		t.Fatalf("expected ledger disabled, got %q", cfg.LedgerPath())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %+v", cfg.Logging)
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	t.Setenv("RAWWATCH_INPUT_DIR", in)
	t.Setenv("RAWWATCH_OUTPUT_DIR", out)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.InputDir != in || cfg.Paths.OutputDir != out {
		t.Fatalf("expected env overrides, got %+v", cfg.Paths)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\nsource_dir = \"/x\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"same dirs", func(c *config.Config) { c.Paths.OutputDir = c.Paths.InputDir }, "must differ"},
		{"missing input", func(c *config.Config) { c.Paths.InputDir = "" }, "input_dir"},
		{"quality", func(c *config.Config) { c.Encoder.Quality = 101 }, "encoder.quality"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.InputDir = "/in"
			cfg.Paths.OutputDir = "/out"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(target); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestApplyOverrides(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(base, "in")
	cfg.Paths.OutputDir = filepath.Join(base, "out")

	err := cfg.ApplyOverrides(config.Overrides{
		InputDir: filepath.Join(base, "card"),
		LogLevel: "DEBUG",
	})
	if err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}
	if cfg.Paths.InputDir != filepath.Join(base, "card") {
		t.Fatalf("input dir = %q", cfg.Paths.InputDir)
	}
	if cfg.Paths.OutputDir != filepath.Join(base, "out") {
		t.Fatalf("output dir changed to %q", cfg.Paths.OutputDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Logging.Level)
	}

	if err := cfg.ApplyOverrides(config.Overrides{OutputDir: filepath.Join(base, "card")}); err == nil {
		t.Fatal("expected error when output equals input")
	}
	if err := cfg.ApplyOverrides(config.Overrides{LogLevel: "loud"}); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}
