package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rawwatch/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckOutputDirectory_Missing(t *testing.T) {
	result := CheckOutputDirectory("out", filepath.Join(t.TempDir(), "a", "b"))
	if !result.Passed {
		t.Fatalf("expected missing output dir under writable parent to pass, got: %s", result.Detail)
	}
}

func TestCheckOutputDirectory_BlockedByFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckOutputDirectory("out", filepath.Join(f, "out"))
	if result.Passed {
		t.Fatal("expected failure when a file sits where a directory is needed")
	}
}

func TestRunAll(t *testing.T) {
	base := t.TempDir()
	bin := filepath.Join(base, "dcraw")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(base, "in")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.StateDir = base
	cfg.Decoder.Binary = bin

	results := RunAll(&cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Input directory" {
		t.Fatalf("expected only the missing input dir to fail, got %#v", failed)
	}

	if err := os.Mkdir(cfg.Paths.InputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if failed := Failed(RunAll(&cfg)); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %#v", failed)
	}
}

func TestCheckDecoderReportsResolvedPath(t *testing.T) {
	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, "dcraw"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir)
	cfg := config.Default()
	cfg.Decoder.Binary = "dcraw"

	result := CheckDecoder(&cfg)
	if !result.Passed || result.Detail != filepath.Join(binDir, "dcraw") {
		t.Fatalf("unexpected result %#v", result)
	}

	cfg.Decoder.Binary = "missing-decoder"
	if result := CheckDecoder(&cfg); result.Passed || !strings.Contains(result.Detail, "missing-decoder") {
		t.Fatalf("expected missing decoder to fail, got %#v", result)
	}
}
