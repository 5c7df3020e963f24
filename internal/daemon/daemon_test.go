package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rawwatch/internal/daemon"
	"rawwatch/internal/ledger"
	"rawwatch/internal/logging"
	"rawwatch/internal/testsupport"
	"rawwatch/internal/watch"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestDaemonConvertsBacklogAndNewFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubDecoder())
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "a.arw"), 8)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "corrupt.dng"), 8)
	store := testsupport.MustOpenLedger(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitFor(t, "backlog scan", func() bool { return d.Status().Scans >= 1 })
	if !exists(filepath.Join(cfg.Paths.OutputDir, "a.jpeg")) {
		t.Fatal("expected a.jpeg after startup scan")
	}
	if exists(filepath.Join(cfg.Paths.OutputDir, "corrupt.jpeg")) {
		t.Fatal("corrupt input must not produce output")
	}
	last := d.Status().LastScan
	if last.Discovered != 2 || last.Converted != 1 || last.Failed != 1 {
		t.Fatalf("startup summary = %+v", last)
	}

	waitFor(t, "running state", func() bool { return d.Status().State == watch.StateRunning })
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "day2", "b.GPR"), 8)
	waitFor(t, "b.jpeg", func() bool { return exists(filepath.Join(cfg.Paths.OutputDir, "b.jpeg")) })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}

	entries, err := store.List(context.Background(), ledger.Filter{Status: "converted"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least 2 converted ledger rows, got %d", len(entries))
	}
	if entries[0].ScanID == "" {
		t.Fatal("ledger rows must carry a scan id")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubDecoder(), testsupport.WithLedgerDisabled())
	if err := os.MkdirAll(cfg.Paths.InputDir, 0o755); err != nil {
		t.Fatal(err)
	}

	first, err := daemon.New(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- first.Run(ctx) }()
	waitFor(t, "first daemon running", func() bool { return first.Status().State == watch.StateRunning })

	second, err := daemon.New(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Run(context.Background()); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	status := first.Status()
	if status.Running || status.State != watch.StateStopped {
		t.Fatalf("unexpected status after stop: %+v", status)
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("lock path = %q", status.LockFilePath)
	}
}

func TestDaemonReturnsStartupErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubDecoder(), testsupport.WithLedgerDisabled())
	// Input directory intentionally missing.
	d, err := daemon.New(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	err = d.Run(context.Background())
	var subErr *watch.WatchSubscriptionError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected WatchSubscriptionError, got %v", err)
	}
}

func TestNewPipelineConvertsWithStubDecoder(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubDecoder())
	raw := filepath.Join(cfg.Paths.InputDir, "x.dng")
	testsupport.WriteFile(t, raw, 8)
	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}

	p := daemon.NewPipeline(cfg, logging.NewNop())
	outcome := p.Converter.Convert(context.Background(), raw)
	if outcome.Err != nil {
		t.Fatalf("convert: %v", outcome.Err)
	}
	if !exists(filepath.Join(cfg.Paths.OutputDir, "x.jpeg")) {
		t.Fatal("expected x.jpeg")
	}
}
