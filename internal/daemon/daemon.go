package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"rawwatch/internal/config"
	"rawwatch/internal/deps"
	"rawwatch/internal/ledger"
	"rawwatch/internal/logging"
	"rawwatch/internal/rawdecode"
	"rawwatch/internal/scan"
	"rawwatch/internal/watch"
)

// ErrAlreadyRunning is returned by Run when another process holds the lock.
var ErrAlreadyRunning = errors.New("another rawwatch instance is already running")

// Daemon runs the watch loop under a single-instance lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *ledger.Store
	loop   *watch.Loop

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	State        watch.State
	Scans        int64
	LastScan     scan.Summary
	LedgerPath   string
	LockFilePath string
}

// New constructs a daemon. store may be nil when the ledger is disabled.
func New(cfg *config.Config, store *ledger.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if store != nil {
		opts = append([]Option{WithRecorder(store)}, opts...)
	}
	pipeline := NewPipeline(cfg, logger, opts...)
	loop := watch.New(pipeline.Scanner, watch.Options{
		InputDir:    cfg.Paths.InputDir,
		OutputDir:   cfg.Paths.OutputDir,
		Heartbeat:   cfg.HeartbeatInterval(),
		SettleDelay: cfg.SettleDelay(),
		Logger:      logger,
	})

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		loop:     loop,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Run acquires the lock and blocks in the watch loop until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	decoder, _ := deps.Resolve(d.cfg.Decoder.Binary)
	d.logger.Info("rawwatch daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("decoder", decoder.Executable()),
		logging.String("profile_version", rawdecode.ProfileVersion),
		logging.Int("quality", d.cfg.Encoder.Quality),
	)

	err = d.loop.Run(ctx)
	if err != nil {
		logging.ErrorWithContext(d.logger, "watch loop failed to start", "daemon_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, startupHint(err)),
		)
		return err
	}
	d.logger.Info("rawwatch daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return nil
}

// Trigger requests an immediate rescan.
func (d *Daemon) Trigger() {
	d.loop.Trigger()
}

// Status returns a snapshot of the daemon.
func (d *Daemon) Status() Status {
	stats := d.loop.Stats()
	status := Status{
		Running:      d.running.Load(),
		State:        stats.State,
		Scans:        stats.Scans,
		LastScan:     stats.LastScan,
		LockFilePath: d.lockPath,
	}
	if d.store != nil {
		status.LedgerPath = d.store.Path()
	}
	return status
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

func startupHint(err error) string {
	var dirErr *watch.DirectoryCreationError
	if errors.As(err, &dirErr) {
		return "check that paths.output_dir is writable"
	}
	var subErr *watch.WatchSubscriptionError
	if errors.As(err, &subErr) {
		return "check that paths.input_dir exists; raise fs.inotify.max_user_watches for large trees"
	}
	return "check logs for details"
}
