package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"rawwatch/internal/logging"
	"rawwatch/internal/rawfile"
	"rawwatch/internal/scan"
)

const defaultHeartbeat = 5 * time.Second

// Scanner runs a full pass over a directory tree.
type Scanner interface {
	Scan(ctx context.Context, root string) (scan.Summary, error)
}

// Options configures a Loop.
type Options struct {
	InputDir    string
	OutputDir   string
	Heartbeat   time.Duration
	SettleDelay time.Duration
	Logger      *slog.Logger
}

// Stats is a snapshot of loop activity.
type Stats struct {
	State    State
	Scans    int64
	Pending  bool
	LastScan scan.Summary
	LastErr  error
}

// Loop watches the input tree and drives scans.
type Loop struct {
	scanner   Scanner
	inputDir  string
	outputDir string
	heartbeat time.Duration
	settle    time.Duration
	logger    *slog.Logger

	state   atomic.Int32
	scans   atomic.Int64
	trigger chan struct{}

	mu       sync.Mutex
	lastScan scan.Summary
	lastErr  error
}

// New constructs a Loop in StateIdle.
func New(scanner Scanner, opts Options) *Loop {
	heartbeat := opts.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &Loop{
		scanner:   scanner,
		inputDir:  opts.InputDir,
		outputDir: opts.OutputDir,
		heartbeat: heartbeat,
		settle:    opts.SettleDelay,
		logger:    logging.NewComponentLogger(opts.Logger, "watch"),
		trigger:   make(chan struct{}, 1),
	}
}

// State returns the current lifecycle phase.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Stats returns a snapshot of loop activity.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		State:    l.State(),
		Scans:    l.scans.Load(),
		Pending:  len(l.trigger) > 0,
		LastScan: l.lastScan,
		LastErr:  l.lastErr,
	}
}

// Trigger requests a rescan. It never blocks; a request made while one is
// already pending is absorbed by it.
func (l *Loop) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

// Run starts the loop and blocks until ctx is cancelled. Startup failures
// are returned as *DirectoryCreationError or *WatchSubscriptionError. A
// clean shutdown returns nil.
func (l *Loop) Run(ctx context.Context) error {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateStarting)) {
		return fmt.Errorf("watch loop already started (state %s)", l.State())
	}

	if err := os.MkdirAll(l.outputDir, 0o755); err != nil {
		l.setState(StateStopped)
		return &DirectoryCreationError{Path: l.outputDir, Err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.setState(StateStopped)
		return &WatchSubscriptionError{Path: l.inputDir, Err: err}
	}
	if _, err := l.addRecursive(watcher, l.inputDir); err != nil {
		_ = watcher.Close()
		l.setState(StateStopped)
		return &WatchSubscriptionError{Path: l.inputDir, Err: err}
	}

	l.logger.Info("watching for raw files",
		logging.String(logging.FieldEventType, "watch_started"),
		logging.String("input_dir", l.inputDir),
		logging.String("output_dir", l.outputDir),
		logging.Duration("heartbeat", l.heartbeat),
	)

	l.runScan(ctx, "startup")

	l.setState(StateRunning)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return l.pump(gctx, watcher) })
	group.Go(func() error { return l.work(gctx) })
	group.Go(func() error { return l.tick(gctx) })
	err = group.Wait()

	l.setState(StateStopped)
	l.logger.Info("watch loop stopped",
		logging.String(logging.FieldEventType, "watch_stopped"),
		logging.Int64("scans", l.scans.Load()),
	)
	return err
}

// pump forwards relevant filesystem events to the trigger channel. It owns
// the watcher and closes it on shutdown.
func (l *Loop) pump(ctx context.Context, watcher *fsnotify.Watcher) error {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			l.setState(StateStopping)
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			l.handleEvent(watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.handleError(err)
		}
	}
}

// handleError logs watcher errors. Dropped events force a full rescan.
func (l *Loop) handleError(err error) {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		logging.WarnWithContext(l.logger, "file watcher dropped events", "watch_overflow",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "raise fs.inotify.max_queued_events for large copies"),
			logging.String(logging.FieldImpact, "a full rescan is queued to pick up missed files"),
		)
		l.Trigger()
		return
	}
	logging.WarnWithContext(l.logger, "file watcher error", "watch_error",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "raise fs.inotify.max_user_watches if the tree is large"),
		logging.String(logging.FieldImpact, "some changes may be picked up only by the next scan"),
	)
}

func (l *Loop) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}

	info, statErr := os.Stat(event.Name)
	if statErr == nil && info.IsDir() {
		if !event.Has(fsnotify.Create) {
			return
		}
		// Files copied together with their directory can land before the
		// watch is registered, so the new subtree is checked for RAW files.
		rawSeen, err := l.addRecursive(watcher, event.Name)
		if err != nil {
			logging.WarnWithContext(l.logger, "failed to watch new directory", "watch_add_failed",
				logging.String("path", event.Name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
				logging.String(logging.FieldImpact, "files in this directory are converted only on later scans"),
			)
		}
		if rawSeen {
			l.Trigger()
		}
		return
	}

	if !rawfile.IsRaw(event.Name) {
		return
	}
	l.logger.Debug("raw file change detected",
		logging.String(logging.FieldRawPath, event.Name),
		logging.String("op", event.Op.String()),
	)
	l.Trigger()
}

// addRecursive watches root and every directory beneath it. An error is
// returned only when root itself cannot be watched. rawSeen reports whether
// any RAW file was found on the way.
func (l *Loop) addRecursive(watcher *fsnotify.Watcher, root string) (rawSeen bool, err error) {
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			l.logger.Warn("skipping unreadable directory",
				logging.String("path", path),
				logging.Error(err),
			)
			return nil
		}
		if !d.IsDir() {
			if rawfile.IsRaw(d.Name()) {
				rawSeen = true
			}
			return nil
		}
		if addErr := watcher.Add(path); addErr != nil {
			if path == root {
				return addErr
			}
			l.logger.Warn("cannot watch directory",
				logging.String("path", path),
				logging.Error(addErr),
			)
		}
		return nil
	})
	if walkErr != nil {
		return rawSeen, walkErr
	}
	return rawSeen, nil
}

// work is the single scan worker.
func (l *Loop) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.trigger:
		}
		if l.settle > 0 {
			timer := time.NewTimer(l.settle)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
			// Triggers that arrived while settling are covered by this scan.
			select {
			case <-l.trigger:
			default:
			}
		}
		l.runScan(ctx, "change")
	}
}

func (l *Loop) tick(ctx context.Context) error {
	ticker := time.NewTicker(l.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.logger.Info("waiting for file changes",
				logging.String(logging.FieldEventType, "heartbeat"),
				logging.Bool("pending", len(l.trigger) > 0),
				logging.Int64("scans", l.scans.Load()),
			)
		}
	}
}

func (l *Loop) runScan(ctx context.Context, reason string) {
	l.logger.Debug("starting scan", logging.String("reason", reason))
	summary, err := l.scanner.Scan(ctx, l.inputDir)

	l.mu.Lock()
	l.lastScan = summary
	l.lastErr = err
	l.mu.Unlock()
	l.scans.Add(1)

	if err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(l.logger, "scan failed", "scan_failed",
			logging.String("reason", reason),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the input directory exists and is readable"),
			logging.String(logging.FieldImpact, "pending files are retried on the next change"),
		)
	}
}
