// Package scan walks an input tree and converts every RAW file it finds.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"rawwatch/internal/convert"
	"rawwatch/internal/logging"
	"rawwatch/internal/rawfile"
)

// Converter is the per-file conversion step.
type Converter interface {
	Convert(ctx context.Context, rawPath string) convert.Outcome
}

// Summary aggregates the outcomes of one pass.
type Summary struct {
	ScanID      string
	Discovered  int
	Converted   int
	Skipped     int
	Failed      int
	Duration    time.Duration
	Interrupted bool
}

func (s *Summary) add(outcome convert.Outcome) {
	s.Discovered++
	switch outcome.Status {
	case convert.StatusConverted:
		s.Converted++
	case convert.StatusSkipped:
		s.Skipped++
	case convert.StatusFailed:
		s.Failed++
	}
}

// Scanner performs full passes over a directory tree.
type Scanner struct {
	converter Converter
	logger    *slog.Logger
}

// New constructs a Scanner.
func New(converter Converter, logger *slog.Logger) *Scanner {
	return &Scanner{
		converter: converter,
		logger:    logging.NewComponentLogger(logger, "scan"),
	}
}

// Scan converts every RAW file beneath root, one at a time, in lexical
// order. Cancellation is honoured between files; the file in flight always
// finishes. Only a missing or unreadable root is returned as an error.
func (s *Scanner) Scan(ctx context.Context, root string) (Summary, error) {
	summary := Summary{ScanID: uuid.NewString()}
	start := time.Now()
	ctx = logging.WithScanID(ctx, summary.ScanID)
	logger := logging.WithContext(ctx, s.logger)

	info, err := os.Stat(root)
	if err != nil {
		return summary, fmt.Errorf("scan root %s: %w", root, err)
	}
	if !info.IsDir() {
		return summary, fmt.Errorf("scan root %s: not a directory", root)
	}

	logger.Debug("scanning input directory", logging.String("root", root))

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logging.WarnWithContext(logger, "skipping unreadable path", "scan_path_unreadable",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
				logging.String(logging.FieldImpact, "files beneath this path are not converted"),
			)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !rawfile.IsRaw(d.Name()) || !isRegularFile(path, d) {
			return nil
		}
		if ctx.Err() != nil {
			summary.Interrupted = true
			return fs.SkipAll
		}
		summary.add(s.converter.Convert(ctx, path))
		return nil
	})
	summary.Duration = time.Since(start)
	if walkErr != nil && !errors.Is(walkErr, fs.SkipAll) {
		return summary, fmt.Errorf("scan root %s: %w", root, walkErr)
	}

	s.logSummary(logger, summary)
	return summary, nil
}

// isRegularFile accepts regular files and symlinks that resolve to one.
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (s *Scanner) logSummary(logger *slog.Logger, summary Summary) {
	if summary.Discovered == 0 {
		logger.Info("no new files to convert",
			logging.String(logging.FieldEventType, "scan_empty"),
		)
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "scan_completed"),
		logging.Int("discovered", summary.Discovered),
		logging.Int("converted", summary.Converted),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration),
	}
	if summary.Interrupted {
		attrs = append(attrs, logging.Bool("interrupted", true))
	}
	if summary.Failed > 0 {
		attrs = append(attrs,
			logging.String(logging.FieldErrorHint, "inspect conversion_failed lines for the affected files"),
			logging.String(logging.FieldImpact, "failed files are retried on the next scan"),
		)
		logging.WarnWithContext(logger, fmt.Sprintf("%d discovered, %d succeeded, %d failed",
			summary.Discovered, summary.Converted, summary.Failed), "scan_completed", attrs...)
		return
	}
	logger.Info(fmt.Sprintf("%d discovered, %d succeeded, %d failed",
		summary.Discovered, summary.Converted, summary.Failed), logging.Args(attrs...)...)
}
