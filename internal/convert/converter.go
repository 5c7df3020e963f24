package convert

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"rawwatch/internal/fileutil"
	"rawwatch/internal/jpegenc"
	"rawwatch/internal/logging"
	"rawwatch/internal/rawdecode"
	"rawwatch/internal/rawfile"
)

// Recorder persists conversion attempts. Skips are not recorded since every
// rescan would repeat them. Errors are logged and otherwise ignored.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome Outcome) error
}

// Option configures a Converter.
type Option func(*Converter)

// WithProfile overrides the decode profile.
func WithProfile(profile rawdecode.Profile) Option {
	return func(c *Converter) {
		c.profile = profile
	}
}

// WithQuality overrides the JPEG quality.
func WithQuality(quality int) Option {
	return func(c *Converter) {
		if quality > 0 {
			c.quality = quality
		}
	}
}

// WithLogger sets the logger used for per-file outcome lines.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder attaches an outcome recorder.
func WithRecorder(recorder Recorder) Option {
	return func(c *Converter) {
		c.recorder = recorder
	}
}

// Converter runs the decode, normalize, encode pipeline for single files.
type Converter struct {
	decoder   rawdecode.Decoder
	encoder   jpegenc.Encoder
	outputDir string
	profile   rawdecode.Profile
	quality   int
	logger    *slog.Logger
	recorder  Recorder
}

// New constructs a Converter writing into outputDir.
func New(decoder rawdecode.Decoder, encoder jpegenc.Encoder, outputDir string, opts ...Option) *Converter {
	c := &Converter{
		decoder:   decoder,
		encoder:   encoder,
		outputDir: outputDir,
		profile:   rawdecode.DefaultProfile(),
		quality:   jpegenc.DefaultQuality,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "convert")
	return c
}

// OutputDir returns the directory targets are written to.
func (c *Converter) OutputDir() string {
	return c.outputDir
}

// Convert converts rawPath unless its target already exists. Cancelling ctx
// does not abort a conversion that has already started.
func (c *Converter) Convert(ctx context.Context, rawPath string) Outcome {
	start := time.Now()
	outcome := Outcome{
		RawPath:        rawPath,
		OutputPath:     rawfile.OutputTarget(c.outputDir, rawPath),
		ProfileVersion: c.profile.Version,
	}
	if info, err := os.Stat(rawPath); err == nil {
		outcome.RawSize = info.Size()
		outcome.RawModTime = info.ModTime()
	}

	logger := logging.WithContext(ctx, c.logger).With(
		logging.String(logging.FieldRawPath, rawPath),
		logging.String(logging.FieldOutputPath, outcome.OutputPath),
	)

	exists, err := fileutil.Exists(outcome.OutputPath)
	switch {
	case err != nil:
		outcome.Status = StatusFailed
		outcome.Err = fmt.Errorf("stat target: %w", err)
	case exists:
		outcome.Status = StatusSkipped
	default:
		// A started conversion runs to completion; the decoder's own timeout
		// still bounds it.
		outcome.Err = c.run(context.WithoutCancel(ctx), rawPath, outcome.OutputPath)
		if outcome.Err != nil {
			outcome.Status = StatusFailed
		} else {
			outcome.Status = StatusConverted
		}
	}
	outcome.Duration = time.Since(start)

	c.report(ctx, logger, outcome)
	return outcome
}

func (c *Converter) run(ctx context.Context, rawPath, target string) error {
	decoded, err := c.decode(ctx, rawPath)
	if err != nil {
		return &DecodeError{Path: rawPath, Err: err}
	}
	img, err := jpegenc.Normalize(decoded)
	if err != nil {
		return &DecodeError{Path: rawPath, Err: err}
	}
	if err := c.encode(ctx, img, target); err != nil {
		return &EncodeError{Path: target, Err: err}
	}
	return nil
}

func (c *Converter) decode(ctx context.Context, rawPath string) (img *rawdecode.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	img, err = c.decoder.Decode(ctx, rawPath, c.profile)
	if err == nil && img == nil {
		err = fmt.Errorf("decoder returned no image")
	}
	return img, err
}

func (c *Converter) encode(ctx context.Context, img *image.RGBA, target string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encoder panic: %v", r)
		}
	}()
	return c.encoder.Encode(ctx, img, target, c.quality)
}

func (c *Converter) report(ctx context.Context, logger *slog.Logger, outcome Outcome) {
	switch outcome.Status {
	case StatusSkipped:
		logger.Info("output already exists, skipping",
			logging.String(logging.FieldEventType, "conversion_skipped"),
		)
	case StatusConverted:
		logger.Info("converted raw file",
			logging.String(logging.FieldEventType, "conversion_completed"),
			logging.Duration("duration", outcome.Duration),
			logging.String("profile_version", outcome.ProfileVersion),
		)
	case StatusFailed:
		hint := "check that the file is a readable RAW image"
		if outcome.ErrorKind() == "encode" {
			hint = "check free space and permissions in the output directory"
		}
		logging.WarnWithContext(logger, "raw conversion failed", "conversion_failed",
			logging.Error(outcome.Err),
			logging.String("error_kind", outcome.ErrorKind()),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "file left unconverted; it will be retried on the next scan"),
		)
	}

	if c.recorder == nil || outcome.Status == StatusSkipped {
		return
	}
	if err := c.recorder.RecordOutcome(ctx, outcome); err != nil {
		logging.WarnWithContext(logger, "failed to record conversion outcome", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the ledger database in the state directory"),
			logging.String(logging.FieldImpact, "conversion history is incomplete"),
		)
	}
}
