package rawdecode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/image/tiff"
)

// ErrDecoderUnavailable reports that the decoder executable could not be found.
var ErrDecoderUnavailable = errors.New("raw decoder binary not found")

// Decoder produces a pixel buffer from a RAW file.
type Decoder interface {
	Decode(ctx context.Context, path string, profile Profile) (*Image, error)
}

type commandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommandRunner struct{}

func (execCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.Output()
}

// CommandDecoder runs a dcraw-compatible binary and parses its TIFF output.
type CommandDecoder struct {
	binary  string
	timeout time.Duration
	runner  commandRunner
}

// NewCommandDecoder returns a decoder that invokes binary. A zero timeout
// disables the per-file deadline.
func NewCommandDecoder(binary string, timeout time.Duration) *CommandDecoder {
	return &CommandDecoder{binary: binary, timeout: timeout, runner: execCommandRunner{}}
}

// Binary returns the configured executable name.
func (d *CommandDecoder) Binary() string {
	return d.binary
}

// Decode runs the decoder against path with the profile's flags.
func (d *CommandDecoder) Decode(ctx context.Context, path string, profile Profile) (*Image, error) {
	if strings.TrimSpace(d.binary) == "" {
		return nil, errors.New("decoder binary not configured")
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	args := append(profile.Args(), path)
	out, err := d.runner.Output(ctx, d.binary, args...)
	if err != nil {
		return nil, describeRunError(d.binary, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s produced no output", d.binary)
	}

	decoded, err := tiff.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("parse decoder output: %w", err)
	}
	img, err := FromImage(decoded)
	if err != nil {
		return nil, fmt.Errorf("convert decoder output: %w", err)
	}
	return img, nil
}

func describeRunError(binary string, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrDecoderUnavailable, binary)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		if stderr != "" {
			return fmt.Errorf("%s exited with code %d: %s", binary, exitErr.ExitCode(), stderr)
		}
		return fmt.Errorf("%s exited with code %d", binary, exitErr.ExitCode())
	}
	return fmt.Errorf("run %s: %w", binary, err)
}
