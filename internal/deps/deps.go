// Package deps locates the external executables rawwatch shells out to.
package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotConfigured reports an empty binary setting.
var ErrNotConfigured = errors.New("binary not configured")

// Binary is an executable resolved against PATH.
type Binary struct {
	// Name is the configured value, either a bare command or a path.
	Name string
	// Path is the absolute location that will be executed.
	Path string
}

// Resolve finds name the way exec would and returns its absolute path.
// Failures wrap ErrNotConfigured or exec.ErrNotFound.
func Resolve(name string) (Binary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Binary{}, ErrNotConfigured
	}
	found, err := exec.LookPath(name)
	if err != nil {
		return Binary{Name: name}, fmt.Errorf("binary %q not found: %w", name, err)
	}
	abs, err := filepath.Abs(found)
	if err != nil {
		return Binary{Name: name}, fmt.Errorf("resolve %s: %w", found, err)
	}
	return Binary{Name: name, Path: abs}, nil
}

// Executable returns the resolved path when Resolve succeeded and the
// configured name otherwise, so a later exec reports the real failure.
func (b Binary) Executable() string {
	if b.Path != "" {
		return b.Path
	}
	return b.Name
}
