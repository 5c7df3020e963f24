package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Exists reports whether path exists. Any stat error other than "not exist"
// is returned so callers can decide how to treat unreadable locations.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// WriteFileAtomicNoOverwrite streams write into a temp file next to dst and
// publishes it under dst only if dst does not exist yet. Readers never observe
// a partially written dst; on any failure the temp file is removed and
// os.ErrExist is returned if another writer got there first.
func WriteFileAtomicNoOverwrite(dst string, mode os.FileMode, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
		}
		_ = os.Remove(tmpPath)
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	return publish(tmpPath, dst)
}

// publish hard-links tmp to dst so an existing dst is never replaced. Some
// filesystems (exFAT, SMB) refuse hard links; there we fall back to a
// check-then-rename.
func publish(tmp, dst string) error {
	linkErr := os.Link(tmp, dst)
	if linkErr == nil {
		return nil
	}
	if errors.Is(linkErr, fs.ErrExist) {
		return fmt.Errorf("publish %s: %w", dst, fs.ErrExist)
	}
	exists, err := Exists(dst)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dst, err)
	}
	if exists {
		return fmt.Errorf("publish %s: %w", dst, fs.ErrExist)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
