package testsupport

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"
)

// StubDecoderName is the file name of the script written by WriteStubDecoder.
const StubDecoderName = "dcraw-stub"

// WriteStubDecoder writes a shell script into dir that behaves like a
// dcraw-compatible decoder: it prints a small 16-bit TIFF on stdout. Inputs
// whose path contains "corrupt" make it exit non-zero with a message on
// stderr; inputs containing "slow" sleep briefly before answering. The
// script path is returned.
func WriteStubDecoder(t testing.TB, dir string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	fixture := filepath.Join(dir, "fixture.tiff")
	if err := os.WriteFile(fixture, TIFFFixture(t, 4, 3), 0o644); err != nil {
		t.Fatalf("write tiff fixture: %v", err)
	}

	script := fmt.Sprintf(`#!/bin/sh
for last; do :; done
case "$last" in
  *corrupt*)
    echo "$last: cannot decode file" >&2
    exit 1
    ;;
  *slow*)
    sleep 1
    ;;
esac
cat %q
`, fixture)
	path := filepath.Join(dir, StubDecoderName)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub decoder: %v", err)
	}
	return path
}

// TIFFFixture returns a 16-bit RGB TIFF with a horizontal gradient.
func TIFFFixture(t testing.TB, width, height int) []byte {
	t.Helper()

	img := image.NewNRGBA64(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint16(x * 0xffff / max(width-1, 1))
			img.SetNRGBA64(x, y, color.NRGBA64{R: v, G: v / 2, B: 0xffff - v, A: 0xffff})
		}
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode tiff fixture: %v", err)
	}
	return buf.Bytes()
}
