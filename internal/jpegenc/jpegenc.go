// Package jpegenc normalizes decoded RAW buffers to 8 bits per channel and
// writes them as JPEG files.
package jpegenc

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"rawwatch/internal/fileutil"
	"rawwatch/internal/rawdecode"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 95

// Encoder writes an 8-bit image to path.
type Encoder interface {
	Encode(ctx context.Context, img *image.RGBA, path string, quality int) error
}

// FileEncoder encodes with image/jpeg and publishes the file atomically. An
// existing file at path is never replaced.
type FileEncoder struct{}

// Encode writes img to path at the given quality.
func (FileEncoder) Encode(ctx context.Context, img *image.RGBA, path string, quality int) error {
	if img == nil {
		return fmt.Errorf("encode %s: nil image", path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if quality < 1 || quality > 100 {
		return fmt.Errorf("encode %s: quality %d out of range", path, quality)
	}
	return fileutil.WriteFileAtomicNoOverwrite(path, 0o644, func(w io.Writer) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	})
}

// Normalize scales every sample of src from its bit depth into 0..255,
// rounding to nearest and clamping out-of-range values.
func Normalize(src *rawdecode.Image) (*image.RGBA, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	max := src.MaxValue()
	dst := image.NewRGBA(image.Rect(0, 0, src.Width, src.Height))
	n := src.Width * src.Height
	for i := 0; i < n; i++ {
		s := src.Pix[i*3 : i*3+3]
		d := dst.Pix[i*4 : i*4+4]
		d[0] = scale(s[0], max)
		d[1] = scale(s[1], max)
		d[2] = scale(s[2], max)
		d[3] = 0xff
	}
	return dst, nil
}

func scale(v uint16, max uint32) uint8 {
	if uint32(v) >= max {
		return 0xff
	}
	return uint8((uint32(v)*255 + max/2) / max)
}
