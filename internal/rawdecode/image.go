package rawdecode

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Image is a decoded RGB buffer. Pix holds Width*Height RGB triplets in
// row-major order; each sample uses the low BitDepth bits.
type Image struct {
	Width    int
	Height   int
	BitDepth int
	Pix      []uint16
}

// MaxValue returns the largest sample value representable at BitDepth.
func (img *Image) MaxValue() uint32 {
	if img.BitDepth <= 0 || img.BitDepth > 16 {
		return 0xffff
	}
	return 1<<uint(img.BitDepth) - 1
}

// Validate checks that the buffer matches its declared dimensions.
func (img *Image) Validate() error {
	if img == nil {
		return errors.New("nil image")
	}
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", img.Width, img.Height)
	}
	if want := img.Width * img.Height * 3; len(img.Pix) != want {
		return fmt.Errorf("pixel buffer has %d samples, want %d", len(img.Pix), want)
	}
	return nil
}

// FromImage copies src into an RGB buffer, keeping 16-bit precision when the
// source has it.
func FromImage(src image.Image) (*Image, error) {
	if src == nil {
		return nil, errors.New("nil source image")
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", w, h)
	}
	out := &Image{Width: w, Height: h, BitDepth: 16, Pix: make([]uint16, w*h*3)}

	switch m := src.(type) {
	case *image.RGBA64:
		copyWide(out, m.Pix, m.Stride, b, m.Rect.Min)
	case *image.NRGBA64:
		copyWide(out, m.Pix, m.Stride, b, m.Rect.Min)
	case *image.RGBA:
		out.BitDepth = 8
		copyNarrow(out, m.Pix, m.Stride, b, m.Rect.Min)
	case *image.NRGBA:
		out.BitDepth = 8
		copyNarrow(out, m.Pix, m.Stride, b, m.Rect.Min)
	default:
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBA64Model.Convert(src.At(x, y)).(color.NRGBA64)
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = c.R, c.G, c.B
				i += 3
			}
		}
	}
	return out, nil
}

// copyWide reads big-endian 16-bit RGBA samples.
func copyWide(dst *Image, pix []uint8, stride int, b image.Rectangle, origin image.Point) {
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := (y-origin.Y)*stride + (b.Min.X-origin.X)*8
		for x := 0; x < dst.Width; x++ {
			p := pix[row+x*8 : row+x*8+6]
			dst.Pix[i] = uint16(p[0])<<8 | uint16(p[1])
			dst.Pix[i+1] = uint16(p[2])<<8 | uint16(p[3])
			dst.Pix[i+2] = uint16(p[4])<<8 | uint16(p[5])
			i += 3
		}
	}
}

func copyNarrow(dst *Image, pix []uint8, stride int, b image.Rectangle, origin image.Point) {
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := (y-origin.Y)*stride + (b.Min.X-origin.X)*4
		for x := 0; x < dst.Width; x++ {
			p := pix[row+x*4 : row+x*4+3]
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = uint16(p[0]), uint16(p[1]), uint16(p[2])
			i += 3
		}
	}
}
