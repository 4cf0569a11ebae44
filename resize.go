package fidelity

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// Resizer stretches an image to exactly width x height. Aspect ratio is
// not preserved.
type Resizer interface {
	Resize(img image.Image, width, height int) (*image.NRGBA, error)
}

// NewResizer returns the backend registered under name:
// "imaging" (default), "nfnt" or "gift".
func NewResizer(name string) (Resizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "imaging":
		return ImagingResizer{}, nil
	case "nfnt":
		return NfntResizer{}, nil
	case "gift":
		return GiftResizer{}, nil
	default:
		return nil, fmt.Errorf("fidelity: unknown resizer %q", name)
	}
}

func checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return nil
}

// ImagingResizer resizes with disintegration/imaging using a Catmull-Rom
// (bicubic) filter.
type ImagingResizer struct{}

func (ImagingResizer) Resize(img image.Image, width, height int) (*image.NRGBA, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	return imaging.Resize(img, width, height, imaging.CatmullRom), nil
}

// NfntResizer resizes with nfnt/resize using bicubic interpolation.
type NfntResizer struct{}

func (NfntResizer) Resize(img image.Image, width, height int) (*image.NRGBA, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	return toNRGBARef(resize.Resize(uint(width), uint(height), img, resize.Bicubic)), nil
}

// GiftResizer resizes with disintegration/gift using cubic resampling.
type GiftResizer struct{}

func (GiftResizer) Resize(img image.Image, width, height int) (*image.NRGBA, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	g := gift.New(gift.Resize(width, height, gift.CubicResampling))
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst, nil
}
