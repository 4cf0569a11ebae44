package fidelity

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// toNRGBARef converts any image.Image to *image.NRGBA without copying if
// the input is already NRGBA. The caller must NOT modify the returned image.
func toNRGBARef(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	return convertToNRGBA(img)
}

// convertToNRGBA does the pixel-by-pixel conversion from any image format
// to NRGBA. Handles pre-multiplied alpha correctly.
func convertToNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			off := (y-bounds.Min.Y)*dst.Stride + (x-bounds.Min.X)*4
			switch a {
			case 0:
			case 0xffff:
				dst.Pix[off] = uint8(r >> 8)
				dst.Pix[off+1] = uint8(g >> 8)
				dst.Pix[off+2] = uint8(b >> 8)
				dst.Pix[off+3] = 0xff
			default:
				dst.Pix[off] = uint8(((r * 0xffff) / a) >> 8)
				dst.Pix[off+1] = uint8(((g * 0xffff) / a) >> 8)
				dst.Pix[off+2] = uint8(((b * 0xffff) / a) >> 8)
				dst.Pix[off+3] = uint8(a >> 8)
			}
		}
	}
	return dst
}

// matchLayout returns resized in the channel layout of src, so grey
// sources are written as grey files.
func matchLayout(src image.Image, resized *image.NRGBA) image.Image {
	if channelsOf(src) != 1 {
		return resized
	}
	gray := image.NewGray(resized.Bounds())
	draw.Draw(gray, gray.Bounds(), resized, resized.Bounds().Min, draw.Src)
	return gray
}

// isOpaque checks if all pixels have full alpha.
func isOpaque(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			return false
		}
	}
	return true
}

// raster is an 8-bit pixel array with one (grey) or three (R, G, B)
// interleaved channels. Alpha is never kept.
type raster struct {
	width, height int
	channels      int
	pix           []uint8
}

// channelsOf reports the comparison layout of an image: 1 for grey
// images, 3 for everything else.
func channelsOf(img image.Image) int {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return 1
	default:
		return 3
	}
}

// newRaster flattens img into the given channel layout.
func newRaster(img image.Image, channels int) *raster {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	r := &raster{width: w, height: h, channels: channels, pix: make([]uint8, w*h*channels)}

	if channels == 1 {
		if gray, ok := img.(*image.Gray); ok {
			for y := 0; y < h; y++ {
				copy(r.pix[y*w:(y+1)*w], gray.Pix[y*gray.Stride:y*gray.Stride+w])
			}
			return r
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
				r.pix[y*w+x] = c.Y
			}
		}
		return r
	}

	src := toNRGBARef(img)
	i := 0
	for y := 0; y < h; y++ {
		off := y * src.Stride
		for x := 0; x < w; x++ {
			p := off + x*4
			r.pix[i] = src.Pix[p]
			r.pix[i+1] = src.Pix[p+1]
			r.pix[i+2] = src.Pix[p+2]
			i += 3
		}
	}
	return r
}

// sameShape reports whether two rasters can be compared element-wise.
func (r *raster) sameShape(o *raster) error {
	if r.width != o.width || r.height != o.height || r.channels != o.channels {
		return fmt.Errorf("%w: %dx%dx%d vs %dx%dx%d", ErrDimensionMismatch,
			r.width, r.height, r.channels, o.width, o.height, o.channels)
	}
	return nil
}

// plane is a single-channel float image.
type plane struct {
	width, height int
	pix           []float64
}

// gray converts the raster to a grey plane. Three-channel pixels are
// weighted with the fixed-point BT.601 coefficients in B, G, R order, as
// an OpenCV BGR-to-grey conversion does when handed RGB-ordered data.
// Reports produced so far were computed that way.
func (r *raster) gray() *plane {
	p := &plane{width: r.width, height: r.height, pix: make([]float64, r.width*r.height)}
	if r.channels == 1 {
		for i, v := range r.pix {
			p.pix[i] = float64(v)
		}
		return p
	}
	for i := range p.pix {
		c0 := uint32(r.pix[i*3])
		c1 := uint32(r.pix[i*3+1])
		c2 := uint32(r.pix[i*3+2])
		p.pix[i] = float64((c0*1868 + c1*9617 + c2*4899 + 1<<13) >> 14)
	}
	return p
}

// humanBytes formats a byte count for display.
func humanBytes(b int64) string {
	switch {
	case b >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(b)/(1024*1024))
	case b >= 1024:
		return fmt.Sprintf("%.1f KB", float64(b)/1024)
	default:
		return fmt.Sprintf("%d B", b)
	}
}
