package fidelity

import (
	"fmt"
	"image"
	"math"
	"os"
)

// psnrCeiling is reported when two images are identical.
const psnrCeiling = 100.0

// upscalePattern names the transient comparison images.
const upscalePattern = "fidelity-*-upscaled.jpg"

// Upscaler restores an image file to the given dimensions, writing dst.
// *Compressor satisfies it.
type Upscaler interface {
	Upscale(src, dst string, size image.Point) error
}

// MetricsOptions configures a Metrics calculator.
type MetricsOptions struct {
	// NoUpscale compares the compressed image as it is instead of first
	// resizing it to the reference's dimensions. The images must then
	// already have the same dimensions.
	NoUpscale bool

	// Upscaler performs the resize. nil means a Compressor with default options.
	Upscaler Upscaler

	// TempDir holds the upscaled copy while it is loaded. Empty means os.TempDir().
	TempDir string

	// MSSSIM selects the MS-SSIM variant.
	MSSSIM MSSSIMMode
}

// DefaultMetricsOptions returns options with upscaling enabled. It is the
// zero value.
func DefaultMetricsOptions() MetricsOptions {
	return MetricsOptions{}
}

// Metrics compares a reference image with a compressed version of it.
type Metrics struct {
	ref, comp *raster
	mode      MSSSIMMode

	refGray, compGray *plane
}

// NewMetrics loads the reference and compressed images. Unless NoUpscale
// is set, the compressed image is first written, at the reference's
// dimensions, to a temporary file that is removed before NewMetrics returns.
func NewMetrics(refPath, compPath string, opts MetricsOptions) (*Metrics, error) {
	ref, err := Open(refPath)
	if err != nil {
		return nil, err
	}

	var comp image.Image
	if !opts.NoUpscale {
		up := opts.Upscaler
		if up == nil {
			up = NewCompressor(0, 0, DefaultOptions())
		}
		b := ref.Bounds()
		comp, err = upscaleToTemp(up, compPath, image.Pt(b.Dx(), b.Dy()), opts.TempDir)
	} else {
		comp, err = Open(compPath)
	}
	if err != nil {
		return nil, err
	}

	return NewMetricsFromImages(ref, comp, opts.MSSSIM), nil
}

// NewMetricsFromImages compares two decoded images as they are. The
// comparison uses the reference's channel layout: one channel for grey
// references, R, G and B otherwise.
func NewMetricsFromImages(ref, comp image.Image, mode MSSSIMMode) *Metrics {
	channels := channelsOf(ref)
	return &Metrics{
		ref:  newRaster(ref, channels),
		comp: newRaster(comp, channels),
		mode: mode,
	}
}

func upscaleToTemp(up Upscaler, src string, size image.Point, dir string) (image.Image, error) {
	f, err := os.CreateTemp(dir, upscalePattern)
	if err != nil {
		return nil, fmt.Errorf("fidelity: temp file: %w", err)
	}
	name := f.Name()
	f.Close()
	defer os.Remove(name)

	if err := up.Upscale(src, name, size); err != nil {
		return nil, err
	}
	return Open(name)
}

// MSE is the sum of squared differences over every channel of every pixel,
// divided by the reference's pixel count (width x height). Multi-channel
// images therefore score higher than a per-sample mean would.
func (m *Metrics) MSE() (float64, error) {
	if err := m.ref.sameShape(m.comp); err != nil {
		return 0, err
	}
	var sum float64
	for i, v := range m.ref.pix {
		d := float64(v) - float64(m.comp.pix[i])
		sum += d * d
	}
	return sum / float64(m.ref.width*m.ref.height), nil
}

// PSNR derives the peak signal-to-noise ratio from MSE. Identical images
// report 100.
func (m *Metrics) PSNR() (float64, error) {
	mse, err := m.MSE()
	if err != nil {
		return 0, err
	}
	return psnr(mse), nil
}

func psnr(mse float64) float64 {
	if mse == 0 {
		return psnrCeiling
	}
	return 20 * math.Log10(255.0/math.Sqrt(mse))
}

// SSIM is the 7x7 uniform-window similarity of the grey planes.
func (m *Metrics) SSIM() (float64, error) {
	a, b, err := m.planes()
	if err != nil {
		return 0, err
	}
	return planarSSIM(a, b, uniformWindow(uniformWindowSize))
}

// MSSSIM is the Gaussian-window similarity of the grey planes.
func (m *Metrics) MSSSIM() (float64, error) {
	a, b, err := m.planes()
	if err != nil {
		return 0, err
	}
	return msssimPlanes(a, b, m.mode)
}

// All computes MSE, PSNR, SSIM and MSSSIM. Size is left zero.
func (m *Metrics) All() (Scores, error) {
	var s Scores
	var err error
	if s.MSE, err = m.MSE(); err != nil {
		return Scores{}, err
	}
	s.PSNR = psnr(s.MSE)
	if s.SSIM, err = m.SSIM(); err != nil {
		return Scores{}, err
	}
	if s.MSSSIM, err = m.MSSSIM(); err != nil {
		return Scores{}, err
	}
	return s, nil
}

func (m *Metrics) planes() (*plane, *plane, error) {
	if err := m.ref.sameShape(m.comp); err != nil {
		return nil, nil, err
	}
	if m.refGray == nil {
		m.refGray = m.ref.gray()
		m.compGray = m.comp.gray()
	}
	return m.refGray, m.compGray, nil
}
