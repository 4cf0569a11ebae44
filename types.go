package fidelity

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Version is the library version.
const Version = "1.0.0"

// DefaultQuality is the encoder quality used when the caller has no preference.
const DefaultQuality = 50

// upscaleQuality is the quality used when restoring a compressed image to
// its reference resolution.
const upscaleQuality = 100

var (
	// ErrUnsupportedFormat is returned for a format name or value no codec handles.
	ErrUnsupportedFormat = errors.New("fidelity: unsupported format")
	// ErrInvalidDimensions is returned when a resize target is not strictly positive.
	ErrInvalidDimensions = errors.New("fidelity: invalid dimensions")
	// ErrDimensionMismatch is returned when two images of different shapes are compared.
	ErrDimensionMismatch = errors.New("fidelity: dimension mismatch")
	// ErrImageTooSmall is returned when an image is smaller than the similarity window.
	ErrImageTooSmall = errors.New("fidelity: image smaller than similarity window")
)

// Format represents an output image format.
type Format int

const (
	// JPEG is lossy and honours the quality setting.
	JPEG Format = iota + 1
	// PNG is lossless; written with best compression.
	PNG
	// WEBP is lossy and honours the quality setting.
	WEBP
	// GIF is palette based (256 colours).
	GIF
	// BMP is uncompressed.
	BMP
	// TIFF is written with Deflate compression.
	TIFF
)

func (f Format) String() string {
	switch f {
	case JPEG:
		return "JPEG"
	case PNG:
		return "PNG"
	case WEBP:
		return "WEBP"
	case GIF:
		return "GIF"
	case BMP:
		return "BMP"
	case TIFF:
		return "TIFF"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Extension returns the conventional file extension for the format, with the dot.
func (f Format) Extension() string {
	switch f {
	case JPEG:
		return ".jpg"
	case PNG:
		return ".png"
	case WEBP:
		return ".webp"
	case GIF:
		return ".gif"
	case BMP:
		return ".bmp"
	case TIFF:
		return ".tif"
	default:
		return ""
	}
}

// ParseFormat maps a codec name such as "JPEG", "jpg" or "webp" to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "JPEG", "JPG":
		return JPEG, nil
	case "PNG":
		return PNG, nil
	case "WEBP":
		return WEBP, nil
	case "GIF":
		return GIF, nil
	case "BMP":
		return BMP, nil
	case "TIFF", "TIF":
		return TIFF, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnsupportedFormat, name)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return 0, fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// CompressionSpec describes one compressed variant: target size, codec and quality.
type CompressionSpec struct {
	Width   int
	Height  int
	Format  Format
	Quality int
}

func (s CompressionSpec) String() string {
	return fmt.Sprintf("%dx%d %s q=%d", s.Width, s.Height, s.Format, s.Quality)
}

// Scores holds the metrics of one compressed image against its reference.
type Scores struct {
	MSE    float64
	PSNR   float64
	SSIM   float64
	MSSSIM float64
	// Size is the compressed file size in bytes.
	Size int64
}

// MSSSIMMode selects how MSSSIM is computed.
type MSSSIMMode int

const (
	// MSSSIMColumns treats each column of the grey plane as its own channel,
	// computes a 1-D Gaussian SSIM per column and averages them. This is the
	// result a "multichannel" similarity call produces on a single grey plane,
	// and it is the default so figures stay comparable with earlier reports.
	MSSSIMColumns MSSSIMMode = iota
	// MSSSIMPlanar computes a 2-D Gaussian-window SSIM on the grey plane.
	MSSSIMPlanar
	// MSSSIMMultiScale computes five-scale MS-SSIM with 2x box downsampling.
	MSSSIMMultiScale
)

func (m MSSSIMMode) String() string {
	switch m {
	case MSSSIMColumns:
		return "columns"
	case MSSSIMPlanar:
		return "planar"
	case MSSSIMMultiScale:
		return "multiscale"
	default:
		return "unknown"
	}
}

// ParseMSSSIMMode maps "columns", "planar" or "multiscale" to a mode.
func ParseMSSSIMMode(name string) (MSSSIMMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "columns":
		return MSSSIMColumns, nil
	case "planar":
		return MSSSIMPlanar, nil
	case "multiscale", "multi-scale":
		return MSSSIMMultiScale, nil
	default:
		return 0, fmt.Errorf("fidelity: unknown MS-SSIM mode %q", name)
	}
}

// Options configures a Compressor and the metrics it computes.
type Options struct {
	// Resizer performs every resize. nil means the imaging backend.
	Resizer Resizer

	// TempDir holds the transient upscaled comparison images.
	// Empty means os.TempDir().
	TempDir string

	// MSSSIM selects the MS-SSIM variant (default MSSSIMColumns).
	MSSSIM MSSSIMMode
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Resizer: ImagingResizer{},
		MSSSIM:  MSSSIMColumns,
	}
}

func (o Options) resizer() Resizer {
	if o.Resizer == nil {
		return ImagingResizer{}
	}
	return o.Resizer
}
