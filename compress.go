package fidelity

import (
	"context"
	"fmt"
	"image"
	"os"
)

// Compressor resizes images to a configured size and re-encodes them.
type Compressor struct {
	width, height int
	opts          Options
}

// NewCompressor returns a Compressor targeting width x height. The
// dimensions are not validated here; a non-positive size fails when an
// image is resized.
func NewCompressor(width, height int, opts Options) *Compressor {
	return &Compressor{width: width, height: height, opts: opts}
}

// Configure sets the target dimensions for subsequent Compress calls.
func (c *Compressor) Configure(width, height int) {
	c.width = width
	c.height = height
}

// Dimensions returns the configured target size.
func (c *Compressor) Dimensions() image.Point {
	return image.Pt(c.width, c.height)
}

// Compress loads src, stretches it to the configured dimensions and writes
// it to dst in format at quality. dst is created or overwritten. Grey
// sources are written grey.
func (c *Compressor) Compress(ctx context.Context, src, dst string, format Format, quality int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := Open(src)
	if err != nil {
		return err
	}
	resized, err := c.opts.resizer().Resize(img, c.width, c.height)
	if err != nil {
		return fmt.Errorf("fidelity: resize %q: %w", src, err)
	}
	return Save(matchLayout(img, resized), dst, format, quality)
}

// Upscale loads src, resizes it to size and writes it to dst at quality
// 100. The format follows dst's extension, JPEG when it has none the
// codecs know.
func (c *Compressor) Upscale(src, dst string, size image.Point) error {
	img, err := Open(src)
	if err != nil {
		return err
	}
	resized, err := c.opts.resizer().Resize(img, size.X, size.Y)
	if err != nil {
		return fmt.Errorf("fidelity: resize %q: %w", src, err)
	}
	format, err := FormatFromPath(dst)
	if err != nil {
		format = JPEG
	}
	return Save(matchLayout(img, resized), dst, format, upscaleQuality)
}

// Size returns the size of the file at path in bytes.
func (c *Compressor) Size(path string) (int64, error) {
	return FileSize(path)
}

// FileSize returns the size of the file at path in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("fidelity: stat %q: %w", path, err)
	}
	return info.Size(), nil
}

// RunPipeline compresses ref to comp at spec, scores comp against ref
// (upscaled back to ref's dimensions) and measures comp's size. The
// receiver is not modified, so concurrent calls are safe.
func (c *Compressor) RunPipeline(ctx context.Context, ref, comp string, spec CompressionSpec) (Scores, error) {
	run := NewCompressor(spec.Width, spec.Height, c.opts)
	if err := run.Compress(ctx, ref, comp, spec.Format, spec.Quality); err != nil {
		return Scores{}, err
	}
	if err := ctx.Err(); err != nil {
		return Scores{}, err
	}

	m, err := NewMetrics(ref, comp, MetricsOptions{
		Upscaler: run,
		TempDir:  c.opts.TempDir,
		MSSSIM:   c.opts.MSSSIM,
	})
	if err != nil {
		return Scores{}, err
	}
	scores, err := m.All()
	if err != nil {
		return Scores{}, err
	}

	if scores.Size, err = run.Size(comp); err != nil {
		return Scores{}, err
	}
	return scores, nil
}
