// Package fidelity batch-compresses images at a target resolution and
// quality and scores what was lost against the originals.
//
// Each source image is resized to the requested dimensions and re-encoded
// (JPEG, PNG, WEBP, GIF, BMP or TIFF). The compressed copy is then resized
// back to the original dimensions and compared pixel by pixel:
//
//   - MSE: squared error summed over channels, divided by the pixel count
//   - PSNR: derived from MSE, 100 for identical images
//   - SSIM: 7x7 uniform-window structural similarity on the grey plane
//   - MS-SSIM: Gaussian-window similarity (sigma 1.5), see MSSSIMMode
//
// A Processor runs that pipeline over a directory and collects one
// MetricRow per file into a ResultsTable, which can be saved as CSV, TSV
// or XLSX, charted per compression type, or archived in SQLite.
package fidelity

import "context"

// Compare scores the image at compPath against the reference at refPath.
// Size is the byte size of compPath.
func Compare(refPath, compPath string, opts MetricsOptions) (Scores, error) {
	m, err := NewMetrics(refPath, compPath, opts)
	if err != nil {
		return Scores{}, err
	}
	s, err := m.All()
	if err != nil {
		return Scores{}, err
	}
	if s.Size, err = FileSize(compPath); err != nil {
		return Scores{}, err
	}
	return s, nil
}

// CompressAndScore compresses ref to comp at spec with default options and
// scores the result. It is shorthand for Compressor.RunPipeline.
func CompressAndScore(ctx context.Context, ref, comp string, spec CompressionSpec) (Scores, error) {
	return NewCompressor(spec.Width, spec.Height, DefaultOptions()).RunPipeline(ctx, ref, comp, spec)
}
