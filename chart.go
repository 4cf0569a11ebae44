package fidelity

import (
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Chart dimensions.
const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 6 * vg.Inch
)

// RenderCharts draws one PNG per compression type in t, each plotting MSE,
// PSNR, SSIM, MS-SSIM and Size against the row's position within its
// group. It returns the written paths in group order. Types whose file
// names collide ("JPEG" and "jpeg") get the group number appended.
func RenderCharts(t *ResultsTable, outDir string) ([]string, error) {
	var paths []string
	used := make(map[string]bool)
	for i, g := range t.Groups() {
		name := chartFileName(g.CompressionType)
		for n := i + 1; used[name]; n++ {
			name = fmt.Sprintf("%s_%d.png", strings.TrimSuffix(chartFileName(g.CompressionType), ".png"), n)
		}
		used[name] = true

		path := filepath.Join(outDir, name)
		if err := renderGroup(g, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func renderGroup(g Group, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Metrics for %s Compression", g.CompressionType)
	p.X.Label.Text = "Image"
	p.Y.Label.Text = "Value"

	series := func(value func(MetricRow) float64) plotter.XYs {
		pts := make(plotter.XYs, len(g.Rows))
		for i, r := range g.Rows {
			pts[i].X = float64(i)
			pts[i].Y = value(r)
		}
		return pts
	}

	err := plotutil.AddLines(p,
		"MSE", series(func(r MetricRow) float64 { return r.MSE }),
		"PSNR", series(func(r MetricRow) float64 { return r.PSNR }),
		"SSIM", series(func(r MetricRow) float64 { return r.SSIM }),
		"MS-SSIM", series(func(r MetricRow) float64 { return r.MSSSIM }),
		"Size", series(func(r MetricRow) float64 { return float64(r.Size) }),
	)
	if err != nil {
		return fmt.Errorf("fidelity: chart %s: %w", g.CompressionType, err)
	}

	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("fidelity: save chart %q: %w", path, err)
	}
	return nil
}

// chartFileName turns a compression type into a safe file name.
func chartFileName(compressionType string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, compressionType)
	if name == "" {
		name = "unknown"
	}
	return "metrics_" + name + ".png"
}
