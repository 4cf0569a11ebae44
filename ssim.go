package fidelity

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"
)

// SSIM constants based on the original Wang et al. paper.
const (
	ssimK1 = 0.01
	ssimK2 = 0.03
	ssimL  = 255.0
	ssimC1 = (ssimK1 * ssimL) * (ssimK1 * ssimL)
	ssimC2 = (ssimK2 * ssimL) * (ssimK2 * ssimL)
)

// Window parameters.
const (
	uniformWindowSize = 7
	gaussianSigma     = 1.5
	gaussianTruncate  = 3.5
)

// msssimWeights are the per-scale exponents of Wang et al. (2003).
var msssimWeights = []float64{0.0448, 0.2856, 0.3001, 0.2363, 0.1333}

// SSIM computes the Structural Similarity Index between two images of the
// same size on their grey planes, using a 7x7 uniform window and sample
// covariance. Only window positions that fit entirely inside the image
// contribute to the mean.
func SSIM(img1, img2 image.Image) (float64, error) {
	a, b, err := grayPlanes(img1, img2)
	if err != nil {
		return 0, err
	}
	return planarSSIM(a, b, uniformWindow(uniformWindowSize))
}

// MSSSIM computes the Gaussian-window similarity between two images of the
// same size on their grey planes. See MSSSIMMode for the variants.
func MSSSIM(img1, img2 image.Image, mode MSSSIMMode) (float64, error) {
	a, b, err := grayPlanes(img1, img2)
	if err != nil {
		return 0, err
	}
	return msssimPlanes(a, b, mode)
}

func grayPlanes(img1, img2 image.Image) (*plane, *plane, error) {
	channels := channelsOf(img1)
	ra := newRaster(img1, channels)
	rb := newRaster(img2, channels)
	if err := ra.sameShape(rb); err != nil {
		return nil, nil, err
	}
	return ra.gray(), rb.gray(), nil
}

func msssimPlanes(a, b *plane, mode MSSSIMMode) (float64, error) {
	win := gaussianWindow(gaussianSigma, gaussianTruncate)
	switch mode {
	case MSSSIMColumns:
		return columnSSIM(a, b, win)
	case MSSSIMPlanar:
		return planarSSIM(a, b, win)
	case MSSSIMMultiScale:
		return multiScaleSSIM(a, b, win)
	default:
		return 0, fmt.Errorf("fidelity: unknown MS-SSIM mode %d", int(mode))
	}
}

// window is a separable similarity window with normalised 1-D taps.
type window struct {
	taps             []float64
	sampleCovariance bool
}

func uniformWindow(size int) window {
	taps := make([]float64, size)
	for i := range taps {
		taps[i] = 1 / float64(size)
	}
	return window{taps: taps, sampleCovariance: true}
}

// gaussianWindow creates a normalised Gaussian with radius
// int(truncate*sigma + 0.5).
func gaussianWindow(sigma, truncate float64) window {
	radius := int(truncate*sigma + 0.5)
	taps := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		taps[i+radius] = v
		sum += v
	}
	for i := range taps {
		taps[i] /= sum
	}
	return window{taps: taps}
}

func (w window) size() int { return len(w.taps) }

// covNorm is the covariance normalisation for a window spanning dims axes.
func (w window) covNorm(dims int) float64 {
	if !w.sampleCovariance {
		return 1
	}
	np := math.Pow(float64(w.size()), float64(dims))
	return np / (np - 1)
}

// moments holds the windowed first and second moments at every valid
// window position.
type moments struct {
	ux, uy, uxx, uyy, uxy []float64
}

// products returns x, y, x², y² and xy of two planes.
func products(a, b *plane) [5][]float64 {
	n := len(a.pix)
	var p [5][]float64
	for i := range p {
		p[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		x, y := a.pix[i], b.pix[i]
		p[0][i] = x
		p[1][i] = y
		p[2][i] = x * x
		p[3][i] = y * y
		p[4][i] = x * y
	}
	return p
}

func planarMoments(a, b *plane, win window) moments {
	p := products(a, b)
	w, h := a.width, a.height
	ow := w - win.size() + 1
	var out [5][]float64
	for i := range p {
		out[i] = filterCols(filterRows(p[i], w, h, win.taps), ow, h, win.taps)
	}
	return moments{out[0], out[1], out[2], out[3], out[4]}
}

// columnMoments filters along y only, so each column is an independent
// 1-D signal.
func columnMoments(a, b *plane, win window) moments {
	p := products(a, b)
	var out [5][]float64
	for i := range p {
		out[i] = filterCols(p[i], a.width, a.height, win.taps)
	}
	return moments{out[0], out[1], out[2], out[3], out[4]}
}

// mean returns the mean SSIM, luminance and contrast-structure terms.
func (m moments) mean(norm float64) (ssim, lum, cs float64) {
	n := len(m.ux)
	if n == 0 {
		return 1, 1, 1
	}
	for i := 0; i < n; i++ {
		ux, uy := m.ux[i], m.uy[i]
		vx := norm * (m.uxx[i] - ux*ux)
		vy := norm * (m.uyy[i] - uy*uy)
		vxy := norm * (m.uxy[i] - ux*uy)

		a1 := 2*ux*uy + ssimC1
		a2 := 2*vxy + ssimC2
		b1 := ux*ux + uy*uy + ssimC1
		b2 := vx + vy + ssimC2

		ssim += (a1 * a2) / (b1 * b2)
		lum += a1 / b1
		cs += a2 / b2
	}
	fn := float64(n)
	return ssim / fn, lum / fn, cs / fn
}

func checkWindow(a, b *plane, win window, needWidth bool) error {
	if a.width != b.width || a.height != b.height {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, a.width, a.height, b.width, b.height)
	}
	if a.height < win.size() || (needWidth && a.width < win.size()) {
		return fmt.Errorf("%w: %dx%d < %d", ErrImageTooSmall, a.width, a.height, win.size())
	}
	return nil
}

func planarSSIM(a, b *plane, win window) (float64, error) {
	if err := checkWindow(a, b, win, true); err != nil {
		return 0, err
	}
	s, _, _ := planarMoments(a, b, win).mean(win.covNorm(2))
	return s, nil
}

// columnSSIM averages 1-D SSIM over columns. Every column has the same
// number of valid positions, so the mean over all positions equals the
// mean of the per-column means.
func columnSSIM(a, b *plane, win window) (float64, error) {
	if err := checkWindow(a, b, win, false); err != nil {
		return 0, err
	}
	s, _, _ := columnMoments(a, b, win).mean(win.covNorm(1))
	return s, nil
}

// multiScaleSSIM combines contrast-structure terms of the finer scales
// with the full SSIM of the coarsest one. Scales that would be smaller
// than the window are dropped and the remaining weights renormalised.
func multiScaleSSIM(a, b *plane, win window) (float64, error) {
	if err := checkWindow(a, b, win, true); err != nil {
		return 0, err
	}

	levels := 1
	for w, h := a.width/2, a.height/2; levels < len(msssimWeights) && w >= win.size() && h >= win.size(); w, h = w/2, h/2 {
		levels++
	}
	weights := make([]float64, levels)
	copy(weights, msssimWeights[:levels])
	var total float64
	for _, wt := range weights {
		total += wt
	}
	for i := range weights {
		weights[i] /= total
	}

	var result float64
	for i, wt := range weights {
		s, _, cs := planarMoments(a, b, win).mean(win.covNorm(2))
		v := cs
		if i == levels-1 {
			v = s
		}
		result += wt * math.Log(math.Max(v, 1e-10))

		if i < levels-1 {
			a = downsample(a)
			b = downsample(b)
		}
	}
	return math.Exp(result), nil
}

// downsample halves a plane with a 2x2 box filter.
func downsample(p *plane) *plane {
	w, h := p.width/2, p.height/2
	out := &plane{width: w, height: h, pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		r0 := (2 * y) * p.width
		r1 := r0 + p.width
		for x := 0; x < w; x++ {
			sum := p.pix[r0+2*x] + p.pix[r0+2*x+1] + p.pix[r1+2*x] + p.pix[r1+2*x+1]
			out.pix[y*w+x] = sum / 4
		}
	}
	return out
}

// filterRows correlates every row with taps, keeping only the columns
// whose window fits inside the row.
func filterRows(src []float64, w, h int, taps []float64) []float64 {
	ow := w - len(taps) + 1
	out := make([]float64, ow*h)
	parallelDo(0, h, func(y int) {
		row := src[y*w : (y+1)*w]
		dst := out[y*ow : (y+1)*ow]
		for x := range dst {
			var acc float64
			for k, t := range taps {
				acc += t * row[x+k]
			}
			dst[x] = acc
		}
	})
	return out
}

// filterCols correlates every column with taps, keeping only the rows
// whose window fits inside the column.
func filterCols(src []float64, w, h int, taps []float64) []float64 {
	oh := h - len(taps) + 1
	out := make([]float64, w*oh)
	parallelDo(0, oh, func(y int) {
		dst := out[y*w : (y+1)*w]
		for x := range dst {
			var acc float64
			for k, t := range taps {
				acc += t * src[(y+k)*w+x]
			}
			dst[x] = acc
		}
	})
	return out
}

// parallelDo executes fn(i) for i in [start, stop) across multiple goroutines.
func parallelDo(start, stop int, fn func(i int)) {
	count := stop - start
	if count <= 0 {
		return
	}

	procs := runtime.GOMAXPROCS(0)
	if procs > count {
		procs = count
	}
	if procs <= 1 {
		for i := start; i < stop; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	batchSize := (count + procs - 1) / procs

	for p := 0; p < procs; p++ {
		batchStart := start + p*batchSize
		batchEnd := batchStart + batchSize
		if batchEnd > stop {
			batchEnd = stop
		}
		if batchStart >= batchEnd {
			continue
		}

		wg.Add(1)
		go func(from, to int) {
			defer wg.Done()
			for i := from; i < to; i++ {
				fn(i)
			}
		}(batchStart, batchEnd)
	}
	wg.Wait()
}
