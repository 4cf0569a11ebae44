package fidelity

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

// ── Test Helpers ────────────────────────────────────────────────────────────

func makeTestImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := y*img.Stride + x*4
			img.Pix[off] = uint8(x * 255 / w)
			img.Pix[off+1] = uint8(y * 255 / h)
			img.Pix[off+2] = uint8((x + y) % 256)
			img.Pix[off+3] = 0xff
		}
	}
	return img
}

func makeSolidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// makeNoisyCopy adds a +/-amp checkerboard to every channel of img.
func makeNoisyCopy(img *image.NRGBA, amp int) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := amp
			if (x+y)%2 == 1 {
				d = -amp
			}
			off := y*out.Stride + x*4
			for c := 0; c < 3; c++ {
				v := int(out.Pix[off+c]) + d
				if v < 0 {
					v = 0
				}
				if v > 255 {
					v = 255
				}
				out.Pix[off+c] = uint8(v)
			}
		}
	}
	return out
}

// writeImage saves img under dir/name and returns the path.
func writeImage(t *testing.T, dir, name string, img image.Image, format Format) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := Save(img, path, format, 95); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
	return path
}

func decodeDims(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode config %s: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

func ctx() context.Context { return context.Background() }
