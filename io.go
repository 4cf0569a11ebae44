package fidelity

import (
	"bufio"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/chai2010/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	// Decoders registered with image.Decode.
	_ "golang.org/x/image/webp"
)

// Open loads an image from a file path. The codec is chosen from the file
// content, not its extension.
func Open(filename string) (image.Image, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("fidelity: open %q: %w", filename, err)
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("fidelity: decode %q: %w", filename, err)
	}
	return img, nil
}

// Save writes img to filename in the given format, creating or truncating it.
func Save(img image.Image, filename string, format Format, quality int) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("fidelity: create %q: %w", filename, err)
	}

	w := bufio.NewWriter(f)
	if err := Encode(w, img, format, quality); err != nil {
		f.Close()
		return fmt.Errorf("fidelity: write %q: %w", filename, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("fidelity: write %q: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("fidelity: close %q: %w", filename, err)
	}
	return nil
}

// Encode writes img to w in the given format. quality applies to the lossy
// codecs (JPEG, WEBP); the others are written with their best compression.
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case JPEG:
		if gray, ok := img.(*image.Gray); ok {
			return jpeg.Encode(w, gray, &jpeg.Options{Quality: clampQuality(quality)})
		}
		return encodeJPEG(w, toNRGBARef(img), quality)
	case PNG:
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		return encoder.Encode(w, img)
	case WEBP:
		return webp.Encode(w, img, &webp.Options{Quality: float32(clampQuality(quality))})
	case GIF:
		return gif.Encode(w, img, &gif.Options{NumColors: 256})
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// encodeJPEG handles JPEG encoding, using RGBA for opaque images (faster path).
func encodeJPEG(w io.Writer, img *image.NRGBA, quality int) error {
	opts := &jpeg.Options{Quality: clampQuality(quality)}
	if isOpaque(img) {
		rgba := &image.RGBA{
			Pix:    img.Pix,
			Stride: img.Stride,
			Rect:   img.Rect,
		}
		return jpeg.Encode(w, rgba, opts)
	}
	return jpeg.Encode(w, img, opts)
}

func clampQuality(q int) int {
	switch {
	case q < 0:
		return 0
	case q > 100:
		return 100
	default:
		return q
	}
}
