package fidelity

import (
	"errors"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"JPEG": JPEG, "jpg": JPEG, " png ": PNG, "WebP": WEBP,
		"gif": GIF, "BMP": BMP, "tiff": TIFF, "TIF": TIFF,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseFormat("heic"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("/tmp/photo.JPG")
	if err != nil || f != JPEG {
		t.Fatalf("got %v, %v", f, err)
	}
	if _, err := FormatFromPath("/tmp/noext"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFormatStringAndExtension(t *testing.T) {
	for _, f := range []Format{JPEG, PNG, WEBP, GIF, BMP, TIFF} {
		back, err := ParseFormat(f.String())
		if err != nil || back != f {
			t.Errorf("%v does not parse back: %v, %v", f, back, err)
		}
		if ext, err := FormatFromPath("x" + f.Extension()); err != nil || ext != f {
			t.Errorf("%v extension %q does not map back", f, f.Extension())
		}
	}
	if Format(0).Extension() != "" {
		t.Fatal("unknown format should have no extension")
	}
}

func TestParseMSSSIMMode(t *testing.T) {
	tests := map[string]MSSSIMMode{
		"": MSSSIMColumns, "columns": MSSSIMColumns, "Planar": MSSSIMPlanar,
		"multiscale": MSSSIMMultiScale, "multi-scale": MSSSIMMultiScale,
	}
	for in, want := range tests {
		got, err := ParseMSSSIMMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMSSSIMMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMSSSIMMode("fast"); err == nil {
		t.Fatal("should error on unknown mode")
	}
}

func TestCompressionSpecString(t *testing.T) {
	s := CompressionSpec{Width: 640, Height: 480, Format: WEBP, Quality: 75}
	if got := s.String(); got != "640x480 WEBP q=75" {
		t.Fatalf("got %q", got)
	}
}
