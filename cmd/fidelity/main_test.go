package main

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coledavid/fidelity"
	"github.com/rs/zerolog"
)

func gradient(w, h int) *image.NRGBA {
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

func writeSources(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := fidelity.Save(gradient(48, 40), filepath.Join(dir, name), fidelity.PNG, 0); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// execute runs the root command in-process and returns stdout.
func execute(t *testing.T, cfg Config, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&cfg)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func defaultConfig(t *testing.T) Config {
	t.Helper()
	cfg := Config{}
	if err := ReadEnvConfig(&cfg); err != nil {
		t.Fatal(err)
	}
	cfg.TempDir = t.TempDir()
	return cfg
}

// ── Config Tests ────────────────────────────────────────────────────────────

func TestReadEnvConfigDefaults(t *testing.T) {
	cfg := Config{}
	if err := ReadEnvConfig(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.DestDir != "compressed" || cfg.Report != "results.csv" || cfg.Format != "JPEG" ||
		cfg.Quality != 50 || cfg.Workers != 1 || cfg.Prefix != "compressed_" || cfg.MSSSIMMode != "columns" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestReadEnvConfigOverrides(t *testing.T) {
	t.Setenv("FIDELITY_WIDTH", "320")
	t.Setenv("FIDELITY_HEIGHT", "200")
	t.Setenv("FIDELITY_FORMAT", "webp")
	t.Setenv("FIDELITY_QUALITY", "75")
	t.Setenv("FIDELITY_REPORT", "out.xlsx")

	cfg := Config{}
	if err := ReadEnvConfig(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 320 || cfg.Height != 200 || cfg.Format != "webp" || cfg.Quality != 75 || cfg.Report != "out.xlsx" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestReadEnvConfigInvalid(t *testing.T) {
	t.Setenv("FIDELITY_QUALITY", "high")
	cfg := Config{}
	if err := ReadEnvConfig(&cfg); err == nil {
		t.Fatal("should error on a non-numeric quality")
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	if l := newLogger(&buf, "debug"); l.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug, got %v", l.GetLevel())
	}
	if l := newLogger(&buf, "nonsense"); l.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("unknown level should fall back to info, got %v", l.GetLevel())
	}
	l := newLogger(&buf, "WARN")
	l.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info event should be filtered at warn, got %q", buf.String())
	}
}

// ── Command Tests ───────────────────────────────────────────────────────────

func TestProcessCommand(t *testing.T) {
	src := writeSources(t, "a.png", "b.png")
	work := t.TempDir()
	report := filepath.Join(work, "results.csv")
	charts := filepath.Join(work, "charts")
	archive := filepath.Join(work, "runs.db")

	out, err := execute(t, defaultConfig(t), "process",
		"--src", src, "--dst", filepath.Join(work, "out"),
		"--width", "24", "--height", "20", "--format", "png", "--quality", "60",
		"--report", report, "--charts", "--chart-dir", charts,
		"--archive", archive, "--workers", "2", "--no-progress", "--log-level", "error")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !strings.Contains(out, "Batch: 2/2 succeeded") {
		t.Fatalf("unexpected summary %q", out)
	}

	tbl, err := fidelity.LoadTable(report)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 report rows, got %d", tbl.Len())
	}
	if _, err := os.Stat(filepath.Join(charts, "metrics_png.png")); err != nil {
		t.Fatalf("chart not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(work, "out", "compressed_a.png")); err != nil {
		t.Fatalf("compressed file not written: %v", err)
	}

	runs, err := execute(t, defaultConfig(t), "runs", "--archive", archive)
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	if !strings.Contains(runs, "24x20 PNG q=60") {
		t.Fatalf("run not listed: %q", runs)
	}
}

func TestProcessCommandValidation(t *testing.T) {
	src := writeSources(t, "a.png")
	tests := map[string][]string{
		"missing src":  {"process", "--width", "10", "--height", "10"},
		"missing size": {"process", "--src", src},
		"bad format":   {"process", "--src", src, "--width", "10", "--height", "10", "--format", "heic"},
		"bad resizer":  {"process", "--src", src, "--width", "10", "--height", "10", "--resizer", "magic"},
		"bad mode":     {"process", "--src", src, "--width", "10", "--height", "10", "--msssim-mode", "fast"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig(t)
			cfg.DestDir = t.TempDir()
			if _, err := execute(t, cfg, args...); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestClearAndPlotCommands(t *testing.T) {
	work := t.TempDir()
	report := filepath.Join(work, "results.csv")
	rows := fidelity.NewResultsTable(
		fidelity.MetricRow{Image: "a.jpg", MSE: 3, PSNR: 43, SSIM: 0.9, MSSSIM: 0.95, Size: 100, CompressionType: "JPEG", Quality: 50},
		fidelity.MetricRow{Image: "b.jpg", MSE: 5, PSNR: 41, SSIM: 0.8, MSSSIM: 0.9, Size: 90, CompressionType: "WEBP", Quality: 50},
	)
	if err := fidelity.SaveTable(report, rows); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, defaultConfig(t), "plot", "--report", report, "--out", filepath.Join(work, "charts"))
	if err != nil {
		t.Fatalf("plot failed: %v", err)
	}
	if got := strings.Count(out, ".png"); got != 2 {
		t.Fatalf("expected 2 charts, got output %q", out)
	}

	if _, err := execute(t, defaultConfig(t), "clear", "--report", report); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	tbl, err := fidelity.LoadTable(report)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 0 {
		t.Fatalf("cleared report should be empty, got %d rows", tbl.Len())
	}
}

func TestScoreCommand(t *testing.T) {
	src := writeSources(t, "ref.png")
	ref := filepath.Join(src, "ref.png")

	out, err := execute(t, defaultConfig(t), "score", ref, ref, "--no-upscale")
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	for _, want := range []string{"MSE", "PSNR", "100.0000 dB", "MS-SSIM (columns)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, defaultConfig(t), "score", ref); err == nil {
		t.Fatal("score should require two arguments")
	}
}

func TestRunsCommandRequiresArchive(t *testing.T) {
	if _, err := execute(t, defaultConfig(t), "runs"); err == nil {
		t.Fatal("runs should require --archive")
	}
}
