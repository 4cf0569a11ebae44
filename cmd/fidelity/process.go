package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/coledavid/fidelity"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type processFlags struct {
	Src        string
	Dst        string
	Width      int
	Height     int
	Format     string
	Quality    int
	Report     string
	Charts     bool
	ChartDir   string
	Resizer    string
	MSSSIMMode string
	Workers    int
	Prefix     string
	TempDir    string
	Archive    string
	NoProgress bool
}

func newProcessCmd(cfg *Config) *cobra.Command {
	f := processFlags{
		Src:        cfg.SourceDir,
		Dst:        cfg.DestDir,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Format:     cfg.Format,
		Quality:    cfg.Quality,
		Report:     cfg.Report,
		ChartDir:   cfg.ChartDir,
		Resizer:    cfg.Resizer,
		MSSSIMMode: cfg.MSSSIMMode,
		Workers:    cfg.Workers,
		Prefix:     cfg.Prefix,
		TempDir:    cfg.TempDir,
		Archive:    cfg.Archive,
	}

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Compress every image of a directory and score each one",
		Long: `Resizes every file of --src to --width x --height, re-encodes it in --format
at --quality into --dst, scores it against the original and writes one row
per image to --report. Images that fail are reported with their error; the
rest of the batch still runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, cfg, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.Src, "src", "s", f.Src, "Directory of source images")
	fl.StringVarP(&f.Dst, "dst", "d", f.Dst, "Directory for compressed images")
	fl.IntVarP(&f.Width, "width", "W", f.Width, "Target width in pixels")
	fl.IntVarP(&f.Height, "height", "H", f.Height, "Target height in pixels")
	fl.StringVarP(&f.Format, "format", "f", f.Format, "Output format: jpeg|png|webp|gif|bmp|tiff")
	fl.IntVarP(&f.Quality, "quality", "q", f.Quality, "Encoder quality (0-100, lossy formats)")
	fl.StringVarP(&f.Report, "report", "r", f.Report, "Report path (.csv, .tsv or .xlsx)")
	fl.BoolVar(&f.Charts, "charts", false, "Render one chart per compression type after the run")
	fl.StringVar(&f.ChartDir, "chart-dir", f.ChartDir, "Directory for charts")
	fl.StringVar(&f.Resizer, "resizer", f.Resizer, "Resize backend: imaging|nfnt|gift")
	fl.StringVar(&f.MSSSIMMode, "msssim-mode", f.MSSSIMMode, "MS-SSIM variant: columns|planar|multiscale")
	fl.IntVarP(&f.Workers, "workers", "j", f.Workers, "Concurrent pipelines (0 = number of CPUs)")
	fl.StringVar(&f.Prefix, "prefix", f.Prefix, "Prefix for compressed file names")
	fl.StringVar(&f.TempDir, "temp-dir", f.TempDir, "Directory for transient upscaled images")
	fl.StringVar(&f.Archive, "archive", f.Archive, "SQLite archive to record the run in")
	fl.BoolVar(&f.NoProgress, "no-progress", false, "Hide the progress bar")
	return cmd
}

func runProcess(cmd *cobra.Command, cfg *Config, f processFlags) error {
	log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	if f.Src == "" {
		return errors.New("--src is required")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("--width and --height must be positive, got %dx%d", f.Width, f.Height)
	}
	format, err := fidelity.ParseFormat(f.Format)
	if err != nil {
		return err
	}
	resizer, err := fidelity.NewResizer(f.Resizer)
	if err != nil {
		return err
	}
	mode, err := fidelity.ParseMSSSIMMode(f.MSSSIMMode)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.Dst, 0755); err != nil {
		return fmt.Errorf("create %q: %w", f.Dst, err)
	}

	var bar *progressbar.ProgressBar
	opts := fidelity.BatchOptions{
		Options: fidelity.Options{
			Resizer: resizer,
			TempDir: f.TempDir,
			MSSSIM:  mode,
		},
		Workers: f.Workers,
		Prefix:  f.Prefix,
		Logger:  log,
		OnItem: func(completed, total int) {
			if bar != nil {
				_ = bar.Set(completed)
			}
		},
	}

	p, err := fidelity.NewProcessor(f.Src, f.Dst, opts)
	if err != nil {
		return err
	}
	if !f.NoProgress {
		bar = progressbar.NewOptions(len(p.Files()),
			progressbar.OptionSetDescription("Compressing"),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetWidth(20),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(cmd.ErrOrStderr())
			}),
		)
	}

	spec := fidelity.CompressionSpec{Width: f.Width, Height: f.Height, Format: format, Quality: f.Quality}
	log.Info().Str("src", f.Src).Int("files", len(p.Files())).Stringer("spec", spec).Msg("processing")

	table, runErr := p.ProcessImages(cmd.Context(), spec)

	// Results gathered before a cancellation are still written.
	if err := p.SaveToFile(f.Report); err != nil {
		return err
	}
	log.Info().Str("report", f.Report).Int("rows", table.Len()).Msg("report written")

	if f.Archive != "" {
		run, err := archiveRun(f.Archive, f.Src, spec, table)
		if err != nil {
			return err
		}
		log.Info().Str("archive", f.Archive).Str("run", run.ID).Msg("run archived")
	}

	if f.Charts {
		if err := os.MkdirAll(f.ChartDir, 0755); err != nil {
			return fmt.Errorf("create %q: %w", f.ChartDir, err)
		}
		paths, err := p.RenderCharts(f.Report, f.ChartDir)
		if err != nil {
			return err
		}
		for _, path := range paths {
			log.Info().Str("chart", path).Msg("chart written")
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), fidelity.Summarize(table))
	return runErr
}

func archiveRun(path, src string, spec fidelity.CompressionSpec, table *fidelity.ResultsTable) (fidelity.Run, error) {
	a, err := fidelity.OpenArchive(path)
	if err != nil {
		return fidelity.Run{}, err
	}
	defer a.Close()
	return a.Record(fidelity.Run{SourceDir: src, Spec: spec}, table)
}
