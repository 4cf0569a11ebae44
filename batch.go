package fidelity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultPrefix is prepended to source file names to name compressed outputs.
const DefaultPrefix = "compressed_"

// BatchOptions configures a Processor.
type BatchOptions struct {
	// Options configures compression and metrics for every item.
	Options Options
	// Workers is the number of concurrent pipelines. 0 = runtime.NumCPU().
	Workers int
	// Prefix names outputs as Prefix+<source name>. Empty means DefaultPrefix.
	Prefix string
	// Logger receives one debug event per item and a warning per failure.
	Logger zerolog.Logger
	// OnItem is called after each item completes (for progress reporting),
	// including items skipped after cancellation. It receives the number of
	// completed items and the total count.
	OnItem func(completed, total int)
}

// DefaultBatchOptions returns sensible defaults for general use.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		Options: DefaultOptions(),
		Workers: 1,
		Prefix:  DefaultPrefix,
		Logger:  zerolog.Nop(),
	}
}

// Processor compresses and scores every file of a directory.
type Processor struct {
	sourceDir string
	destDir   string
	files     []string
	opts      BatchOptions

	mu    sync.Mutex
	table *ResultsTable
}

// NewProcessor lists the regular files of sourceDir (not recursively, no
// extension filter). The list is a snapshot: files added or removed later
// are not seen by ProcessImages.
func NewProcessor(sourceDir, destDir string, opts BatchOptions) (*Processor, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("fidelity: list %q: %w", sourceDir, err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
			continue
		}
		// Follow symlinks the way a stat of the joined path would.
		if e.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(sourceDir, e.Name())); err == nil && info.Mode().IsRegular() {
				files = append(files, e.Name())
			}
		}
	}

	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	return &Processor{
		sourceDir: sourceDir,
		destDir:   destDir,
		files:     files,
		opts:      opts,
		table:     &ResultsTable{},
	}, nil
}

// Files returns the snapshot of file names taken at construction.
func (p *Processor) Files() []string {
	out := make([]string, len(p.files))
	copy(out, p.files)
	return out
}

// ProcessImages runs the compress-and-score pipeline on every snapshot
// file and replaces the table with the results, one row per file in
// snapshot order. A file that fails yields a row carrying the error; the
// rest of the batch still runs. If ctx is cancelled, items not yet started
// are recorded with the context error, which is also returned.
func (p *Processor) ProcessImages(ctx context.Context, spec CompressionSpec) (*ResultsTable, error) {
	rows := make([]MetricRow, len(p.files))
	total := len(p.files)

	workers := p.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > total {
		workers = total
	}

	compressor := NewCompressor(spec.Width, spec.Height, p.opts.Options)
	log := p.opts.Logger

	workCh := make(chan int, total)
	for i := range p.files {
		workCh <- i
	}
	close(workCh)

	var wg sync.WaitGroup
	var completed int
	var completedMu sync.Mutex
	itemDone := func() {
		if p.opts.OnItem == nil {
			return
		}
		completedMu.Lock()
		completed++
		c := completed
		completedMu.Unlock()
		p.opts.OnItem(c, total)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				name := p.files[idx]

				// Check cancellation before starting new work.
				if err := ctx.Err(); err != nil {
					rows[idx] = newMetricRow(name, Scores{}, spec, err)
					itemDone()
					continue
				}

				ref := filepath.Join(p.sourceDir, name)
				comp := filepath.Join(p.destDir, p.opts.Prefix+name)
				scores, err := compressor.RunPipeline(ctx, ref, comp, spec)
				rows[idx] = newMetricRow(name, scores, spec, err)

				if err != nil {
					log.Warn().Str("image", name).Err(err).Msg("image failed")
				} else {
					log.Debug().Str("image", name).
						Float64("mse", scores.MSE).
						Float64("psnr", scores.PSNR).
						Float64("ssim", scores.SSIM).
						Float64("msssim", scores.MSSSIM).
						Int64("size", scores.Size).
						Msg("image processed")
				}
				itemDone()
			}
		}()
	}
	wg.Wait()

	table := NewResultsTable(rows...)
	p.mu.Lock()
	p.table = table
	p.mu.Unlock()

	return table, ctx.Err()
}

// Table returns the results of the last ProcessImages call.
func (p *Processor) Table() *ResultsTable {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.table
}

// SaveToFile writes the current table to path (see SaveTable).
func (p *Processor) SaveToFile(path string) error {
	return SaveTable(path, p.Table())
}

// RenderCharts reloads the report at path, not the in-memory table, and
// draws one chart per compression type into outDir.
func (p *Processor) RenderCharts(path, outDir string) ([]string, error) {
	t, err := LoadTable(path)
	if err != nil {
		return nil, err
	}
	return RenderCharts(t, outDir)
}

// Clear empties the table and overwrites path with a header-only report.
func (p *Processor) Clear(path string) error {
	p.mu.Lock()
	p.table = &ResultsTable{}
	p.mu.Unlock()
	return SaveTable(path, &ResultsTable{})
}

// BatchSummary provides aggregate statistics for a results table.
type BatchSummary struct {
	Total      int
	Succeeded  int
	Failed     int
	TotalBytes int64
	AvgSSIM    float64
	AvgPSNR    float64
}

// Summarize computes aggregate statistics over the rows of t.
func Summarize(t *ResultsTable) BatchSummary {
	s := BatchSummary{Total: t.Len()}
	var ssimSum, psnrSum float64
	for _, r := range t.rows {
		if !r.OK() {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.TotalBytes += r.Size
		ssimSum += r.SSIM
		psnrSum += r.PSNR
	}
	if s.Succeeded > 0 {
		s.AvgSSIM = ssimSum / float64(s.Succeeded)
		s.AvgPSNR = psnrSum / float64(s.Succeeded)
	}
	return s
}

// String returns a human-readable batch summary.
func (s BatchSummary) String() string {
	return fmt.Sprintf(
		"Batch: %d/%d succeeded | %s written | Avg SSIM: %.4f | Avg PSNR: %.2f",
		s.Succeeded, s.Total, humanBytes(s.TotalBytes), s.AvgSSIM, s.AvgPSNR,
	)
}
