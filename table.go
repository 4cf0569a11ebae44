package fidelity

import "fmt"

// Columns is the report schema, in order.
var Columns = []string{"Image", "MSE", "PSNR", "SSIM", "MS-SSIM", "Size", "Compression Type", "Quality", "Error"}

// requiredColumns is the leading part of Columns every report must carry.
const requiredColumns = 8

// MetricRow is the outcome for one image under one CompressionSpec.
type MetricRow struct {
	Image  string
	MSE    float64
	PSNR   float64
	SSIM   float64
	MSSSIM float64
	// Size is the compressed file size in bytes.
	Size            int64
	CompressionType string
	Quality         int
	// Error is the failure reason. Empty means the metrics are valid.
	Error string
}

// OK reports whether the row holds metrics rather than a failure.
func (r MetricRow) OK() bool { return r.Error == "" }

func (r MetricRow) String() string {
	if !r.OK() {
		return fmt.Sprintf("%s | %s q=%d | error: %s", r.Image, r.CompressionType, r.Quality, r.Error)
	}
	return fmt.Sprintf("%s | %s q=%d | MSE: %.2f | PSNR: %.2f | SSIM: %.4f | MS-SSIM: %.4f | %s",
		r.Image, r.CompressionType, r.Quality, r.MSE, r.PSNR, r.SSIM, r.MSSSIM, humanBytes(r.Size))
}

// newMetricRow joins an image's scores with the spec that produced them.
func newMetricRow(image string, s Scores, spec CompressionSpec, err error) MetricRow {
	row := MetricRow{
		Image:           image,
		CompressionType: spec.Format.String(),
		Quality:         spec.Quality,
	}
	if err != nil {
		row.Error = err.Error()
		return row
	}
	row.MSE = s.MSE
	row.PSNR = s.PSNR
	row.SSIM = s.SSIM
	row.MSSSIM = s.MSSSIM
	row.Size = s.Size
	return row
}

// ResultsTable is an ordered list of MetricRows.
type ResultsTable struct {
	rows []MetricRow
}

// NewResultsTable returns a table holding rows, in order.
func NewResultsTable(rows ...MetricRow) *ResultsTable {
	t := &ResultsTable{}
	t.rows = append(t.rows, rows...)
	return t
}

// Append adds rows at the end of the table.
func (t *ResultsTable) Append(rows ...MetricRow) {
	t.rows = append(t.rows, rows...)
}

// Rows returns a copy of the rows.
func (t *ResultsTable) Rows() []MetricRow {
	out := make([]MetricRow, len(t.rows))
	copy(out, t.rows)
	return out
}

// Len returns the number of rows.
func (t *ResultsTable) Len() int { return len(t.rows) }

// Reset removes every row.
func (t *ResultsTable) Reset() { t.rows = nil }

// Group is the rows of one compression type.
type Group struct {
	CompressionType string
	Rows            []MetricRow
}

// Groups splits the table by compression type. Groups appear in the
// order their type is first seen; rows keep table order.
func (t *ResultsTable) Groups() []Group {
	var groups []Group
	index := make(map[string]int)
	for _, r := range t.rows {
		i, ok := index[r.CompressionType]
		if !ok {
			i = len(groups)
			index[r.CompressionType] = i
			groups = append(groups, Group{CompressionType: r.CompressionType})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}
	return groups
}
