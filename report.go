package fidelity

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// xlsxSheet is the worksheet reports are written to.
const xlsxSheet = "Results"

// WriteTable writes t as delimited text with a header row and no index column.
func WriteTable(w io.Writer, t *ResultsTable, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.WriteAll(tableRecords(t)); err != nil {
		return fmt.Errorf("fidelity: write report: %w", err)
	}
	return nil
}

// ReadTable parses delimited text written by WriteTable. A header-only or
// empty input yields an empty table. The Error column is optional.
func ReadTable(r io.Reader, comma rune) (*ResultsTable, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("fidelity: read report: %w", err)
	}
	return parseRecords(records)
}

// SaveTable writes t to path. The extension picks the layout: .tsv is
// tab separated, .xlsx is a spreadsheet, anything else is comma separated.
func SaveTable(path string, t *ResultsTable) error {
	if reportKind(path) == ".xlsx" {
		return saveXLSX(path, t)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fidelity: create %q: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := WriteTable(w, t, delimiter(path)); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("fidelity: write %q: %w", path, err)
	}
	return f.Close()
}

// LoadTable reads a report written by SaveTable.
func LoadTable(path string) (*ResultsTable, error) {
	if reportKind(path) == ".xlsx" {
		return loadXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fidelity: open %q: %w", path, err)
	}
	defer f.Close()
	return ReadTable(bufio.NewReader(f), delimiter(path))
}

func reportKind(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func delimiter(path string) rune {
	if reportKind(path) == ".tsv" {
		return '\t'
	}
	return ','
}

func saveXLSX(path string, t *ResultsTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("fidelity: xlsx sheet: %w", err)
	}
	for i, col := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(xlsxSheet, cell, col); err != nil {
			return fmt.Errorf("fidelity: xlsx header: %w", err)
		}
	}
	for i, r := range t.rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{r.Image, r.MSE, r.PSNR, r.SSIM, r.MSSSIM, r.Size, r.CompressionType, r.Quality, r.Error}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return fmt.Errorf("fidelity: xlsx row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("fidelity: save %q: %w", path, err)
	}
	return nil
}

func loadXLSX(path string) (*ResultsTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("fidelity: open %q: %w", path, err)
	}
	defer f.Close()

	records, err := f.GetRows(xlsxSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("fidelity: read %q: %w", path, err)
	}
	return parseRecords(records)
}

func tableRecords(t *ResultsTable) [][]string {
	records := make([][]string, 0, len(t.rows)+1)
	records = append(records, Columns)
	for _, r := range t.rows {
		records = append(records, []string{
			r.Image,
			formatFloat(r.MSE),
			formatFloat(r.PSNR),
			formatFloat(r.SSIM),
			formatFloat(r.MSSSIM),
			strconv.FormatInt(r.Size, 10),
			r.CompressionType,
			strconv.Itoa(r.Quality),
			r.Error,
		})
	}
	return records
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// parseRecords maps records onto the schema by header name, so column
// order in the file does not matter.
func parseRecords(records [][]string) (*ResultsTable, error) {
	t := &ResultsTable{}
	if len(records) == 0 || isBlankHeader(records[0]) {
		return t, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range Columns[:requiredColumns] {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("fidelity: report is missing column %q", col)
		}
	}

	for n, rec := range records[1:] {
		field := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		row := MetricRow{
			Image:           field("Image"),
			CompressionType: field("Compression Type"),
			Error:           field("Error"),
		}
		var err error
		line := n + 2
		if row.MSE, err = parseFloat(field("MSE")); err != nil {
			return nil, fmt.Errorf("fidelity: line %d MSE: %w", line, err)
		}
		if row.PSNR, err = parseFloat(field("PSNR")); err != nil {
			return nil, fmt.Errorf("fidelity: line %d PSNR: %w", line, err)
		}
		if row.SSIM, err = parseFloat(field("SSIM")); err != nil {
			return nil, fmt.Errorf("fidelity: line %d SSIM: %w", line, err)
		}
		if row.MSSSIM, err = parseFloat(field("MS-SSIM")); err != nil {
			return nil, fmt.Errorf("fidelity: line %d MS-SSIM: %w", line, err)
		}
		if row.Size, err = parseInt(field("Size")); err != nil {
			return nil, fmt.Errorf("fidelity: line %d Size: %w", line, err)
		}
		q, err := parseInt(field("Quality"))
		if err != nil {
			return nil, fmt.Errorf("fidelity: line %d Quality: %w", line, err)
		}
		row.Quality = int(q)
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// isBlankHeader matches the single empty field an empty frame is written as.
func isBlankHeader(header []string) bool {
	return len(header) == 1 && strings.TrimSpace(header[0]) == ""
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// parseInt accepts integral floats such as "1234.0" as well.
func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
