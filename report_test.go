package fidelity

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func sampleRows() []MetricRow {
	return []MetricRow{
		{Image: "a.jpg", MSE: 12.5, PSNR: 37.161, SSIM: 0.9123456789, MSSSIM: 0.95, Size: 2048, CompressionType: "JPEG", Quality: 80},
		{Image: "b.png", MSE: 0, PSNR: 100, SSIM: 1, MSSSIM: 1, Size: 4096, CompressionType: "PNG", Quality: 50},
		{Image: "c.jpg", MSE: 3.25, PSNR: 43.01, SSIM: 0.98, MSSSIM: 0.99, Size: 1024, CompressionType: "JPEG", Quality: 80},
		{Image: "notes.txt", CompressionType: "JPEG", Quality: 80, Error: "fidelity: decode \"notes.txt\": image: unknown format"},
	}
}

// ── Table Tests ─────────────────────────────────────────────────────────────

func TestResultsTable(t *testing.T) {
	tbl := NewResultsTable(sampleRows()[:2]...)
	tbl.Append(sampleRows()[2:]...)
	if tbl.Len() != 4 {
		t.Fatalf("expected 4 rows, got %d", tbl.Len())
	}

	rows := tbl.Rows()
	rows[0].Image = "changed"
	if tbl.Rows()[0].Image != "a.jpg" {
		t.Fatal("Rows should return a copy")
	}

	tbl.Reset()
	if tbl.Len() != 0 {
		t.Fatal("Reset should empty the table")
	}
}

func TestGroups(t *testing.T) {
	groups := NewResultsTable(sampleRows()...).Groups()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].CompressionType != "JPEG" || groups[1].CompressionType != "PNG" {
		t.Fatalf("groups should follow first appearance, got %s, %s", groups[0].CompressionType, groups[1].CompressionType)
	}
	var names []string
	for _, r := range groups[0].Rows {
		names = append(names, r.Image)
	}
	if want := []string{"a.jpg", "c.jpg", "notes.txt"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("JPEG rows = %v, want %v", names, want)
	}
}

func TestMetricRowString(t *testing.T) {
	rows := sampleRows()
	if s := rows[0].String(); !strings.Contains(s, "a.jpg") || !strings.Contains(s, "SSIM: 0.9123") {
		t.Fatalf("unexpected row string %q", s)
	}
	if rows[3].OK() {
		t.Fatal("row with an error should not be OK")
	}
	if s := rows[3].String(); !strings.Contains(s, "error:") {
		t.Fatalf("failed row string should carry the error, got %q", s)
	}
}

// ── Report I/O Tests ────────────────────────────────────────────────────────

func TestWriteTableHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, NewResultsTable(), ','); err != nil {
		t.Fatal(err)
	}
	want := "Image,MSE,PSNR,SSIM,MS-SSIM,Size,Compression Type,Quality,Error\n"
	if buf.String() != want {
		t.Fatalf("header = %q, want %q", buf.String(), want)
	}
}

func TestReportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := sampleRows()
	for _, name := range []string{"results.csv", "results.tsv", "results.xlsx", "RESULTS.CSV"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := SaveTable(path, NewResultsTable(want...)); err != nil {
				t.Fatalf("SaveTable failed: %v", err)
			}
			got, err := LoadTable(path)
			if err != nil {
				t.Fatalf("LoadTable failed: %v", err)
			}
			if !reflect.DeepEqual(got.Rows(), want) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got.Rows(), want)
			}
		})
	}
}

func TestReportHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"empty.csv", "empty.tsv", "empty.xlsx"} {
		path := filepath.Join(dir, name)
		if err := SaveTable(path, NewResultsTable()); err != nil {
			t.Fatal(err)
		}
		tbl, err := LoadTable(path)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if tbl.Len() != 0 {
			t.Fatalf("%s: expected no rows, got %d", name, tbl.Len())
		}
	}
}

func TestReadTableBlankAndEmpty(t *testing.T) {
	for _, in := range []string{"", "\"\"\n"} {
		tbl, err := ReadTable(strings.NewReader(in), ',')
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if tbl.Len() != 0 {
			t.Fatalf("%q: expected empty table", in)
		}
	}
}

func TestReadTableHistorical(t *testing.T) {
	// Older reports have no Error column and may store sizes as floats.
	in := "Image,MSE,PSNR,SSIM,MS-SSIM,Size,Compression Type,Quality\n" +
		"x.jpg,1.5,46.3,0.99,0.98,1234.0,JPEG,75\n"
	tbl, err := ReadTable(strings.NewReader(in), ',')
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	want := MetricRow{Image: "x.jpg", MSE: 1.5, PSNR: 46.3, SSIM: 0.99, MSSSIM: 0.98, Size: 1234, CompressionType: "JPEG", Quality: 75}
	if rows := tbl.Rows(); len(rows) != 1 || rows[0] != want {
		t.Fatalf("got %+v, want %+v", rows, want)
	}
}

func TestReadTableColumnOrder(t *testing.T) {
	in := "Quality,Compression Type,Size,MS-SSIM,SSIM,PSNR,MSE,Image\n" +
		"60,WEBP,99,0.5,0.6,30,2,y.png\n"
	tbl, err := ReadTable(strings.NewReader(in), ',')
	if err != nil {
		t.Fatal(err)
	}
	r := tbl.Rows()[0]
	if r.Image != "y.png" || r.Quality != 60 || r.CompressionType != "WEBP" || r.Size != 99 || r.MSE != 2 {
		t.Fatalf("columns mapped incorrectly: %+v", r)
	}
}

func TestReadTableErrors(t *testing.T) {
	tests := map[string]string{
		"missing column": "Image,MSE,PSNR,SSIM,Size,Compression Type,Quality\nx,1,2,3,4,JPEG,5\n",
		"bad float":      "Image,MSE,PSNR,SSIM,MS-SSIM,Size,Compression Type,Quality\nx,abc,2,3,4,5,JPEG,5\n",
		"bad size":       "Image,MSE,PSNR,SSIM,MS-SSIM,Size,Compression Type,Quality\nx,1,2,3,4,big,JPEG,5\n",
	}
	for name, in := range tests {
		if _, err := ReadTable(strings.NewReader(in), ','); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestLoadTableMissingFile(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}
