package fidelity

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3"
)

// Run identifies one archived batch.
type Run struct {
	ID string
	// CreatedAt is stored with nanosecond precision and read back in UTC.
	CreatedAt time.Time
	SourceDir string
	Spec      CompressionSpec
}

// Archive stores batch results in SQLite so runs can be compared over time.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens or creates the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("fidelity: open archive %q: %w", path, err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		source_dir TEXT,
		width INTEGER,
		height INTEGER,
		format TEXT,
		quality INTEGER
	);
	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		image TEXT NOT NULL,
		mse REAL,
		psnr REAL,
		ssim REAL,
		msssim REAL,
		size INTEGER,
		compression_type TEXT,
		quality INTEGER,
		error TEXT,
		PRIMARY KEY (run_id, position)
	);
	CREATE INDEX IF NOT EXISTS idx_results_type ON results(compression_type);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("fidelity: init archive %q: %w", path, err)
	}
	return &Archive{db: db}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Record stores t under a new run and returns the run. run.ID and
// run.CreatedAt are filled in when empty.
func (a *Archive) Record(run Run, t *ResultsTable) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := a.db.Begin()
	if err != nil {
		return Run{}, fmt.Errorf("fidelity: archive begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs (id, created_at, source_dir, width, height, format, quality)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.SourceDir,
		run.Spec.Width, run.Spec.Height, run.Spec.Format.String(), run.Spec.Quality)
	if err != nil {
		return Run{}, fmt.Errorf("fidelity: archive run %s: %w", run.ID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO results (
			run_id, position, image, mse, psnr, ssim, msssim, size, compression_type, quality, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("fidelity: archive prepare: %w", err)
	}
	defer stmt.Close()

	for i, r := range t.rows {
		_, err := stmt.Exec(run.ID, i, r.Image, r.MSE, r.PSNR, r.SSIM, r.MSSSIM,
			r.Size, r.CompressionType, r.Quality, r.Error)
		if err != nil {
			return Run{}, fmt.Errorf("fidelity: archive row %s: %w", r.Image, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("fidelity: archive commit: %w", err)
	}
	return run, nil
}

// Runs lists archived runs, newest first.
func (a *Archive) Runs() ([]Run, error) {
	rows, err := a.db.Query(`SELECT id, created_at, source_dir, width, height, format, quality
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("fidelity: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			created int64
			format  string
		)
		if err := rows.Scan(&r.ID, &created, &r.SourceDir, &r.Spec.Width, &r.Spec.Height, &format, &r.Spec.Quality); err != nil {
			return nil, fmt.Errorf("fidelity: scan run: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		// Formats the codecs no longer know are listed with a zero Format.
		r.Spec.Format, _ = ParseFormat(format)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Load returns the table recorded for runID, in its original order.
func (a *Archive) Load(runID string) (*ResultsTable, error) {
	rows, err := a.db.Query(`SELECT image, mse, psnr, ssim, msssim, size, compression_type, quality, error
		FROM results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("fidelity: load run %s: %w", runID, err)
	}
	defer rows.Close()

	t := &ResultsTable{}
	for rows.Next() {
		var r MetricRow
		if err := rows.Scan(&r.Image, &r.MSE, &r.PSNR, &r.SSIM, &r.MSSSIM, &r.Size, &r.CompressionType, &r.Quality, &r.Error); err != nil {
			return nil, fmt.Errorf("fidelity: scan result: %w", err)
		}
		t.rows = append(t.rows, r)
	}
	return t, rows.Err()
}
