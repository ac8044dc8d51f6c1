package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/jamesvanalstine/pypgx/internal/depth"
	"github.com/jamesvanalstine/pypgx/internal/region"
)

// Run describes one bam2sdf invocation.
type Run struct {
	ID        int
	Target    string
	Control   string
	Build     string
	Prefix    string
	CreatedAt time.Time
	Files     []RunFile
}

// RunFile is one input file of a run, in column order.
type RunFile struct {
	FileFingerprint
	Sample string
}

// WriteRun stores a run and its depth rows and returns the new run ID.
// Depth rows are batch-inserted using the Appender API and keep their
// emission order. The run is written in one transaction: on failure no
// trace of it is left. IDs come from a sequence, so concurrent writers
// never share one and a failed run leaves a gap.
func (s *Store) WriteRun(run Run, rows []depth.Row) (id int, err error) {
	for i, r := range rows {
		if len(r.Depths) != len(run.Files) {
			return 0, fmt.Errorf("row %d: %d depth values for %d files", i+1, len(r.Depths), len(run.Files))
		}
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	// The appender writes through a raw driver connection, so the
	// transaction is driven with plain statements on that same connection.
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return 0, fmt.Errorf("begin run: %w", err)
	}
	defer func() {
		if err != nil {
			conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	if err := conn.QueryRowContext(ctx, "SELECT nextval('"+runIDSequence+"')").Scan(&id); err != nil {
		return 0, fmt.Errorf("allocate run id: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `INSERT INTO sdf_runs VALUES (?, ?, ?, ?, ?, ?)`,
		id, run.Target, run.Control, run.Build, run.Prefix, run.CreatedAt.UTC()); err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	for i, f := range run.Files {
		if _, err := conn.ExecContext(ctx, `INSERT INTO sdf_files VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, f.Path, f.Sample, f.Size, f.ModTime.UTC()); err != nil {
			return 0, fmt.Errorf("insert run file: %w", err)
		}
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "sdf_depth")
		return err
	}); err != nil {
		return 0, fmt.Errorf("create appender: %w", err)
	}

	for i, r := range rows {
		for f, d := range r.Depths {
			if err := appender.AppendRow(
				int32(id), int64(i), r.Chrom, int64(r.Pos), int32(f), int32(d),
			); err != nil {
				appender.Close()
				return 0, fmt.Errorf("append depth row: %w", err)
			}
		}
	}

	// Close flushes the remaining rows.
	if err := appender.Close(); err != nil {
		return 0, fmt.Errorf("flush depth rows: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

// Runs lists stored runs, oldest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, target, control, build, prefix, created_at
		FROM sdf_runs ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Target, &r.Control, &r.Build, &r.Prefix, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		files, err := s.RunFiles(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Files = files
	}
	return runs, nil
}

// Run returns one stored run with its files.
func (s *Store) Run(id int) (Run, error) {
	r := Run{ID: id}
	err := s.db.QueryRow(`SELECT target, control, build, prefix, created_at
		FROM sdf_runs WHERE run_id = ?`, id).Scan(&r.Target, &r.Control, &r.Build, &r.Prefix, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	if r.Files, err = s.RunFiles(id); err != nil {
		return Run{}, err
	}
	return r, nil
}

// RunFiles returns the input files of a run in column order.
func (s *Store) RunFiles(runID int) ([]RunFile, error) {
	rows, err := s.db.Query(`SELECT path, sample, size, mod_time
		FROM sdf_files WHERE run_id = ? ORDER BY file_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}
	defer rows.Close()

	var files []RunFile
	for rows.Next() {
		var f RunFile
		if err := rows.Scan(&f.Path, &f.Sample, &f.Size, &f.ModTime); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Depth returns the stored rows of a run that fall in r, in their emission
// order. The chromosome of r matches stored rows with or without a "chr"
// prefix. A zero Region returns every row of the run.
func (s *Store) Depth(runID int, r region.Region) ([]depth.Row, error) {
	files, err := s.RunFiles(runID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("run %d not found", runID)
	}

	query := `SELECT row_index, chrom, pos, file_index, depth FROM sdf_depth WHERE run_id = ?`
	args := []any{runID}
	if r != (region.Region{}) {
		query += ` AND (chrom = ? OR chrom = ?) AND pos BETWEEN ? AND ?`
		args = append(args, r.Bare(), region.ChrPrefix+r.Bare(), r.Start, r.End)
	}
	query += ` ORDER BY row_index, file_index`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query depth: %w", err)
	}
	defer rows.Close()

	var (
		out  []depth.Row
		last int64 = -1
	)
	for rows.Next() {
		var (
			rowIndex, pos int64
			chrom         string
			fileIndex, d  int
		)
		if err := rows.Scan(&rowIndex, &chrom, &pos, &fileIndex, &d); err != nil {
			return nil, fmt.Errorf("scan depth: %w", err)
		}
		if rowIndex != last {
			out = append(out, depth.Row{Chrom: chrom, Pos: int(pos), Depths: make([]int, len(files))})
			last = rowIndex
		}
		out[len(out)-1].Depths[fileIndex] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate depth: %w", err)
	}
	return out, nil
}
