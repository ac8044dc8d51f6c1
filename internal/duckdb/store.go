// Package duckdb stores SDF depth rows in DuckDB so runs can be sliced and
// revisited without re-reading the alignment files.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// runIDSequence allocates run IDs.
const runIDSequence = "sdf_run_id"

// Store manages a DuckDB connection holding SDF runs.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
// Depth is stored long: one row per (run, position, file).
func (s *Store) ensureSchema() error {
	for _, stmt := range []string{
		`CREATE SEQUENCE IF NOT EXISTS ` + runIDSequence + ` START 1`,
		`CREATE TABLE IF NOT EXISTS sdf_runs (
			run_id INTEGER PRIMARY KEY,
			target VARCHAR,
			control VARCHAR,
			build VARCHAR,
			prefix VARCHAR,
			created_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sdf_files (
			run_id INTEGER,
			file_index INTEGER,
			path VARCHAR,
			sample VARCHAR,
			size BIGINT,
			mod_time TIMESTAMP,
			PRIMARY KEY (run_id, file_index)
		)`,
		`CREATE TABLE IF NOT EXISTS sdf_depth (
			run_id INTEGER,
			row_index BIGINT,
			chrom VARCHAR,
			pos BIGINT,
			file_index INTEGER,
			depth INTEGER
		)`,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
