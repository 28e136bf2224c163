// Package duckdb persists score runs so results stay queryable and
// comparable across models and call sets.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for persisting score results.
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
			return nil, fmt.Errorf("create results directory: %w", err)
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
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS score_runs (
		run_id VARCHAR PRIMARY KEY,
		model_id VARCHAR,
		trait VARCHAR,
		genome_build VARCHAR,
		score DOUBLE,
		sites_total BIGINT,
		sites_matched BIGINT,
		sites_unresolvable BIGINT,
		created_at TIMESTAMP
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS site_contributions (
		run_id VARCHAR,
		site_index BIGINT,
		site_id VARCHAR,
		chrom VARCHAR,
		pos BIGINT,
		effect_allele VARCHAR,
		other_allele VARCHAR,
		weight DOUBLE,
		match VARCHAR,
		orientation VARCHAR,
		dosage BIGINT,
		contribution DOUBLE,
		PRIMARY KEY (run_id, site_index)
	)`)
	return err
}
