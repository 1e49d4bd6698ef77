// Package store persists normalized records in SQLite.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/javajack/xlconsolidate/normalize"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "datos_escolares.db"

var schemaSQL = []string{`
CREATE TABLE IF NOT EXISTS school_records (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	schema_name  TEXT NOT NULL,
	concept      TEXT NOT NULL,
	concept_type TEXT NOT NULL DEFAULT '',
	grade        TEXT NOT NULL,
	gender       TEXT NOT NULL CHECK (gender IN ('H', 'M')),
	value        REAL NOT NULL DEFAULT 0,
	record_type  TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE INDEX IF NOT EXISTS school_records_run ON school_records (run_id)`,
}

const insertSQL = `
INSERT INTO school_records (run_id, source, schema_name, concept, concept_type, grade, gender, value, record_type)
VALUES (:run_id, :source, :schema_name, :concept, :concept_type, :grade, :gender, :value, :record_type)`

// Total is the sum of one (concept, grade, gender) cell over a run.
type Total struct {
	Concept string  `db:"concept"`
	Grade   string  `db:"grade"`
	Gender  string  `db:"gender"`
	Total   float64 `db:"total"`
}

// Run summarizes one stored run.
type Run struct {
	RunID   string  `db:"run_id"`
	Sources int     `db:"sources"`
	Records int     `db:"records"`
	Total   float64 `db:"total"`
}

// Option configures a store.
type Option func(*SQLite)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *SQLite) { s.log = l }
}

// SQLite is a record sink backed by a SQLite file.
type SQLite struct {
	db  *sqlx.DB
	log *zap.Logger
}

var _ normalize.Sink = (*SQLite)(nil)

// Open connects to the database at path and creates the schema if needed.
func Open(ctx context.Context, path string, opts ...Option) (*SQLite, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	for _, q := range schemaSQL {
		if _, err := db.ExecContext(ctx, q); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	s := &SQLite{db: db, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save inserts records in a single transaction.
func (s *SQLite) Save(ctx context.Context, records []normalize.Record) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareNamedContext(ctx, insertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := range records {
		if _, err = stmt.ExecContext(ctx, records[i]); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	s.log.Info("records saved", zap.Int("records", len(records)), zap.String("run", records[0].RunID))
	return nil
}

// Totals sums the values of a run by concept, grade and gender, in the order
// the cells were first stored.
func (s *SQLite) Totals(ctx context.Context, runID uuid.UUID) ([]Total, error) {
	var out []Total
	err := s.db.SelectContext(ctx, &out, `
		SELECT concept, grade, gender, SUM(value) AS total
		FROM school_records
		WHERE run_id = ?
		GROUP BY concept, grade, gender
		ORDER BY MIN(id)
	`, runID.String())
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Runs lists stored runs, most recent first.
func (s *SQLite) Runs(ctx context.Context) ([]Run, error) {
	var out []Run
	err := s.db.SelectContext(ctx, &out, `
		SELECT run_id, COUNT(DISTINCT source) AS sources, COUNT(*) AS records, SUM(value) AS total
		FROM school_records
		GROUP BY run_id
		ORDER BY MAX(id) DESC
	`)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of records stored for a run.
func (s *SQLite) Count(ctx context.Context, runID uuid.UUID) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM school_records WHERE run_id = ?`, runID.String())
	return n, err
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
