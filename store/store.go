// Package store keeps the conversion log in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Status values for Conversion.Status.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// timeLayout is fixed-width so created_at sorts and compares as text.
const timeLayout = "2006-01-02T15:04:05.000Z"

// ErrNotFound is returned when a conversion ID does not exist.
var ErrNotFound = errors.New("store: conversion not found")

// Conversion represents a row in the conversions table.
type Conversion struct {
	ID           string    `json:"id"`
	Tool         string    `json:"tool"`
	Filename     string    `json:"filename"`
	OutputFormat string    `json:"output_format,omitempty"`
	InputBytes   int64     `json:"input_bytes"`
	OutputBytes  int64     `json:"output_bytes"`
	Pages        int       `json:"pages"`
	Mode         string    `json:"mode,omitempty"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToolStat aggregates conversions for one tool.
type ToolStat struct {
	Tool          string  `json:"tool"`
	Count         int     `json:"count"`
	Failures      int     `json:"failures"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// DBStats summarises the whole log.
type DBStats struct {
	Conversions int   `json:"conversions"`
	Failures    int   `json:"failures"`
	InputBytes  int64 `json:"input_bytes"`
	OutputBytes int64 `json:"output_bytes"`
}

// Store wraps the SQLite database for the conversion log.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and brings
// the schema up to date.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Conversion operations ---

// RecordConversion inserts c and returns its ID. A missing ID is generated
// and a zero CreatedAt is set to now.
func (s *Store) RecordConversion(ctx context.Context, c Conversion) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.Status == "" {
		c.Status = StatusOK
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversions (id, tool, filename, output_format, input_bytes, output_bytes,
			pages, mode, status, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Tool, c.Filename, c.OutputFormat, c.InputBytes, c.OutputBytes,
		c.Pages, c.Mode, c.Status, c.Error, c.DurationMS, formatTime(c.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("recording conversion: %w", err)
	}
	return c.ID, nil
}

const conversionColumns = `id, tool, filename, output_format, input_bytes, output_bytes,
	pages, mode, status, error, duration_ms, created_at`

// GetConversion retrieves a conversion by ID.
func (s *Store) GetConversion(ctx context.Context, id string) (*Conversion, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+conversionColumns+" FROM conversions WHERE id = ?", id)
	c, err := scanConversion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListConversions returns up to limit conversions, newest first. A
// non-positive limit returns every row.
func (s *Store) ListConversions(ctx context.Context, limit int) ([]Conversion, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+conversionColumns+" FROM conversions ORDER BY created_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ToolStats returns per-tool counts ordered by tool name.
func (s *Store) ToolStats(ctx context.Context) ([]ToolStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool, COUNT(*),
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
			AVG(duration_ms)
		FROM conversions GROUP BY tool ORDER BY tool
	`, StatusFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []ToolStat
	for rows.Next() {
		var st ToolStat
		if err := rows.Scan(&st.Tool, &st.Count, &st.Failures, &st.AvgDurationMS); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// DBStats returns totals across the whole log.
func (s *Store) DBStats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(input_bytes), 0),
			COALESCE(SUM(output_bytes), 0)
		FROM conversions
	`, StatusFailed).Scan(&stats.Conversions, &stats.Failures, &stats.InputBytes, &stats.OutputBytes)
	if err != nil {
		return nil, fmt.Errorf("computing stats: %w", err)
	}
	return stats, nil
}

// DeleteBefore removes conversions created before t and returns how many
// rows were deleted.
func (s *Store) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversions WHERE created_at < ?", formatTime(t))
	if err != nil {
		return 0, fmt.Errorf("deleting old conversions: %w", err)
	}
	return res.RowsAffected()
}

// --- helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func scanConversion(row scanner) (*Conversion, error) {
	var c Conversion
	var created string
	if err := row.Scan(&c.ID, &c.Tool, &c.Filename, &c.OutputFormat, &c.InputBytes, &c.OutputBytes,
		&c.Pages, &c.Mode, &c.Status, &c.Error, &c.DurationMS, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	c.CreatedAt = t
	return &c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
