// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest records which sources were converted successfully and
// from which content, so that incremental runs can skip unchanged files.
// Only successes are stored; a failed entry is always retried.
package manifest

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// FileName is the manifest database created inside the output directory.
const FileName = ".docmark.db"

// Record describes one successful conversion.
type Record struct {
	Source       string
	Digest       string
	Engine       string
	MarkdownPath string
	ConvertedAt  time.Time
}

// Store manages the manifest SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the manifest at outputDir/.docmark.db and creates
// the schema if it does not exist.
func Open(outputDir string) (*Store, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	dbPath := filepath.Join(outputDir, FileName)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating manifest schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			source TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			engine TEXT NOT NULL,
			markdown_path TEXT NOT NULL,
			converted_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Lookup returns the stored record for source, or nil when there is none.
func (s *Store) Lookup(ctx context.Context, source string) (*Record, error) {
	var (
		r  Record
		ts string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT source, digest, engine, markdown_path, converted_at FROM conversions WHERE source = ?`,
		source,
	).Scan(&r.Source, &r.Digest, &r.Engine, &r.MarkdownPath, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", source, err)
	}
	if r.ConvertedAt, err = time.Parse(time.RFC3339, ts); err != nil {
		return nil, fmt.Errorf("parsing timestamp for %s: %w", source, err)
	}
	return &r, nil
}

// Unchanged reports whether source was last converted from content with
// the given digest and its Markdown output still exists.
func (s *Store) Unchanged(ctx context.Context, source, digest string) (bool, error) {
	r, err := s.Lookup(ctx, source)
	if err != nil || r == nil {
		return false, err
	}
	if r.Digest != digest {
		return false, nil
	}
	if _, err := os.Stat(r.MarkdownPath); err != nil {
		return false, nil
	}
	return true, nil
}

// Put inserts or replaces the record for r.Source.
func (s *Store) Put(ctx context.Context, r Record) error {
	if r.ConvertedAt.IsZero() {
		r.ConvertedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (source, digest, engine, markdown_path, converted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			digest = excluded.digest,
			engine = excluded.engine,
			markdown_path = excluded.markdown_path,
			converted_at = excluded.converted_at`,
		r.Source, r.Digest, r.Engine, r.MarkdownPath, r.ConvertedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", r.Source, err)
	}
	return nil
}

// Digest returns the hex SHA-256 of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
