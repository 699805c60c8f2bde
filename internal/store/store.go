// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists paper collections, cached embeddings, and ranking
// run history in a single SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-ranker/pkg/types"
)

// DefaultPath is the database location used when none is configured.
const DefaultPath = "data/paper-ranker.db"

// timeFormat keeps fractional seconds fixed-width so stored timestamps sort
// lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a collection or run does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			description TEXT,
			source TEXT,
			imported_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT,
			authors TEXT,
			abstract TEXT,
			url TEXT,
			PRIMARY KEY (collection, position)
		)`,
		`CREATE TABLE IF NOT EXISTS embeddings (
			model TEXT NOT NULL,
			text_hash TEXT NOT NULL,
			dim INTEGER NOT NULL,
			vector BLOB NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (model, text_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			interest TEXT,
			source TEXT,
			embedding_model TEXT,
			semantic_weight REAL,
			top_k INTEGER,
			total INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS run_results (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			rank INTEGER NOT NULL,
			title TEXT,
			authors TEXT,
			abstract TEXT,
			url TEXT,
			similarity_score REAL,
			rule_score REAL,
			final_score REAL,
			PRIMARY KEY (run_id, rank)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Collection describes a stored set of papers.
type Collection struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Source      string    `json:"source,omitempty" yaml:"source,omitempty"`
	ImportedAt  time.Time `json:"imported_at" yaml:"imported_at"`
	Papers      int       `json:"papers" yaml:"papers"`
}

// ImportCollection stores papers under name in input order, replacing any
// collection of the same name.
func (s *Store) ImportCollection(ctx context.Context, c Collection, papers []types.Paper) error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("collection name is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, c.Name); err != nil {
		return fmt.Errorf("removing old collection: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO collections (name, description, source, imported_at) VALUES (?, ?, ?, ?)`,
		c.Name, c.Description, c.Source, time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting collection: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (collection, position, title, authors, abstract, url) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range papers {
		if _, err := stmt.ExecContext(ctx, c.Name, i, p.Title, p.Authors, p.Abstract, p.URL); err != nil {
			return fmt.Errorf("inserting paper %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Collections lists stored collections by name with their paper counts.
func (s *Store) Collections(ctx context.Context) ([]Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.name, COALESCE(c.description, ''), COALESCE(c.source, ''), c.imported_at, COUNT(p.position)
		FROM collections c
		LEFT JOIN papers p ON p.collection = c.name
		GROUP BY c.name
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var out []Collection
	for rows.Next() {
		var (
			c        Collection
			imported string
		)
		if err := rows.Scan(&c.Name, &c.Description, &c.Source, &imported, &c.Papers); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		c.ImportedAt, _ = time.Parse(time.RFC3339Nano, imported)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CollectionPapers returns the papers of a collection in import order.
func (s *Store) CollectionPapers(ctx context.Context, name string) ([]types.Paper, error) {
	return s.queryPapers(ctx, name, "", 0)
}

// SearchPapers returns papers of a collection whose title or abstract
// contains query, case-insensitively, in import order. limit <= 0 means
// no limit.
func (s *Store) SearchPapers(ctx context.Context, name, query string, limit int) ([]types.Paper, error) {
	return s.queryPapers(ctx, name, query, limit)
}

func (s *Store) queryPapers(ctx context.Context, name, query string, limit int) ([]types.Paper, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM collections WHERE name = ?`, name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking collection: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("collection %q: %w", name, ErrNotFound)
	}

	var (
		qb   strings.Builder
		args = []any{name}
	)
	qb.WriteString(`SELECT COALESCE(title, ''), COALESCE(authors, ''), COALESCE(abstract, ''), COALESCE(url, '')
		FROM papers WHERE collection = ?`)
	if query != "" {
		pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
		qb.WriteString(` AND (lower(title) LIKE ? ESCAPE '\' OR lower(abstract) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	qb.WriteString(` ORDER BY position`)
	if limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	papers := []types.Paper{}
	for rows.Next() {
		var p types.Paper
		if err := rows.Scan(&p.Title, &p.Authors, &p.Abstract, &p.URL); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// DeleteCollection removes a collection and its papers.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("collection %q: %w", name, ErrNotFound)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
