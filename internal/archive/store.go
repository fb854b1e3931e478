// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists extracted publication records in SQLite so
// repeated searches can be inspected without refetching. Only records are
// stored; fetched pages are never cached.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/scholarly/internal/scholar"
	"github.com/pdiddy/scholarly/pkg/types"
)

// Record is one archived publication.
type Record struct {
	Query     string            `json:"query" yaml:"query"`
	Title     string            `json:"title" yaml:"title"`
	URL       string            `json:"url,omitempty" yaml:"url,omitempty"`
	Author    string            `json:"author,omitempty" yaml:"author,omitempty"`
	Abstract  string            `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Eprint    string            `json:"eprint,omitempty" yaml:"eprint,omitempty"`
	CitedBy   *scholar.Citation `json:"cited_by,omitempty" yaml:"cited_by,omitempty"`
	BibURL    string            `json:"bib_url,omitempty" yaml:"bib_url,omitempty"`
	Filled    bool              `json:"filled" yaml:"filled"`
	Extra     map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
	FetchedAt time.Time         `json:"fetched_at" yaml:"fetched_at"`
}

// Store manages the archive database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the archive database at cfg.Path and creates the
// schema if it does not exist.
func Open(cfg types.ArchiveConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("archive path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
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
		`CREATE TABLE IF NOT EXISTS publications (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			author TEXT,
			abstract TEXT,
			eprint TEXT,
			cited_by INTEGER,
			cites_id TEXT,
			bib_url TEXT,
			filled INTEGER NOT NULL DEFAULT 0,
			extra TEXT,
			fetched_at TEXT NOT NULL,
			UNIQUE(query, title, url)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_publications_query ON publications(query)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores pubs under query in one transaction. A publication already
// archived for the same query, title and url is replaced. It returns the
// number of rows written.
func (s *Store) Save(ctx context.Context, query string, pubs []*scholar.Publication) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO publications (query, title, url, author, abstract, eprint, cited_by, cites_id, bib_url, filled, extra, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(query, title, url) DO UPDATE SET
			author=excluded.author, abstract=excluded.abstract, eprint=excluded.eprint,
			cited_by=excluded.cited_by, cites_id=excluded.cites_id, bib_url=excluded.bib_url,
			filled=excluded.filled, extra=excluded.extra, fetched_at=excluded.fetched_at`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	fetchedAt := s.now().UTC().Format(time.RFC3339Nano)
	for _, p := range pubs {
		var (
			citedBy sql.NullInt64
			citesID sql.NullString
		)
		if p.CitedBy != nil {
			citedBy = sql.NullInt64{Int64: int64(p.CitedBy.Count), Valid: true}
			citesID = sql.NullString{String: p.CitedBy.ID, Valid: true}
		}
		extraJSON, err := json.Marshal(p.Bib.Extra)
		if err != nil {
			return 0, fmt.Errorf("encoding extra fields of %q: %w", p.Bib.Title, err)
		}
		_, err = stmt.ExecContext(ctx,
			query, p.Bib.Title, p.Bib.URL, p.Bib.Author, p.Bib.Abstract, p.Bib.Eprint,
			citedBy, citesID, p.BibURL, p.Filled(), string(extraJSON), fetchedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting %q: %w", p.Bib.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return len(pubs), nil
}

// Count returns the number of archived records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM publications`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting publications: %w", err)
	}
	return n, nil
}

// List returns the records archived under query in insertion order. An
// empty query lists every record.
func (s *Store) List(ctx context.Context, query string) ([]Record, error) {
	q := `SELECT query, title, url, author, abstract, eprint, cited_by, cites_id, bib_url, filled, extra, fetched_at
		FROM publications`
	var args []any
	if query != "" {
		q += ` WHERE query = ?`
		args = append(args, query)
	}
	q += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying publications: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                                Record
			author, abstract, eprint, bibURL sql.NullString
			citesID, extraJSON               sql.NullString
			citedBy                          sql.NullInt64
			fetchedAt                        string
		)
		if err := rows.Scan(&r.Query, &r.Title, &r.URL, &author, &abstract, &eprint,
			&citedBy, &citesID, &bibURL, &r.Filled, &extraJSON, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scanning publication: %w", err)
		}
		r.Author, r.Abstract, r.Eprint, r.BibURL = author.String, abstract.String, eprint.String, bibURL.String
		if citedBy.Valid {
			r.CitedBy = &scholar.Citation{Count: int(citedBy.Int64), ID: citesID.String}
		}
		if extraJSON.Valid && extraJSON.String != "" && extraJSON.String != "null" {
			if err := json.Unmarshal([]byte(extraJSON.String), &r.Extra); err != nil {
				return nil, fmt.Errorf("decoding extra fields of %q: %w", r.Title, err)
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, fetchedAt); err == nil {
			r.FetchedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
