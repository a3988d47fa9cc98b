package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrUnknownSource is returned for an adapter ID absent from the table.
var ErrUnknownSource = errors.New("unknown source")

// Source is one row of import_sources.
type Source struct {
	AdapterID   string
	Dataset     string
	Description string
	SourceURL   string
	License     string
	LastCheck   *time.Time
	LastStatus  *int
	LastError   *string
	LastImport  *time.Time
	LastForms   *int
	UpdatedAt   time.Time
}

// Healthy reports whether the last availability check answered 2xx or 3xx.
func (s Source) Healthy() bool {
	return s.LastStatus != nil && *s.LastStatus >= 200 && *s.LastStatus < 400
}

// SourceDB tracks import sources, their URL overrides and the outcome of
// checks and imports in SQLite.
type SourceDB struct {
	db *sql.DB
}

const sourcesDDL = `CREATE TABLE IF NOT EXISTS import_sources (
	adapter_id   TEXT PRIMARY KEY,
	dataset      TEXT NOT NULL,
	description  TEXT NOT NULL,
	source_url   TEXT NOT NULL,
	license      TEXT NOT NULL DEFAULT '',
	last_check   INTEGER,
	last_status  INTEGER,
	last_error   TEXT,
	last_import  INTEGER,
	last_forms   INTEGER,
	updated_at   INTEGER NOT NULL
)`

// OpenSourceDB opens or creates the database at path.
func OpenSourceDB(path string) (*SourceDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}
	if _, err := db.Exec(sourcesDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create import_sources: %w", err)
	}
	return &SourceDB{db: db}, nil
}

func (s *SourceDB) Close() error {
	return s.db.Close()
}

// Seed adds a row per adapter. Existing rows keep their URL so that
// operator overrides survive restarts.
func (s *SourceDB) Seed(ctx context.Context, adapters []Adapter) error {
	const q = `INSERT INTO import_sources
		(adapter_id, dataset, description, source_url, license, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(adapter_id) DO UPDATE SET
			dataset = excluded.dataset,
			description = excluded.description,
			license = excluded.license`

	now := time.Now().Unix()
	for _, a := range adapters {
		if _, err := s.db.ExecContext(ctx, q, a.ID(), a.Dataset(), a.Description(), a.DefaultURL(), a.License(), now); err != nil {
			return fmt.Errorf("seed %s: %w", a.ID(), err)
		}
	}
	return nil
}

// GetURL returns the URL an import of adapterID should fetch.
func (s *SourceDB) GetURL(ctx context.Context, adapterID string) (string, error) {
	var u string
	err := s.db.QueryRowContext(ctx, `SELECT source_url FROM import_sources WHERE adapter_id = ?`, adapterID).Scan(&u)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrUnknownSource, adapterID)
	}
	if err != nil {
		return "", fmt.Errorf("get url for %s: %w", adapterID, err)
	}
	return u, nil
}

// SetURL overrides the URL of adapterID.
func (s *SourceDB) SetURL(ctx context.Context, adapterID, url string) error {
	return s.update(ctx, adapterID,
		`UPDATE import_sources SET source_url = ?, updated_at = ? WHERE adapter_id = ?`,
		url, time.Now().Unix(), adapterID)
}

// RecordCheck stores the outcome of an availability check. status is 0
// when the request never got an answer.
func (s *SourceDB) RecordCheck(ctx context.Context, adapterID string, status int, checkErr error) error {
	var msg *string
	if checkErr != nil {
		m := checkErr.Error()
		msg = &m
	}
	return s.update(ctx, adapterID,
		`UPDATE import_sources SET last_check = ?, last_status = ?, last_error = ? WHERE adapter_id = ?`,
		time.Now().Unix(), status, msg, adapterID)
}

// RecordImport stores the time and size of a successful import.
func (s *SourceDB) RecordImport(ctx context.Context, adapterID string, stats Stats) error {
	return s.update(ctx, adapterID,
		`UPDATE import_sources SET last_import = ?, last_forms = ? WHERE adapter_id = ?`,
		time.Now().Unix(), stats.Forms, adapterID)
}

func (s *SourceDB) update(ctx context.Context, adapterID, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", adapterID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, adapterID)
	}
	return nil
}

// ListSources returns every row ordered by adapter ID.
func (s *SourceDB) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT adapter_id, dataset, description, source_url, license,
		last_check, last_status, last_error, last_import, last_forms, updated_at
		FROM import_sources ORDER BY adapter_id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var (
			src                   Source
			lastCheck, lastImport sql.NullInt64
			updated               int64
		)
		if err := rows.Scan(&src.AdapterID, &src.Dataset, &src.Description, &src.SourceURL, &src.License,
			&lastCheck, &src.LastStatus, &src.LastError, &lastImport, &src.LastForms, &updated); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.LastCheck = unixPtr(lastCheck)
		src.LastImport = unixPtr(lastImport)
		src.UpdatedAt = time.Unix(updated, 0)
		out = append(out, src)
	}
	return out, rows.Err()
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}
