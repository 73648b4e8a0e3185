package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// hostChars strips characters that do not belong in a database file
// name derived from a forum host.
var hostChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Journal is the SQLite-backed crawl journal. One database file per
// forum host keeps unrelated boards' failure records apart.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens or creates the journal for the given forum host under
// dir.
func Open(dir, host string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	name := hostChars.ReplaceAllString(host, "_")
	if name == "" {
		name = "journal"
	}
	path := filepath.Join(dir, name+".db")

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// SQLite supports a single writer; keep the pool at one
	// connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	j := &Journal{db: db, path: path}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := j.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return j, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Path returns the journal database file path.
func (j *Journal) Path() string {
	return j.path
}

// createTables creates the journal schema if it does not exist.
func (j *Journal) createTables() error {
	schema := `
	-- Drops are tasks abandoned after fetch or parse failure.
	CREATE TABLE IF NOT EXISTS drops (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		target TEXT NOT NULL,
		url TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_drops_kind ON drops(kind);
	CREATE INDEX IF NOT EXISTS idx_drops_created ON drops(created_at);

	-- Incomplete documents were force-flushed with shards missing.
	CREATE TABLE IF NOT EXISTS incomplete (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL,
		path TEXT NOT NULL,
		remaining INTEGER NOT NULL,
		total INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_incomplete_key ON incomplete(key);
	`
	_, err := j.db.ExecContext(context.Background(), schema)
	return err
}

// RecordDrop stores one dropped task.
func (j *Journal) RecordDrop(ctx context.Context, kind, target, url, reason string) error {
	query := `INSERT INTO drops (kind, target, url, reason) VALUES (?, ?, ?, ?)`
	if _, err := j.db.ExecContext(ctx, query, kind, target, url, reason); err != nil {
		return fmt.Errorf("failed to record drop: %w", err)
	}
	return nil
}

// RecordIncomplete stores one force-flushed incomplete document.
func (j *Journal) RecordIncomplete(ctx context.Context, key, path string, remaining, total int) error {
	query := `INSERT INTO incomplete (key, path, remaining, total) VALUES (?, ?, ?, ?)`
	if _, err := j.db.ExecContext(ctx, query, key, path, remaining, total); err != nil {
		return fmt.Errorf("failed to record incomplete document: %w", err)
	}
	return nil
}

// Drop is one stored drop record.
type Drop struct {
	// ID is the record id.
	ID int64

	// Kind is the task kind (forum, topic, users, password, file).
	Kind string

	// Target identifies the task as logged.
	Target string

	// URL is the request URL the task would have fetched.
	URL string

	// Reason describes why the task was dropped.
	Reason string

	// CreatedAt is when the drop was recorded.
	CreatedAt time.Time
}

// Drops lists all stored drop records, newest first.
func (j *Journal) Drops(ctx context.Context) ([]Drop, error) {
	query := `
	SELECT id, kind, target, url, reason, created_at
	FROM drops ORDER BY created_at DESC, id DESC
	`
	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list drops: %w", err)
	}
	defer rows.Close()

	var drops []Drop
	for rows.Next() {
		var d Drop
		var created string
		if err := rows.Scan(&d.ID, &d.Kind, &d.Target, &d.URL, &d.Reason, &created); err != nil {
			return nil, fmt.Errorf("failed to scan drop: %w", err)
		}
		d.CreatedAt = parseTimestamp(created)
		drops = append(drops, d)
	}
	return drops, rows.Err()
}

// IncompleteDoc is one stored incomplete-document record.
type IncompleteDoc struct {
	// ID is the record id.
	ID int64

	// Key is the document key.
	Key string

	// Path is the document's breadcrumb path.
	Path string

	// Remaining is how many items were missing at flush time.
	Remaining int

	// Total is the expected item count.
	Total int

	// CreatedAt is when the flush was recorded.
	CreatedAt time.Time
}

// Incomplete lists all stored incomplete-document records, newest
// first.
func (j *Journal) Incomplete(ctx context.Context) ([]IncompleteDoc, error) {
	query := `
	SELECT id, key, path, remaining, total, created_at
	FROM incomplete ORDER BY created_at DESC, id DESC
	`
	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list incomplete documents: %w", err)
	}
	defer rows.Close()

	var docs []IncompleteDoc
	for rows.Next() {
		var d IncompleteDoc
		var created string
		if err := rows.Scan(&d.ID, &d.Key, &d.Path, &d.Remaining, &d.Total, &created); err != nil {
			return nil, fmt.Errorf("failed to scan incomplete document: %w", err)
		}
		d.CreatedAt = parseTimestamp(created)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// timestampFormats are the formats SQLite may return for DATETIME
// columns depending on configuration.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a SQLite timestamp, returning zero time when no
// format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
