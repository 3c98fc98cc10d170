package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tracuu/internal/registry"
	"tracuu/internal/resolve"
	"tracuu/internal/taxid"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing caches must be deleted after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the cache schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Entry is one cached terminal outcome, keyed by canonical identifier.
type Entry struct {
	Identifier  string
	DisplayName string
	Link        string
	APIName     string
	APISource   string
	APILink     string
	APIError    string
	Status      string
	Source      string
	ErrorTrail  string
	RecordJSON  string
	RunID       string
	UpdatedAt   time.Time
}

// Resolved reports whether the cached outcome was a success.
func (e *Entry) Resolved() bool {
	return e != nil && resolve.IsSuccessStatus(e.Status)
}

// Outcome rebuilds the resolution outcome this entry was saved from.
// Tier failures are not round-tripped; cached failures are kept for
// statistics, not replay.
func (e *Entry) Outcome() (*resolve.Outcome, error) {
	out := &resolve.Outcome{
		Identifier:  e.Identifier,
		DisplayName: e.DisplayName,
		Link:        e.Link,
		APIName:     e.APIName,
		APISource:   e.APISource,
		APILink:     e.APILink,
		APIError:    e.APIError,
		Status:      e.Status,
		Source:      e.Source,
	}
	rec, err := unmarshalRecord(e.RecordJSON)
	if err != nil {
		return nil, fmt.Errorf("decode cached record for %s: %w", e.Identifier, err)
	}
	if rec == nil && e.Resolved() {
		// Successes with no stored attributes replay with an empty
		// record so consumers never see a nil one.
		rec = registry.NewRecord()
	}
	out.Record = rec
	return out, nil
}

// FromOutcome converts a terminal outcome into a cache entry.
func FromOutcome(runID string, out *resolve.Outcome) (Entry, error) {
	recordJSON, err := marshalRecord(out.Record)
	if err != nil {
		return Entry{}, fmt.Errorf("encode record for %s: %w", out.Identifier, err)
	}
	return Entry{
		Identifier:  out.Identifier,
		DisplayName: out.DisplayName,
		Link:        out.Link,
		APIName:     out.APIName,
		APISource:   out.APISource,
		APILink:     out.APILink,
		APIError:    out.APIError,
		Status:      out.Status,
		Source:      out.Source,
		ErrorTrail:  out.ErrorTrail(),
		RecordJSON:  recordJSON,
		RunID:       runID,
	}, nil
}

// Store persists resolution outcomes in SQLite so later runs can skip
// network work for identifiers already resolved.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the cache database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: cache has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Save upserts one entry keyed by its canonical identifier.
func (s *Store) Save(ctx context.Context, entry Entry) error {
	entry.Identifier = taxid.Normalize(entry.Identifier)
	if entry.Identifier == "" {
		return errors.New("entry identifier is empty")
	}
	if entry.Status == "" {
		return errors.New("entry status is empty")
	}
	entry.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO resolutions (
            identifier, display_name, link, api_name, api_source, api_link,
            api_error, status, source, error_trail, record_json, run_id, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(identifier) DO UPDATE SET
            display_name = excluded.display_name,
            link = excluded.link,
            api_name = excluded.api_name,
            api_source = excluded.api_source,
            api_link = excluded.api_link,
            api_error = excluded.api_error,
            status = excluded.status,
            source = excluded.source,
            error_trail = excluded.error_trail,
            record_json = excluded.record_json,
            run_id = excluded.run_id,
            updated_at = excluded.updated_at`,
		entry.Identifier,
		nullableString(entry.DisplayName),
		nullableString(entry.Link),
		nullableString(entry.APIName),
		nullableString(entry.APISource),
		nullableString(entry.APILink),
		nullableString(entry.APIError),
		entry.Status,
		nullableString(entry.Source),
		nullableString(entry.ErrorTrail),
		nullableString(entry.RecordJSON),
		nullableString(entry.RunID),
		entry.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save entry: %w", err)
	}
	return nil
}

// Lookup fetches the entry for an identifier, nil when absent.
func (s *Store) Lookup(ctx context.Context, identifier string) (*Entry, error) {
	identifier = taxid.Normalize(identifier)
	if identifier == "" {
		return nil, nil
	}

	row := s.db.QueryRowContext(
		ctx,
		`SELECT identifier, display_name, link, api_name, api_source, api_link,
            api_error, status, source, error_trail, record_json, run_id, updated_at
         FROM resolutions WHERE identifier = ?`,
		identifier,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup entry: %w", err)
	}
	return entry, nil
}

// Stats summarizes the cache contents for diagnostic output.
type Stats struct {
	Path      string
	SizeBytes int64
	Total     int
	Resolved  int
	Failed    int
	ByStatus  map[string]int
	Newest    time.Time
}

// Stats returns entry counts grouped by status plus file-level details.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: s.path, ByStatus: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM resolutions GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
		if resolve.IsSuccessStatus(status) {
			stats.Resolved += count
		} else {
			stats.Failed += count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	var newest sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM resolutions`).Scan(&newest); err != nil {
		return Stats{}, fmt.Errorf("cache newest: %w", err)
	}
	if newest.Valid {
		if t, err := time.Parse(time.RFC3339Nano, newest.String); err == nil {
			stats.Newest = t
		}
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}

// Purge deletes every entry and reports how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM resolutions`)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		identifier  string
		displayName sql.NullString
		link        sql.NullString
		apiName     sql.NullString
		apiSource   sql.NullString
		apiLink     sql.NullString
		apiError    sql.NullString
		status      string
		source      sql.NullString
		errorTrail  sql.NullString
		recordJSON  sql.NullString
		runID       sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&identifier,
		&displayName,
		&link,
		&apiName,
		&apiSource,
		&apiLink,
		&apiError,
		&status,
		&source,
		&errorTrail,
		&recordJSON,
		&runID,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		Identifier:  identifier,
		DisplayName: displayName.String,
		Link:        link.String,
		APIName:     apiName.String,
		APISource:   apiSource.String,
		APILink:     apiLink.String,
		APIError:    apiError.String,
		Status:      status,
		Source:      source.String,
		ErrorTrail:  errorTrail.String,
		RecordJSON:  recordJSON.String,
		RunID:       runID.String,
	}
	if updatedRaw.Valid {
		if t, err := time.Parse(time.RFC3339Nano, updatedRaw.String); err == nil {
			entry.UpdatedAt = t
		}
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func marshalRecord(rec *registry.Record) (string, error) {
	if rec == nil || rec.Len() == 0 {
		return "", nil
	}
	pairs := make([][2]string, 0, rec.Len())
	for _, key := range rec.Keys() {
		value, _ := rec.Get(key)
		pairs = append(pairs, [2]string{key, value})
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalRecord(encoded string) (*registry.Record, error) {
	if strings.TrimSpace(encoded) == "" {
		return nil, nil
	}
	var pairs [][2]string
	if err := json.Unmarshal([]byte(encoded), &pairs); err != nil {
		return nil, err
	}
	rec := registry.NewRecord()
	for _, pair := range pairs {
		rec.Set(pair[0], pair[1])
	}
	return rec, nil
}
