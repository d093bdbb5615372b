// Package store persists import runs in a local SQLite database so earlier
// results can be listed and inspected without re-importing.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/resgraph/internal/importer"
	"github.com/papapumpkin/resgraph/internal/resources"
)

var (
	// ErrRunNotFound is returned when no stored run matches an ID.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when an ID prefix matches several runs.
	ErrAmbiguousRun = errors.New("run id prefix is ambiguous")
)

// schema is executed on every open.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    graph_path  TEXT NOT NULL,
    started_at  TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    modules     INTEGER NOT NULL DEFAULT 0,
    warnings    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS passes (
    run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position   INTEGER NOT NULL,
    name       TEXT NOT NULL,
    stats      TEXT NOT NULL,
    collisions TEXT NOT NULL DEFAULT '[]',
    PRIMARY KEY (run_id, name)
);

CREATE TABLE IF NOT EXISTS resource_modules (
    run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    pass      TEXT NOT NULL,
    position  INTEGER NOT NULL,
    label     TEXT NOT NULL,
    namespace TEXT NOT NULL,
    data      TEXT NOT NULL,
    PRIMARY KEY (run_id, pass, label)
);

CREATE TABLE IF NOT EXISTS archive_libraries (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    pass   TEXT NOT NULL,
    key    TEXT NOT NULL,
    data   TEXT NOT NULL,
    PRIMARY KEY (run_id, pass, key)
);

CREATE TABLE IF NOT EXISTS resource_libraries (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    pass   TEXT NOT NULL,
    key    TEXT NOT NULL,
    data   TEXT NOT NULL,
    PRIMARY KEY (run_id, pass, key)
);

CREATE TABLE IF NOT EXISTS warnings (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    pass     TEXT NOT NULL,
    kind     TEXT NOT NULL,
    message  TEXT NOT NULL,
    subjects TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_resource_modules_namespace ON resource_modules(namespace);
`

// Run summarizes one stored import run.
type Run struct {
	ID         string    `json:"id"`
	GraphPath  string    `json:"graph_path"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Modules    int       `json:"modules"`
	Warnings   int       `json:"warnings"`
}

// Store is a SQLite-backed run history.
type Store struct {
	db    *sql.DB
	newID func() string
}

// Open opens (or creates) the database at path in WAL mode and creates the
// schema if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite has a single writer; one connection keeps the pragmas below in
	// effect for every statement.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Store{db: db, newID: uuid.NewString}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores the results of one import in a single transaction and
// returns the stored summary. The module and warning counts are derived from
// results; an empty run.ID is replaced by a fresh one.
func (s *Store) SaveRun(ctx context.Context, run Run, results []*importer.Result) (Run, error) {
	if run.ID == "" {
		run.ID = s.newID()
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()
	run.Modules, run.Warnings = 0, 0
	for _, res := range results {
		run.Modules += len(res.ResourceModules)
		run.Warnings += len(res.Warnings)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const insertRun = `INSERT INTO runs (id, graph_path, started_at, finished_at, modules, warnings)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertRun, run.ID, run.GraphPath,
		formatTimestamp(run.StartedAt), formatTimestamp(run.FinishedAt), run.Modules, run.Warnings); err != nil {
		return Run{}, fmt.Errorf("store: insert run %s: %w", run.ID, err)
	}

	for i, res := range results {
		if err := savePass(ctx, tx, run.ID, i, res); err != nil {
			return Run{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("store: commit run %s: %w", run.ID, err)
	}
	return run, nil
}

func savePass(ctx context.Context, tx *sql.Tx, runID string, position int, res *importer.Result) error {
	stats, err := json.Marshal(res.Stats)
	if err != nil {
		return fmt.Errorf("store: encode stats for pass %s: %w", res.Pass, err)
	}
	collisions, err := json.Marshal(nonNil(res.Collisions))
	if err != nil {
		return fmt.Errorf("store: encode collisions for pass %s: %w", res.Pass, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO passes (run_id, position, name, stats, collisions) VALUES (?, ?, ?, ?, ?)",
		runID, position, res.Pass, string(stats), string(collisions)); err != nil {
		return fmt.Errorf("store: insert pass %s: %w", res.Pass, err)
	}

	for i, m := range res.ResourceModules {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("store: encode module %s: %w", m.Label, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO resource_modules (run_id, pass, position, label, namespace, data) VALUES (?, ?, ?, ?, ?, ?)",
			runID, res.Pass, i, m.Label.String(), m.Namespace, string(data)); err != nil {
			return fmt.Errorf("store: insert module %s: %w", m.Label, err)
		}
	}

	if err := saveLibraries(ctx, tx, "archive_libraries", runID, res.Pass, res.ArchiveLibraries); err != nil {
		return err
	}
	if err := saveLibraries(ctx, tx, "resource_libraries", runID, res.Pass, res.ResourceLibraries); err != nil {
		return err
	}

	for _, w := range res.Warnings {
		subjects, err := json.Marshal(nonNil(w.Subjects))
		if err != nil {
			return fmt.Errorf("store: encode warning subjects: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO warnings (run_id, pass, kind, message, subjects) VALUES (?, ?, ?, ?, ?)",
			runID, res.Pass, w.Kind, w.Message, string(subjects)); err != nil {
			return fmt.Errorf("store: insert warning: %w", err)
		}
	}
	return nil
}

// table is one of the two library tables; it is never user input.
func saveLibraries[L any](ctx context.Context, tx *sql.Tx, table, runID, pass string, libs map[resources.LibraryKey]L) error {
	q := "INSERT INTO " + table + " (run_id, pass, key, data) VALUES (?, ?, ?, ?)"
	for key, lib := range libs {
		data, err := json.Marshal(lib)
		if err != nil {
			return fmt.Errorf("store: encode library %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, q, runID, pass, string(key), string(data)); err != nil {
			return fmt.Errorf("store: insert %s %s: %w", table, key, err)
		}
	}
	return nil
}

// DeleteRun removes a run and everything stored with it.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("store: delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete run rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: delete run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r                 Run
		started, finished string
	)
	if err := row.Scan(&r.ID, &r.GraphPath, &started, &finished, &r.Modules, &r.Warnings); err != nil {
		return Run{}, fmt.Errorf("store: scan run: %w", err)
	}
	var err error
	if r.StartedAt, err = parseTimestamp(started); err != nil {
		return Run{}, fmt.Errorf("store: run %s: %w", r.ID, err)
	}
	if r.FinishedAt, err = parseTimestamp(finished); err != nil {
		return Run{}, fmt.Errorf("store: run %s: %w", r.ID, err)
	}
	return r, nil
}

// Timestamps are written as fixed-width UTC text so they sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats lists the layouts parseTimestamp accepts, so rows written
// by hand with CURRENT_TIMESTAMP still load.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.DateTime,
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
