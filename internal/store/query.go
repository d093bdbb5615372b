package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/papapumpkin/resgraph/internal/importer"
	"github.com/papapumpkin/resgraph/internal/merge"
	"github.com/papapumpkin/resgraph/internal/resources"
)

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, graph_path, started_at, finished_at, modules, warnings
		FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("store: latest run: %w", ErrRunNotFound)
	}
	return runs[0], nil
}

// FindRun resolves a full run ID or a unique prefix of one.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (Run, error) {
	const q = `SELECT id, graph_path, started_at, finished_at, modules, warnings
		FROM runs WHERE id = ? OR id LIKE ? || '%' ORDER BY id LIMIT 2`
	rows, err := s.db.QueryContext(ctx, q, idOrPrefix, idOrPrefix)
	if err != nil {
		return Run{}, fmt.Errorf("store: find run %q: %w", idOrPrefix, err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		if r.ID == idOrPrefix {
			return r, nil
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("store: iterate runs: %w", err)
	}
	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("store: %q: %w", idOrPrefix, ErrRunNotFound)
	case 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("store: %q: %w", idOrPrefix, ErrAmbiguousRun)
	}
}

// LoadRun returns the stored results of a run, in pass order.
func (s *Store) LoadRun(ctx context.Context, idOrPrefix string) (Run, []*importer.Result, error) {
	run, err := s.FindRun(ctx, idOrPrefix)
	if err != nil {
		return Run{}, nil, err
	}
	results, err := s.loadPasses(ctx, run.ID)
	if err != nil {
		return Run{}, nil, err
	}
	byPass := make(map[string]*importer.Result, len(results))
	for _, res := range results {
		byPass[res.Pass] = res
	}
	if err := s.loadModules(ctx, run.ID, byPass); err != nil {
		return Run{}, nil, err
	}
	if err := loadLibraries(ctx, s.db, "archive_libraries", run.ID, byPass,
		func(r *importer.Result) map[resources.LibraryKey]resources.ArchiveLibrary { return r.ArchiveLibraries }); err != nil {
		return Run{}, nil, err
	}
	if err := loadLibraries(ctx, s.db, "resource_libraries", run.ID, byPass,
		func(r *importer.Result) map[resources.LibraryKey]resources.ResourceLibrary { return r.ResourceLibraries }); err != nil {
		return Run{}, nil, err
	}
	if err := s.loadWarnings(ctx, run.ID, byPass); err != nil {
		return Run{}, nil, err
	}
	return run, results, nil
}

func (s *Store) loadPasses(ctx context.Context, runID string) ([]*importer.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, stats, collisions FROM passes WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, fmt.Errorf("store: query passes: %w", err)
	}
	defer rows.Close()

	var results []*importer.Result
	for rows.Next() {
		var (
			res               importer.Result
			stats, collisions string
		)
		if err := rows.Scan(&res.Pass, &stats, &collisions); err != nil {
			return nil, fmt.Errorf("store: scan pass: %w", err)
		}
		if err := json.Unmarshal([]byte(stats), &res.Stats); err != nil {
			return nil, fmt.Errorf("store: decode stats for pass %s: %w", res.Pass, err)
		}
		var cs []merge.Collision
		if err := json.Unmarshal([]byte(collisions), &cs); err != nil {
			return nil, fmt.Errorf("store: decode collisions for pass %s: %w", res.Pass, err)
		}
		if len(cs) > 0 {
			res.Collisions = cs
		}
		res.ArchiveLibraries = make(map[resources.LibraryKey]resources.ArchiveLibrary)
		res.ResourceLibraries = make(map[resources.LibraryKey]resources.ResourceLibrary)
		results = append(results, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate passes: %w", err)
	}
	return results, nil
}

func (s *Store) loadModules(ctx context.Context, runID string, byPass map[string]*importer.Result) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT pass, data FROM resource_modules WHERE run_id = ? ORDER BY pass, position", runID)
	if err != nil {
		return fmt.Errorf("store: query modules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pass, data string
		if err := rows.Scan(&pass, &data); err != nil {
			return fmt.Errorf("store: scan module: %w", err)
		}
		var m resources.Module
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return fmt.Errorf("store: decode module: %w", err)
		}
		if res, ok := byPass[pass]; ok {
			res.ResourceModules = append(res.ResourceModules, m)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: iterate modules: %w", err)
	}
	return nil
}

func loadLibraries[L any](ctx context.Context, db *sql.DB, table, runID string, byPass map[string]*importer.Result,
	target func(*importer.Result) map[resources.LibraryKey]L) error {
	rows, err := db.QueryContext(ctx, "SELECT pass, key, data FROM "+table+" WHERE run_id = ?", runID)
	if err != nil {
		return fmt.Errorf("store: query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var pass, key, data string
		if err := rows.Scan(&pass, &key, &data); err != nil {
			return fmt.Errorf("store: scan %s: %w", table, err)
		}
		var lib L
		if err := json.Unmarshal([]byte(data), &lib); err != nil {
			return fmt.Errorf("store: decode %s %s: %w", table, key, err)
		}
		if res, ok := byPass[pass]; ok {
			target(res)[resources.LibraryKey(key)] = lib
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: iterate %s: %w", table, err)
	}
	return nil
}

func (s *Store) loadWarnings(ctx context.Context, runID string, byPass map[string]*importer.Result) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT pass, kind, message, subjects FROM warnings WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return fmt.Errorf("store: query warnings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			w        importer.Warning
			subjects string
		)
		if err := rows.Scan(&w.Pass, &w.Kind, &w.Message, &subjects); err != nil {
			return fmt.Errorf("store: scan warning: %w", err)
		}
		if err := json.Unmarshal([]byte(subjects), &w.Subjects); err != nil {
			return fmt.Errorf("store: decode warning subjects: %w", err)
		}
		if len(w.Subjects) == 0 {
			w.Subjects = nil
		}
		if res, ok := byPass[w.Pass]; ok {
			res.Warnings = append(res.Warnings, w)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: iterate warnings: %w", err)
	}
	return nil
}
