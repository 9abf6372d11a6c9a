// Package journal keeps a local SQLite history of sync runs and the outcome
// of every operation they executed.
package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/agentstation/rbxproducts/pkg/constants"
	"github.com/agentstation/rbxproducts/pkg/errors"
	"github.com/agentstation/rbxproducts/pkg/executor"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	command     TEXT NOT NULL,
	file        TEXT NOT NULL,
	universe_id INTEGER NOT NULL,
	dry_run     INTEGER NOT NULL DEFAULT 0,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER,
	created     INTEGER NOT NULL DEFAULT 0,
	updated     INTEGER NOT NULL DEFAULT 0,
	noops       INTEGER NOT NULL DEFAULT 0,
	conflicts   INTEGER NOT NULL DEFAULT 0,
	declined    INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	cancelled   INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS operations (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	category    TEXT NOT NULL,
	entry_key   TEXT NOT NULL,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL,
	record_id   INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	transient   INTEGER NOT NULL DEFAULT 0,
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS operations_run ON operations(run_id, seq);
`

// Run is one journaled invocation.
type Run struct {
	ID         string     `json:"id" yaml:"id"`
	Command    string     `json:"command" yaml:"command"`
	File       string     `json:"file" yaml:"file"`
	UniverseID uint64     `json:"universe_id" yaml:"universe_id"`
	DryRun     bool       `json:"dry_run" yaml:"dry_run"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Created    int        `json:"created" yaml:"created"`
	Updated    int        `json:"updated" yaml:"updated"`
	NoOps      int        `json:"noops" yaml:"noops"`
	Conflicts  int        `json:"conflicts" yaml:"conflicts"`
	Declined   int        `json:"declined" yaml:"declined"`
	Failed     int        `json:"failed" yaml:"failed"`
	Cancelled  int        `json:"cancelled" yaml:"cancelled"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Finished reports whether the run recorded its end.
func (r Run) Finished() bool {
	return r.FinishedAt != nil
}

// Entry is one journaled operation outcome.
type Entry struct {
	Seq        int64     `json:"seq" yaml:"seq"`
	RunID      string    `json:"run_id" yaml:"run_id"`
	Category   string    `json:"category" yaml:"category"`
	Key        string    `json:"key" yaml:"key"`
	Kind       string    `json:"kind" yaml:"kind"`
	Status     string    `json:"status" yaml:"status"`
	RecordID   uint64    `json:"record_id,omitempty" yaml:"record_id,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	Transient  bool      `json:"transient,omitempty" yaml:"transient,omitempty"`
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// Store persists runs in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &errors.ValidationError{Field: "journal", Message: "path is required"}
	}
	clean := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(clean), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", filepath.Dir(clean), err)
	}

	db, err := sql.Open("sqlite", clean+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, errors.WrapIO("open", clean, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("open", clean, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("migrate", clean, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun records the start of a run and returns its id.
func (s *Store) StartRun(ctx context.Context, command, file string, universeID uint64, dryRun bool) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, file, universe_id, dry_run, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, command, file, int64(universeID), dryRun, s.now().UnixMilli())
	if err != nil {
		return "", errors.WrapIO("insert", "run", err)
	}
	return id, nil
}

// RecordOutcome appends one operation outcome to a run.
func (s *Store) RecordOutcome(ctx context.Context, runID string, o executor.Outcome) error {
	var recordID uint64
	if o.Record != nil {
		recordID = o.Record.ID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (run_id, category, entry_key, kind, status, record_id, error, transient, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.Operation.Category.String(), o.Operation.Key, string(o.Operation.Kind), string(o.Status),
		int64(recordID), o.Error, o.Transient, s.now().UnixMilli())
	if err != nil {
		return errors.WrapIO("insert", "operation", err)
	}
	return nil
}

// FinishRun stores the final counts of a run. report may be nil when the
// run failed before executing anything.
func (s *Store) FinishRun(ctx context.Context, runID string, report *executor.Report, runErr error) error {
	var r executor.Report
	if report != nil {
		r = *report
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	} else if r.Fatal != nil {
		msg = r.Fatal.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, created = ?, updated = ?, noops = ?, conflicts = ?,
		   declined = ?, failed = ?, cancelled = ?, error = ?
		 WHERE id = ?`,
		s.now().UnixMilli(), r.Created, r.Updated, r.NoOps, r.Conflicts,
		r.Declined, r.Failed, r.Cancelled, msg, runID)
	if err != nil {
		return errors.WrapIO("update", "run", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("run", runID)
	}
	return nil
}

// History returns the most recent runs, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = constants.HistoryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, file, universe_id, dry_run, started_at, finished_at,
		        created, updated, noops, conflicts, declined, failed, cancelled, error
		   FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.WrapIO("query", "runs", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			universeID int64
			started    int64
			finished   sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Command, &r.File, &universeID, &r.DryRun, &started, &finished,
			&r.Created, &r.Updated, &r.NoOps, &r.Conflicts, &r.Declined, &r.Failed, &r.Cancelled, &r.Error); err != nil {
			return nil, errors.WrapIO("scan", "runs", err)
		}
		r.UniverseID = uint64(universeID)
		r.StartedAt = time.UnixMilli(started).UTC()
		if finished.Valid {
			t := time.UnixMilli(finished.Int64).UTC()
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapIO("query", "runs", err)
	}
	return runs, nil
}

// Entries returns the operations recorded for a run in the order they were
// recorded.
func (s *Store) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, run_id, category, entry_key, kind, status, record_id, error, transient, recorded_at
		   FROM operations WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, errors.WrapIO("query", "operations", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			recordID int64
			recorded int64
		)
		if err := rows.Scan(&e.Seq, &e.RunID, &e.Category, &e.Key, &e.Kind, &e.Status, &recordID, &e.Error, &e.Transient, &recorded); err != nil {
			return nil, errors.WrapIO("scan", "operations", err)
		}
		e.RecordID = uint64(recordID)
		e.RecordedAt = time.UnixMilli(recorded).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapIO("query", "operations", err)
	}
	return out, nil
}

// ResolveRun expands a run id prefix to the full id. The prefix must match
// exactly one run.
func (s *Store) ResolveRun(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", errors.NewValidationError("run", prefix, "run id is required")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", errors.WrapIO("query", "runs", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", errors.WrapIO("scan", "runs", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", errors.WrapIO("query", "runs", err)
	}
	switch len(ids) {
	case 0:
		return "", errors.NewNotFoundError("run", prefix)
	case 1:
		return ids[0], nil
	default:
		return "", errors.NewValidationError("run", prefix, "prefix matches more than one run")
	}
}
