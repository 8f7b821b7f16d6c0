// Package history persists audit run summaries and patch outcomes in a local
// SQLite database so past runs can be reviewed after the fact.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// startedAtLayout is the stored timestamp format (RFC 3339, UTC).
const startedAtLayout = time.RFC3339

// RunRecord is one audit run's summary as stored in the database.
type RunRecord struct {
	ID                   string
	StartedAt            time.Time
	BaseURL              string
	IncludeInactive      bool
	Mode                 string
	UsersTotal           int
	UsersWithExtension   int
	DistinctNumbers      int
	ExtensionsLoaded     int
	DuplicateAssignments int
	DuplicateRecords     int
	Discrepancies        int
	MissingAssignments   int
}

// PatchRow is one repair outcome as stored in the database. Outcome is the
// row's terminal status or skip reason; Detail carries the error message for
// failed rows.
type PatchRow struct {
	UserID    string
	User      string
	Extension string
	Outcome   string
	Detail    string
	Version   int
}

// Store is a SQLite-backed run-history store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the history database at path and applies
// pending schema migrations. Use ":memory:" for tests.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: opening %s: %w", path, err)
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()

		return nil, fmt.Errorf("history: setting pragmas: %w", err)
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()

		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts one run summary. A blank ID is filled with a fresh UUID.
// Returns the run's ID.
func (s *Store) RecordRun(ctx context.Context, rec RunRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	const q = `INSERT INTO runs (
		id, started_at, base_url, include_inactive, mode,
		users_total, users_with_extension, distinct_numbers, extensions_loaded,
		duplicate_assignments, duplicate_records, discrepancies, missing_assignments
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		rec.ID,
		rec.StartedAt.UTC().Format(startedAtLayout),
		rec.BaseURL,
		boolToInt(rec.IncludeInactive),
		rec.Mode,
		rec.UsersTotal,
		rec.UsersWithExtension,
		rec.DistinctNumbers,
		rec.ExtensionsLoaded,
		rec.DuplicateAssignments,
		rec.DuplicateRecords,
		rec.Discrepancies,
		rec.MissingAssignments,
	)
	if err != nil {
		return "", fmt.Errorf("history: recording run: %w", err)
	}

	s.logger.Debug("run recorded", slog.String("run_id", rec.ID))

	return rec.ID, nil
}

// RecordPatchRows inserts the patch outcomes of one run in a single
// transaction.
func (s *Store) RecordPatchRows(ctx context.Context, runID string, rows []PatchRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const q = `INSERT INTO patch_rows (run_id, user_id, user_display, extension, outcome, detail, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, q, runID, r.UserID, r.User, r.Extension, r.Outcome, r.Detail, r.Version); err != nil {
			return fmt.Errorf("history: recording patch row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: committing patch rows: %w", err)
	}

	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	const q = `SELECT id, started_at, base_url, include_inactive, mode,
		users_total, users_with_extension, distinct_numbers, extensions_loaded,
		duplicate_assignments, duplicate_records, discrepancies, missing_assignments
	FROM runs ORDER BY started_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("history: listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord

	for rows.Next() {
		var (
			rec       RunRecord
			startedAt string
			inactive  int
		)

		if err := rows.Scan(
			&rec.ID, &startedAt, &rec.BaseURL, &inactive, &rec.Mode,
			&rec.UsersTotal, &rec.UsersWithExtension, &rec.DistinctNumbers, &rec.ExtensionsLoaded,
			&rec.DuplicateAssignments, &rec.DuplicateRecords, &rec.Discrepancies, &rec.MissingAssignments,
		); err != nil {
			return nil, fmt.Errorf("history: scanning run: %w", err)
		}

		if t, err := time.Parse(startedAtLayout, startedAt); err == nil {
			rec.StartedAt = t
		}

		rec.IncludeInactive = inactive != 0
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: listing runs: %w", err)
	}

	return out, nil
}

// ListPatchRows returns the patch outcomes of one run in insertion order.
func (s *Store) ListPatchRows(ctx context.Context, runID string) ([]PatchRow, error) {
	const q = `SELECT user_id, user_display, extension, outcome, detail, version
		FROM patch_rows WHERE run_id = ? ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("history: listing patch rows: %w", err)
	}
	defer rows.Close()

	var out []PatchRow

	for rows.Next() {
		var r PatchRow
		if err := rows.Scan(&r.UserID, &r.User, &r.Extension, &r.Outcome, &r.Detail, &r.Version); err != nil {
			return nil, fmt.Errorf("history: scanning patch row: %w", err)
		}

		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: listing patch rows: %w", err)
	}

	return out, nil
}

// runMigrations applies all pending schema migrations using the goose v3
// Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("history: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("history: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("history: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
