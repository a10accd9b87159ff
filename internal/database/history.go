// Package database keeps the run-history ledger: one row per backup or
// validate run. The ledger is bookkeeping, not the backup catalog; the
// catalog is always rebuilt from the snapshot manifests on disk.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"dhb-go/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Run is one recorded CLI run.
type Run struct {
	ID           int64
	Operation    string // "Backup", "Validate", "List"
	Parameters   string
	SnapshotName sql.NullString // set for successful backup runs
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	Status       string // "running", "success" or "error"
}

// History is the SQLite-backed run ledger.
type History struct {
	db   *sql.DB
	path string
}

// NewHistory opens (creating and migrating if necessary) the ledger at path.
// path can be a file path or ":memory:" for an in-memory ledger.
func NewHistory(path string) (*History, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating run ledger: %w", err)
	}

	return &History{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a raw configured handle.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// StartRun records the beginning of a run and returns it with its ledger ID.
func (h *History) StartRun(operation, parameters string) (*Run, error) {
	run := &Run{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  time.Now(),
		Status:     "running",
	}

	res, err := h.db.Exec(
		`INSERT INTO backup_runs (operation, parameters, started_at, status) VALUES (?, ?, ?, ?)`,
		run.Operation, run.Parameters, run.StartedAt, run.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("recording run start: %w", err)
	}

	run.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading run id: %w", err)
	}
	return run, nil
}

// FinishRun records a run's outcome. snapshotName may be empty for runs that
// did not create a snapshot.
func (h *History) FinishRun(id int64, status, snapshotName string) error {
	name := sql.NullString{String: snapshotName, Valid: snapshotName != ""}
	_, err := h.db.Exec(
		`UPDATE backup_runs SET finished_at = ?, status = ?, snapshot_name = ? WHERE id = ?`,
		time.Now(), status, name, id,
	)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (h *History) ListRuns(limit int) ([]*Run, error) {
	rows, err := h.db.Query(
		`SELECT id, operation, parameters, snapshot_name, started_at, finished_at, status
		 FROM backup_runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Operation, &run.Parameters, &run.SnapshotName,
			&run.StartedAt, &run.FinishedAt, &run.Status); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// CheckMigrations verifies the ledger schema is up-to-date.
func (h *History) CheckMigrations() error {
	return migrations.CheckStatus(h.db)
}

// BackupTo creates a complete copy of the ledger at destPath using VACUUM INTO.
func (h *History) BackupTo(destPath string) error {
	if _, err := h.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up run ledger: %w", err)
	}
	return nil
}

// Path returns the ledger file path (or ":memory:").
func (h *History) Path() string {
	return h.path
}

// Close closes the underlying connection.
func (h *History) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}
