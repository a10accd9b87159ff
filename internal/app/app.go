package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"dhb-go/internal/config"
	"dhb-go/internal/database"
	"dhb-go/internal/dhb"
	"dhb-go/internal/model"
)

// DHBApp is the application layer between the CLI and the snapshot engine.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the ledger lifecycle on Close.
type DHBApp struct {
	cfg     *config.Config
	history *database.History
	logger  *slog.Logger
	logFile *os.File
	run     *RunRecord
}

// NewDHBApp creates a fully wired DHBApp from the given config.
// operation identifies the CLI command being run (e.g. "Backup", "Validate").
// The caller must call Close when done.
func NewDHBApp(cfg *config.Config, operation string) (*DHBApp, error) {
	history, err := database.NewHistoryFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening run ledger: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		history.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &DHBApp{
		cfg:     cfg,
		history: history,
		logger:  logger,
		logFile: logFile,
		run:     NewRunRecord(operation, ""),
	}, nil
}

// persistRun saves the run record to the ledger, giving it an auto-increment ID.
// This should only be called for commands worth keeping in the history.
func (a *DHBApp) persistRun(parameters string) error {
	if a.run.Persisted() {
		return nil // already persisted
	}
	a.run.Parameters = parameters
	run, err := a.history.StartRun(a.run.Operation, a.run.Parameters)
	if err != nil {
		return fmt.Errorf("persisting run record: %w", err)
	}
	a.run.ID = run.ID
	return nil
}

// service builds the engine service for a backup root. The root may come from
// a CLI flag or from config; an empty value is a usage error.
func (a *DHBApp) service(backupRoot string) (*dhb.Service, error) {
	if backupRoot == "" {
		backupRoot = a.cfg.BackupRoot
	}
	if backupRoot == "" {
		return nil, fmt.Errorf("no backup root given (flag --dest or config backup_root)")
	}
	return dhb.NewService(backupRoot, &slogAdapter{l: a.logger}, dhb.RealClock{}), nil
}

// Backup captures sourceDir into a new snapshot under backupRoot and enforces
// the space budget. Empty sourceDir/backupRoot/maxSpaceBytes fall back to the
// config values. Returns the new snapshot's name.
func (a *DHBApp) Backup(sourceDir, backupRoot string, maxSpaceBytes int64, verify bool) (string, error) {
	if sourceDir == "" {
		sourceDir = a.cfg.SourceDir
	}
	if sourceDir == "" {
		return "", fmt.Errorf("no source directory given (flag --source or config source_dir)")
	}
	if maxSpaceBytes == 0 {
		maxSpaceBytes = a.cfg.MaxSpaceBytes()
	}

	svc, err := a.service(backupRoot)
	if err != nil {
		return "", err
	}

	if err := a.persistRun(fmt.Sprintf("source=%s", sourceDir)); err != nil {
		return "", err
	}

	name, err := svc.Backup(sourceDir, dhb.BackupOptions{
		MaxSpaceBytes:   maxSpaceBytes,
		VerifyChecksums: verify,
		Ignore:          a.cfg.Filesystem.Ignore,
	})
	a.run.SnapshotName = name
	if err != nil {
		a.run.Status = "error"
		return name, err
	}
	return name, nil
}

// Validate checks every snapshot under backupRoot and returns all findings.
func (a *DHBApp) Validate(backupRoot string) ([]model.Issue, error) {
	svc, err := a.service(backupRoot)
	if err != nil {
		return nil, err
	}

	if err := a.persistRun(""); err != nil {
		return nil, err
	}

	issues, err := svc.Validate()
	if err != nil {
		a.run.Status = "error"
		return nil, err
	}
	return issues, nil
}

// List returns summaries of the snapshots under backupRoot, oldest first.
func (a *DHBApp) List(backupRoot string) ([]dhb.SnapshotSummary, error) {
	svc, err := a.service(backupRoot)
	if err != nil {
		return nil, err
	}
	return svc.List()
}

// History returns the most recent runs from the ledger.
func (a *DHBApp) History(limit int) ([]*database.Run, error) {
	return a.history.ListRuns(limit)
}

// Close finalizes the run record and closes all resources.
func (a *DHBApp) Close() error {
	var firstErr error

	if a.run.Persisted() {
		if err := a.history.FinishRun(a.run.ID, a.run.Status, a.run.SnapshotName); err != nil {
			firstErr = fmt.Errorf("finishing run record: %w", err)
		}
	}

	if err := a.history.Close(); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("closing run ledger: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
