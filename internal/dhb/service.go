// Package dhb is the orchestration layer of the snapshot engine: it ties the
// catalog, content store, snapshot builder, space manager and validator
// together into the operations the CLI exposes.
package dhb

import (
	"fmt"
	"path/filepath"
	"time"

	"dhb-go/internal/catalog"
	"dhb-go/internal/fs"
	"dhb-go/internal/model"
	"dhb-go/internal/snapshot"
	"dhb-go/internal/space"
)

// Service coordinates one backup root. All operations serialize against other
// runs on the same root via an advisory lock held for the operation's
// duration.
type Service struct {
	backupRoot string
	logger     Logger
	clock      Clock
}

// NewService creates a Service for the given backup root.
func NewService(backupRoot string, logger Logger, clock Clock) *Service {
	return &Service{backupRoot: backupRoot, logger: logger, clock: clock}
}

// BackupOptions control a single backup run.
type BackupOptions struct {
	// MaxSpaceBytes is the storage budget for the whole backup root.
	// Zero means unlimited.
	MaxSpaceBytes int64
	// VerifyChecksums re-reads the snapshot just written and compares every
	// stored file against its manifest record.
	VerifyChecksums bool
	// Ignore holds extra exclusion patterns (from config), applied on top of
	// the source root's ignore file and the built-in defaults.
	Ignore []string
}

// SnapshotSummary is one row of the list operation.
type SnapshotSummary struct {
	Name           string
	CreatedAt      time.Time
	FileCount      int
	TotalSizeBytes int64
}

// Backup captures sourceDir into a new snapshot, records it, and then
// enforces the space budget. It returns the new snapshot's name. Failure to
// satisfy the budget is logged, not fatal: the snapshot itself succeeded.
func (s *Service) Backup(sourceDir string, opts BackupOptions) (string, error) {
	lock, err := AcquireRunLock(s.backupRoot)
	if err != nil {
		return "", err
	}
	defer lock.Release()

	cat, err := s.loadCatalog()
	if err != nil {
		return "", err
	}

	filePatterns, err := fs.ParseIgnoreFile(filepath.Join(sourceDir, fs.IgnoreFilename))
	if err != nil {
		return "", err
	}
	matcher := fs.NewIgnoreMatcher(append(append([]string{}, opts.Ignore...), filePatterns...))

	s.logger.Info("backing up", "source", sourceDir, "backup_root", s.backupRoot)

	builder := snapshot.NewBuilder(s.clock, matcher)
	snap, err := builder.Build(sourceDir, s.backupRoot, cat.ContentIndex())
	if err != nil {
		return "", err
	}
	cat.Record(snap)
	s.logger.Info("snapshot complete",
		"snapshot", snap.Name, "files", len(snap.Files), "size", snap.TotalSizeBytes)

	if opts.MaxSpaceBytes > 0 {
		if err := space.NewManager(s.logger).EnforceBudget(cat, opts.MaxSpaceBytes); err != nil {
			s.logger.Warn("space budget not satisfied", "error", err)
		}
	}

	if opts.VerifyChecksums {
		issues := validateSnapshot(cat, snap)
		if len(issues) > 0 {
			return snap.Name, fmt.Errorf("verification of %s found %d issue(s), first: %s (%s)",
				snap.Name, len(issues), issues[0].Path(), issues[0].Kind)
		}
		s.logger.Info("snapshot verified", "snapshot", snap.Name)
	}

	return snap.Name, nil
}

// Validate re-walks every known snapshot under the backup root, recomputes
// checksums, and reports every missing or corrupted file. It never stops at
// the first finding.
func (s *Service) Validate() ([]model.Issue, error) {
	lock, err := AcquireRunLock(s.backupRoot)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	cat, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}

	var issues []model.Issue
	for _, snap := range cat.OldestFirst() {
		issues = append(issues, validateSnapshot(cat, snap)...)
	}
	s.logger.Info("validation complete", "snapshots", cat.Len(), "issues", len(issues))
	return issues, nil
}

// List returns summaries of the known snapshots, oldest first. It takes the
// run lock like every other operation: a listing that races an eviction would
// read manifests out from under RemoveAll.
func (s *Service) List() ([]SnapshotSummary, error) {
	lock, err := AcquireRunLock(s.backupRoot)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	cat, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}

	summaries := make([]SnapshotSummary, 0, cat.Len())
	for _, snap := range cat.OldestFirst() {
		summaries = append(summaries, SnapshotSummary{
			Name:           snap.Name,
			CreatedAt:      snap.CreatedAt,
			FileCount:      len(snap.Files),
			TotalSizeBytes: snap.TotalSizeBytes,
		})
	}
	return summaries, nil
}

func (s *Service) loadCatalog() (*catalog.Catalog, error) {
	cat, err := catalog.Load(s.backupRoot)
	if err != nil {
		return nil, err
	}
	for _, name := range cat.Unknown {
		s.logger.Warn("ignoring set directory without a valid manifest", "dir", name)
	}
	return cat, nil
}
