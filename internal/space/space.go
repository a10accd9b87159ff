// Package space enforces the storage budget for a backup root by evicting the
// oldest snapshots until the total recorded size fits.
package space

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"dhb-go/internal/catalog"
	"dhb-go/internal/model"
	"dhb-go/internal/store"
)

// ErrBudgetUnsatisfiable is reported when the budget cannot be met because
// only one snapshot remains. The last snapshot is never deleted: an empty
// backup root is a worse failure than an over-budget one.
var ErrBudgetUnsatisfiable = errors.New("space budget unsatisfiable: refusing to delete the last snapshot")

// Logger is the slog-convention logging surface the manager reports through.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Manager applies the retention policy to a catalog.
type Manager struct {
	logger Logger
	remove func(path string) error
}

// NewManager creates a space manager.
func NewManager(logger Logger) *Manager {
	return &Manager{logger: logger, remove: os.RemoveAll}
}

// EnforceBudget deletes the oldest snapshots until the catalog's total size is
// within maxBytes. At least one snapshot is always retained. Before each
// deletion, content shared with retained snapshots is secured (see
// preserveSharedContent) so eviction can never orphan a newer snapshot's
// record. A failed or partial deletion is logged, the remaining size is
// recomputed from disk, and eviction continues with the next-oldest
// candidate; it never aborts the caller's run.
func (m *Manager) EnforceBudget(cat *catalog.Catalog, maxBytes int64) error {
	total := cat.TotalSize()

	for total > maxBytes && cat.Len() > 1 {
		oldest := cat.OldestFirst()[0]
		dir := cat.SnapshotDir(oldest.Name)

		if err := m.preserveSharedContent(cat, oldest); err != nil {
			// Deleting now could strand a retained snapshot's record, so
			// this candidate stays. Nothing younger shares less, so stop.
			m.logger.Error("cannot secure shared content, keeping snapshot",
				"snapshot", oldest.Name, "error", err)
			return fmt.Errorf("securing content shared with %s: %w", oldest.Name, err)
		}

		m.logger.Info("evicting snapshot",
			"snapshot", oldest.Name, "size", oldest.TotalSizeBytes, "total", total, "budget", maxBytes)

		if err := m.remove(dir); err != nil {
			// Partial deletes leave the directory untrustworthy either way;
			// drop it from accounting and measure what is actually left.
			m.logger.Warn("snapshot deletion incomplete",
				"snapshot", oldest.Name, "error", err)
			cat.Forget(oldest.Name)
			total = m.diskTotal(cat)
			continue
		}

		cat.Forget(oldest.Name)
		total -= oldest.TotalSizeBytes
	}

	if total > maxBytes {
		return fmt.Errorf("%w (remaining %d bytes, budget %d bytes)", ErrBudgetUnsatisfiable, total, maxBytes)
	}
	return nil
}

// preserveSharedContent makes every retained record whose checksum also
// appears in the doomed snapshot independent of the doomed directory. With
// hard-link dedup the filesystem's link count already keeps shared bytes
// alive, so this normally finds nothing to do; it re-links (or copies) only
// when a retained record's path is not actually present on disk.
func (m *Manager) preserveSharedContent(cat *catalog.Catalog, doomed *model.Snapshot) error {
	sources := make(map[string]string, len(doomed.Files))
	for i := range doomed.Files {
		rec := &doomed.Files[i]
		if _, ok := sources[rec.Checksum]; !ok {
			sources[rec.Checksum] = cat.FilePath(doomed.Name, rec)
		}
	}

	for _, snap := range cat.OldestFirst() {
		if snap.Name == doomed.Name {
			continue
		}
		for i := range snap.Files {
			rec := &snap.Files[i]
			src, shared := sources[rec.Checksum]
			if !shared {
				continue
			}
			dest := cat.FilePath(snap.Name, rec)
			if _, err := os.Stat(dest); err == nil {
				continue
			} else if !os.IsNotExist(err) {
				return fmt.Errorf("stat retained file %s: %w", dest, err)
			}

			// The retained copy is gone; restore it from the doomed set
			// before that set disappears. A hard link keeps the inode alive
			// across the eviction.
			if _, err := store.Place(src, dest); err != nil {
				return fmt.Errorf("restoring %s from %s: %w", dest, doomed.Name, err)
			}
			if err := os.Chtimes(dest, time.Time{}, rec.ModifiedAt); err != nil {
				return fmt.Errorf("preserving mtime on %s: %w", dest, err)
			}
			m.logger.Warn("restored shared content before eviction",
				"snapshot", snap.Name, "path", rec.RelativePath, "from", doomed.Name)
		}
	}
	return nil
}

// diskTotal measures the catalog's remaining snapshots on disk. Used after a
// failed deletion, when the recorded sizes no longer describe reality.
func (m *Manager) diskTotal(cat *catalog.Catalog) int64 {
	var total int64
	for _, snap := range cat.OldestFirst() {
		size, err := dirSize(cat.SnapshotDir(snap.Name))
		if err != nil {
			m.logger.Warn("sizing snapshot directory", "snapshot", snap.Name, "error", err)
			continue
		}
		total += size
	}
	return total
}

// dirSize sums the sizes of all regular files under dir.
func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
