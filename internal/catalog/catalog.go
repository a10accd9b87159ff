// Package catalog maintains the registry of all known snapshots under one
// backup root. It is rebuilt from the per-snapshot manifests on every run;
// nothing in it is authoritative beyond what is on disk.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"dhb-go/internal/manifest"
	"dhb-go/internal/model"
	"dhb-go/internal/store"
)

// Catalog owns the Snapshot and FileRecord data for one backup root for the
// duration of a run. Snapshots are kept ordered by CreatedAt ascending, ties
// broken by name.
type Catalog struct {
	root      string
	snapshots []*model.Snapshot

	// Unknown lists immediate subdirectories of the backup root that have no
	// readable, well-formed manifest. They are excluded from dedup and
	// eviction accounting but are never deleted here.
	Unknown []string
}

// Load scans the immediate subdirectories of backupRoot and builds a catalog
// from their manifests. Directories without a valid manifest are recorded in
// Unknown rather than failing the load; the run can still proceed.
func Load(backupRoot string) (*Catalog, error) {
	entries, err := os.ReadDir(backupRoot)
	if err != nil {
		if os.IsNotExist(err) {
			// A fresh backup root: nothing recorded yet.
			return &Catalog{root: backupRoot}, nil
		}
		return nil, fmt.Errorf("scanning backup root %s: %w", backupRoot, err)
	}

	cat := &Catalog{root: backupRoot}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(backupRoot, entry.Name())
		snap, err := manifest.Read(dir)
		if err != nil {
			if errors.Is(err, manifest.ErrIncomplete) {
				cat.Unknown = append(cat.Unknown, entry.Name())
				continue
			}
			return nil, err
		}
		if snap.Name != entry.Name() {
			// A renamed or hand-copied set directory; its records point at
			// paths that no longer line up, so treat it as unknown.
			cat.Unknown = append(cat.Unknown, entry.Name())
			continue
		}
		cat.snapshots = append(cat.snapshots, snap)
	}

	cat.sortSnapshots()
	return cat, nil
}

// Root returns the backup root this catalog was loaded from.
func (c *Catalog) Root() string {
	return c.root
}

// Record appends a newly completed snapshot to the catalog.
func (c *Catalog) Record(snap *model.Snapshot) {
	c.snapshots = append(c.snapshots, snap)
	c.sortSnapshots()
}

// Forget removes a snapshot from the catalog after its directory was evicted.
func (c *Catalog) Forget(name string) {
	for i, snap := range c.snapshots {
		if snap.Name == name {
			c.snapshots = append(c.snapshots[:i], c.snapshots[i+1:]...)
			return
		}
	}
}

// OldestFirst returns the known snapshots ordered by CreatedAt ascending,
// ties broken by name. The returned slice is shared; callers must not mutate.
func (c *Catalog) OldestFirst() []*model.Snapshot {
	return c.snapshots
}

// Len returns the number of known snapshots.
func (c *Catalog) Len() int {
	return len(c.snapshots)
}

// TotalSize returns the sum of all known snapshots' recorded sizes.
func (c *Catalog) TotalSize() int64 {
	var total int64
	for _, snap := range c.snapshots {
		total += snap.TotalSizeBytes
	}
	return total
}

// SnapshotDir returns the on-disk directory of a snapshot by name.
func (c *Catalog) SnapshotDir(name string) string {
	return filepath.Join(c.root, name)
}

// FilePath returns the on-disk path of one record inside one snapshot.
func (c *Catalog) FilePath(snapshotName string, rec *model.FileRecord) string {
	return filepath.Join(c.root, snapshotName, filepath.FromSlash(rec.RelativePath))
}

// ContentIndex flattens every known snapshot's records into a checksum index
// for the dedup resolver. Newer snapshots are preferred as link sources so an
// eviction of the oldest set invalidates as little of the index as possible.
// Recorded paths that no longer exist on disk are skipped rather than allowed
// to cause a dedup failure later.
func (c *Catalog) ContentIndex() *store.Index {
	index := store.NewIndex()
	for i := len(c.snapshots) - 1; i >= 0; i-- {
		snap := c.snapshots[i]
		for j := range snap.Files {
			rec := &snap.Files[j]
			if _, ok := index.Lookup(rec.Checksum); ok {
				continue
			}
			path := c.FilePath(snap.Name, rec)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			index.InsertIfAbsent(rec.Checksum, path)
		}
	}
	return index
}

func (c *Catalog) sortSnapshots() {
	sort.Slice(c.snapshots, func(i, j int) bool {
		a, b := c.snapshots[i], c.snapshots[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Name < b.Name
	})
}
