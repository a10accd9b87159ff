// Package snapshot creates new backup sets: it allocates a sortable set name,
// mirrors the source tree into the set directory, delegates every file to the
// content store, and writes the manifest last as the completion marker.
package snapshot

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"dhb-go/internal/fs"
	"dhb-go/internal/manifest"
	"dhb-go/internal/model"
	"dhb-go/internal/store"
)

// Clock abstracts time retrieval so set naming is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// Builder walks a source tree and produces one completed snapshot per Build
// call. A Builder holds no per-run state and may be reused.
type Builder struct {
	clock  Clock
	ignore *fs.IgnoreMatcher
}

// NewBuilder creates a Builder. ignore may be nil when nothing is excluded.
func NewBuilder(clock Clock, ignore *fs.IgnoreMatcher) *Builder {
	if ignore == nil {
		ignore = fs.NewIgnoreMatcher(nil)
	}
	return &Builder{clock: clock, ignore: ignore}
}

// Build captures sourceRoot into a new snapshot directory under backupRoot.
// Every directory is mirrored (so empty source directories survive) and every
// regular file goes through store.ResolveAndPlace against index. Any I/O
// error aborts the whole snapshot and removes the partial directory
// best-effort. The manifest is written only after every file has been placed.
func (b *Builder) Build(sourceRoot, backupRoot string, index *store.Index) (*model.Snapshot, error) {
	if err := os.MkdirAll(backupRoot, 0755); err != nil {
		return nil, fmt.Errorf("creating backup root %s: %w", backupRoot, err)
	}

	now := b.clock.Now()
	name, err := newSetName(backupRoot, now)
	if err != nil {
		return nil, err
	}

	setDir := filepath.Join(backupRoot, name)
	if err := os.Mkdir(setDir, 0755); err != nil {
		return nil, fmt.Errorf("creating set directory %s: %w", setDir, err)
	}

	snap := &model.Snapshot{Name: name, CreatedAt: now}
	if err := b.mirror(sourceRoot, setDir, "", index, snap); err != nil {
		os.RemoveAll(setDir)
		return nil, err
	}

	if err := manifest.Write(setDir, snap); err != nil {
		os.RemoveAll(setDir)
		return nil, err
	}

	return snap, nil
}

// mirror recursively copies the contents of srcDir into destDir. rel is the
// slash-separated path of srcDir relative to the source root. Traversal order
// is whatever the filesystem returns; completeness, not order, is the
// contract.
func (b *Builder) mirror(srcDir, destDir, rel string, index *store.Index, snap *model.Snapshot) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("reading source directory %s: %w", srcDir, err)
	}

	for _, entry := range entries {
		entryRel := path.Join(rel, entry.Name())
		if b.ignore.Match(entryRel) {
			continue
		}

		srcPath := filepath.Join(srcDir, entry.Name())
		destPath := filepath.Join(destDir, entry.Name())

		switch {
		case entry.IsDir():
			if err := os.Mkdir(destPath, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", destPath, err)
			}
			if err := b.mirror(srcPath, destPath, entryRel, index, snap); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			rec, err := store.ResolveAndPlace(srcPath, destPath, entryRel, index)
			if err != nil {
				return fmt.Errorf("backing up %s: %w", entryRel, err)
			}
			snap.Files = append(snap.Files, rec)
			snap.TotalSizeBytes += rec.SizeBytes
		default:
			// Symlinks, devices, sockets and pipes cannot be mirrored as
			// whole-file content; skipping them silently would be an
			// incomplete backup, so refuse instead.
			return fmt.Errorf("unsupported entry type %s at %s", entry.Type(), entryRel)
		}
	}

	return nil
}
