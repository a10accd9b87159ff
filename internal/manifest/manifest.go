// Package manifest reads and writes the per-snapshot manifest file.
//
// The manifest is the completion marker for a snapshot: it is written last,
// atomically, after every file has been placed. A snapshot directory without a
// readable, well-formed manifest must be treated as incomplete.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"dhb-go/internal/model"
)

// Filename is the manifest's name inside a snapshot directory. The leading
// dot keeps it out of the mirrored tree's namespace; the snapshot builder
// additionally refuses to copy a source file with this exact name.
const Filename = ".dhb-manifest.json"

// ErrIncomplete marks a snapshot directory whose manifest is missing or
// malformed. Callers distinguish it with errors.Is.
var ErrIncomplete = errors.New("snapshot manifest missing or malformed")

// Write atomically persists the manifest into snapshotDir. The write goes
// through a temp file and rename so a crash never leaves a partial manifest
// that could be mistaken for a completion marker.
func Write(snapshotDir string, snap *model.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest for %s: %w", snap.Name, err)
	}
	path := filepath.Join(snapshotDir, Filename)
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// Read loads and decodes the manifest from snapshotDir. A missing, unreadable
// or undecodable manifest is reported as ErrIncomplete (wrapped with context):
// whatever the cause, the directory cannot be proven complete, and callers
// must be able to keep going past it.
func Read(snapshotDir string) (*model.Snapshot, error) {
	path := filepath.Join(snapshotDir, Filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", snapshotDir, ErrIncomplete)
		}
		return nil, fmt.Errorf("%s: manifest unreadable (%v): %w", snapshotDir, err, ErrIncomplete)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%s: decoding manifest: %w", snapshotDir, ErrIncomplete)
	}
	if snap.Name == "" {
		return nil, fmt.Errorf("%s: manifest has no snapshot name: %w", snapshotDir, ErrIncomplete)
	}
	return &snap, nil
}
