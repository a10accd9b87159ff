package catalog_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dhb-go/internal/catalog"
	"dhb-go/internal/manifest"
	"dhb-go/internal/model"
	"dhb-go/internal/testutil"
)

// writeSet lays out a snapshot directory with real files and a manifest, the
// way a completed backup run leaves them.
func writeSet(t *testing.T, root, name string, createdAt time.Time, files map[string]string) *model.Snapshot {
	t.Helper()

	dir := testutil.MkDir(t, root, name)
	snap := &model.Snapshot{Name: name, CreatedAt: createdAt}
	for rel, content := range files {
		path := testutil.WriteFile(t, dir, rel, content)
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		snap.Files = append(snap.Files, model.FileRecord{
			RelativePath: rel,
			SizeBytes:    info.Size(),
			ModifiedAt:   info.ModTime(),
			Checksum:     testutil.SHA256Hex([]byte(content)),
		})
		snap.TotalSizeBytes += info.Size()
	}
	if err := manifest.Write(dir, snap); err != nil {
		t.Fatalf("writing manifest for %s: %v", name, err)
	}
	return snap
}

func TestLoad(t *testing.T) {
	t.Run("missing backup root yields an empty catalog", func(t *testing.T) {
		cat, err := catalog.Load(filepath.Join(t.TempDir(), "never-created"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cat.Len() != 0 {
			t.Errorf("Len() = %d, want 0", cat.Len())
		}
	})

	t.Run("orders snapshots oldest first", func(t *testing.T) {
		root := t.TempDir()
		base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
		writeSet(t, root, "set-20240315-100200", base.Add(2*time.Minute), map[string]string{"c.txt": "c"})
		writeSet(t, root, "set-20240315-100000", base, map[string]string{"a.txt": "a"})
		writeSet(t, root, "set-20240315-100100", base.Add(time.Minute), map[string]string{"b.txt": "b"})

		cat, err := catalog.Load(root)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		var got []string
		for _, snap := range cat.OldestFirst() {
			got = append(got, snap.Name)
		}
		want := []string{"set-20240315-100000", "set-20240315-100100", "set-20240315-100200"}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("OldestFirst()[%d] = %s, want %s", i, got[i], want[i])
			}
		}
	})

	t.Run("directories without a manifest become unknown", func(t *testing.T) {
		root := t.TempDir()
		writeSet(t, root, "set-20240315-100000", time.Now(), map[string]string{"a.txt": "a"})
		testutil.WriteFile(t, root, "stray/data.txt", "no manifest here")

		cat, err := catalog.Load(root)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cat.Len() != 1 {
			t.Errorf("Len() = %d, want 1", cat.Len())
		}
		if len(cat.Unknown) != 1 || cat.Unknown[0] != "stray" {
			t.Errorf("Unknown = %v, want [stray]", cat.Unknown)
		}
	})

	t.Run("unreadable manifest becomes unknown, not a load failure", func(t *testing.T) {
		root := t.TempDir()
		writeSet(t, root, "set-20240315-100000", time.Now(), map[string]string{"a.txt": "a"})
		// A directory at the manifest path makes the read fail with EISDIR.
		testutil.MkDir(t, root, filepath.Join("stray", manifest.Filename))

		cat, err := catalog.Load(root)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cat.Len() != 1 {
			t.Errorf("Len() = %d, want 1", cat.Len())
		}
		if len(cat.Unknown) != 1 || cat.Unknown[0] != "stray" {
			t.Errorf("Unknown = %v, want [stray]", cat.Unknown)
		}
	})

	t.Run("renamed set directory becomes unknown", func(t *testing.T) {
		root := t.TempDir()
		writeSet(t, root, "set-20240315-100000", time.Now(), map[string]string{"a.txt": "a"})
		oldDir := filepath.Join(root, "set-20240315-100000")
		newDir := filepath.Join(root, "set-renamed")
		if err := os.Rename(oldDir, newDir); err != nil {
			t.Fatal(err)
		}

		cat, err := catalog.Load(root)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cat.Len() != 0 {
			t.Errorf("Len() = %d, want 0", cat.Len())
		}
		if len(cat.Unknown) != 1 || cat.Unknown[0] != "set-renamed" {
			t.Errorf("Unknown = %v, want [set-renamed]", cat.Unknown)
		}
	})
}

func TestRecordAndForget(t *testing.T) {
	root := t.TempDir()
	cat, err := catalog.Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	cat.Record(&model.Snapshot{Name: "set-b", CreatedAt: base.Add(time.Minute), TotalSizeBytes: 20})
	cat.Record(&model.Snapshot{Name: "set-a", CreatedAt: base, TotalSizeBytes: 10})

	if cat.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cat.Len())
	}
	if got := cat.OldestFirst()[0].Name; got != "set-a" {
		t.Errorf("oldest = %s, want set-a", got)
	}
	if got := cat.TotalSize(); got != 30 {
		t.Errorf("TotalSize() = %d, want 30", got)
	}

	cat.Forget("set-a")
	if cat.Len() != 1 {
		t.Errorf("Len() after Forget = %d, want 1", cat.Len())
	}
	if got := cat.TotalSize(); got != 20 {
		t.Errorf("TotalSize() after Forget = %d, want 20", got)
	}
}

func TestContentIndex(t *testing.T) {
	t.Run("prefers the newest snapshot as link source", func(t *testing.T) {
		root := t.TempDir()
		base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
		writeSet(t, root, "set-old", base, map[string]string{"a.txt": "shared"})
		writeSet(t, root, "set-new", base.Add(time.Minute), map[string]string{"a.txt": "shared"})

		cat, err := catalog.Load(root)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		index := cat.ContentIndex()
		path, ok := index.Lookup(testutil.SHA256Hex([]byte("shared")))
		if !ok {
			t.Fatal("Lookup() missed known content")
		}
		if want := filepath.Join(root, "set-new", "a.txt"); path != want {
			t.Errorf("Lookup() = %s, want %s", path, want)
		}
	})

	t.Run("skips records whose file is gone", func(t *testing.T) {
		root := t.TempDir()
		writeSet(t, root, "set-20240315-100000", time.Now(), map[string]string{"a.txt": "vanishing"})
		if err := os.Remove(filepath.Join(root, "set-20240315-100000", "a.txt")); err != nil {
			t.Fatal(err)
		}

		cat, err := catalog.Load(root)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		index := cat.ContentIndex()
		if index.Len() != 0 {
			t.Errorf("index Len() = %d, want 0", index.Len())
		}
	})
}
