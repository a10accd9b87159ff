package snapshot

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func TestNewSetNameCollisions(t *testing.T) {
	backupRoot := t.TempDir()
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	// Allocate a dozen names in the same clock second; creation order and
	// lexical order must coincide.
	var names []string
	for i := 0; i < 12; i++ {
		name, err := newSetName(backupRoot, now)
		if err != nil {
			t.Fatalf("newSetName() call %d error = %v", i, err)
		}
		if err := os.Mkdir(filepath.Join(backupRoot, name), 0755); err != nil {
			t.Fatal(err)
		}
		names = append(names, name)
	}

	if names[0] != "set-20240315-103000" {
		t.Errorf("names[0] = %s, want set-20240315-103000", names[0])
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("allocation order is not lexical order: %v", names)
	}

	next, err := newSetName(backupRoot, now.Add(time.Second))
	if err != nil {
		t.Fatalf("newSetName() error = %v", err)
	}
	if !(names[len(names)-1] < next) {
		t.Errorf("next second's name %s does not sort after %s", next, names[len(names)-1])
	}
}
