package space

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dhb-go/internal/catalog"
	"dhb-go/internal/snapshot"
	"dhb-go/internal/store"
	"dhb-go/internal/testutil"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func TestEnforceBudgetDeleteFailure(t *testing.T) {
	dir := t.TempDir()
	source := testutil.MkDir(t, dir, "source")
	backupRoot := filepath.Join(dir, "backups")
	testutil.WriteFile(t, source, "a.txt", "0123456789") // 10 bytes per set

	clock := testutil.NewFixedClock()
	b := snapshot.NewBuilder(clock, nil)
	for i := 0; i < 3; i++ {
		if _, err := b.Build(source, backupRoot, store.NewIndex()); err != nil {
			t.Fatalf("building set %d: %v", i, err)
		}
		clock.Advance(time.Second)
	}

	cat, err := catalog.Load(backupRoot)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	var names []string
	for _, snap := range cat.OldestFirst() {
		names = append(names, snap.Name)
	}

	// The oldest set refuses to die; everything else deletes normally.
	undeletable := cat.SnapshotDir(names[0])
	m := &Manager{
		logger: nopLogger{},
		remove: func(path string) error {
			if path == undeletable {
				return fmt.Errorf("remove %s: operation not permitted", path)
			}
			return os.RemoveAll(path)
		},
	}

	if err := m.EnforceBudget(cat, 10); err != nil {
		t.Fatalf("EnforceBudget() error = %v", err)
	}

	// The failed candidate is dropped from accounting and eviction moves on
	// to the next oldest, which does satisfy the budget.
	if cat.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cat.Len())
	}
	if got := cat.OldestFirst()[0].Name; got != names[2] {
		t.Errorf("remaining snapshot = %s, want %s", got, names[2])
	}
	if _, err := os.Stat(undeletable); err != nil {
		t.Errorf("undeletable set was removed from disk: %v", err)
	}
	if _, err := os.Stat(cat.SnapshotDir(names[1])); !os.IsNotExist(err) {
		t.Errorf("next-oldest set %s was not evicted", names[1])
	}
	if _, err := os.Stat(cat.SnapshotDir(names[2])); err != nil {
		t.Errorf("newest set %s missing: %v", names[2], err)
	}
}
