package testutil

import (
	"testing"

	"dhb-go/internal/database"
)

// NewTestHistory creates an in-memory run ledger with the schema applied.
// The ledger is automatically closed when the test completes.
func NewTestHistory(t *testing.T) *database.History {
	t.Helper()

	h, err := database.NewHistory(":memory:")
	if err != nil {
		t.Fatalf("failed to open run ledger: %v", err)
	}

	t.Cleanup(func() {
		h.Close()
	})

	return h
}
