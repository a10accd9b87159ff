package database

import (
	"fmt"
	"os"
	"path/filepath"

	"dhb-go/internal/config"
)

// NewHistoryFromConfig creates a run ledger based on the database config type.
func NewHistoryFromConfig(cfg config.DatabaseConfig) (*History, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewHistory(filepath.Join(cfg.DataDir, "history.db"))
	case "memory":
		return NewHistory(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
