package config_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"dhb-go/internal/config"
)

func TestNewConfig(t *testing.T) {
	cfg := config.NewConfig("host-1", "/var/lib/dhb")

	if cfg.HostID != "host-1" {
		t.Errorf("HostID = %s, want host-1", cfg.HostID)
	}
	if want := filepath.Join("/var/lib/dhb", "log"); cfg.LogDir != want {
		t.Errorf("LogDir = %s, want %s", cfg.LogDir, want)
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %s, want sqlite", cfg.Database.Type)
	}
	if want := filepath.Join("/var/lib/dhb", "data"); cfg.Database.DataDir != want {
		t.Errorf("Database.DataDir = %s, want %s", cfg.Database.DataDir, want)
	}
}

func TestMaxSpaceBytes(t *testing.T) {
	cfg := &config.Config{MaxSpaceGB: 2}
	if want := int64(2 * 1024 * 1024 * 1024); cfg.MaxSpaceBytes() != want {
		t.Errorf("MaxSpaceBytes() = %d, want %d", cfg.MaxSpaceBytes(), want)
	}

	unlimited := &config.Config{}
	if unlimited.MaxSpaceBytes() != 0 {
		t.Errorf("MaxSpaceBytes() = %d, want 0", unlimited.MaxSpaceBytes())
	}
}

func TestManagerRoundTrip(t *testing.T) {
	m := &config.Manager{}
	cfg := config.NewConfig("host-1", "/var/lib/dhb")
	cfg.SourceDir = "/home/user/photos"
	cfg.BackupRoot = "/mnt/backups"
	cfg.MaxSpaceGB = 5
	cfg.Filesystem.Ignore = []string{"*.tmp", "cache"}

	var buf bytes.Buffer
	if err := m.Write(&buf, cfg); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.HostID != cfg.HostID {
		t.Errorf("HostID = %s, want %s", got.HostID, cfg.HostID)
	}
	if got.SourceDir != cfg.SourceDir {
		t.Errorf("SourceDir = %s, want %s", got.SourceDir, cfg.SourceDir)
	}
	if got.BackupRoot != cfg.BackupRoot {
		t.Errorf("BackupRoot = %s, want %s", got.BackupRoot, cfg.BackupRoot)
	}
	if got.MaxSpaceGB != cfg.MaxSpaceGB {
		t.Errorf("MaxSpaceGB = %d, want %d", got.MaxSpaceGB, cfg.MaxSpaceGB)
	}
	if len(got.Filesystem.Ignore) != 2 || got.Filesystem.Ignore[0] != "*.tmp" {
		t.Errorf("Filesystem.Ignore = %v, want %v", got.Filesystem.Ignore, cfg.Filesystem.Ignore)
	}
}

func TestReadInvalidToml(t *testing.T) {
	m := &config.Manager{}
	_, err := m.Read(strings.NewReader("host_id = [unclosed"))
	if err == nil {
		t.Fatal("Read() error = nil, want decode error")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates a new config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf", "dhb.toml")
		cfg := config.NewConfig("host-1", "/var/lib/dhb")

		if err := config.Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := config.ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.HostID != "host-1" {
			t.Errorf("HostID = %s, want host-1", got.HostID)
		}
	})

	t.Run("refuses to overwrite an existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dhb.toml")
		cfg := config.NewConfig("host-1", "/var/lib/dhb")

		if err := config.Init(path, cfg); err != nil {
			t.Fatalf("Init() first error = %v", err)
		}
		if err := config.Init(path, cfg); err == nil {
			t.Fatal("Init() second error = nil, want already-exists error")
		}
	})
}

func TestReadFromFileMissing(t *testing.T) {
	_, err := config.ReadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("ReadFromFile() error = nil, want error")
	}
}
