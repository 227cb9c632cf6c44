package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetHomeFromEnv(t *testing.T) {
	home := filepath.Join(t.TempDir(), "custom-home")
	t.Setenv("MAILSCAN_HOME", home)

	got, err := GetHome()
	if err != nil {
		t.Fatalf("GetHome() error = %v", err)
	}
	if got != home {
		t.Errorf("GetHome() = %q, want %q", got, home)
	}
	if info, err := os.Stat(home); err != nil || !info.IsDir() {
		t.Errorf("GetHome() did not create %q", home)
	}
}

func TestGetHomeDefaultsToWorkingDir(t *testing.T) {
	t.Setenv("MAILSCAN_HOME", "")
	cwd := t.TempDir()
	t.Chdir(cwd)

	got, err := GetHome()
	if err != nil {
		t.Fatalf("GetHome() error = %v", err)
	}

	resolved, err := filepath.EvalSymlinks(filepath.Dir(got))
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}
	wantParent, _ := filepath.EvalSymlinks(cwd)
	if resolved != wantParent || filepath.Base(got) != ".mailscan" {
		t.Errorf("GetHome() = %q, want %q", got, filepath.Join(cwd, ".mailscan"))
	}
}

func TestHistoryDBPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MAILSCAN_HOME", home)

	cfg := DefaultConfig()
	got, err := cfg.HistoryDBPath()
	if err != nil {
		t.Fatalf("HistoryDBPath() error = %v", err)
	}
	if want := filepath.Join(home, "history.db"); got != want {
		t.Errorf("HistoryDBPath() = %q, want %q", got, want)
	}

	cfg.History.DBPath = "/data/runs.db"
	got, err = cfg.HistoryDBPath()
	if err != nil {
		t.Fatalf("HistoryDBPath() error = %v", err)
	}
	if got != "/data/runs.db" {
		t.Errorf("HistoryDBPath() = %q, want %q", got, "/data/runs.db")
	}
}
