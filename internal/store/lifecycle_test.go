package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLifecycle_ResolvePath(t *testing.T) {
	l := Lifecycle{Dir: "/state"}
	if got := l.ResolvePath(NameGenerate); got != filepath.Join("/state", "generate.sqlite") {
		t.Errorf("ResolvePath() = %q", got)
	}
	if l.ResolvePath(NameSelfCheck) == l.ResolvePath(NameAnalyze) {
		t.Error("distinct modes resolved to the same file")
	}
}

func TestLifecycle_EnsureAbsentIfClean(t *testing.T) {
	dir := t.TempDir()
	l := Lifecycle{Dir: dir}
	path := l.ResolvePath(NameAnalyze)

	s, err := l.Initialize(context.Background(), path)
	if err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	s.Close()

	removed, err := l.EnsureAbsentIfClean(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("file removed without clean flag")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file missing after non-clean call: %v", err)
	}

	removed, err = l.EnsureAbsentIfClean(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Error("removed = false, want true")
	}
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still present", p)
		}
	}

	removed, err = l.EnsureAbsentIfClean(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("removed = true for a missing file")
	}
}

func TestLifecycle_InitializeRecordsInfo(t *testing.T) {
	l := Lifecycle{
		Dir:  filepath.Join(t.TempDir(), "nested", "state"),
		Info: map[string]string{InfoAppVersion: "2.0.0", InfoFeatureLevel: "7"},
	}
	s, err := l.Initialize(context.Background(), l.ResolvePath(NameConvert))
	if err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	defer s.Close()

	got, err := s.Info(context.Background(), InfoFeatureLevel)
	if err != nil {
		t.Fatal(err)
	}
	if got != "7" {
		t.Errorf("feature level = %q, want 7", got)
	}
}

func TestBackupFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zap.sqlite")

	if err := BackupFile(path); err != nil {
		t.Fatalf("BackupFile() on missing file = %v", err)
	}

	if err := os.WriteFile(path, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := BackupFile(path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := BackupFile(path); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original file still present")
	}
	data, err := os.ReadFile(path + "~")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("backup content = %q, want second", data)
	}
}
