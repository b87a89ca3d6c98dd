package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sqlite")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sqlite")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	var count int
	if err := s2.db.QueryRow("SELECT COUNT(*) FROM package").Scan(&count); err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sqlite")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
		{"user_version", fmt.Sprintf("%d", CurrentSchemaVersion)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestOpen_SchemaVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sqlite")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.DB().Exec(fmt.Sprintf("PRAGMA user_version = %d", CurrentSchemaVersion+1)); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	s.Close()

	_, err = Open(path)
	if err == nil {
		t.Fatal("Open() succeeded on a newer schema version")
	}
	if !errors.Is(err, ErrSchemaVersionMismatch) {
		t.Errorf("error = %v, want ErrSchemaVersionMismatch", err)
	}
	var verr *SchemaVersionError
	if !errors.As(err, &verr) {
		t.Fatalf("error %T is not a *SchemaVersionError", err)
	}
	if verr.Found != CurrentSchemaVersion+1 || verr.Expected != CurrentSchemaVersion {
		t.Errorf("versions = (%d, %d)", verr.Found, verr.Expected)
	}
}

func TestStoreInfo(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.SetInfo(ctx, InfoAppVersion, "1.0.0"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetInfo(ctx, InfoAppVersion, "1.1.0"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Info(ctx, InfoAppVersion)
	if err != nil {
		t.Fatal(err)
	}
	if got != "1.1.0" {
		t.Errorf("Info() = %q, want 1.1.0", got)
	}
}

func TestClose_NilSafe(t *testing.T) {
	var s *Store
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil store = %v", err)
	}
}
