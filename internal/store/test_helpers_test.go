package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	s, err := Open(path, WithKeyGenerator(NewFixedGenerator("key-1", "key-2", "key-3", "key-4")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPackage inserts a top-level package with a checksum derived
// from its path.
func createTestPackage(t *testing.T, s *Store, path string, typ PackageType) int64 {
	t.Helper()
	id, _, err := s.InsertPackage(context.Background(), Package{
		Path:     path,
		Type:     typ,
		Version:  "1",
		Checksum: Checksum([]byte(path)),
	})
	if err != nil {
		t.Fatalf("InsertPackage(%s) failed: %v", path, err)
	}
	return id
}
