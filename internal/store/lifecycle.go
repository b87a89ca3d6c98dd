package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Well-known store names, one file per logical mode so that runs of
// different modes never observe each other's state.
const (
	NameInteractive = "zap"
	NameSelfCheck   = "self-check"
	NameAnalyze     = "analysis"
	NameConvert     = "convert"
	NameGenerate    = "generate"
)

// Info keys written by Initialize.
const (
	InfoAppVersion   = "app_version"
	InfoFeatureLevel = "feature_level"
)

// Lifecycle locates, clears and initializes store files under Dir.
type Lifecycle struct {
	Dir string

	// Info is written into every initialized store (see SetInfo).
	Info map[string]string

	// Options are passed to Open.
	Options []Option
}

// ResolvePath returns the store file for a logical name.
func (l Lifecycle) ResolvePath(name string) string {
	return filepath.Join(l.Dir, name+".sqlite")
}

// EnsureAbsentIfClean deletes the store file at path, together with its
// WAL side files, when clean is set. It reports whether a file was removed.
func (l Lifecycle) EnsureAbsentIfClean(path string, clean bool) (bool, error) {
	if !clean {
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat store file: %w", err)
	}
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("remove store file: %w", err)
		}
	}
	return true, nil
}

// Initialize creates the parent directory, opens the store at path and
// records the lifecycle info. The returned store is owned by the caller.
func (l Lifecycle) Initialize(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s, err := Open(path, l.Options...)
	if err != nil {
		return nil, err
	}
	for k, v := range l.Info {
		if err := s.SetInfo(ctx, k, v); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// BackupFile moves an existing file out of the way to path + "~".
// A missing file is not an error.
func BackupFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	backup := path + "~"
	if err := os.Remove(backup); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove old backup: %w", err)
	}
	if err := os.Rename(path, backup); err != nil {
		return fmt.Errorf("backup %s: %w", path, err)
	}
	return nil
}
