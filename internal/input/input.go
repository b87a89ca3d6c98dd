// Package input turns user-supplied paths into the configuration files a
// pipeline run processes.
package input

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extension is the recognized configuration file extension. Directory
// scans compare it case-insensitively.
const Extension = ".zap"

// MultipleFilesWarning is reported when a single-input mode receives more
// than one file.
const MultipleFilesWarning = "Multiple files passed. Using only first one."

// Reason classifies a ConfigurationInputError.
type Reason string

const (
	// ReasonNotFound means a supplied path does not exist.
	ReasonNotFound Reason = "NOT_FOUND"
	// ReasonNone means a directory holds no configuration file.
	ReasonNone Reason = "NO_CONFIGURATION"
	// ReasonMultiple means a directory holds more than one configuration file.
	ReasonMultiple Reason = "MULTIPLE_CONFIGURATIONS"
	// ReasonRequired means the mode needs at least one input and got none.
	ReasonRequired Reason = "INPUT_REQUIRED"
)

// ConfigurationInputError reports missing or ambiguous input. It is always
// fatal; the resolver never guesses.
type ConfigurationInputError struct {
	Reason  Reason
	Path    string
	Matches []string // populated for ReasonMultiple
}

// Error implements the error interface.
func (e *ConfigurationInputError) Error() string {
	switch e.Reason {
	case ReasonNotFound:
		return fmt.Sprintf("%s: path does not exist: %s", e.Reason, e.Path)
	case ReasonNone:
		return fmt.Sprintf("%s: no %s file found in directory %s", e.Reason, Extension, e.Path)
	case ReasonMultiple:
		return fmt.Sprintf("%s: multiple %s files found in directory %s: %s",
			e.Reason, Extension, e.Path, strings.Join(e.Matches, ", "))
	case ReasonRequired:
		return fmt.Sprintf("%s: at least one configuration file is required", e.Reason)
	default:
		return fmt.Sprintf("%s: %s", e.Reason, e.Path)
	}
}

// IsConfigurationInputError returns true if err is or wraps a
// ConfigurationInputError.
func IsConfigurationInputError(err error) bool {
	var ce *ConfigurationInputError
	return errors.As(err, &ce)
}

// Inputs is the outcome of resolution. Blank is set when nothing was
// supplied and the caller should start from an empty configuration.
type Inputs struct {
	Files []string
	Blank bool
}

// Resolve maps paths to configuration files.
//
// No paths resolve to a blank configuration. A single directory resolves
// to the one .zap file directly inside it. Anything else is taken as an
// ordered list of files.
func Resolve(paths []string) (Inputs, error) {
	var cleaned []string
	for _, p := range paths {
		if strings.TrimSpace(p) != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return Inputs{Blank: true}, nil
	}

	if len(cleaned) == 1 {
		info, err := os.Stat(cleaned[0])
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Inputs{}, &ConfigurationInputError{Reason: ReasonNotFound, Path: cleaned[0]}
			}
			return Inputs{}, fmt.Errorf("stat %s: %w", cleaned[0], err)
		}
		if info.IsDir() {
			file, err := scanDir(cleaned[0])
			if err != nil {
				return Inputs{}, err
			}
			return Inputs{Files: []string{file}}, nil
		}
	}
	return Inputs{Files: cleaned}, nil
}

// scanDir returns the single configuration file directly inside dir.
func scanDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read directory %s: %w", dir, err)
	}
	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), Extension) {
			matches = append(matches, e.Name())
		}
	}
	switch len(matches) {
	case 0:
		return "", &ConfigurationInputError{Reason: ReasonNone, Path: dir}
	case 1:
		return filepath.Join(dir, matches[0]), nil
	default:
		sort.Strings(matches)
		return "", &ConfigurationInputError{Reason: ReasonMultiple, Path: dir, Matches: matches}
	}
}

// RequireAtLeastOne fails for a blank resolution. Analyze and convert use it.
func RequireAtLeastOne(in Inputs) error {
	if in.Blank || len(in.Files) == 0 {
		return &ConfigurationInputError{Reason: ReasonRequired}
	}
	return nil
}

// Single returns the one file a single-input mode processes: the first
// file, or "" for a blank resolution. When more files were given the
// returned warning is MultipleFilesWarning.
func Single(in Inputs) (file, warning string) {
	if len(in.Files) == 0 {
		return "", ""
	}
	if len(in.Files) > 1 {
		warning = MultipleFilesWarning
	}
	return in.Files[0], warning
}
