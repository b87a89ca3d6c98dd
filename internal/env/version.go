package env

import (
	"fmt"
	"strconv"
)

// Build information, set with -ldflags "-X github.com/roach88/zapgen/internal/env.version=...".
var (
	version      = "0.0.0"
	featureLevel = "0"
	commit       = "unknown"
	buildDate    = "unknown"
)

// VersionInfo describes the running build.
type VersionInfo struct {
	Version      string
	FeatureLevel int
	Hash         string
	Date         string
}

// Version returns the build information of the running binary.
func Version() VersionInfo {
	level, err := strconv.Atoi(featureLevel)
	if err != nil {
		level = 0
	}
	return VersionInfo{
		Version:      version,
		FeatureLevel: level,
		Hash:         commit,
		Date:         buildDate,
	}
}

// String renders the version as a single line.
func (v VersionInfo) String() string {
	return fmt.Sprintf("ver. %s, featureLevel %d, commit: %s from %s", v.Version, v.FeatureLevel, v.Hash, v.Date)
}

// StoreInfo is the version information recorded in every store.
func (v VersionInfo) StoreInfo() map[string]string {
	return map[string]string{
		"app_version":   v.Version,
		"feature_level": strconv.Itoa(v.FeatureLevel),
	}
}
