package store

import "time"

// PackageType identifies what a package row was loaded from.
type PackageType string

const (
	// PackageTypeMetadata is a protocol-metadata package.
	PackageTypeMetadata PackageType = "zcl-properties"
	// PackageTypeTemplates is a generation-template package.
	PackageTypeTemplates PackageType = "gen-templates-json"
	// PackageTypeSingleTemplate is one template file inside a template package.
	PackageTypeSingleTemplate PackageType = "gen-single-template"
)

// Extension entities.
const (
	ExtensionEntityCluster = "cluster"
)

// Package is a loaded artifact contributing metadata to the store.
type Package struct {
	ID          int64
	ParentID    int64 // 0 for top-level packages
	Path        string
	Type        PackageType
	Version     string
	Description string
	Checksum    string
}

// PackageOption is a category/code/label triple declared by a package.
type PackageOption struct {
	Category string
	Code     string
	Label    string
}

// Template is one template file of a template package.
type Template struct {
	PackageID int64
	Path      string
	Name      string
	Output    string // output file name, relative to the generation directory
}

// Cluster is the canonical record of a protocol cluster.
type Cluster struct {
	ID               int64
	PackageID        int64
	Code             int64
	ManufacturerCode *int64
	Label            string
	Define           string
	Description      string
	Sides            []string
}

// Extension is a package-scoped property declaration for one entity type.
// Defaults are ordered by insertion.
type Extension struct {
	ID              int64
	PackageID       int64
	Entity          string
	Property        string
	Type            string
	Configurability string
	Label           string
	GlobalDefault   *string
	Defaults        []ExtensionDefault
}

// ExtensionDefault is one (entity code, qualifier) -> value row.
type ExtensionDefault struct {
	EntityCode      string
	EntityQualifier string
	Key             string // normalized composite key
	Value           string
}

// Session is one configuration instance.
type Session struct {
	ID        int64
	Key       string
	CreatedAt time.Time
}

// EndpointType is a named group of cluster states inside a session.
type EndpointType struct {
	ID       int64
	Name     string
	Clusters []EndpointTypeCluster
}

// EndpointTypeCluster is the state of one cluster side in an endpoint type.
// ClusterID is 0 when the code did not match any loaded cluster.
type EndpointTypeCluster struct {
	ClusterID int64
	Code      int64
	Name      string
	Side      string
	Enabled   bool
}
