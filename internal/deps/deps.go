// Package deps resolves the optional SDK components a generated image must
// enable for a cluster in a set of roles.
//
// Component lists come from the "component" property of the cluster
// extension declared by the session's template package. Lookups are
// advisory: a failed resolution is logged and reported as a Failed
// Outcome, never returned to the caller as an error.
package deps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/zapgen/internal/store"
)

// PropertyComponent is the cluster extension property holding component ids.
const PropertyComponent = "component"

// Store is the read-only slice of the store the resolver needs.
type Store interface {
	SessionPackagesByType(ctx context.Context, sessionID int64, t store.PackageType) ([]store.Package, error)
	PackageExtensions(ctx context.Context, packageID int64, entity string) ([]store.Extension, error)
	ClusterByID(ctx context.Context, id int64) (store.Cluster, error)
}

// Status classifies an Outcome.
type Status int

const (
	// Resolved means the lookup ran; Result.ComponentIDs may still be empty.
	Resolved Status = iota + 1
	// NoPackage means the session has no template package attached.
	NoPackage
	// Failed means the lookup could not be completed. Err holds the cause.
	Failed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case NoPackage:
		return "no-package"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is a completed component lookup.
type Result struct {
	ComponentIDs []string
	ClusterID    int64
	Label        string // lower-cased cluster label
	Sides        []string
}

// Outcome is the result of ComponentIDs. Result is only meaningful when
// Status is Resolved.
type Outcome struct {
	Status Status
	Result Result
	Err    *ResolutionError
}

// Components returns the resolved component ids, or nil unless Resolved.
func (o Outcome) Components() []string {
	if o.Status != Resolved {
		return nil
	}
	return o.Result.ComponentIDs
}

// ResolutionError reports a failed lookup for a cluster.
type ResolutionError struct {
	ClusterID int64
	Stage     string
	Err       error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve components for cluster %d: %s: %v", e.ClusterID, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Resolution stages named in ResolutionError.
const (
	StagePackage   = "template package"
	StageExtension = "extension table"
	StageCluster   = "cluster record"
	StageInput     = "input"
)

var errNoSides = errors.New("at least one side is required")

// Resolver looks up cluster component dependencies.
type Resolver struct {
	store Store
	log   *slog.Logger
}

// NewResolver returns a Resolver over st, logging failures to log
// (slog.Default when nil).
func NewResolver(st Store, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{store: st, log: log}
}

// ComponentIDs resolves the component ids for clusterID in the given sides.
//
// The first template package attached to the session is used. For each
// side the key "<lower label>-<side>" is looked up in the package's cluster
// extension table. Hits are split on commas, trimmed and concatenated in
// side order without removing duplicates.
func (r *Resolver) ComponentIDs(ctx context.Context, sessionID, clusterID int64, sides []string) Outcome {
	if len(sides) == 0 {
		return r.fail(clusterID, StageInput, errNoSides)
	}

	pkgs, err := r.store.SessionPackagesByType(ctx, sessionID, store.PackageTypeTemplates)
	if err != nil {
		return r.fail(clusterID, StagePackage, err)
	}
	if len(pkgs) == 0 {
		r.log.Debug("no template package attached to session", "session", sessionID, "cluster", clusterID)
		return Outcome{Status: NoPackage}
	}
	if len(pkgs) > 1 {
		r.log.Debug("session has several template packages, using the first",
			"session", sessionID, "package", pkgs[0].ID, "count", len(pkgs))
	}

	exts, err := r.store.PackageExtensions(ctx, pkgs[0].ID, store.ExtensionEntityCluster)
	if err != nil {
		return r.fail(clusterID, StageExtension, err)
	}

	cluster, err := r.store.ClusterByID(ctx, clusterID)
	if err != nil {
		return r.fail(clusterID, StageCluster, err)
	}
	label := strings.ToLower(cluster.Label)

	ids := []string{}
	for _, side := range sides {
		value, ok := store.ExtensionValue(exts, PropertyComponent, label+"-"+side)
		if !ok {
			continue
		}
		ids = append(ids, splitList(value)...)
	}

	return Outcome{
		Status: Resolved,
		Result: Result{
			ComponentIDs: ids,
			ClusterID:    clusterID,
			Label:        label,
			Sides:        append([]string(nil), sides...),
		},
	}
}

func (r *Resolver) fail(clusterID int64, stage string, err error) Outcome {
	re := &ResolutionError{ClusterID: clusterID, Stage: stage, Err: err}
	r.log.Error("component resolution failed", "cluster", clusterID, "stage", stage, "error", err)
	return Outcome{Status: Failed, Err: re}
}

// splitList splits a comma-separated value, dropping empty items.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
