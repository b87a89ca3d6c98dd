package pipeline

import (
	"context"
	"fmt"

	"github.com/roach88/zapgen/internal/generator"
	"github.com/roach88/zapgen/internal/store"
)

// StoreProvider locates, clears and opens store files.
// store.Lifecycle is the default implementation.
type StoreProvider interface {
	ResolvePath(name string) string
	EnsureAbsentIfClean(path string, clean bool) (bool, error)
	Initialize(ctx context.Context, path string) (*store.Store, error)
}

// MetadataLoader loads a protocol metadata package and returns its id.
type MetadataLoader interface {
	LoadMetadata(ctx context.Context, st *store.Store, path string) (int64, error)
}

// TemplateLoader loads a generation-template package and returns its id.
type TemplateLoader interface {
	LoadTemplates(ctx context.Context, st *store.Store, path string) (int64, error)
}

// Importer creates a session from a configuration file.
type Importer interface {
	Import(ctx context.Context, st *store.Store, file string) (int64, error)
}

// Exporter writes a session to a configuration file.
type Exporter interface {
	Export(ctx context.Context, st *store.Store, sessionID int64, file string) error
}

// Generator renders a template package against a session.
type Generator interface {
	Generate(ctx context.Context, st *store.Store, sessionID, packageID int64, outputDir string, opts generator.Options) (*generator.Result, error)
}

// SessionFactory creates blank sessions and attaches packages to sessions.
type SessionFactory interface {
	CreateBlank(ctx context.Context, st *store.Store, packageIDs ...int64) (int64, error)
	AttachPackages(ctx context.Context, st *store.Store, sessionID int64, packageIDs ...int64) error
}

// Reporter writes the analysis of an imported session.
type Reporter interface {
	Analyze(ctx context.Context, st *store.Store, sessionID int64, file string) error
}

// BlankSessions is the default SessionFactory.
type BlankSessions struct{}

// CreateBlank creates an empty session with the given packages attached.
func (BlankSessions) CreateBlank(ctx context.Context, st *store.Store, packageIDs ...int64) (int64, error) {
	sess, err := st.CreateSession(ctx)
	if err != nil {
		return 0, err
	}
	if err := (BlankSessions{}).AttachPackages(ctx, st, sess.ID, packageIDs...); err != nil {
		return 0, err
	}
	return sess.ID, nil
}

// AttachPackages attaches the non-zero package ids to a session.
// Packages already attached are left alone.
func (BlankSessions) AttachPackages(ctx context.Context, st *store.Store, sessionID int64, packageIDs ...int64) error {
	for _, id := range packageIDs {
		if id == 0 {
			continue
		}
		if err := st.AttachPackage(ctx, sessionID, id, true); err != nil {
			return fmt.Errorf("initialize session packages: %w", err)
		}
	}
	return nil
}
