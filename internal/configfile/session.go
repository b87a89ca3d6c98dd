package configfile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/roach88/zapgen/internal/store"
)

// Codec imports .zap files into sessions and exports sessions back.
type Codec struct {
	Log *slog.Logger
}

// NewCodec returns a Codec logging to log (slog.Default when nil).
func NewCodec(log *slog.Logger) *Codec {
	if log == nil {
		log = slog.Default()
	}
	return &Codec{Log: log}
}

// Import reads the .zap file at path into a new session and returns its id.
//
// Package references are resolved relative to the file. A reference whose
// path was not loaded falls back to the newest loaded package of the same
// type; one with no candidate at all is skipped with a warning. Cluster
// states are bound to the clusters of the session's first metadata package.
func (c *Codec) Import(ctx context.Context, st *store.Store, path string) (int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, &CodecError{Code: ErrCodeRead, Message: err.Error()}
	}
	doc, err := Decode(raw, path)
	if err != nil {
		return 0, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", path, err)
	}

	var id int64
	err = st.Update(ctx, func(tx *store.Store) error {
		var err error
		id, err = c.importDocument(ctx, tx, doc, path, filepath.Dir(abs))
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// importDocument writes doc as a new session. dir resolves relative package
// references.
func (c *Codec) importDocument(ctx context.Context, st *store.Store, doc *Document, path, dir string) (int64, error) {
	sess, err := st.CreateSession(ctx)
	if err != nil {
		return 0, err
	}
	log := c.Log.With("file", path, "session", sess.ID)

	for _, kv := range doc.KeyValuePairs {
		if err := st.SetSessionKeyValue(ctx, sess.ID, kv.Key, kv.Value); err != nil {
			return 0, err
		}
	}

	for _, ref := range doc.Packages {
		pkg, ok, err := c.matchPackage(ctx, st, dir, ref, log)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		if err := st.AttachPackage(ctx, sess.ID, pkg.ID, true); err != nil {
			return 0, err
		}
	}

	metaID, err := c.metadataPackage(ctx, st, sess.ID)
	if err != nil {
		return 0, err
	}

	for _, et := range doc.EndpointTypes {
		rec := store.EndpointType{Name: et.Name}
		for _, cs := range et.Clusters {
			state := store.EndpointTypeCluster{
				Code:    cs.Code,
				Name:    cs.Name,
				Side:    cs.Side,
				Enabled: cs.Enabled,
			}
			if metaID != 0 {
				cl, err := st.ClusterByCode(ctx, metaID, cs.Code)
				switch {
				case err == nil:
					state.ClusterID = cl.ID
					if state.Name == "" {
						state.Name = cl.Label
					}
				case errors.Is(err, sql.ErrNoRows):
					log.Warn("cluster not found in metadata", "endpointType", et.Name, "code", cs.Code)
				default:
					return 0, err
				}
			}
			rec.Clusters = append(rec.Clusters, state)
		}
		if _, err := st.InsertEndpointType(ctx, sess.ID, rec); err != nil {
			return 0, err
		}
	}

	log.Info("configuration imported", "endpointTypes", len(doc.EndpointTypes))
	return sess.ID, nil
}

func (c *Codec) matchPackage(ctx context.Context, st *store.Store, dir string, ref PackageRef, log *slog.Logger) (store.Package, bool, error) {
	p := ref.Path
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	p = filepath.Clean(p)
	t := store.PackageType(ref.Type)

	pkg, err := st.PackageByPath(ctx, p, t)
	if err == nil {
		return pkg, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.Package{}, false, err
	}

	loaded, err := st.PackagesByType(ctx, t)
	if err != nil {
		return store.Package{}, false, err
	}
	if len(loaded) == 0 {
		log.Warn("referenced package not loaded", "path", p, "type", ref.Type)
		return store.Package{}, false, nil
	}
	pkg = loaded[len(loaded)-1]
	log.Warn("referenced package not loaded, using loaded package instead",
		"path", p, "type", ref.Type, "using", pkg.Path)
	return pkg, true, nil
}

// metadataPackage returns the first metadata package attached to a
// session, or 0 if none is.
func (c *Codec) metadataPackage(ctx context.Context, st *store.Store, sessionID int64) (int64, error) {
	pkgs, err := st.SessionPackagesByType(ctx, sessionID, store.PackageTypeMetadata)
	if err != nil {
		return 0, err
	}
	if len(pkgs) == 0 {
		return 0, nil
	}
	return pkgs[0].ID, nil
}

// Export writes the session to path as a .zap document.
func (c *Codec) Export(ctx context.Context, st *store.Store, sessionID int64, path string) error {
	doc, err := c.Document(ctx, st, sessionID, filepath.Dir(path))
	if err != nil {
		return err
	}
	out, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return &CodecError{Code: ErrCodeWrite, Message: err.Error()}
	}
	c.Log.Info("configuration exported", "file", path, "session", sessionID)
	return nil
}

// Document builds the document for a session. Package paths are made
// relative to baseDir when possible.
func (c *Codec) Document(ctx context.Context, st *store.Store, sessionID int64, baseDir string) (*Document, error) {
	doc := &Document{
		Creator:       Creator,
		KeyValuePairs: []KeyValue{},
		Packages:      []PackageRef{},
		EndpointTypes: []EndpointType{},
	}

	if level, err := st.Info(ctx, store.InfoFeatureLevel); err == nil {
		if n, err := strconv.Atoi(level); err == nil {
			doc.FeatureLevel = n
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	kvs, err := st.SessionKeyValues(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, kv := range kvs {
		doc.KeyValuePairs = append(doc.KeyValuePairs, KeyValue{Key: kv.Key, Value: kv.Value})
	}

	pkgs, err := st.SessionPackages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, p := range pkgs {
		doc.Packages = append(doc.Packages, PackageRef{
			Path:    relativeTo(baseDir, p.Path),
			Type:    string(p.Type),
			Version: p.Version,
		})
	}

	types, err := st.EndpointTypes(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("export session %d: %w", sessionID, err)
	}
	for _, et := range types {
		out := EndpointType{Name: et.Name, Clusters: []ClusterState{}}
		for _, cl := range et.Clusters {
			out.Clusters = append(out.Clusters, ClusterState{
				Name:    cl.Name,
				Code:    cl.Code,
				Side:    cl.Side,
				Enabled: cl.Enabled,
			})
		}
		doc.EndpointTypes = append(doc.EndpointTypes, out)
	}
	return doc, nil
}

func relativeTo(base, path string) string {
	if base == "" {
		return path
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(absBase, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
