// Package zcl loads protocol-metadata packages into a store.
//
// A metadata package is a YAML (or JSON) document listing the protocol's
// clusters. A package and its clusters are written in one transaction, so a
// failed load leaves no rows behind.
package zcl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/zapgen/internal/store"
)

// Sides a cluster may declare.
const (
	SideClient = "client"
	SideServer = "server"
)

// Document is the on-disk form of a metadata package.
type Document struct {
	Version     string            `yaml:"version"`
	Description string            `yaml:"description"`
	Clusters    []ClusterDocument `yaml:"clusters"`
}

// ClusterDocument is one cluster entry of a metadata package.
type ClusterDocument struct {
	Code             int64    `yaml:"code"`
	ManufacturerCode *int64   `yaml:"manufacturerCode,omitempty"`
	Name             string   `yaml:"name"`
	Define           string   `yaml:"define"`
	Description      string   `yaml:"description"`
	Sides            []string `yaml:"sides,omitempty"`
}

// Result describes a completed load.
type Result struct {
	PackageID int64
	Reused    bool // an identical file was already loaded
	Clusters  int
}

// Loader loads metadata packages.
type Loader struct {
	Log *slog.Logger
}

// NewLoader returns a Loader logging to log (slog.Default when nil).
func NewLoader(log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{Log: log}
}

// LoadMetadata loads the metadata package at path and returns its package id.
func (l *Loader) LoadMetadata(ctx context.Context, st *store.Store, path string) (int64, error) {
	res, err := l.Load(ctx, st, path)
	if err != nil {
		return 0, err
	}
	return res.PackageID, nil
}

// Load parses path and records the package and its clusters.
func (l *Loader) Load(ctx context.Context, st *store.Store, path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, fmt.Errorf("no metadata file given")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return Result{}, fmt.Errorf("read metadata: %w", err)
	}

	doc, err := Parse(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", abs, err)
	}

	clusters := make([]store.Cluster, 0, len(doc.Clusters))
	for _, c := range doc.Clusters {
		clusters = append(clusters, store.Cluster{
			Code:             c.Code,
			ManufacturerCode: c.ManufacturerCode,
			Label:            c.Name,
			Define:           c.Define,
			Description:      c.Description,
			Sides:            c.Sides,
		})
	}

	var (
		id      int64
		existed bool
	)
	err = st.Update(ctx, func(tx *store.Store) error {
		var err error
		id, existed, err = tx.InsertPackage(ctx, store.Package{
			Path:        abs,
			Type:        store.PackageTypeMetadata,
			Version:     doc.Version,
			Description: doc.Description,
			Checksum:    store.Checksum(raw),
		})
		if err != nil || existed {
			return err
		}
		_, err = tx.InsertClusters(ctx, id, clusters)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	if existed {
		l.Log.Info("metadata package already loaded", "path", abs, "package", id)
		return Result{PackageID: id, Reused: true, Clusters: len(doc.Clusters)}, nil
	}

	l.Log.Info("metadata package loaded", "path", abs, "package", id, "clusters", len(clusters))
	return Result{PackageID: id, Clusters: len(clusters)}, nil
}

// Parse decodes and validates a metadata document. Missing sides default
// to both client and server.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	if len(doc.Clusters) == 0 {
		return nil, fmt.Errorf("metadata declares no clusters")
	}

	type codeKey struct {
		mfg  int64
		code int64
	}
	seen := make(map[codeKey]string, len(doc.Clusters))
	for i := range doc.Clusters {
		c := &doc.Clusters[i]
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("cluster %d: missing name", i)
		}
		k := codeKey{code: c.Code}
		if c.ManufacturerCode != nil {
			k.mfg = *c.ManufacturerCode
		}
		if prev, dup := seen[k]; dup {
			return nil, fmt.Errorf("cluster %q: code 0x%04X already used by %q", c.Name, c.Code, prev)
		}
		seen[k] = c.Name

		if len(c.Sides) == 0 {
			c.Sides = []string{SideClient, SideServer}
		}
		for j, side := range c.Sides {
			side = strings.ToLower(strings.TrimSpace(side))
			if side != SideClient && side != SideServer {
				return nil, fmt.Errorf("cluster %q: invalid side %q", c.Name, side)
			}
			c.Sides[j] = side
		}
	}
	return &doc, nil
}
