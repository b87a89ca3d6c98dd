// Package templates loads generation-template packages into a store.
//
// A template package is a YAML (or JSON) document naming the template
// files, their output names, the generator options and the package's
// extension tables. Template files are resolved relative to the package
// document and checksummed, but their bodies are read again at generation
// time.
package templates

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/zapgen/internal/store"
)

// Option categories and codes understood by the generator.
const (
	OptionCategoryGenerator = "generator"
	OptionPostGeneration    = "postGeneration"
)

// Document is the on-disk form of a template package.
type Document struct {
	Name           string                                  `yaml:"name"`
	Version        string                                  `yaml:"version"`
	Description    string                                  `yaml:"description"`
	Templates      []TemplateDocument                      `yaml:"templates"`
	Options        map[string]map[string]string            `yaml:"options,omitempty"`
	PostGeneration string                                  `yaml:"postGeneration,omitempty"`
	Extensions     map[string]map[string]ExtensionDocument `yaml:"zcl,omitempty"`
}

// TemplateDocument is one template entry.
type TemplateDocument struct {
	Path   string `yaml:"path"`
	Name   string `yaml:"name"`
	Output string `yaml:"output"`
}

// ExtensionDocument declares one extension property for an entity type.
type ExtensionDocument struct {
	Type            string            `yaml:"type"`
	Configurability string            `yaml:"configurability"`
	Label           string            `yaml:"label"`
	GlobalDefault   *string           `yaml:"globalDefault"`
	Defaults        []DefaultDocument `yaml:"defaults"`
}

// DefaultDocument is one per-entity default of an extension.
type DefaultDocument struct {
	ClusterCode string `yaml:"clusterCode"`
	EntityCode  string `yaml:"entityCode"`
	Role        string `yaml:"role"`
	Value       string `yaml:"value"`
}

// code returns the entity code, preferring the cluster-specific spelling.
func (d DefaultDocument) code() string {
	if d.ClusterCode != "" {
		return d.ClusterCode
	}
	return d.EntityCode
}

// Loader loads template packages.
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

// LoadTemplates loads the template package at path and returns its package
// id. Loading an unchanged file again returns the existing id.
func (l *Loader) LoadTemplates(ctx context.Context, st *store.Store, path string) (int64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, fmt.Errorf("no template package given")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", path, err)
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return 0, fmt.Errorf("read template package: %w", err)
	}
	doc, err := Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", abs, err)
	}

	// Every template file must exist before anything is written.
	dir := filepath.Dir(abs)
	templates := make([]store.Template, 0, len(doc.Templates))
	checksums := make([]string, 0, len(doc.Templates))
	for _, td := range doc.Templates {
		tp := td.Path
		if !filepath.IsAbs(tp) {
			tp = filepath.Join(dir, tp)
		}
		body, err := os.ReadFile(tp)
		if err != nil {
			return 0, fmt.Errorf("template %q: %w", td.Name, err)
		}
		templates = append(templates, store.Template{Path: tp, Name: td.Name, Output: td.Output})
		checksums = append(checksums, store.Checksum(body))
	}

	var (
		id      int64
		existed bool
	)
	err = st.Update(ctx, func(tx *store.Store) error {
		var err error
		id, existed, err = tx.InsertPackage(ctx, store.Package{
			Path:        abs,
			Type:        store.PackageTypeTemplates,
			Version:     doc.Version,
			Description: doc.Name,
			Checksum:    store.Checksum(raw),
		})
		if err != nil || existed {
			return err
		}
		if err := tx.InsertTemplates(ctx, id, templates, checksums); err != nil {
			return err
		}
		if err := tx.InsertPackageOptions(ctx, id, doc.packageOptions()); err != nil {
			return err
		}
		return tx.InsertExtensions(ctx, id, doc.extensions())
	})
	if err != nil {
		return 0, err
	}

	if existed {
		l.Log.Info("template package already loaded", "path", abs, "package", id)
	} else {
		l.Log.Info("template package loaded", "path", abs, "package", id, "templates", len(templates))
	}
	return id, nil
}

// Parse decodes and validates a template package document.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse template package: %w", err)
	}
	if len(doc.Templates) == 0 {
		return nil, fmt.Errorf("template package declares no templates")
	}
	outputs := make(map[string]string, len(doc.Templates))
	paths := make(map[string]bool, len(doc.Templates))
	for i, t := range doc.Templates {
		if strings.TrimSpace(t.Path) == "" {
			return nil, fmt.Errorf("template %d: missing path", i)
		}
		if strings.TrimSpace(t.Output) == "" {
			return nil, fmt.Errorf("template %q: missing output", t.Path)
		}
		if filepath.IsAbs(t.Output) || strings.HasPrefix(filepath.Clean(t.Output), "..") {
			return nil, fmt.Errorf("template %q: output %q escapes the generation directory", t.Path, t.Output)
		}
		if prev, dup := outputs[t.Output]; dup {
			return nil, fmt.Errorf("templates %q and %q write the same output %q", prev, t.Path, t.Output)
		}
		outputs[t.Output] = t.Path
		clean := filepath.Clean(t.Path)
		if paths[clean] {
			return nil, fmt.Errorf("template %q is listed more than once", t.Path)
		}
		paths[clean] = true
	}
	return &doc, nil
}

// packageOptions flattens the option map in a stable order. The
// postGeneration shorthand becomes a generator option.
func (d *Document) packageOptions() []store.PackageOption {
	var opts []store.PackageOption
	for _, category := range sortedKeys(d.Options) {
		codes := d.Options[category]
		for _, code := range sortedKeys(codes) {
			opts = append(opts, store.PackageOption{Category: category, Code: code, Label: codes[code]})
		}
	}
	if d.PostGeneration != "" {
		opts = append(opts, store.PackageOption{
			Category: OptionCategoryGenerator,
			Code:     OptionPostGeneration,
			Label:    d.PostGeneration,
		})
	}
	return opts
}

// extensions converts the extension map in a stable order. Defaults keep
// document order so duplicate keys resolve to the first one written.
func (d *Document) extensions() []store.Extension {
	var exts []store.Extension
	for _, entity := range sortedKeys(d.Extensions) {
		props := d.Extensions[entity]
		for _, property := range sortedKeys(props) {
			ed := props[property]
			ext := store.Extension{
				Entity:          entity,
				Property:        property,
				Type:            ed.Type,
				Configurability: ed.Configurability,
				Label:           ed.Label,
				GlobalDefault:   ed.GlobalDefault,
			}
			if ext.Type == "" {
				ext.Type = "text"
			}
			for _, def := range ed.Defaults {
				ext.Defaults = append(ext.Defaults, store.ExtensionDefault{
					EntityCode:      def.code(),
					EntityQualifier: def.Role,
					Value:           def.Value,
				})
			}
			exts = append(exts, ext)
		}
	}
	return exts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
