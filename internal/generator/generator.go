// Package generator renders the templates of a template package against a
// session and writes the resulting artifacts.
//
// Every template is rendered with text/template and the sprig function
// map. The clusterComponents function exposes the cluster component
// resolver to templates.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"github.com/roach88/zapgen/internal/deps"
	"github.com/roach88/zapgen/internal/store"
	"github.com/roach88/zapgen/internal/templates"
)

// ResultFileName is written into the output directory when requested.
const ResultFileName = "genResult.yaml"

// Options tune one generation run.
type Options struct {
	// Backup moves existing output files to <file>~ before writing.
	Backup bool
	// GenResultFile writes ResultFileName into the output directory.
	GenResultFile bool
	// SkipPostGeneration suppresses the package's post-generation command.
	SkipPostGeneration bool
	// Version is exposed to templates as .Version.
	Version string
}

// FileResult is the outcome of one template.
type FileResult struct {
	Template string `yaml:"template" json:"template"`
	Output   string `yaml:"output" json:"output"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	Error    string `yaml:"error,omitempty" json:"error,omitempty"`
}

// Failed reports whether the template failed to render or write.
func (f FileResult) Failed() bool {
	return f.Error != ""
}

// Result is the outcome of a generation run. Any failed file makes the
// whole run failed.
type Result struct {
	OutputDir      string       `yaml:"outputDirectory" json:"outputDirectory"`
	Files          []FileResult `yaml:"files" json:"files"`
	HasErrors      bool         `yaml:"hasErrors" json:"hasErrors"`
	PostGeneration *PostResult  `yaml:"postGeneration,omitempty" json:"postGeneration,omitempty"`
}

// Errors returns the failed files.
func (r *Result) Errors() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if f.Failed() {
			failed = append(failed, f)
		}
	}
	return failed
}

// Context is the data every template is executed with.
type Context struct {
	Session       store.Session
	Settings      map[string]string
	EndpointTypes []store.EndpointType
	Clusters      []store.Cluster
	Package       store.Package
	Template      store.Template
	Options       map[string]string
	Version       string
}

// Generator renders template packages.
type Generator struct {
	Log *slog.Logger

	// Stdout and Stderr receive the post-generation command's output.
	Stdout io.Writer
	Stderr io.Writer
}

// New returns a Generator logging to log (slog.Default when nil).
func New(log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{Log: log, Stdout: io.Discard, Stderr: io.Discard}
}

// Generate renders every template of packageID against sessionID into
// outputDir. Template failures are recorded per file and do not stop the
// remaining templates; the returned error covers only failures that
// prevent generation from starting.
func (g *Generator) Generate(ctx context.Context, st *store.Store, sessionID, packageID int64, outputDir string, opts Options) (*Result, error) {
	base, err := g.context(ctx, st, sessionID, packageID, opts)
	if err != nil {
		return nil, err
	}
	tmpls, err := st.Templates(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	resolver := deps.NewResolver(st, g.Log)
	funcs := sprig.TxtFuncMap()
	funcs["clusterComponents"] = func(clusterID int64, sides ...string) []string {
		return resolver.ComponentIDs(ctx, sessionID, clusterID, sides).Components()
	}

	res := &Result{OutputDir: outputDir, Files: []FileResult{}}
	for _, t := range tmpls {
		fr := FileResult{Template: t.Name, Output: t.Output}
		data := base
		data.Template = t
		if err := g.render(t, funcs, data, filepath.Join(outputDir, t.Output), opts.Backup); err != nil {
			fr.Error = err.Error()
			res.HasErrors = true
			g.Log.Error("template failed", "template", t.Name, "output", t.Output, "error", err)
		} else {
			fr.Path = filepath.Join(outputDir, t.Output)
			g.Log.Info("file generated", "template", t.Name, "path", fr.Path)
		}
		res.Files = append(res.Files, fr)
	}

	if cmd := base.Options[templates.OptionPostGeneration]; cmd != "" && !res.HasErrors {
		if opts.SkipPostGeneration {
			g.Log.Info("post-generation skipped", "command", cmd)
		} else {
			res.PostGeneration = g.postGenerate(ctx, cmd, outputDir)
		}
	}

	if opts.GenResultFile {
		if err := writeResultFile(res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// context gathers the session-wide template data.
func (g *Generator) context(ctx context.Context, st *store.Store, sessionID, packageID int64, opts Options) (Context, error) {
	var c Context
	var err error
	if c.Session, err = st.SessionByID(ctx, sessionID); err != nil {
		return c, fmt.Errorf("load session %d: %w", sessionID, err)
	}
	if c.Package, err = st.PackageByID(ctx, packageID); err != nil {
		return c, fmt.Errorf("load template package %d: %w", packageID, err)
	}

	kvs, err := st.SessionKeyValues(ctx, sessionID)
	if err != nil {
		return c, err
	}
	c.Settings = make(map[string]string, len(kvs))
	for _, kv := range kvs {
		c.Settings[kv.Key] = kv.Value
	}

	pkgOpts, err := st.PackageOptions(ctx, packageID, templates.OptionCategoryGenerator)
	if err != nil {
		return c, err
	}
	c.Options = make(map[string]string, len(pkgOpts))
	for _, o := range pkgOpts {
		c.Options[o.Code] = o.Label
	}

	if c.EndpointTypes, err = st.EndpointTypes(ctx, sessionID); err != nil {
		return c, err
	}

	meta, err := st.SessionPackagesByType(ctx, sessionID, store.PackageTypeMetadata)
	if err != nil {
		return c, err
	}
	c.Clusters = []store.Cluster{}
	if len(meta) > 0 {
		if c.Clusters, err = st.Clusters(ctx, meta[0].ID); err != nil {
			return c, err
		}
	}
	c.Version = opts.Version
	return c, nil
}

// render executes one template and writes its output. Nothing is written
// when execution fails.
func (g *Generator) render(t store.Template, funcs template.FuncMap, data Context, target string, backup bool) error {
	body, err := os.ReadFile(t.Path)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	tmpl, err := template.New(filepath.Base(t.Path)).Funcs(funcs).Parse(string(body))
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if backup {
		if err := store.BackupFile(target); err != nil {
			return err
		}
	}
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func writeResultFile(res *Result) error {
	out, err := yaml.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode generation result: %w", err)
	}
	path := filepath.Join(res.OutputDir, ResultFileName)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write generation result: %w", err)
	}
	return nil
}
