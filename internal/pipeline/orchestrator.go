// Package pipeline runs the headless modes of zapgen.
//
// A run acquires a store, loads protocol metadata, loads the template
// package where the mode needs it, resolves the input files and then
// processes them one at a time, strictly in input order. Generate mode
// finally renders the templates against the single resolved session.
//
// Stages are executed by a single goroutine. Each input is fully processed,
// including every store mutation it causes, before the next input is
// dequeued; nothing else guards the store against concurrent writes.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/zapgen/internal/configfile"
	"github.com/roach88/zapgen/internal/env"
	"github.com/roach88/zapgen/internal/generator"
	"github.com/roach88/zapgen/internal/input"
	"github.com/roach88/zapgen/internal/report"
	"github.com/roach88/zapgen/internal/store"
	"github.com/roach88/zapgen/internal/templates"
	"github.com/roach88/zapgen/internal/zcl"
)

// Options control one run.
type Options struct {
	// ZclProperties is the protocol metadata package to load.
	ZclProperties string
	// GenerationTemplate is the template package to load.
	GenerationTemplate string

	// NoClean keeps an existing store file in modes that clean by default.
	NoClean bool
	// ClearDb moves the interactive store aside before the run.
	ClearDb bool
	// SkipPostGeneration suppresses the template package's post-generation
	// command.
	SkipPostGeneration bool

	// Quit terminates the process through Exit when a headless mode
	// finishes. Interactive mode never terminates.
	Quit bool
	// Exit is called with the exit status when Quit is set (os.Exit when nil).
	Exit func(code int)

	// Log enables the console progress lines.
	Log bool
	// Out receives progress lines and reports (io.Discard when nil).
	Out io.Writer
	// Err receives the fatal error before a failing exit (os.Stderr when nil).
	Err io.Writer

	Version env.VersionInfo
}

// Orchestrator runs modes against its collaborators.
type Orchestrator struct {
	Stores    StoreProvider
	Metadata  MetadataLoader
	Templates TemplateLoader
	Importer  Importer
	Exporter  Exporter
	Generator Generator
	Sessions  SessionFactory
	Reporter  Reporter
	// Backup moves a store file aside for ClearDb.
	Backup func(path string) error

	Log *slog.Logger
}

// Config configures the default collaborators.
type Config struct {
	StateDir string
	Version  env.VersionInfo
	Log      *slog.Logger
	// Out receives analysis reports and post-generation output.
	Out io.Writer
}

// New returns an Orchestrator wired to the default implementations.
func New(cfg Config) *Orchestrator {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	codec := configfile.NewCodec(log)
	gen := generator.New(log)
	gen.Stdout = out
	gen.Stderr = out

	return &Orchestrator{
		Stores:    store.Lifecycle{Dir: cfg.StateDir, Info: cfg.Version.StoreInfo()},
		Metadata:  zcl.NewLoader(log),
		Templates: templates.NewLoader(log),
		Importer:  codec,
		Exporter:  codec,
		Generator: gen,
		Sessions:  BlankSessions{},
		Reporter:  report.NewAnalyzer(out, log),
		Backup:    store.BackupFile,
		Log:       log,
	}
}

// Execute runs mode and applies the termination contract: with Quit set, a
// headless mode ends the process with status 0 on success, or prints the
// error to Err and ends it with status 1. Without Quit, or in interactive
// mode, Execute behaves like Run.
func (o *Orchestrator) Execute(ctx context.Context, mode Mode, opts Options) (*Report, error) {
	rep, err := o.Run(ctx, mode, opts)

	pol, _ := policyFor(mode)
	if !opts.Quit || !pol.headless {
		return rep, err
	}
	exit := opts.Exit
	if exit == nil {
		exit = os.Exit
	}
	if err != nil {
		w := opts.Err
		if w == nil {
			w = os.Stderr
		}
		fmt.Fprintln(w, err)
		exit(1)
		return rep, err
	}
	exit(0)
	return rep, nil
}

// Run executes mode and returns its report. The store is closed before Run
// returns.
func (o *Orchestrator) Run(ctx context.Context, mode Mode, opts Options) (*Report, error) {
	rep := &Report{Warnings: []string{}}
	if mode == nil {
		return rep, &Error{Code: ErrCodeInvalidMode, Message: "no mode given"}
	}
	rep.Mode = mode.Name()
	pol, ok := policyFor(mode)
	if !ok {
		return rep, &Error{Code: ErrCodeInvalidMode, Message: fmt.Sprintf("unknown mode %T", mode)}
	}

	r := &run{
		o:    o,
		opts: opts,
		pol:  pol,
		rep:  rep,
		con:  newConsole(opts.Out, opts.Log),
		log:  o.logger().With("mode", mode.Name()),
	}

	switch m := mode.(type) {
	case Interactive:
		return rep, r.interactive(ctx, m)
	case SelfCheck:
		return rep, r.selfCheck(ctx)
	case Analyze:
		return rep, r.analyze(ctx, m)
	case Convert:
		return rep, r.convert(ctx, m)
	case Generate:
		return rep, r.generate(ctx, m)
	default:
		return rep, &Error{Code: ErrCodeInvalidMode, Message: fmt.Sprintf("unknown mode %T", mode)}
	}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Log == nil {
		return slog.Default()
	}
	return o.Log
}

// run is the state of one invocation. The store handle is owned here and
// threaded through every stage.
type run struct {
	o    *Orchestrator
	opts Options
	pol  policy
	rep  *Report
	con  *console
	log  *slog.Logger
	st   *store.Store
}

// acquireStore is stage A.
func (r *run) acquireStore(ctx context.Context) error {
	path := r.o.Stores.ResolvePath(r.pol.storeName)
	r.rep.StorePath = path

	if r.opts.ClearDb && r.pol.storeName == store.NameInteractive && r.o.Backup != nil {
		if err := r.o.Backup(path); err != nil {
			return newStoreError(path, err)
		}
		r.con.step("old database file moved to backup")
	}

	clean := r.pol.clean && !r.opts.NoClean
	removed, err := r.o.Stores.EnsureAbsentIfClean(path, clean)
	if err != nil {
		return newStoreError(path, err)
	}
	if removed {
		r.rep.StoreCleaned = true
		r.con.step("remove old database file")
	}

	st, err := r.o.Stores.Initialize(ctx, path)
	if err != nil {
		return newStoreError(path, err)
	}
	r.st = st
	r.con.step("database and schema initialized")
	r.log.Debug("store acquired", "path", path, "cleaned", removed)
	return nil
}

func (r *run) close() {
	if r.st == nil {
		return
	}
	if err := r.st.Close(); err != nil {
		r.log.Warn("closing store", "error", err)
	}
	r.st = nil
}

// loadMetadata is stage B. Failure is always fatal.
func (r *run) loadMetadata(ctx context.Context) error {
	id, err := r.o.Metadata.LoadMetadata(ctx, r.st, r.opts.ZclProperties)
	if err != nil {
		r.con.failure("zcl data failed to load: %v", err)
		return newMetadataLoadError(r.opts.ZclProperties, err)
	}
	r.rep.MetadataPackageID = id
	r.con.step("zcl data loaded")
	return nil
}

// loadTemplates is stage C. Failure aborts the run only when the mode's
// policy says so; otherwise it becomes a warning.
func (r *run) loadTemplates(ctx context.Context) error {
	id, err := r.o.Templates.LoadTemplates(ctx, r.st, r.opts.GenerationTemplate)
	if err != nil {
		tErr := newTemplateLoadError(r.opts.GenerationTemplate, err)
		if r.pol.templatesFatal {
			r.con.failure("%v", err)
			return tErr
		}
		r.rep.warn(tErr.Error())
		r.con.warning("%v", err)
		r.log.Warn("template package not loaded", "path", r.opts.GenerationTemplate, "error", err)
		return nil
	}
	r.rep.TemplatePackageID = id
	r.con.step("generation templates loaded")
	return nil
}

// prepare runs stages A, B and C as the mode's policy requires.
func (r *run) prepare(ctx context.Context) error {
	if err := r.acquireStore(ctx); err != nil {
		return err
	}
	if err := r.loadMetadata(ctx); err != nil {
		return err
	}
	if r.pol.loadTemplates {
		return r.loadTemplates(ctx)
	}
	return nil
}

// processInputs is stage E for multi-input modes. Each job runs to
// completion before the next is dequeued. A failing input is recorded and
// the remaining inputs still run.
func (r *run) processInputs(files []string, fn func(file string) InputResult) {
	q := newInputQueue(files)
	q.drain(func(j job) {
		res := fn(j.File)
		res.File = j.File
		if res.Err != nil {
			r.con.failure("%s: %v", j.File, res.Err)
			r.log.Error("input failed", "file", j.File, "index", j.Index, "error", res.Err)
		}
		r.rep.Inputs = append(r.rep.Inputs, res)
	})
}

// inputsResult turns failed inputs into the run's error.
func (r *run) inputsResult() error {
	if failed := len(r.rep.Failed()); failed > 0 {
		return newInputProcessingError(failed, len(r.rep.Inputs))
	}
	return nil
}

func (r *run) selfCheck(ctx context.Context) error {
	r.con.start("Starting self-check")
	defer r.close()
	if err := r.prepare(ctx); err != nil {
		return err
	}
	r.con.finish("Self-check done!")
	return nil
}

func (r *run) analyze(ctx context.Context, m Analyze) error {
	r.con.start("Starting analysis: %v", m.Files)
	defer r.close()
	if err := r.prepare(ctx); err != nil {
		return err
	}

	files, err := r.resolveInputs(m.Files, true)
	if err != nil {
		return err
	}
	r.processInputs(files, func(file string) InputResult {
		id, err := r.o.Importer.Import(ctx, r.st, file)
		if err != nil {
			return InputResult{Err: err}
		}
		r.con.start("File: %s\n", file)
		if err := r.o.Reporter.Analyze(ctx, r.st, id, file); err != nil {
			return InputResult{SessionID: id, Err: err}
		}
		return InputResult{SessionID: id}
	})
	if err := r.inputsResult(); err != nil {
		return err
	}
	r.con.finish("Analysis done!")
	return nil
}

func (r *run) convert(ctx context.Context, m Convert) error {
	r.con.start("Conversion started")
	r.con.step("input files: %v", m.Files)
	r.con.step("output file: %s", m.Output)
	if m.Output == "" {
		return newInputError(fmt.Errorf("no output file given"))
	}
	defer r.close()
	if err := r.prepare(ctx); err != nil {
		return err
	}

	files, err := r.resolveInputs(m.Files, true)
	if err != nil {
		return err
	}
	if len(files) > 1 {
		r.warning("Multiple files converted into one output file. The last one wins.")
	}
	r.processInputs(files, func(file string) InputResult {
		id, err := r.o.Importer.Import(ctx, r.st, file)
		if err != nil {
			return InputResult{Err: err}
		}
		r.con.step("import done")
		if err := r.o.Exporter.Export(ctx, r.st, id, m.Output); err != nil {
			return InputResult{SessionID: id, Err: err}
		}
		r.con.step("export done")
		return InputResult{SessionID: id, Output: m.Output}
	})
	if err := r.inputsResult(); err != nil {
		return err
	}
	r.con.finish("Conversion done!")
	return nil
}

func (r *run) interactive(ctx context.Context, m Interactive) error {
	r.con.start("Starting interactive session store")
	defer r.close()
	if err := r.prepare(ctx); err != nil {
		return err
	}

	files, err := r.resolveInputs(m.Files, false)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		id, err := r.o.Sessions.CreateBlank(ctx, r.st, r.rep.MetadataPackageID, r.rep.TemplatePackageID)
		r.rep.Inputs = append(r.rep.Inputs, InputResult{SessionID: id, Err: err})
		if err != nil {
			return newStoreError(r.rep.StorePath, err)
		}
		r.con.step("using empty configuration")
		return nil
	}

	r.processInputs(files, func(file string) InputResult {
		id, err := r.o.Importer.Import(ctx, r.st, file)
		if err != nil {
			return InputResult{Err: err}
		}
		r.con.step("opened %s", file)
		return InputResult{SessionID: id}
	})
	return r.inputsResult()
}

func (r *run) generate(ctx context.Context, m Generate) error {
	r.con.start("ZAP generation information:")
	r.con.step("into: %s", m.Output)
	r.con.step("using templates: %s", r.opts.GenerationTemplate)
	r.con.step("using zcl data: %s", r.opts.ZclProperties)
	if m.Output == "" {
		return newInputError(fmt.Errorf("no output directory given"))
	}
	defer r.close()
	if err := r.prepare(ctx); err != nil {
		return err
	}

	// Stage D: at most one input.
	files := m.Files
	if len(files) > 1 {
		r.warning(input.MultipleFilesWarning)
		files = files[:1]
	}
	resolved, err := r.resolveInputs(files, false)
	if err != nil {
		return err
	}
	file, _ := input.Single(input.Inputs{Files: resolved})
	if file == "" {
		r.con.step("using empty configuration")
	} else {
		r.con.step("using input file: %s", file)
	}
	r.con.step("zap version: %s", r.opts.Version)

	// Stage E: the one input, or a blank session.
	var sessionID int64
	if file == "" {
		sessionID, err = r.o.Sessions.CreateBlank(ctx, r.st, r.rep.MetadataPackageID, r.rep.TemplatePackageID)
	} else {
		sessionID, err = r.o.Importer.Import(ctx, r.st, file)
		if err == nil {
			err = r.o.Sessions.AttachPackages(ctx, r.st, sessionID, r.rep.MetadataPackageID, r.rep.TemplatePackageID)
		}
	}
	r.rep.Inputs = append(r.rep.Inputs, InputResult{File: file, SessionID: sessionID, Output: m.Output, Err: err})
	if err != nil {
		return &Error{Code: ErrCodeInputProcessing, Message: "cannot prepare session", Path: file, Err: err}
	}

	// Stage F.
	res, err := r.o.Generator.Generate(ctx, r.st, sessionID, r.rep.TemplatePackageID, m.Output, generator.Options{
		GenResultFile:      m.GenResultFile,
		Backup:             m.Backup,
		SkipPostGeneration: r.opts.SkipPostGeneration,
		Version:            r.opts.Version.Version,
	})
	r.rep.Generation = res
	if err != nil {
		return newGenerationError(m.Output, 0, err)
	}
	if res.HasErrors {
		for _, f := range res.Errors() {
			r.con.failure("%s: %s", f.Output, f.Error)
		}
		return newGenerationError(m.Output, len(res.Errors()), nil)
	}
	for _, f := range res.Files {
		r.con.step("generated %s", f.Path)
	}
	r.con.finish("Generation done!")
	return nil
}

// resolveInputs is stage D. With required set, at least one file must
// resolve.
func (r *run) resolveInputs(paths []string, required bool) ([]string, error) {
	in, err := input.Resolve(paths)
	if err == nil && required {
		err = input.RequireAtLeastOne(in)
	}
	if err != nil {
		r.con.failure("%v", err)
		return nil, newInputError(err)
	}
	return in.Files, nil
}

func (r *run) warning(msg string) {
	r.rep.warn(msg)
	r.con.warning("%s", msg)
}
