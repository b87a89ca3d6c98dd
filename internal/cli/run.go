package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/zapgen/internal/env"
	"github.com/roach88/zapgen/internal/generator"
	"github.com/roach88/zapgen/internal/pipeline"
)

// RunSummary is the JSON payload describing a finished run.
type RunSummary struct {
	Mode         string            `json:"mode"`
	Store        string            `json:"store"`
	StoreCleaned bool              `json:"store_cleaned"`
	Sessions     []int64           `json:"sessions"`
	Inputs       []InputSummary    `json:"inputs,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
	Generation   *generator.Result `json:"generation,omitempty"`
}

// InputSummary is one processed input of a RunSummary.
type InputSummary struct {
	File    string `json:"file,omitempty"`
	Session int64  `json:"session,omitempty"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// runMode executes mode with the global options.
//
// In text format the pipeline owns termination: headless modes end the
// process through opts.Exit. In JSON format the run is not terminated so the
// summary can be written; failures come back as an ExitError.
func runMode(cmd *cobra.Command, opts *RootOptions, mode pipeline.Mode) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	text := opts.Format != "json"

	settings := env.Load()
	stateDir, err := settings.ResolveStateDir(opts.StateDirectory)
	if err != nil {
		return commandError(formatter, err)
	}
	formatter.VerboseLog("state directory: %s", stateDir)

	// Progress lines, reports and --logToStdout records would corrupt JSON on
	// stdout.
	out := cmd.OutOrStdout()
	if !text {
		out = cmd.ErrOrStderr()
	}

	log, closeLog, err := openLogger(out, opts, settings, stateDir)
	if err != nil {
		return commandError(formatter, err)
	}
	defer closeLog()

	version := env.Version()
	log.Info("starting", "mode", mode.Name(), "version", version.String(), "state", stateDir)

	orch := pipeline.New(pipeline.Config{
		StateDir: stateDir,
		Version:  version,
		Log:      log,
		Out:      out,
	})
	rep, err := orch.Execute(cmd.Context(), mode, pipeline.Options{
		ZclProperties:      opts.ZclProperties,
		GenerationTemplate: opts.GenerationTemplate,
		NoClean:            opts.NoClean,
		ClearDb:            opts.ClearDb,
		SkipPostGeneration: settings.SkipPostGeneration,
		Quit:               text,
		Exit:               opts.Exit,
		Log:                true,
		Out:                out,
		Err:                cmd.ErrOrStderr(),
		Version:            version,
	})

	if !text {
		return writeJSON(formatter, rep, err)
	}
	if err != nil {
		return WrapExitError(ExitFailure, mode.Name()+" failed", err)
	}
	if _, ok := mode.(pipeline.Interactive); ok {
		fmt.Fprintf(formatter.Writer, "Store: %s\n", rep.StorePath)
		for _, id := range rep.Sessions() {
			fmt.Fprintf(formatter.Writer, "Session: %d\n", id)
		}
	}
	return nil
}

// openLogger logs to console when --logToStdout is set, otherwise to the log
// file in stateDir.
func openLogger(console io.Writer, opts *RootOptions, settings env.Settings, stateDir string) (*slog.Logger, func(), error) {
	if opts.LogToStdout {
		log, err := env.NewLogger(console, settings.LogLevel)
		return log, func() {}, err
	}
	f, err := env.OpenLogFile(stateDir)
	if err != nil {
		return nil, nil, err
	}
	log, err := env.NewLogger(f, settings.LogLevel)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return log, func() { _ = f.Close() }, nil
}

func summarize(rep *pipeline.Report) RunSummary {
	s := RunSummary{
		Mode:         rep.Mode,
		Store:        rep.StorePath,
		StoreCleaned: rep.StoreCleaned,
		Sessions:     rep.Sessions(),
		Warnings:     rep.Warnings,
		Generation:   rep.Generation,
	}
	if s.Sessions == nil {
		s.Sessions = []int64{}
	}
	for _, in := range rep.Inputs {
		is := InputSummary{File: in.File, Session: in.SessionID, Output: in.Output}
		if in.Err != nil {
			is.Error = in.Err.Error()
		}
		s.Inputs = append(s.Inputs, is)
	}
	return s
}

func writeJSON(formatter *OutputFormatter, rep *pipeline.Report, runErr error) error {
	summary := summarize(rep)
	if runErr == nil {
		return formatter.Success(summary)
	}
	if err := formatter.Error(errorCode(runErr), runErr.Error(), summary); err != nil {
		return err
	}
	return WrapExitError(ExitFailure, rep.Mode+" failed", runErr)
}

// errorCode returns the pipeline error code of err, or "ERROR".
func errorCode(err error) string {
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	return "ERROR"
}

func commandError(formatter *OutputFormatter, err error) error {
	if formatter.Format == "json" {
		_ = formatter.Error("COMMAND_ERROR", err.Error(), nil)
	}
	return WrapExitError(ExitCommandError, "cannot start", err)
}
