// Package cli is the command line surface of zapgen. Commands only parse
// flags and forward to the pipeline.
package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/zapgen/internal/env"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ZclProperties      string
	GenerationTemplate string
	StateDirectory     string
	LogToStdout        bool
	ClearDb            bool
	NoClean            bool

	// Exit ends the process for headless modes (os.Exit when nil).
	Exit func(code int)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// DefaultZclProperties is the metadata package used when --zclProperties is
// not given, relative to the working directory.
const DefaultZclProperties = "zcl-builtin/silabs/zcl.json"

// NewRootCommand creates the root command for the zapgen CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	var zapFiles []string

	cmd := &cobra.Command{
		Use:     "zapgen",
		Short:   "zapgen - Zigbee cluster configuration and generation",
		Long:    "Loads protocol metadata and generation templates into a session store, then\nanalyzes, converts or generates code from .zap configuration files.\n\n" + envHelp(),
		Version: env.Version().String(),
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, opts, zapFiles)
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ZclProperties, "zclProperties", DefaultZclProperties, "protocol metadata package")
	pf.StringVar(&opts.GenerationTemplate, "generationTemplate", "", "generation template package")
	pf.StringVar(&opts.StateDirectory, "stateDirectory", "", "state directory (overrides "+env.VarStateDir+")")
	pf.BoolVar(&opts.LogToStdout, "logToStdout", false, "write the log to stdout instead of the log file")
	pf.BoolVar(&opts.ClearDb, "clearDb", false, "move the interactive store aside before starting")
	pf.BoolVar(&opts.NoClean, "noClean", false, "keep the store of modes that start from a clean store")

	cmd.SetVersionTemplate("zapgen {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.Flags().StringSliceVar(&zapFiles, "zapFiles", nil, ".zap files or a directory to open")

	cmd.AddCommand(NewInteractiveCommand(opts))
	cmd.AddCommand(NewSelfCheckCommand(opts))
	cmd.AddCommand(NewAnalyzeCommand(opts))
	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewGenerateCommand(opts))

	return cmd
}

func envHelp() string {
	var b strings.Builder
	b.WriteString("Environment variables:\n")
	for _, v := range env.Variables {
		fmt.Fprintf(&b, "  %-26s %s\n", v.Name, v.Description)
	}
	return b.String()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
