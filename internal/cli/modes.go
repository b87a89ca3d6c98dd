package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/zapgen/internal/generator"
	"github.com/roach88/zapgen/internal/pipeline"
)

// NewInteractiveCommand creates the interactive command. Running zapgen
// without a subcommand does the same.
func NewInteractiveCommand(rootOpts *RootOptions) *cobra.Command {
	var zapFiles []string

	cmd := &cobra.Command{
		Use:   "interactive [files...]",
		Short: "Prepare the interactive session store",
		Long: `Load metadata and templates into the interactive store and open each
configuration file as a session, or a blank session when none is given.

The interactive store is reused between runs; use --clearDb to move it aside.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, rootOpts, append(args, zapFiles...))
		},
	}

	cmd.Flags().StringSliceVar(&zapFiles, "zapFiles", nil, ".zap files or a directory to open")
	return cmd
}

func runInteractive(cmd *cobra.Command, opts *RootOptions, files []string) error {
	return runMode(cmd, opts, pipeline.Interactive{Files: files})
}

// NewSelfCheckCommand creates the selfCheck command.
func NewSelfCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "selfCheck",
		Short: "Check that metadata and templates load",
		Long: `Load the protocol metadata and the generation templates into a clean store.

A metadata failure fails the check; a template failure is reported as a
warning.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, rootOpts, pipeline.SelfCheck{})
		},
	}
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	var zapFiles []string

	cmd := &cobra.Command{
		Use:   "analyze <files...>",
		Short: "Print a report for each configuration file",
		Long: `Import each configuration file into a clean store and print its packages,
settings and enabled clusters with their required components.

Files are processed one at a time in the order given. A directory must
contain exactly one .zap file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, rootOpts, pipeline.Analyze{Files: append(args, zapFiles...)})
		},
	}

	cmd.Flags().StringSliceVar(&zapFiles, "zapFiles", nil, ".zap files or a directory to analyze")
	return cmd
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		zapFiles []string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "convert <files...> --output <file>",
		Short: "Re-encode configuration files",
		Long: `Import each configuration file and export it to the output file in the
current format.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, rootOpts, pipeline.Convert{
				Files:  append(args, zapFiles...),
				Output: output,
			})
		},
	}

	cmd.Flags().StringSliceVar(&zapFiles, "zapFiles", nil, ".zap files or a directory to convert")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	return cmd
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		zapFiles      []string
		output        string
		genResultFile bool
		backup        bool
	)

	cmd := &cobra.Command{
		Use:   "generate --output <dir>",
		Short: "Generate code from a configuration",
		Long: `Render the generation templates against one configuration file, or a blank
configuration when none is given, into the output directory.

Only the first configuration file is used. Any failed template fails the
whole run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, rootOpts, pipeline.Generate{
				Output:        output,
				Files:         append(args, zapFiles...),
				GenResultFile: genResultFile,
				Backup:        backup,
			})
		},
	}

	cmd.Flags().StringSliceVar(&zapFiles, "zapFiles", nil, ".zap file or a directory to generate from")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory")
	cmd.Flags().BoolVar(&genResultFile, "genResultFile", false, "write "+generator.ResultFileName+" into the output directory")
	cmd.Flags().BoolVar(&backup, "backup", false, "move existing output files to <file>~ before writing")
	return cmd
}
