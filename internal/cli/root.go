package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/atomgen/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "yaml"
	ConfigPath string

	Config *Config // loaded from ConfigPath; may be nil
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the atomgen CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Config: &Config{}}

	cmd := &cobra.Command{
		Use:   "atomgen",
		Short: "atomgen - telemetry atom schema collation",
		Long: `Collate telemetry atom schemas into a validated, annotated catalog.

Schemas are CUE files or directories, or compiled protobuf descriptor sets
(.pb, .binpb, .desc). Every atom is checked against the logging rules and
grouped by argument signature for code generators.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to an atomgen.yaml config file")

	cmd.AddCommand(NewCollateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSignaturesCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))
	cmd.AddCommand(NewAtomCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve loads the config file and merges it under the global flags.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if o.ConfigPath != "" {
		cfg, err := LoadConfig(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeConfig+": invalid config", err)
		}
		o.Config = cfg
	}
	cfg := o.config()

	flags := cmd.Flags()
	o.Format = stringSetting(flags.Changed("format"), o.Format, cfg.Format)
	if !flags.Changed("verbose") && cfg.Verbose {
		o.Verbose = true
	}

	if !isValidFormat(o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}
	return nil
}

// config returns the loaded config, or an empty one.
func (o *RootOptions) config() *Config {
	if o.Config == nil {
		o.Config = &Config{}
	}
	return o.Config
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) logger(cmd *cobra.Command) *zap.Logger {
	return logging.New(o.Verbose, cmd.ErrOrStderr())
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
