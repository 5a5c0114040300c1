package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/atomgen/internal/collation"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool                   `json:"valid" yaml:"valid"`
	Atoms      int                    `json:"atoms" yaml:"atoms"`
	ErrorCount int                    `json:"error_count" yaml:"error_count"`
	Errors     []collation.Diagnostic `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var module, container string

	cmd := &cobra.Command{
		Use:   "validate <schema>",
		Short: "Check a schema against the atom logging rules",
		Long: `Collate a schema and report every rule violation without writing a catalog.

Faster feedback than collate while editing atom definitions.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.config()
			return runValidate(rootOpts, args[0],
				stringSetting(cmd.Flags().Changed("module"), module, cfg.Module),
				stringSetting(cmd.Flags().Changed("container"), container, cfg.Container),
				cmd)
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "only check atoms logged from this module")
	cmd.Flags().StringVar(&container, "container", "", "full name of the atom container message in a descriptor set")

	return cmd
}

func runValidate(opts *RootOptions, schemaPath, module, container string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	run, err := collateSchema(opts, cmd, schemaPath, module, container)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d file(s) from %s", run.load.FileCount, schemaPath)

	result := ValidationResult{
		Valid:      run.diags.Len() == 0,
		Atoms:      run.atoms.Decls.Len(),
		ErrorCount: run.diags.Len(),
		Errors:     run.diags.All(),
	}
	if !result.Valid {
		return outputDiagnostics(formatter, result, result.Errors, "Validation")
	}

	if formatter.Structured() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Schema valid (%d atom(s))\n", result.Atoms)
	return nil
}
