package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/atomgen/internal/ir"
	"github.com/roach88/atomgen/internal/store"
)

// signatureKinds in catalog order.
var signatureKinds = []string{ir.KindPushed, ir.KindPulled, ir.KindNonChained}

// SignaturesOptions holds flags for the signatures command.
type SignaturesOptions struct {
	*RootOptions
	Kind      string
	Module    string
	Container string
	DB        string
	Run       string
}

// SignaturesResult lists signature groups.
type SignaturesResult struct {
	Run        string                `json:"run,omitempty" yaml:"run,omitempty"`
	Signatures []ir.CatalogSignature `json:"signatures" yaml:"signatures"`
}

// NewSignaturesCommand creates the signatures command.
func NewSignaturesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SignaturesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "signatures [schema]",
		Short: "List the signature groups of a schema or stored run",
		Long: `List atom signature groups: the distinct argument type lists shared by
pushed, pulled and non-chained atoms, with the atoms annotating each field.

With a schema argument the schema is collated first. Without one, groups are
read from the catalog store given by --db (latest run unless --run is set).`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignatures(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "all", "signature kind (all|pushed|pulled|non_chained)")
	cmd.Flags().StringVar(&opts.Module, "module", "", "only collate atoms logged from this module")
	cmd.Flags().StringVar(&opts.Container, "container", "", "full name of the atom container message in a descriptor set")
	cmd.Flags().StringVar(&opts.DB, "db", "", "read signatures from this catalog store")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run ID in the catalog store (default latest)")

	return cmd
}

func runSignatures(opts *SignaturesOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg := opts.config()
	flags := cmd.Flags()

	kinds := signatureKinds
	if opts.Kind != "all" {
		if !slices.Contains(signatureKinds, opts.Kind) {
			msg := fmt.Sprintf("invalid kind %q: must be all or one of %v", opts.Kind, signatureKinds)
			_ = formatter.Error(ErrCodeGeneric, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		kinds = []string{opts.Kind}
	}

	var result SignaturesResult
	if len(args) == 1 {
		module := stringSetting(flags.Changed("module"), opts.Module, cfg.Module)
		container := stringSetting(flags.Changed("container"), opts.Container, cfg.Container)

		run, err := collateSchema(opts.RootOptions, cmd, args[0], module, container)
		if err != nil {
			return outputLoadError(formatter, err)
		}
		if run.diags.Len() > 0 {
			return outputDiagnostics(formatter, nil, run.diags.All(), "Collation")
		}
		for _, sig := range run.atoms.Catalog(module).Signatures {
			if slices.Contains(kinds, sig.Kind) {
				result.Signatures = append(result.Signatures, sig)
			}
		}
	} else {
		dbPath := stringSetting(flags.Changed("db"), opts.DB, cfg.DB)
		if dbPath == "" {
			msg := "a schema argument or --db is required"
			_ = formatter.Error(ErrCodeGeneric, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}

		s, runID, err := openRun(cmd, dbPath, opts.Run)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeStore+": reading catalog store", err)
		}
		defer s.Close()

		result.Run = runID
		for _, kind := range kinds {
			sigs, err := s.ReadSignatures(cmd.Context(), runID, kind)
			if err != nil {
				_ = formatter.Error(ErrCodeStore, err.Error(), nil)
				return WrapExitError(ExitCommandError, ErrCodeStore+": reading signatures", err)
			}
			result.Signatures = append(result.Signatures, sigs...)
		}
	}

	if result.Signatures == nil {
		result.Signatures = []ir.CatalogSignature{}
	}
	if formatter.Structured() {
		return formatter.Success(result)
	}

	for _, sig := range result.Signatures {
		fmt.Fprintf(formatter.Writer, "%s (%s)\n", sig.Kind, strings.Join(sig.Types, ", "))
		if len(sig.Members) > 0 {
			fmt.Fprintf(formatter.Writer, "  atoms: %s\n", strings.Join(sig.Members, ", "))
		}
		for _, f := range sig.Fields {
			fmt.Fprintf(formatter.Writer, "  field %d: %s\n", f.Field, strings.Join(f.Atoms, ", "))
		}
	}
	fmt.Fprintf(formatter.Writer, "%d signature group(s)\n", len(result.Signatures))
	return nil
}

// openRun opens the store at dbPath and resolves runID, defaulting to the
// latest run. The caller closes the store.
func openRun(cmd *cobra.Command, dbPath, runID string) (*store.Store, string, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, "", fmt.Errorf("catalog store %s: %w", dbPath, err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, "", err
	}

	var run store.Run
	if runID == "" {
		run, err = s.LatestRun(cmd.Context())
	} else {
		run, err = s.ReadRun(cmd.Context(), runID)
	}
	if err != nil {
		s.Close()
		return nil, "", err
	}
	return s, run.ID, nil
}
