package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/roach88/atomgen/internal/collation"
	"github.com/roach88/atomgen/internal/ir"
	"github.com/roach88/atomgen/internal/store"
)

// CollateOptions holds flags for the collate command.
type CollateOptions struct {
	*RootOptions
	Module    string
	Container string
	Output    string
	DB        string
}

// CollateResult summarises a collate run.
type CollateResult struct {
	Schema          string                 `json:"schema" yaml:"schema"`
	Module          string                 `json:"module,omitempty" yaml:"module,omitempty"`
	Atoms           int                    `json:"atoms" yaml:"atoms"`
	NonChainedAtoms int                    `json:"non_chained_atoms" yaml:"non_chained_atoms"`
	Signatures      int                    `json:"signatures" yaml:"signatures"`
	ErrorCount      int                    `json:"error_count" yaml:"error_count"`
	Diagnostics     []collation.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Output          string                 `json:"output,omitempty" yaml:"output,omitempty"`
	Run             *store.Run             `json:"run,omitempty" yaml:"run,omitempty"`
	RunInserted     bool                   `json:"run_inserted,omitempty" yaml:"run_inserted,omitempty"`
	Catalog         *ir.Catalog            `json:"catalog,omitempty" yaml:"catalog,omitempty"`
}

// NewCollateCommand creates the collate command.
func NewCollateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CollateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "collate <schema>",
		Short: "Collate a schema into an atom catalog",
		Long: `Collate an atom schema into a catalog of validated atoms and signature groups.

The catalog is written as JSON (or YAML for a .yaml/.yml path) with --output
and stored as a run in a SQLite catalog store with --db. Structured output
(--format json|yaml) embeds the catalog when neither is given.

Exits 1 when the schema has collation errors; nothing is written then.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Module, "module", "", "only collate atoms logged from this module (DEFAULT collates all)")
	cmd.Flags().StringVar(&opts.Container, "container", "", "full name of the atom container message in a descriptor set")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the catalog to this file")
	cmd.Flags().StringVar(&opts.DB, "db", "", "store the catalog in this SQLite database")

	return cmd
}

func runCollate(opts *CollateOptions, schemaPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg := opts.config()
	flags := cmd.Flags()

	module := stringSetting(flags.Changed("module"), opts.Module, cfg.Module)
	container := stringSetting(flags.Changed("container"), opts.Container, cfg.Container)
	output := stringSetting(flags.Changed("output"), opts.Output, cfg.Output)
	dbPath := stringSetting(flags.Changed("db"), opts.DB, cfg.DB)

	run, err := collateSchema(opts.RootOptions, cmd, schemaPath, module, container)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	catalog := run.atoms.Catalog(module)
	result := CollateResult{
		Schema:          schemaPath,
		Module:          module,
		Atoms:           len(catalog.Atoms),
		NonChainedAtoms: len(catalog.NonChainedAtoms),
		Signatures:      len(catalog.Signatures),
		ErrorCount:      run.diags.Len(),
		Diagnostics:     run.diags.All(),
	}

	if run.diags.Len() > 0 {
		return outputDiagnostics(formatter, result, run.diags.All(), "Collation")
	}

	if output != "" {
		if err := writeCatalogFile(output, catalog); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed+": writing catalog", err)
		}
		result.Output = output
		formatter.VerboseLog("Wrote catalog to %s", output)
	}

	if dbPath != "" {
		s, err := store.Open(dbPath)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeStore+": opening catalog store", err)
		}
		defer s.Close()

		stored, inserted, err := s.WriteCatalog(cmd.Context(), catalog)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeStore+": storing catalog", err)
		}
		result.Run = &stored
		result.RunInserted = inserted
		run.logger.Debug("stored catalog",
			zap.String("run", stored.ID),
			zap.Int64("seq", stored.Seq),
			zap.Bool("inserted", inserted))
	}

	if formatter.Structured() {
		if output == "" && dbPath == "" {
			result.Catalog = catalog
		}
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Collated %d atom(s), %d non-chained, %d signature group(s)\n",
		result.Atoms, result.NonChainedAtoms, result.Signatures)
	if result.Output != "" {
		fmt.Fprintf(formatter.Writer, "  catalog: %s\n", result.Output)
	}
	if result.Run != nil {
		state := "stored"
		if !result.RunInserted {
			state = "unchanged"
		}
		fmt.Fprintf(formatter.Writer, "  run: %s (seq %d, %s)\n", result.Run.ID, result.Run.Seq, state)
	}
	return nil
}

// collationRun is one load and collate pass.
type collationRun struct {
	load   *LoadResult
	atoms  *ir.Atoms
	diags  *collation.Diagnostics
	logger *zap.Logger
}

func collateSchema(opts *RootOptions, cmd *cobra.Command, schemaPath, module, container string) (*collationRun, error) {
	logger := opts.logger(cmd)

	loaded, err := LoadSchema(schemaPath, container)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded schema",
		zap.String("path", schemaPath),
		zap.String("source", loaded.Source),
		zap.Int("files", loaded.FileCount),
		zap.Int("atoms", len(loaded.Schema.Container.Fields)),
		zap.Int("extensions", len(loaded.Schema.Extensions)))

	atoms, diags := collation.Collate(loaded.Schema, module, collation.WithLogger(logger))
	for _, d := range diags.All() {
		logger.Debug("collation error", zap.String("code", d.Code), zap.String("field", d.Field), zap.String("message", d.Message))
	}
	return &collationRun{load: loaded, atoms: atoms, diags: diags, logger: logger}, nil
}

// writeCatalogFile writes c as YAML for .yaml/.yml paths and JSON otherwise.
func writeCatalogFile(path string, c *ir.Catalog) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

// outputLoadError reports a schema load failure. Load failures are command
// errors (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	code, message := loadErrorDetails(err)
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputDiagnostics reports collation errors and returns an ExitFailure
// error. data is the command result embedded in structured output.
func outputDiagnostics(formatter *OutputFormatter, data any, diags []collation.Diagnostic, what string) error {
	summary := fmt.Sprintf("%s failed with %d error(s)", strings.ToLower(what), len(diags))

	if formatter.Structured() {
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   data,
			Error:  &CLIError{Code: diags[0].Code, Message: summary},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, summary)
	}

	fmt.Fprintf(formatter.Writer, "✗ %s failed\n\n", what)
	for _, d := range diags {
		if d.File != "" {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", d.File, d.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", d.Code, d.Message)
	}
	return NewExitError(ExitFailure, summary)
}
