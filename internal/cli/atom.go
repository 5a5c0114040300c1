package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/atomgen/internal/ir"
	"github.com/roach88/atomgen/internal/store"
)

// NewAtomCommand creates the atom command.
func NewAtomCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath, runID string

	cmd := &cobra.Command{
		Use:           "atom <code>",
		Short:         "Show one stored atom by code",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := stringSetting(cmd.Flags().Changed("db"), dbPath, rootOpts.config().DB)
			return runAtom(rootOpts, args[0], dbPath, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to the catalog store")
	cmd.Flags().StringVar(&runID, "run", "", "run ID (default latest)")

	return cmd
}

func runAtom(opts *RootOptions, arg, dbPath, runID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	code, err := strconv.Atoi(arg)
	if err != nil || code <= 0 {
		msg := fmt.Sprintf("invalid atom code %q", arg)
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if dbPath == "" {
		msg := "--db is required"
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	s, runID, err := openRun(cmd, dbPath, runID)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStore+": reading catalog store", err)
	}
	defer s.Close()

	atom, err := s.FindAtom(cmd.Context(), runID, code)
	if errors.Is(err, store.ErrNotFound) {
		msg := fmt.Sprintf("atom %d not found in run %s", code, runID)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return WrapExitError(ExitFailure, ErrCodeNotFound+": "+msg, err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStore+": reading atom", err)
	}

	if formatter.Structured() {
		return formatter.Success(atom)
	}
	printAtom(formatter, atom)
	return nil
}

func printAtom(formatter *OutputFormatter, a ir.CatalogAtom) {
	w := formatter.Writer
	fmt.Fprintf(w, "%s (%d, %s)\n", a.Name, a.Code, a.Kind)
	fmt.Fprintf(w, "  message: %s\n", a.Message)
	for i, f := range a.Fields {
		typ := f.Type
		if f.EnumType != "" {
			typ += " " + f.EnumType
		}
		fmt.Fprintf(w, "  %d %s: %s\n", i+1, f.Name, typ)
	}
	for _, fa := range a.Annotations {
		parts := make([]string, len(fa.Annotations))
		for i, ann := range fa.Annotations {
			parts[i] = fmt.Sprintf("%s=%v", ann.Name, ann.Value)
		}
		fmt.Fprintf(w, "  @%d %s\n", fa.Field, strings.Join(parts, " "))
	}
	if a.Restricted {
		fmt.Fprintln(w, "  restricted")
	}
}
