package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/atomgen/internal/store"
)

// RunsResult lists the runs of a catalog store.
type RunsResult struct {
	Runs []store.Run `json:"runs" yaml:"runs"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:           "runs",
		Short:         "List the catalogs stored in a catalog store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(rootOpts, stringSetting(cmd.Flags().Changed("db"), dbPath, rootOpts.config().DB), cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to the catalog store")

	return cmd
}

func runRuns(opts *RootOptions, dbPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if dbPath == "" {
		msg := "--db is required"
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if _, err := os.Stat(dbPath); err != nil {
		msg := fmt.Sprintf("catalog store not found: %s", dbPath)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return WrapExitError(ExitCommandError, ErrCodeNotFound+": "+msg, err)
	}

	s, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStore+": opening catalog store", err)
	}
	defer s.Close()

	runs, err := s.ListRuns(cmd.Context())
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStore+": listing runs", err)
	}

	if formatter.Structured() {
		return formatter.Success(RunsResult{Runs: runs})
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs stored")
		return nil
	}
	for _, r := range runs {
		module := r.Module
		if module == "" {
			module = "-"
		}
		fmt.Fprintf(formatter.Writer, "%4d  %s  %-12s  %s\n", r.Seq, r.ID, module, shortFingerprint(r.Fingerprint))
	}
	return nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
