package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/atomgen/internal/descriptor"
	"github.com/roach88/atomgen/internal/harness"
	"github.com/roach88/atomgen/internal/ir"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter    string // scenario name filter (glob pattern)
	GoldenDir string // directory of <scenario>.golden snapshots
	Update    bool   // rewrite golden files instead of comparing
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name" yaml:"name"`
	File   string   `json:"file" yaml:"file"`
	Pass   bool     `json:"pass" yaml:"pass"`
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios" yaml:"scenarios"`
	Passed    int              `json:"passed" yaml:"passed"`
	Failed    int              `json:"failed" yaml:"failed"`
	Total     int              `json:"total" yaml:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario>...",
		Short: "Run schema conformance scenarios",
		Long: `Run conformance scenarios against their schemas.

Each argument is a scenario YAML file or a directory searched for them.
A scenario names a schema and lists assertions over the collated catalog
and its diagnostics.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing paths, bad filter)

Examples:
  atomgen test ./scenarios
  atomgen test ./scenarios --filter "state_*"
  atomgen test ./scenarios --golden ./golden --update`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on the file name")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "compare catalog snapshots with golden files in this directory")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files (requires --golden)")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.Update && opts.GoldenDir == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}
	if _, err := filepath.Match(opts.Filter, ""); err != nil {
		return WrapExitError(ExitCommandError, "invalid filter pattern", err)
	}

	var files []string
	for _, p := range paths {
		found, err := harness.FindScenarios(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", p))
			}
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		files = append(files, filterScenarios(found, opts.Filter)...)
	}

	h := harness.New(
		harness.WithLoader(loadScenarioSchema),
		harness.WithLogger(opts.logger(cmd)),
	)

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		sr := runScenario(h, file, opts)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	if formatter.Structured() {
		status := "ok"
		var cliErr *CLIError
		if result.Failed > 0 {
			status = "error"
			cliErr = &CLIError{Code: ErrCodeScenario, Message: fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total)}
		}
		if err := formatter.Encode(CLIResponse{Status: status, Data: result, Error: cliErr}); err != nil {
			return err
		}
	} else {
		outputTestText(formatter, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func filterScenarios(files []string, filter string) []string {
	if filter == "" {
		return files
	}
	var out []string
	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		if ok, _ := filepath.Match(filter, name); ok {
			out = append(out, f)
		}
	}
	return out
}

// loadScenarioSchema accepts everything collate does: CUE files and
// directories and descriptor sets.
func loadScenarioSchema(path, container string) (*descriptor.Schema, error) {
	res, err := LoadSchema(path, container)
	if err != nil {
		return nil, err
	}
	return res.Schema, nil
}

func runScenario(h *harness.Harness, file string, opts *TestOptions) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := h.Run(scenario)
	if err != nil {
		sr.Errors = []string{err.Error()}
		return sr
	}
	sr.Errors = result.Errors

	if opts.GoldenDir != "" {
		if err := checkGolden(opts, result); err != nil {
			sr.Errors = append(sr.Errors, err.Error())
		}
	}
	sr.Pass = len(sr.Errors) == 0
	return sr
}

// checkGolden compares, or with --update rewrites, the scenario's canonical
// snapshot.
func checkGolden(opts *TestOptions, result *harness.Result) error {
	data, err := ir.MarshalCanonical(harness.NewSnapshot(result))
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	path := filepath.Join(opts.GoldenDir, result.Scenario+".golden")

	if opts.Update {
		if err := os.MkdirAll(opts.GoldenDir, 0755); err != nil {
			return fmt.Errorf("golden: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("golden: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("golden: %w", err)
	}
	if !bytes.Equal(want, data) {
		return fmt.Errorf("golden mismatch: %s", path)
	}
	return nil
}

func outputTestText(formatter *OutputFormatter, result TestResult) {
	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}

	for _, sr := range result.Scenarios {
		if sr.Pass {
			fmt.Fprintf(w, "✓ %s\n", sr.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}
