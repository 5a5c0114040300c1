package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/atomgen/internal/ir"
)

// Snapshot is the golden form of a scenario run.
type Snapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Diagnostics  []string    `json:"diagnostics"`
	Catalog      *ir.Catalog `json:"catalog"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(result *Result) Snapshot {
	codes := make([]string, len(result.Diagnostics))
	for i, d := range result.Diagnostics {
		codes[i] = d.Code
	}
	return Snapshot{ScenarioName: result.Scenario, Diagnostics: codes, Catalog: result.Catalog}
}

// RunWithGolden executes a scenario, fails t on assertion failures and
// compares the canonical snapshot against testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := ir.MarshalCanonical(NewSnapshot(result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
