package harness

import (
	"github.com/roach88/atomgen/internal/collation"
	"github.com/roach88/atomgen/internal/ir"
)

// Result is the outcome of a scenario.
type Result struct {
	Scenario string `json:"scenario" yaml:"scenario"`

	// Pass is true when every assertion held.
	Pass bool `json:"pass" yaml:"pass"`

	// Errors contains one message per failed assertion.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Diagnostics are the collation errors of the schema. A scenario may
	// expect them.
	Diagnostics []collation.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`

	Catalog *ir.Catalog `json:"-" yaml:"-"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{Scenario: scenario, Pass: true}
}

// AddError records a failed assertion and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
