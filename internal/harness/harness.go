package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/atomgen/internal/collation"
	"github.com/roach88/atomgen/internal/cueschema"
	"github.com/roach88/atomgen/internal/descriptor"
	"github.com/roach88/atomgen/internal/protoschema"
)

// Loader turns a schema path into a schema. container names the atom
// container of a descriptor set.
type Loader func(path, container string) (*descriptor.Schema, error)

// Harness runs scenarios.
type Harness struct {
	loader Loader
	logger *zap.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLoader replaces LoadFile as the schema loader.
func WithLoader(l Loader) Option {
	return func(h *Harness) { h.loader = l }
}

// WithLogger sets the logger passed on to the collator.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// New returns a harness that loads schemas with LoadFile.
func New(opts ...Option) *Harness {
	h := &Harness{loader: LoadFile, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(scenario)
}

// Run collates the scenario's schema and evaluates its assertions.
//
// An error is returned only when the schema cannot be loaded. Collation
// errors are part of the result and are checked by the assertions; a
// scenario without an error_count or diagnostic assertion fails on any.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	schema, err := h.loader(scenario.Schema, scenario.Container)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: load schema: %w", scenario.Name, err)
	}

	atoms, diags := collation.Collate(schema, scenario.Module, collation.WithLogger(h.logger))
	h.logger.Debug("collated scenario schema",
		zap.String("scenario", scenario.Name),
		zap.Int("atoms", atoms.Decls.Len()),
		zap.Int("errors", diags.Len()))

	result := NewResult(scenario.Name)
	result.Diagnostics = diags.All()
	result.Catalog = atoms.Catalog(scenario.Module)

	if diags.Len() > 0 && !expectsDiagnostics(scenario.Assertions) {
		result.AddError(fmt.Sprintf("unexpected collation errors: %s", strings.Join(diags.Codes(), ", ")))
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func expectsDiagnostics(assertions []Assertion) bool {
	for _, a := range assertions {
		if a.Type == AssertErrorCount || a.Type == AssertDiagnostic {
			return true
		}
	}
	return false
}

// LoadFile loads a single .cue file or a protobuf descriptor set.
func LoadFile(path, container string) (*descriptor.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return cueschema.CompileBytes(data, path)
	}
	return protoschema.Load(data, container)
}
