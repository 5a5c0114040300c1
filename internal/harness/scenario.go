package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/atomgen/internal/ir"
)

// Scenario defines a conformance test over one schema.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the CUE file or descriptor set to collate. Relative paths
	// are resolved against the scenario file's directory.
	Schema string `yaml:"schema"`

	// Module restricts collation to atoms logged from this module.
	Module string `yaml:"module,omitempty"`

	// Container names the atom container message of a descriptor set.
	Container string `yaml:"container,omitempty"`

	// Assertions are evaluated against the collation result.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion checks one property of a collation result. Which fields are
// used depends on Type.
type Assertion struct {
	Type string `yaml:"type"`

	// Count is the expected number (error_count, diagnostic,
	// signature_count).
	Count int `yaml:"count,omitempty"`

	// Code is a diagnostic code such as E201 (diagnostic).
	Code string `yaml:"code,omitempty"`

	// Atom is an atom name (atom, annotation, rejected).
	Atom string `yaml:"atom,omitempty"`

	// Fields are the expected field names of an atom, in order (atom).
	Fields []string `yaml:"fields,omitempty"`

	// Field, Annotation and Value select an annotation and its expected
	// value (annotation). Field -1 addresses atom-level annotations.
	Field      int    `yaml:"field,omitempty"`
	Annotation string `yaml:"annotation,omitempty"`
	Value      any    `yaml:"value,omitempty"`

	// Kind, Types and Members select a signature group (signature,
	// signature_count).
	Kind    string   `yaml:"kind,omitempty"`
	Types   []string `yaml:"types,omitempty"`
	Members []string `yaml:"members,omitempty"`
}

// Assertion type constants.
const (
	AssertErrorCount     = "error_count"
	AssertDiagnostic     = "diagnostic"
	AssertAtom           = "atom"
	AssertRejected       = "rejected"
	AssertAnnotation     = "annotation"
	AssertSignature      = "signature"
	AssertSignatureCount = "signature_count"
)

var signatureKinds = []string{ir.KindPushed, ir.KindPulled, ir.KindNonChained}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// FindScenarios returns the scenario files under path: path itself when it
// is a file, otherwise every .yaml and .yml file below it in lexical order.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ext := filepath.Ext(p); !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema not found: %s", s.Schema)
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertErrorCount:
	case AssertDiagnostic:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for diagnostic", index)
		}
	case AssertAtom, AssertRejected:
		if a.Atom == "" {
			return fmt.Errorf("assertions[%d]: atom is required for %s", index, a.Type)
		}
	case AssertAnnotation:
		if a.Atom == "" || a.Annotation == "" {
			return fmt.Errorf("assertions[%d]: atom and annotation are required for annotation", index)
		}
		if a.Field == 0 {
			return fmt.Errorf("assertions[%d]: field is required for annotation", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for annotation", index)
		}
	case AssertSignature:
		if !slices.Contains(signatureKinds, a.Kind) {
			return fmt.Errorf("assertions[%d]: kind must be one of %v", index, signatureKinds)
		}
		if a.Types == nil {
			return fmt.Errorf("assertions[%d]: types is required for signature", index)
		}
	case AssertSignatureCount:
		if !slices.Contains(signatureKinds, a.Kind) {
			return fmt.Errorf("assertions[%d]: kind must be one of %v", index, signatureKinds)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
