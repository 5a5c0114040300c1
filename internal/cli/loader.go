package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/atomgen/internal/cueschema"
	"github.com/roach88/atomgen/internal/descriptor"
	"github.com/roach88/atomgen/internal/protoschema"
)

// Error code constants - unified across all CLI commands. Collation
// diagnostics use their own E2xx codes.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No CUE files found
	ErrCodeLoadFailed    = "E004" // CUE load failed
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeBuildFailed   = "E006" // CUE build failed
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeSchemaInvalid = "E008" // Schema definition malformed
	ErrCodeDescriptorSet = "E009" // Descriptor set unreadable or missing container
	ErrCodeStore         = "E010" // Catalog store error
	ErrCodeConfig        = "E011" // Config file error
	ErrCodeScenario      = "E012" // Scenario failed or unreadable
)

// Descriptor set extensions recognised by LoadSchema.
var descriptorSetExts = []string{".pb", ".binpb", ".desc"}

// LoadResult is a loaded schema and where it came from.
type LoadResult struct {
	Schema    *descriptor.Schema
	Source    string // "cue" or "descriptor_set"
	FileCount int
}

// LoadError represents an error that occurred during schema loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchema loads an atom schema from path: a directory of CUE files, a
// single .cue file or a protobuf FileDescriptorSet. container names the atom
// container message of a descriptor set; empty means the default.
func LoadSchema(path, container string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema: %v", err)}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); {
	case info.IsDir():
		return loadCUEDir(path)
	case ext == ".cue":
		return loadCUEFile(path)
	case isDescriptorSet(ext):
		return loadDescriptorSet(path, container)
	default:
		return nil, &LoadError{
			Code:    ErrCodeGeneric,
			Message: fmt.Sprintf("unsupported schema file %s: want a directory, .cue or one of %v", path, descriptorSetExts),
		}
	}
}

func isDescriptorSet(ext string) bool {
	return slices.Contains(descriptorSetExts, ext)
}

func loadCUEDir(dir string) (*LoadResult, error) {
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	schema, err := cueschema.Compile(value)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return &LoadResult{Schema: schema, Source: "cue", FileCount: len(cueFiles)}, nil
}

func loadCUEFile(path string) (*LoadResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	schema, err := cueschema.CompileBytes(src, path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return &LoadResult{Schema: schema, Source: "cue", FileCount: 1}, nil
}

func loadDescriptorSet(path, container string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	schema, err := protoschema.Load(data, container)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDescriptorSet, Message: err.Error()}
	}
	return &LoadResult{Schema: schema, Source: "descriptor_set", FileCount: 1}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a cueschema error to a LoadError with
// position info.
func convertCompileError(err error) *LoadError {
	var compileErr *cueschema.CompileError
	if errors.As(err, &compileErr) {
		code := ErrCodeSchemaInvalid
		if compileErr.Field == "cue" {
			code = ErrCodeBuildFailed
		}
		return &LoadError{
			Code:    code,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// loadErrorDetails splits err into a code and message for output.
func loadErrorDetails(err error) (code, message string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Pos.IsValid() {
			return loadErr.Code, fmt.Sprintf("%s:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Message)
		}
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}
