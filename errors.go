package replica

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrUnsupportedType indicates inference met a runtime value with no schema mapping.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnsupportedSchema indicates a schema node has no copy policy.
	ErrUnsupportedSchema = errors.New("unsupported schema")

	// ErrCompilation indicates a synthesized fragment could not be materialized.
	ErrCompilation = errors.New("compilation failed")

	// ErrMisconfiguredOption indicates a schema needs an option that was not enabled.
	ErrMisconfiguredOption = errors.New("misconfigured option")

	// ErrShapeMismatch indicates a value passed to a cloner does not match its schema.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrDepthExceeded indicates a clone nested deeper than the configured maximum.
	ErrDepthExceeded = errors.New("depth exceeded")
)

// InferError represents a value inference could not map to a schema.
type InferError struct {
	Err   error  // Underlying sentinel error (ErrUnsupportedType)
	Path  string // Path of the offending value (e.g., "input.items[0]")
	Value any    // The offending value
}

func (e *InferError) Error() string {
	return fmt.Sprintf("%s %T at %s", e.Err.Error(), e.Value, e.Path)
}

func (e *InferError) Unwrap() error {
	return e.Err
}

// SchemaError represents a schema node synthesis refused to handle.
type SchemaError struct {
	Err     error  // Underlying sentinel error (ErrUnsupportedSchema, ErrMisconfiguredOption)
	Path    string // Input path the node was reached through
	Kind    string // Kind of the node, when known
	Message string
}

func (e *SchemaError) Error() string {
	msg := e.Err.Error()
	if e.Kind != "" {
		msg += " " + e.Kind
	}
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// CompileError represents a fragment that failed to become a cloner.
// Source holds the generated source so it can be printed next to the failure.
type CompileError struct {
	Err    error // Underlying sentinel error (ErrCompilation)
	Source string
	Cause  error
}

func (e *CompileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Err.Error(), e.Cause)
	}
	return e.Err.Error()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// CloneError represents a failure while a compiled cloner ran.
type CloneError struct {
	Err    error  // Underlying sentinel error (ErrShapeMismatch, ErrDepthExceeded)
	Path   string // Path inside the input where cloning stopped
	Input  any    // The value handed to Clone
	Source string // Source of the cloner that failed
	Cause  error
}

func (e *CloneError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s at %s: %v", e.Err.Error(), e.Path, e.Cause)
	}
	return fmt.Sprintf("%s at %s", e.Err.Error(), e.Path)
}

func (e *CloneError) Unwrap() error {
	return e.Err
}

// newSchemaError creates a SchemaError for a node reached through path.
func newSchemaError(sentinel error, path string, kind Kind, message string) error {
	k := ""
	if kind != kindInvalid {
		k = kind.String()
	}
	return &SchemaError{
		Err:     sentinel,
		Path:    path,
		Kind:    k,
		Message: message,
	}
}

// newCompileError creates a CompileError carrying the rendered source.
func newCompileError(source string, cause error) error {
	return &CompileError{
		Err:    ErrCompilation,
		Source: source,
		Cause:  cause,
	}
}

// mismatch builds the runtime error returned by closures; Clone fills in Input and Source.
func mismatch(path string, format string, args ...any) error {
	return &CloneError{
		Err:   ErrShapeMismatch,
		Path:  path,
		Cause: fmt.Errorf(format, args...),
	}
}
