package replica

import (
	"errors"
	"strings"
	"testing"
)

func TestSchemaError_Is(t *testing.T) {
	err := newSchemaError(ErrUnsupportedSchema, "input.items", KindSequence, "sequence with 2 alternative element shapes")

	if !errors.Is(err, ErrUnsupportedSchema) {
		t.Error("SchemaError should unwrap to ErrUnsupportedSchema")
	}

	if errors.Is(err, ErrMisconfiguredOption) {
		t.Error("SchemaError should not match ErrMisconfiguredOption")
	}
}

func TestSchemaError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "full context",
			err:  newSchemaError(ErrUnsupportedSchema, "input.items", KindSequence, "sequence with 2 alternative element shapes"),
			want: "unsupported schema sequence at input.items: sequence with 2 alternative element shapes",
		},
		{
			name: "no kind",
			err:  newSchemaError(ErrUnsupportedSchema, "input", kindInvalid, "nil schema"),
			want: "unsupported schema at input: nil schema",
		},
		{
			name: "sentinel only",
			err:  &SchemaError{Err: ErrMisconfiguredOption},
			want: "misconfigured option",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInferError_Message(t *testing.T) {
	ch := make(chan int)
	err := &InferError{Err: ErrUnsupportedType, Path: "input.events", Value: ch}

	want := "unsupported type chan int at input.events"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrUnsupportedType) {
		t.Error("InferError should unwrap to ErrUnsupportedType")
	}
}

func TestCompileError_Is(t *testing.T) {
	err := newCompileError("package clone\n", errors.New("expected declaration"))

	if !errors.Is(err, ErrCompilation) {
		t.Error("CompileError should unwrap to ErrCompilation")
	}

	var compileErr *CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("error should be *CompileError, got %T", err)
	}
	if compileErr.Source != "package clone\n" {
		t.Errorf("Source = %q, want the rendered source", compileErr.Source)
	}
}

func TestCompileError_Message(t *testing.T) {
	err := newCompileError("", errors.New("missing binding custom0"))

	want := "compilation failed: missing binding custom0"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := &CompileError{Err: ErrCompilation}
	if got := bare.Error(); got != "compilation failed" {
		t.Errorf("Error() = %q, want %q", got, "compilation failed")
	}
}

func TestCloneError_Message(t *testing.T) {
	err := mismatch("input.age", "expected %s, got %s", KindNumber, "string")

	want := "shape mismatch at input.age: expected number, got string"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrShapeMismatch) {
		t.Error("CloneError should unwrap to ErrShapeMismatch")
	}
	if errors.Is(err, ErrDepthExceeded) {
		t.Error("CloneError should not match ErrDepthExceeded")
	}
}

func TestCloner_Clone_TypedErrors(t *testing.T) {
	cloner, err := Compile(Object(F("age", Number)))
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	input := map[string]any{"age": "forty"}
	_, err = cloner.Clone(input)
	if err == nil {
		t.Fatal("Clone() should fail for a string where a number is declared")
	}

	var cloneErr *CloneError
	if !errors.As(err, &cloneErr) {
		t.Fatalf("Clone() error should be *CloneError, got %T", err)
	}
	if cloneErr.Path != "input.age" {
		t.Errorf("CloneError.Path = %q, want %q", cloneErr.Path, "input.age")
	}
	if got, ok := cloneErr.Input.(map[string]any); !ok || got["age"] != "forty" {
		t.Errorf("CloneError.Input = %v, want the value passed to Clone", cloneErr.Input)
	}
	if !strings.Contains(cloneErr.Source, "func clone(input any) any") {
		t.Errorf("CloneError.Source should hold the generated source, got %q", cloneErr.Source)
	}
}

func TestCompile_TypedErrors(t *testing.T) {
	node := &Record{}
	node.Fields = []Field{F("self", node)}

	_, err := Compile(node)
	if !errors.Is(err, ErrMisconfiguredOption) {
		t.Fatalf("Compile() error = %v, want ErrMisconfiguredOption", err)
	}

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Compile() error should be *SchemaError, got %T", err)
	}
	if schemaErr.Path != "input.self" {
		t.Errorf("SchemaError.Path = %q, want %q", schemaErr.Path, "input.self")
	}
	if schemaErr.Kind != "record" {
		t.Errorf("SchemaError.Kind = %q, want %q", schemaErr.Kind, "record")
	}
}
