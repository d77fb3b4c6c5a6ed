package replica

import (
	"reflect"

	"github.com/zoobzio/replica/codec"
	"github.com/zoobzio/replica/codec/json"
)

// Diagnostic is a warning raised while inferring a schema. Inference
// continues with its documented fallback after reporting one.
type Diagnostic struct {
	Path    string
	Message string
	Value   any
}

// InferOption configures Infer.
type InferOption func(*inferOptions)

type inferOptions struct {
	includeInherited bool
	onDiagnostic     func(Diagnostic)
}

// WithInheritedFields keeps embedded struct fields in inferred records.
// By default they are skipped so copies never carry promoted members.
func WithInheritedFields() InferOption {
	return func(o *inferOptions) {
		o.includeInherited = true
	}
}

// WithDiagnostics registers fn to receive inference warnings in addition to
// the infer warning signal.
func WithDiagnostics(fn func(Diagnostic)) InferOption {
	return func(o *inferOptions) {
		o.onDiagnostic = fn
	}
}

// CompileOption configures Compile, Use and SynthesizeSource.
type CompileOption func(*compileOptions)

type compileOptions struct {
	detectCycles bool
	maxDepth     int
	snapshot     codec.Codec
}

// optionsKey is the comparable part of compileOptions used for caching.
// Codecs are keyed by value, so two codecs with one content type but
// different settings never share a cloner.
type optionsKey struct {
	detectCycles bool
	maxDepth     int
	snapshot     codec.Codec
}

// defaultSnapshot is shared so that callers relying on the default codec
// share cache entries.
var defaultSnapshot = json.New()

// WithCycleDetection makes the cloner track source identities for the
// duration of each call, preserving shared references and cycles.
// Schemas with cycles cannot be compiled without it.
func WithCycleDetection() CompileOption {
	return func(o *compileOptions) {
		o.detectCycles = true
	}
}

// WithMaxDepth bounds container nesting per Clone call. Zero disables the guard.
func WithMaxDepth(n int) CompileOption {
	return func(o *compileOptions) {
		if n < 0 {
			n = 0
		}
		o.maxDepth = n
	}
}

// WithSnapshotCodec sets the codec naive maps and sets snapshot their values with.
func WithSnapshotCodec(c codec.Codec) CompileOption {
	return func(o *compileOptions) {
		if c != nil {
			o.snapshot = c
		}
	}
}

func buildInferOptions(opts []InferOption) inferOptions {
	var o inferOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func buildCompileOptions(opts []CompileOption) compileOptions {
	o := compileOptions{snapshot: defaultSnapshot}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// key returns the cache key for o. It reports false when the snapshot codec
// is not comparable and cannot take part in a map key.
func (o compileOptions) key() (optionsKey, bool) {
	if !reflect.TypeOf(o.snapshot).Comparable() {
		return optionsKey{}, false
	}
	return optionsKey{
		detectCycles: o.detectCycles,
		maxDepth:     o.maxDepth,
		snapshot:     o.snapshot,
	}, true
}
