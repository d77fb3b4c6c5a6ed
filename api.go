// Package replica provides schema-compiled deep cloning.
//
// A Schema describes the shape of a value. Infer derives one from a sample,
// Compile turns one into a Cloner specialized for that shape, and the Cloner
// copies values without inspecting their types again.
//
// # Basic Usage
//
//	type Order struct {
//	    ID    string
//	    Items []*Item
//	    Notes map[string]any
//	}
//
//	schema, _ := replica.Infer(sample)
//	cloner, _ := replica.Compile(schema)
//	clone := replica.As[*Order](cloner)
//
//	copied, err := clone(order)
//
// # Schemas
//
// Leaves are copied directly or rebuilt:
//
//   - Number, String, Boolean, Function, Symbol: returned as they are
//   - BigInt, Time: rebuilt with the same value
//   - Buffer: fixed-width numeric slices, copied element-wise
//   - Null, Undefined: produce nil and Absent
//
// Containers nest other schemas:
//
//   - Object, StructOf, StructFor: records with a fixed set of fields
//   - SequenceOf: slices and arrays with a single element shape
//   - ArrayLikeOf: Indexable values, copied into []any
//   - MapOf, SetOf: keyed collections with a value schema
//   - NaiveMap, NaiveSet: keyed collections snapshotted through a codec
//   - CustomFn, Transform: copying delegated to a function
//
// # Inference
//
// Infer walks a sample once. Sequences are described by their first
// element, embedded struct fields are skipped unless WithInheritedFields is
// given, and maps other than map[string]any are described naively.
// Fields can be steered with the clone tag:
//
//	type Session struct {
//	    User  *User
//	    Conn  net.Conn `clone:"shallow"` // shared by the copy
//	    cache []byte
//	    Trace []Span   `clone:"-"`       // left out of the copy
//	}
//
// Types with a method Clone() returning their own type are copied by
// calling it (see SelfCloner).
//
// # Cycles
//
// A sample reachable from itself infers a cyclic schema. Cyclic schemas
// compile only with WithCycleDetection, which also preserves shared
// references: two fields pointing at one source point at one copy.
//
//	cloner, _ := replica.Compile(schema, replica.WithCycleDetection())
//
// # Diagnostics
//
// SynthesizeSource renders the Go source of the cloner Compile would build.
// Failures carry it as well, in CompileError.Source and CloneError.Source.
// Validate reports every problem in a hand-built schema, and Describe prints
// a schema as a tree.
//
// # Caching
//
// Use compiles a schema once per option set and returns the cached cloner
// afterwards. Reset clears the cache.
//
// # Signals
//
// Inference, compilation, lossy snapshots and cache hits are emitted as
// capitan signals (see the Signal variables).
package replica
