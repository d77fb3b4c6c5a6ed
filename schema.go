package replica

import (
	"fmt"
	"reflect"
)

// Kind identifies a schema node variant.
type Kind int

const (
	kindInvalid Kind = iota

	// KindNumber covers every integer, float and complex kind.
	KindNumber
	// KindString covers string kinds.
	KindString
	// KindBoolean covers bool kinds.
	KindBoolean
	// KindFunction covers func values. Functions are copied by identity.
	KindFunction
	// KindSymbol covers *Sym tokens.
	KindSymbol
	// KindBigInt covers *big.Int and big.Int values, rebuilt on copy.
	KindBigInt
	// KindNull is the nil leaf.
	KindNull
	// KindUndefined is the Absent leaf.
	KindUndefined
	// KindTime covers time.Time and *time.Time, rebuilt on copy.
	KindTime
	// KindBuffer covers slices of fixed-width numbers such as []byte or []int32.
	KindBuffer
	// KindMap is a keyed collection.
	KindMap
	// KindSet is a map[K]struct{} collection.
	KindSet
	// KindSequence is a slice or array with a single element shape.
	KindSequence
	// KindArrayLike is an Indexable value that is not a slice.
	KindArrayLike
	// KindRecord is a map[string]any, a struct or a pointer to a struct.
	KindRecord
	// KindCustom delegates the copy to an external function.
	KindCustom
)

var kindNames = map[Kind]string{
	KindNumber:    "number",
	KindString:    "string",
	KindBoolean:   "boolean",
	KindFunction:  "function",
	KindSymbol:    "symbol",
	KindBigInt:    "bigint",
	KindNull:      "null",
	KindUndefined: "undefined",
	KindTime:      "time",
	KindBuffer:    "buffer",
	KindMap:       "map",
	KindSet:       "set",
	KindSequence:  "sequence",
	KindArrayLike: "arraylike",
	KindRecord:    "record",
	KindCustom:    "custom",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Schema describes the shape of a value. The set of variants is closed:
// *Leaf, *Map, *Set, *Sequence, *ArrayLike, *Record and *Custom.
//
// Schemas are compared by identity. A *Record or *Sequence reachable from
// itself describes a cyclic value and can only be compiled with cycle detection.
type Schema interface {
	Kind() Kind
	schema()
}

// Leaf is a schema node with no nested schema.
type Leaf struct {
	kind Kind
}

func (l *Leaf) Kind() Kind { return l.kind }
func (*Leaf) schema()      {}

// Leaf schemas.
var (
	Number    = &Leaf{kind: KindNumber}
	String    = &Leaf{kind: KindString}
	Boolean   = &Leaf{kind: KindBoolean}
	Function  = &Leaf{kind: KindFunction}
	Symbol    = &Leaf{kind: KindSymbol}
	BigInt    = &Leaf{kind: KindBigInt}
	Null      = &Leaf{kind: KindNull}
	Undefined = &Leaf{kind: KindUndefined}
	Time      = &Leaf{kind: KindTime}
	Buffer    = &Leaf{kind: KindBuffer}
)

// Map is a keyed collection. Keys are kept as they are. With a nil Value the
// map is naive: each value is snapshotted through the compile codec, which
// loses anything the codec cannot represent.
type Map struct {
	Value Schema
	Type  reflect.Type // concrete map type, nil when unknown
}

func (*Map) Kind() Kind { return KindMap }
func (*Map) schema()    {}

// Set is a map[K]struct{} collection. With a nil Elem the set is naive.
type Set struct {
	Elem Schema
	Type reflect.Type
}

func (*Set) Kind() Kind { return KindSet }
func (*Set) schema()    {}

// Naive collection schemas.
var (
	NaiveMap = &Map{}
	NaiveSet = &Set{}
)

// MapOf returns a map schema whose values are cloned with value.
func MapOf(value Schema) *Map {
	return &Map{Value: value}
}

// SetOf returns a set schema whose elements are cloned with elem.
func SetOf(elem Schema) *Set {
	return &Set{Elem: elem}
}

// Sequence is a slice or array. It holds at most one element shape; a
// sequence with more than one alternative is rejected at compile time.
type Sequence struct {
	Type  reflect.Type // nil means []any
	Elems []Schema
}

func (*Sequence) Kind() Kind { return KindSequence }
func (*Sequence) schema()    {}

// SequenceOf returns a []any schema with the given element shapes.
func SequenceOf(elems ...Schema) *Sequence {
	return &Sequence{Elems: elems}
}

// ArrayLike describes an Indexable value that is not a slice. Clones of
// array-like values are []any.
type ArrayLike struct {
	Elem Schema
}

func (*ArrayLike) Kind() Kind { return KindArrayLike }
func (*ArrayLike) schema()    {}

// ArrayLikeOf returns an array-like schema whose elements are cloned with elem.
func ArrayLikeOf(elem Schema) *ArrayLike {
	return &ArrayLike{Elem: elem}
}

// Field is a record field and the schema of its value.
type Field struct {
	Name   string
	Index  []int // struct field index; resolved from Name when empty
	Schema Schema
}

// F returns a Field.
func F(name string, s Schema) Field {
	return Field{Name: name, Schema: s}
}

// Record is a fixed set of named fields. Only declared fields are copied.
type Record struct {
	Type   reflect.Type // nil means map[string]any; otherwise a struct or pointer to struct
	Fields []Field
}

func (*Record) Kind() Kind { return KindRecord }
func (*Record) schema()    {}

// Object returns a map[string]any record schema.
func Object(fields ...Field) *Record {
	return &Record{Fields: fields}
}

// StructOf returns a record schema for t, a struct or pointer to struct type.
func StructOf(t reflect.Type, fields ...Field) *Record {
	return &Record{Type: t, Fields: fields}
}

// StructFor is StructOf for the type parameter.
func StructFor[T any](fields ...Field) *Record {
	return StructOf(reflect.TypeFor[T](), fields...)
}

// Custom delegates copying to Fn. Whatever Fn returns is used as is.
type Custom struct {
	Fn func(any) any
}

func (*Custom) Kind() Kind { return KindCustom }
func (*Custom) schema()    {}

// CustomFn returns a custom schema for fn.
func CustomFn(fn func(any) any) *Custom {
	return &Custom{Fn: fn}
}

// Transform returns a custom schema for a typed transform.
func Transform[T any](fn func(T) T) *Custom {
	return &Custom{Fn: func(v any) any {
		t, _ := v.(T)
		return fn(t)
	}}
}

// Sym is a unique token. Two syms are equal only if they are the same pointer.
type Sym struct {
	desc string
}

// NewSym returns a new Sym described by desc.
func NewSym(desc string) *Sym {
	return &Sym{desc: desc}
}

func (s *Sym) String() string {
	return "Sym(" + s.desc + ")"
}

// AbsentValue is the type of Absent.
type AbsentValue struct{}

// Absent is the value form of the Undefined leaf: a present but unset value,
// as opposed to nil.
var Absent = AbsentValue{}

// Indexable is implemented by values that support positional access without
// being slices, such as argument lists.
type Indexable interface {
	Len() int
	At(i int) any
}

// Arguments is an Indexable list of values.
type Arguments struct {
	values []any
}

// Args returns an Arguments list holding values.
func Args(values ...any) *Arguments {
	return &Arguments{values: values}
}

// Len returns the number of values.
func (a *Arguments) Len() int { return len(a.values) }

// At returns the value at position i.
func (a *Arguments) At(i int) any { return a.values[i] }
