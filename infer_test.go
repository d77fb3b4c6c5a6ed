package replica

import (
	"errors"
	"math/big"
	"reflect"
	"testing"
	"time"
)

type Base struct {
	ID int
}

type Derived struct {
	Base
	Name string
}

type OnlyInherited struct {
	Base
}

type Tagged struct {
	Keep    string
	Skip    string         `clone:"-"`
	Shared  map[string]int `clone:"shallow"`
	private int
}

type listNode struct {
	Value int
	Next  *listNode
}

type Versioned struct {
	Labels []string
	Copied bool
}

func (v Versioned) Clone() Versioned {
	return Versioned{Labels: append([]string(nil), v.Labels...), Copied: true}
}

func collect(diags *[]Diagnostic) InferOption {
	return WithDiagnostics(func(d Diagnostic) {
		*diags = append(*diags, d)
	})
}

func TestInfer_Leaves(t *testing.T) {
	at := time.Now()
	tests := []struct {
		name  string
		value any
		want  Schema
	}{
		{"int", 42, Number},
		{"float", 1.5, Number},
		{"uint8", uint8(3), Number},
		{"complex", complex(1, 2), Number},
		{"string", "hello", String},
		{"bool", true, Boolean},
		{"func", func() {}, Function},
		{"symbol", NewSym("token"), Symbol},
		{"big int pointer", big.NewInt(7), BigInt},
		{"big int value", *big.NewInt(7), BigInt},
		{"nil", nil, Null},
		{"absent", Absent, Undefined},
		{"time", at, Time},
		{"time pointer", &at, Time},
		{"bytes", []byte{1, 2}, Buffer},
		{"int32 buffer", []int32{7, 9}, Buffer},
		{"float64 buffer", []float64{0.5}, Buffer},
		{"nil slice", []string(nil), Null},
		{"nil pointer", (*Derived)(nil), Null},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Infer(tt.value)
			if err != nil {
				t.Fatalf("Infer() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Infer() = %s, want %s", got.Kind(), tt.want.Kind())
			}
		})
	}
}

func TestInfer_ObjectFieldsSorted(t *testing.T) {
	s, err := Infer(map[string]any{"b": 1, "a": "x", "c": nil})
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}
	rec, ok := s.(*Record)
	if !ok {
		t.Fatalf("Infer() = %T, want *Record", s)
	}

	want := []struct {
		name   string
		schema Schema
	}{
		{"a", String},
		{"b", Number},
		{"c", Null},
	}
	if len(rec.Fields) != len(want) {
		t.Fatalf("got %d fields, want %d", len(rec.Fields), len(want))
	}
	for i, w := range want {
		if rec.Fields[i].Name != w.name || rec.Fields[i].Schema != w.schema {
			t.Errorf("field %d = %s:%s, want %s:%s", i, rec.Fields[i].Name, rec.Fields[i].Schema.Kind(), w.name, w.schema.Kind())
		}
	}
}

func TestInfer_Collections(t *testing.T) {
	s, err := Infer(map[int]string{1: "a"})
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}
	if m, ok := s.(*Map); !ok || m.Value != nil || m.Type != reflect.TypeOf(map[int]string{}) {
		t.Errorf("Infer(map[int]string) = %#v, want naive *Map", s)
	}

	s, err = Infer(map[string]struct{}{"a": {}})
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}
	if set, ok := s.(*Set); !ok || set.Elem != nil {
		t.Errorf("Infer(map[string]struct{}) = %#v, want naive *Set", s)
	}
}

func TestInfer_InheritedFieldsSkipped(t *testing.T) {
	var diags []Diagnostic
	s, err := Infer(Derived{Base: Base{ID: 1}, Name: "n"}, collect(&diags))
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}

	rec := s.(*Record)
	if len(rec.Fields) != 1 || rec.Fields[0].Name != "Name" {
		t.Errorf("fields = %v, want only Name", fieldNames(rec))
	}
	if len(diags) != 1 || diags[0].Message != "inherited fields skipped" || diags[0].Path != "input.Base" {
		t.Errorf("diagnostics = %+v, want one inherited fields warning at input.Base", diags)
	}
}

func TestInfer_WithInheritedFields(t *testing.T) {
	s, err := Infer(Derived{Base: Base{ID: 1}, Name: "n"}, WithInheritedFields())
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}

	rec := s.(*Record)
	names := fieldNames(rec)
	if !reflect.DeepEqual(names, []string{"ID", "Name"}) {
		t.Errorf("fields = %v, want [ID Name]", names)
	}
	if !reflect.DeepEqual(rec.Fields[0].Index, []int{0, 0}) {
		t.Errorf("ID index = %v, want [0 0]", rec.Fields[0].Index)
	}
}

func TestInfer_OnlyInheritedField(t *testing.T) {
	src := OnlyInherited{Base: Base{ID: 9}}
	s, err := Infer(src)
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}
	if rec := s.(*Record); len(rec.Fields) != 0 {
		t.Fatalf("fields = %v, want none", fieldNames(rec))
	}

	cloner, err := Compile(s)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	out, err := cloner.Clone(src)
	if err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	if got := out.(OnlyInherited); got.ID != 0 {
		t.Errorf("inherited field leaked into the copy: ID = %d", got.ID)
	}
}

func TestInfer_CloneTags(t *testing.T) {
	s, err := Infer(Tagged{Keep: "k", Skip: "s", Shared: map[string]int{"a": 1}})
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}

	rec := s.(*Record)
	if names := fieldNames(rec); !reflect.DeepEqual(names, []string{"Keep", "Shared"}) {
		t.Fatalf("fields = %v, want [Keep Shared]", names)
	}
	if rec.Fields[1].Schema != shallow {
		t.Errorf("Shared schema = %#v, want the shallow custom", rec.Fields[1].Schema)
	}
}

func TestInfer_SequenceFirstElement(t *testing.T) {
	var diags []Diagnostic
	s, err := Infer([]any{map[string]any{"a": 1}, "other"}, collect(&diags))
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}

	seq := s.(*Sequence)
	if len(seq.Elems) != 1 {
		t.Fatalf("elems = %d, want 1", len(seq.Elems))
	}
	if seq.Elems[0].Kind() != KindRecord {
		t.Errorf("elem kind = %s, want record", seq.Elems[0].Kind())
	}
	if len(diags) != 1 || diags[0].Message != "sequence has more than one element, inferring from the first" {
		t.Errorf("diagnostics = %+v, want the over-one-element warning", diags)
	}

	// The lossy policy keeps one alternative, so the schema still compiles
	if _, err := Compile(s); err != nil {
		t.Errorf("Compile() error: %v", err)
	}
}

func TestInfer_EmptySequence(t *testing.T) {
	s, err := Infer([]string{})
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}
	if seq := s.(*Sequence); len(seq.Elems) != 0 || seq.Type != reflect.TypeOf([]string{}) {
		t.Errorf("Infer([]string{}) = %#v, want an empty []string sequence", s)
	}
}

func TestInfer_Arguments(t *testing.T) {
	var diags []Diagnostic
	s, err := Infer(Args(1, "two"), collect(&diags))
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}

	al, ok := s.(*ArrayLike)
	if !ok {
		t.Fatalf("Infer() = %T, want *ArrayLike", s)
	}
	if al.Elem != Number {
		t.Errorf("elem = %s, want number", al.Elem.Kind())
	}
	if len(diags) != 2 {
		t.Errorf("diagnostics = %+v, want partial support and over-one-element warnings", diags)
	}
}

func TestInfer_MapCycle(t *testing.T) {
	o := map[string]any{"nest": map[string]any{"a": 1}}
	o["circular"] = o

	s, err := Infer(o)
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}

	rec := s.(*Record)
	if names := fieldNames(rec); !reflect.DeepEqual(names, []string{"circular", "nest"}) {
		t.Fatalf("fields = %v, want [circular nest]", names)
	}
	if rec.Fields[0].Schema != rec {
		t.Error("circular field should refer back to the root record")
	}
}

func TestInfer_PointerCycle(t *testing.T) {
	n := &listNode{Value: 1}
	n.Next = n

	s, err := Infer(n)
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}
	rec := s.(*Record)
	if rec.Fields[1].Schema != rec {
		t.Error("Next should refer back to the node record")
	}
}

func TestInfer_AcyclicListUnrolled(t *testing.T) {
	list := &listNode{Value: 1, Next: &listNode{Value: 2}}

	s, err := Infer(list)
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}
	rec := s.(*Record)
	next, ok := rec.Fields[1].Schema.(*Record)
	if !ok || next == rec {
		t.Fatalf("Next = %#v, want a distinct record", rec.Fields[1].Schema)
	}
	if next.Fields[1].Schema != Null {
		t.Errorf("tail Next = %s, want null", next.Fields[1].Schema.Kind())
	}
}

func TestInfer_SelfCloner(t *testing.T) {
	a, err := Infer(Versioned{Labels: []string{"x"}})
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}
	b, err := Infer(Versioned{})
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}

	if _, ok := a.(*Custom); !ok {
		t.Fatalf("Infer() = %T, want *Custom", a)
	}
	if a != b {
		t.Error("every Versioned value should share one custom schema")
	}
}

func TestInfer_UnsupportedType(t *testing.T) {
	ch := make(chan int)
	_, err := Infer(map[string]any{"events": ch})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Infer() error = %v, want ErrUnsupportedType", err)
	}

	var inferErr *InferError
	if !errors.As(err, &inferErr) {
		t.Fatalf("Infer() error should be *InferError, got %T", err)
	}
	if inferErr.Path != "input.events" {
		t.Errorf("InferError.Path = %q, want %q", inferErr.Path, "input.events")
	}
	if inferErr.Value != ch {
		t.Error("InferError.Value should hold the offending value")
	}
}

func TestInfer_PointerToScalarUnsupported(t *testing.T) {
	n := 3
	if _, err := Infer(&n); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Infer(*int) error = %v, want ErrUnsupportedType", err)
	}
}

func fieldNames(rec *Record) []string {
	names := make([]string, len(rec.Fields))
	for i, f := range rec.Fields {
		names[i] = f.Name
	}
	return names
}
