package replica

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Validate checks a schema for every problem Compile would stop at, and
// reports all of them at once. Options matter: a schema cycle is only an
// error without WithCycleDetection.
func Validate(s Schema, opts ...CompileOption) error {
	v := &validator{
		opts:  buildCompileOptions(opts),
		state: make(map[Schema]visitState),
	}
	v.walk(s, "input")
	return v.result.ErrorOrNil()
}

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

type validator struct {
	opts   compileOptions
	state  map[Schema]visitState
	result *multierror.Error
}

func (v *validator) fail(sentinel error, path string, kind Kind, message string) {
	v.result = multierror.Append(v.result, newSchemaError(sentinel, path, kind, message))
}

func (v *validator) walk(s Schema, path string) {
	if s == nil {
		v.fail(ErrUnsupportedSchema, path, kindInvalid, "nil schema")
		return
	}
	switch v.state[s] {
	case visiting:
		if !v.opts.detectCycles {
			v.fail(ErrMisconfiguredOption, path, s.Kind(), "schema cycle requires cycle detection")
		}
		return
	case visited:
		return
	}
	v.state[s] = visiting
	defer func() { v.state[s] = visited }()

	switch n := s.(type) {
	case *Leaf:
		if n.kind < KindNumber || n.kind > KindBuffer {
			v.fail(ErrUnsupportedSchema, path, n.kind, "no copy policy")
		}
	case *Custom:
		if n.Fn == nil {
			v.fail(ErrUnsupportedSchema, path, KindCustom, "custom schema without a function")
		}
	case *Map:
		if n.Type != nil && n.Type.Kind() != reflect.Map {
			v.fail(ErrUnsupportedSchema, path, KindMap, "map schema over "+n.Type.String())
		}
		if n.Value != nil {
			v.walk(n.Value, path+"[]")
		}
	case *Set:
		if n.Type != nil && !isSetType(n.Type) {
			v.fail(ErrUnsupportedSchema, path, KindSet, "set schema over "+n.Type.String())
		}
		if n.Elem != nil {
			v.walk(n.Elem, path+"[]")
		}
	case *Sequence:
		if len(n.Elems) > 1 {
			v.fail(ErrUnsupportedSchema, path, KindSequence,
				fmt.Sprintf("sequence with %d alternative element shapes", len(n.Elems)))
		}
		if n.Type != nil && n.Type.Kind() != reflect.Slice && n.Type.Kind() != reflect.Array {
			v.fail(ErrUnsupportedSchema, path, KindSequence, "sequence schema over "+n.Type.String())
		}
		for _, elem := range n.Elems {
			v.walk(elem, path+"[]")
		}
	case *ArrayLike:
		if n.Elem != nil {
			v.walk(n.Elem, path+"[]")
		}
	case *Record:
		v.record(n, path)
	default:
		v.fail(ErrUnsupportedSchema, path, s.Kind(), "no copy policy")
	}
}

func (v *validator) record(n *Record, path string) {
	var st reflect.Type
	switch {
	case n.Type == nil, isObjectType(n.Type):
	case n.Type.Kind() == reflect.Struct:
		st = n.Type
	case n.Type.Kind() == reflect.Pointer && n.Type.Elem().Kind() == reflect.Struct:
		st = n.Type.Elem()
	default:
		v.fail(ErrUnsupportedSchema, path, KindRecord, "record schema over "+n.Type.String())
	}

	for _, fld := range n.Fields {
		if st != nil {
			index := fld.Index
			if len(index) == 0 {
				if sf, ok := st.FieldByName(fld.Name); ok {
					index = sf.Index
				} else {
					v.fail(ErrUnsupportedSchema, path, KindRecord, fmt.Sprintf("%s has no field %s", st, fld.Name))
				}
			}
			if len(index) > 0 && !exportedPath(st, index) {
				v.fail(ErrUnsupportedSchema, path, KindRecord, fmt.Sprintf("field %s of %s is not settable", fld.Name, st))
			}
		}
		v.walk(fld.Schema, path+"."+fld.Name)
	}
}

// Describe renders s as an indented tree. Nodes met a second time are
// printed as references to their first occurrence.
func Describe(s Schema) string {
	d := &describer{seen: make(map[Schema]string)}
	d.node(s, "input", 0)
	return d.b.String()
}

type describer struct {
	b    strings.Builder
	seen map[Schema]string
}

func (d *describer) line(depth int, format string, args ...any) {
	d.b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&d.b, format, args...)
	d.b.WriteByte('\n')
}

func (d *describer) node(s Schema, path string, depth int) {
	label := path
	if i := strings.LastIndexAny(path, ".["); i >= 0 && depth > 0 {
		label = path[i:]
	}
	if s == nil {
		d.line(depth, "%s: <nil>", label)
		return
	}
	if first, ok := d.seen[s]; ok {
		d.line(depth, "%s: %s -> %s", label, s.Kind(), first)
		return
	}

	switch n := s.(type) {
	case *Leaf:
		d.line(depth, "%s: %s", label, n.kind)
	case *Custom:
		d.line(depth, "%s: custom", label)
	case *Map:
		d.seen[s] = path
		if n.Value == nil {
			d.line(depth, "%s: map%s (naive)", label, typeSuffix(n.Type))
			return
		}
		d.line(depth, "%s: map%s", label, typeSuffix(n.Type))
		d.node(n.Value, path+"[]", depth+1)
	case *Set:
		d.seen[s] = path
		if n.Elem == nil {
			d.line(depth, "%s: set%s (naive)", label, typeSuffix(n.Type))
			return
		}
		d.line(depth, "%s: set%s", label, typeSuffix(n.Type))
		d.node(n.Elem, path+"[]", depth+1)
	case *Sequence:
		d.seen[s] = path
		d.line(depth, "%s: sequence%s", label, typeSuffix(n.Type))
		for _, elem := range n.Elems {
			d.node(elem, path+"[]", depth+1)
		}
	case *ArrayLike:
		d.seen[s] = path
		d.line(depth, "%s: arraylike", label)
		if n.Elem != nil {
			d.node(n.Elem, path+"[]", depth+1)
		}
	case *Record:
		d.seen[s] = path
		d.line(depth, "%s: record%s", label, typeSuffix(n.Type))
		for _, fld := range n.Fields {
			d.node(fld.Schema, path+"."+fld.Name, depth+1)
		}
	default:
		d.line(depth, "%s: %s", label, s.Kind())
	}
}

func typeSuffix(t reflect.Type) string {
	if t == nil {
		return ""
	}
	return " " + t.String()
}
