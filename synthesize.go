package replica

import (
	"fmt"
	"reflect"
)

// op is the copy operation a fragment performs.
type op int

const (
	opIdentity op = iota
	opNull
	opUndefined
	opBigInt
	opTime
	opBuffer
	opCustom
	opMap
	opSet
	opSequence
	opArrayLike
	opRecord
	opRef
)

// fragment is one synthesized copy step. A fragment tree is the intermediate
// form of a cloner: it is rendered to source for diagnostics and materialized
// into closures.
type fragment struct {
	op   op
	kind Kind
	path string       // input path the fragment copies, used in errors
	typ  reflect.Type // container type, nil when the schema left it open

	elem   *fragment // sequence and array-like elements, map values, set elements
	fields []fieldFragment

	leaf    Kind         // opIdentity: leaf kind to check against
	binding string       // opCustom: generated binding name
	target  *fragment    // opRef: fragment being referenced
	helper  string       // named helper, set when the fragment is reached more than once
	cyclic  bool         // reached again while still being synthesized
	memo    bool         // guarded by the per-invocation identity map
}

type fieldFragment struct {
	name  string
	index []int // struct field index, nil for map records
	frag  *fragment
}

// binding ties a generated name to a custom schema.
type binding struct {
	name   string
	custom *Custom
}

// program is the result of synthesis: the fragment tree and the tables
// materialization needs.
type program struct {
	root     *fragment
	input    string
	opts     compileOptions
	helpers  []*fragment
	bindings []binding
	nodes    int
}

// synthCtx threads identity-keyed state through a synthesis pass.
type synthCtx struct {
	// cycles maps each container node to the resolver of its fragment. It is
	// populated before the node's children are visited.
	cycles map[Schema]func(path string) (*fragment, error)

	// customs maps each custom schema to its binding name.
	customs map[*Custom]string

	prog *program
}

// synthesize builds the program for s. inputName is the root input binding.
func synthesize(s Schema, inputName string, opts compileOptions) (*program, error) {
	prog := &program{input: inputName, opts: opts}
	ctx := &synthCtx{
		cycles:  make(map[Schema]func(string) (*fragment, error)),
		customs: make(map[*Custom]string),
		prog:    prog,
	}
	root, err := ctx.synthesize(s, inputName)
	if err != nil {
		return nil, err
	}
	prog.root = root
	return prog, nil
}

func (ctx *synthCtx) newFragment(o op, kind Kind, path string) *fragment {
	ctx.prog.nodes++
	return &fragment{op: o, kind: kind, path: path}
}

// track registers the resolver for a container node. The returned function
// marks the node finished.
func (ctx *synthCtx) track(s Schema, f *fragment) func() {
	done := false
	ctx.cycles[s] = func(path string) (*fragment, error) {
		if !done {
			if !ctx.prog.opts.detectCycles {
				return nil, newSchemaError(ErrMisconfiguredOption, path, f.kind,
					"schema cycle requires cycle detection")
			}
			f.cyclic = true
		}
		if f.helper == "" {
			f.helper = fmt.Sprintf("cycle%d", len(ctx.prog.helpers))
			ctx.prog.helpers = append(ctx.prog.helpers, f)
		}
		return &fragment{op: opRef, kind: f.kind, path: path, target: f}, nil
	}
	return func() { done = true }
}

func (ctx *synthCtx) synthesize(s Schema, path string) (*fragment, error) {
	if s == nil {
		return nil, newSchemaError(ErrUnsupportedSchema, path, kindInvalid, "nil schema")
	}
	if resolve, ok := ctx.cycles[s]; ok {
		return resolve(path)
	}

	switch n := s.(type) {
	case *Leaf:
		return ctx.synthesizeLeaf(n, path)

	case *Custom:
		if n.Fn == nil {
			return nil, newSchemaError(ErrUnsupportedSchema, path, KindCustom, "custom schema without a function")
		}
		name, ok := ctx.customs[n]
		if !ok {
			name = fmt.Sprintf("custom%d", len(ctx.prog.bindings))
			ctx.customs[n] = name
			ctx.prog.bindings = append(ctx.prog.bindings, binding{name: name, custom: n})
		}
		f := ctx.newFragment(opCustom, KindCustom, path)
		f.binding = name
		return f, nil

	case *Map:
		if n.Type != nil && (n.Type.Kind() != reflect.Map) {
			return nil, newSchemaError(ErrUnsupportedSchema, path, KindMap, "map schema over "+n.Type.String())
		}
		f := ctx.newFragment(opMap, KindMap, path)
		f.typ = n.Type
		f.memo = ctx.prog.opts.detectCycles
		finish := ctx.track(s, f)
		if n.Value != nil {
			elem, err := ctx.synthesize(n.Value, path+"[]")
			if err != nil {
				return nil, err
			}
			f.elem = elem
		}
		finish()
		return f, nil

	case *Set:
		if n.Type != nil && !isSetType(n.Type) {
			return nil, newSchemaError(ErrUnsupportedSchema, path, KindSet, "set schema over "+n.Type.String())
		}
		f := ctx.newFragment(opSet, KindSet, path)
		f.typ = n.Type
		f.memo = ctx.prog.opts.detectCycles
		finish := ctx.track(s, f)
		if n.Elem != nil {
			elem, err := ctx.synthesize(n.Elem, path+"[]")
			if err != nil {
				return nil, err
			}
			f.elem = elem
		}
		finish()
		return f, nil

	case *Sequence:
		if len(n.Elems) > 1 {
			return nil, newSchemaError(ErrUnsupportedSchema, path, KindSequence,
				fmt.Sprintf("sequence with %d alternative element shapes", len(n.Elems)))
		}
		if n.Type != nil && n.Type.Kind() != reflect.Slice && n.Type.Kind() != reflect.Array {
			return nil, newSchemaError(ErrUnsupportedSchema, path, KindSequence, "sequence schema over "+n.Type.String())
		}
		f := ctx.newFragment(opSequence, KindSequence, path)
		f.typ = n.Type
		f.memo = ctx.prog.opts.detectCycles && (n.Type == nil || n.Type.Kind() == reflect.Slice)
		finish := ctx.track(s, f)
		if len(n.Elems) == 1 {
			elem, err := ctx.synthesize(n.Elems[0], path+"[]")
			if err != nil {
				return nil, err
			}
			f.elem = elem
		}
		finish()
		return f, nil

	case *ArrayLike:
		f := ctx.newFragment(opArrayLike, KindArrayLike, path)
		f.memo = ctx.prog.opts.detectCycles
		finish := ctx.track(s, f)
		if n.Elem != nil {
			elem, err := ctx.synthesize(n.Elem, path+"[]")
			if err != nil {
				return nil, err
			}
			f.elem = elem
		}
		finish()
		return f, nil

	case *Record:
		return ctx.synthesizeRecord(n, path)
	}

	return nil, newSchemaError(ErrUnsupportedSchema, path, s.Kind(), "no copy policy")
}

func (ctx *synthCtx) synthesizeLeaf(n *Leaf, path string) (*fragment, error) {
	switch n.kind {
	case KindNumber, KindString, KindBoolean, KindFunction, KindSymbol:
		f := ctx.newFragment(opIdentity, n.kind, path)
		f.leaf = n.kind
		return f, nil
	case KindBigInt:
		return ctx.newFragment(opBigInt, n.kind, path), nil
	case KindNull:
		return ctx.newFragment(opNull, n.kind, path), nil
	case KindUndefined:
		return ctx.newFragment(opUndefined, n.kind, path), nil
	case KindTime:
		return ctx.newFragment(opTime, n.kind, path), nil
	case KindBuffer:
		return ctx.newFragment(opBuffer, n.kind, path), nil
	}
	return nil, newSchemaError(ErrUnsupportedSchema, path, n.kind, "no copy policy")
}

func (ctx *synthCtx) synthesizeRecord(n *Record, path string) (*fragment, error) {
	var st reflect.Type
	switch {
	case n.Type == nil, isObjectType(n.Type):
	case n.Type.Kind() == reflect.Struct:
		st = n.Type
	case n.Type.Kind() == reflect.Pointer && n.Type.Elem().Kind() == reflect.Struct:
		st = n.Type.Elem()
	default:
		return nil, newSchemaError(ErrUnsupportedSchema, path, KindRecord, "record schema over "+n.Type.String())
	}

	f := ctx.newFragment(opRecord, KindRecord, path)
	f.typ = n.Type
	f.memo = ctx.prog.opts.detectCycles && (st == nil || n.Type.Kind() == reflect.Pointer)
	finish := ctx.track(n, f)

	for _, fld := range n.Fields {
		index := fld.Index
		if st != nil {
			if len(index) == 0 {
				sf, ok := st.FieldByName(fld.Name)
				if !ok {
					return nil, newSchemaError(ErrUnsupportedSchema, path, KindRecord,
						fmt.Sprintf("%s has no field %s", st, fld.Name))
				}
				index = sf.Index
			}
			if !exportedPath(st, index) {
				return nil, newSchemaError(ErrUnsupportedSchema, path, KindRecord,
					fmt.Sprintf("field %s of %s is not settable", fld.Name, st))
			}
		}
		child, err := ctx.synthesize(fld.Schema, path+"."+fld.Name)
		if err != nil {
			return nil, err
		}
		f.fields = append(f.fields, fieldFragment{name: fld.Name, index: index, frag: child})
	}

	finish()
	return f, nil
}

// exportedPath reports whether the field at index can be read and written
// through reflection without allocating embedded pointers.
func exportedPath(st reflect.Type, index []int) bool {
	t := st
	for i, x := range index {
		if t.Kind() != reflect.Struct || x < 0 || x >= t.NumField() {
			return false
		}
		sf := t.Field(x)
		last := i == len(index)-1
		if last {
			return sf.IsExported()
		}
		if !sf.Anonymous || sf.Type.Kind() != reflect.Struct {
			return false
		}
		t = sf.Type
	}
	return false
}
