package replica

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"
)

// cloneFunc copies src. The zero Value stands for nil.
type cloneFunc func(src reflect.Value, st *invocation) (reflect.Value, error)

// Cloner is a compiled deep-copy function for one schema. A Cloner holds no
// per-call state and is safe for concurrent use.
type Cloner struct {
	root         cloneFunc
	source       string
	kind         Kind
	detectCycles bool
	maxDepth     int
}

// Compile synthesizes and materializes a cloner for s.
func Compile(s Schema, opts ...CompileOption) (*Cloner, error) {
	return compile(s, buildCompileOptions(opts))
}

func compile(s Schema, o compileOptions) (*Cloner, error) {
	start := time.Now()
	ctx := context.Background()

	prog, err := synthesize(s, "input", o)
	if err != nil {
		emitClonerCompiled(ctx, kindOf(s), 0, 0, 0, time.Since(start), err)
		return nil, err
	}

	source, err := prog.render()
	if err == nil {
		var c *Cloner
		c, err = materialize(prog, source)
		if err == nil {
			emitClonerCompiled(ctx, kindOf(s), prog.nodes, len(prog.helpers), len(prog.bindings), time.Since(start), nil)
			return c, nil
		}
	}
	emitClonerCompiled(ctx, kindOf(s), prog.nodes, len(prog.helpers), len(prog.bindings), time.Since(start), err)
	return nil, err
}

func kindOf(s Schema) string {
	if s == nil {
		return ""
	}
	return s.Kind().String()
}

// Clone returns a deep copy of v.
func (c *Cloner) Clone(v any) (any, error) {
	var st *invocation
	if c.detectCycles || c.maxDepth > 0 {
		st = &invocation{maxDepth: c.maxDepth}
		if c.detectCycles {
			st.seen = make(map[identity]reflect.Value)
		}
	}
	out, err := c.root(reflect.ValueOf(v), st)
	if err != nil {
		var ce *CloneError
		if errors.As(err, &ce) {
			ce.Input = v
			ce.Source = c.source
		}
		return nil, err
	}
	if !out.IsValid() || !out.CanInterface() {
		return nil, nil
	}
	return out.Interface(), nil
}

// Source returns the generated source the cloner was materialized from.
func (c *Cloner) Source() string {
	return c.source
}

// Kind returns the kind of the schema the cloner was compiled from.
func (c *Cloner) Kind() Kind {
	return c.kind
}

// As adapts c to a typed clone function.
func As[T any](c *Cloner) func(T) (T, error) {
	return func(v T) (T, error) {
		var zero T
		out, err := c.Clone(v)
		if err != nil {
			return zero, err
		}
		if out == nil {
			return zero, nil
		}
		t, ok := out.(T)
		if !ok {
			return zero, &CloneError{
				Err:    ErrShapeMismatch,
				Path:   "input",
				Input:  v,
				Source: c.source,
				Cause:  fmt.Errorf("clone is %T, not %T", out, zero),
			}
		}
		return t, nil
	}
}

// materializer turns a fragment tree into closures. Named helpers are
// reached through slots filled once their own closure exists.
type materializer struct {
	prog     *program
	source   string
	bindings map[string]*Custom
	slots    map[*fragment]*cloneFunc
	built    map[*fragment]bool
	snap     snapshotter
}

func materialize(prog *program, source string) (*Cloner, error) {
	m := &materializer{
		prog:     prog,
		source:   source,
		bindings: make(map[string]*Custom, len(prog.bindings)),
		slots:    make(map[*fragment]*cloneFunc, len(prog.helpers)),
		built:    make(map[*fragment]bool, len(prog.helpers)),
		snap:     snapshotter{codec: prog.opts.snapshot},
	}
	for _, b := range prog.bindings {
		m.bindings[b.name] = b.custom
	}
	for _, h := range prog.helpers {
		m.slots[h] = new(cloneFunc)
	}

	root, err := m.build(prog.root)
	if err != nil {
		return nil, err
	}
	for _, h := range prog.helpers {
		if *m.slots[h] == nil {
			return nil, newCompileError(source, fmt.Errorf("helper %s was never materialized", h.helper))
		}
	}

	return &Cloner{
		root:         root,
		source:       source,
		kind:         prog.root.kind,
		detectCycles: prog.opts.detectCycles,
		maxDepth:     prog.opts.maxDepth,
	}, nil
}

func (m *materializer) build(f *fragment) (cloneFunc, error) {
	if f.op == opRef {
		slot, ok := m.slots[f.target]
		if !ok {
			return nil, newCompileError(m.source, fmt.Errorf("reference at %s has no helper", f.path))
		}
		return indirect(slot), nil
	}
	if f.helper == "" {
		return m.buildFragment(f)
	}

	slot, ok := m.slots[f]
	if !ok {
		return nil, newCompileError(m.source, fmt.Errorf("helper %s is not declared", f.helper))
	}
	if !m.built[f] {
		// Marked before building so references inside the body go through the slot
		m.built[f] = true
		fn, err := m.buildFragment(f)
		if err != nil {
			return nil, err
		}
		*slot = fn
	}
	return indirect(slot), nil
}

// indirect calls whatever the slot holds at call time.
func indirect(slot *cloneFunc) cloneFunc {
	return func(src reflect.Value, st *invocation) (reflect.Value, error) {
		return (*slot)(src, st)
	}
}

func (m *materializer) buildFragment(f *fragment) (cloneFunc, error) {
	switch f.op {
	case opIdentity:
		return identityLeaf(f), nil
	case opNull:
		return func(reflect.Value, *invocation) (reflect.Value, error) {
			return reflect.Value{}, nil
		}, nil
	case opUndefined:
		absent := reflect.ValueOf(Absent)
		return func(reflect.Value, *invocation) (reflect.Value, error) {
			return absent, nil
		}, nil
	case opBigInt:
		path := f.path
		return func(src reflect.Value, _ *invocation) (reflect.Value, error) {
			return cloneBigInt(src, path)
		}, nil
	case opTime:
		path := f.path
		return func(src reflect.Value, _ *invocation) (reflect.Value, error) {
			return cloneTime(src, path)
		}, nil
	case opBuffer:
		path := f.path
		return func(src reflect.Value, _ *invocation) (reflect.Value, error) {
			return cloneBuffer(src, path)
		}, nil
	case opCustom:
		return m.custom(f)
	case opRecord:
		return m.record(f)
	case opSequence:
		return m.sequence(f)
	case opArrayLike:
		return m.arrayLike(f)
	case opMap:
		return m.keyed(f)
	case opSet:
		return m.set(f)
	}
	return nil, newCompileError(m.source, fmt.Errorf("no materialization for fragment at %s", f.path))
}

// identityLeaf returns leaves as they are after checking their kind.
func identityLeaf(f *fragment) cloneFunc {
	path, want := f.path, f.leaf
	return func(src reflect.Value, _ *invocation) (reflect.Value, error) {
		v := unwrap(src)
		if !v.IsValid() {
			return v, nil
		}
		if !leafMatches(want, v) {
			return reflect.Value{}, mismatch(path, "expected %s, got %s", want, v.Type())
		}
		return v, nil
	}
}

func leafMatches(k Kind, v reflect.Value) bool {
	switch k {
	case KindNumber:
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
			reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
			return true
		}
		return false
	case KindString:
		return v.Kind() == reflect.String
	case KindBoolean:
		return v.Kind() == reflect.Bool
	case KindFunction:
		return v.Kind() == reflect.Func
	case KindSymbol:
		return v.Type() == symType
	}
	return false
}

func (m *materializer) custom(f *fragment) (cloneFunc, error) {
	c, ok := m.bindings[f.binding]
	if !ok || c == nil || c.Fn == nil {
		return nil, newCompileError(m.source, fmt.Errorf("missing binding %s", f.binding))
	}
	fn := c.Fn
	return func(src reflect.Value, _ *invocation) (reflect.Value, error) {
		var in any
		if src.IsValid() && src.CanInterface() {
			in = src.Interface()
		}
		return reflect.ValueOf(fn(in)), nil
	}, nil
}

type compiledField struct {
	name  string
	key   reflect.Value
	index []int
	path  string
	fn    cloneFunc
}

func (m *materializer) fields(f *fragment) ([]compiledField, error) {
	out := make([]compiledField, 0, len(f.fields))
	for _, fld := range f.fields {
		fn, err := m.build(fld.frag)
		if err != nil {
			return nil, err
		}
		out = append(out, compiledField{
			name:  fld.name,
			key:   reflect.ValueOf(fld.name),
			index: fld.index,
			path:  f.path + "." + fld.name,
			fn:    fn,
		})
	}
	return out, nil
}

func (m *materializer) record(f *fragment) (cloneFunc, error) {
	fields, err := m.fields(f)
	if err != nil {
		return nil, err
	}
	path, memo, typ := f.path, f.memo, f.typ

	switch {
	case typ == nil || typ.Kind() == reflect.Map:
		return func(src reflect.Value, st *invocation) (reflect.Value, error) {
			src = unwrap(src)
			if !src.IsValid() {
				return src, nil
			}
			if !isObjectType(src.Type()) {
				return reflect.Value{}, mismatch(path, "expected record map, got %s", src.Type())
			}
			if src.IsNil() {
				return src, nil
			}
			var id identity
			if memo {
				cached, key, found := st.lookup(src)
				if found {
					return cached, nil
				}
				id = key
			}
			if err := st.enter(path); err != nil {
				return reflect.Value{}, err
			}
			defer st.leave()

			out := reflect.MakeMapWithSize(src.Type(), len(fields))
			st.remember(id, out)
			elem := src.Type().Elem()
			for _, fl := range fields {
				key := fl.key.Convert(src.Type().Key())
				v := src.MapIndex(key)
				if !v.IsValid() {
					continue
				}
				c, err := fl.fn(v, st)
				if err != nil {
					return reflect.Value{}, err
				}
				val, err := storable(c, elem, fl.path)
				if err != nil {
					return reflect.Value{}, err
				}
				out.SetMapIndex(key, val)
			}
			return out, nil
		}, nil

	case typ.Kind() == reflect.Pointer:
		return func(src reflect.Value, st *invocation) (reflect.Value, error) {
			src = unwrap(src)
			if !src.IsValid() {
				return src, nil
			}
			if src.Type() != typ {
				return reflect.Value{}, mismatch(path, "expected %s, got %s", typ, src.Type())
			}
			if src.IsNil() {
				return src, nil
			}
			var id identity
			if memo {
				cached, key, found := st.lookup(src)
				if found {
					return cached, nil
				}
				id = key
			}
			if err := st.enter(path); err != nil {
				return reflect.Value{}, err
			}
			defer st.leave()

			out := reflect.New(typ.Elem())
			st.remember(id, out)
			if err := fillStruct(out.Elem(), src.Elem(), fields, st); err != nil {
				return reflect.Value{}, err
			}
			return out, nil
		}, nil
	}

	return func(src reflect.Value, st *invocation) (reflect.Value, error) {
		src = unwrap(src)
		if !src.IsValid() {
			return src, nil
		}
		if src.Type() != typ {
			return reflect.Value{}, mismatch(path, "expected %s, got %s", typ, src.Type())
		}
		if err := st.enter(path); err != nil {
			return reflect.Value{}, err
		}
		defer st.leave()

		out := reflect.New(typ).Elem()
		if err := fillStruct(out, src, fields, st); err != nil {
			return reflect.Value{}, err
		}
		return out, nil
	}, nil
}

func fillStruct(dst, src reflect.Value, fields []compiledField, st *invocation) error {
	for _, fl := range fields {
		c, err := fl.fn(src.FieldByIndex(fl.index), st)
		if err != nil {
			return err
		}
		if err := assign(dst.FieldByIndex(fl.index), c, fl.path); err != nil {
			return err
		}
	}
	return nil
}

func (m *materializer) sequence(f *fragment) (cloneFunc, error) {
	var elem cloneFunc
	if f.elem != nil {
		fn, err := m.build(f.elem)
		if err != nil {
			return nil, err
		}
		elem = fn
	}
	path, memo := f.path, f.memo
	elemPath := path + "[]"

	return func(src reflect.Value, st *invocation) (reflect.Value, error) {
		src = unwrap(src)
		if !src.IsValid() {
			return src, nil
		}
		k := src.Kind()
		if k != reflect.Slice && k != reflect.Array {
			return reflect.Value{}, mismatch(path, "expected sequence, got %s", src.Type())
		}
		if k == reflect.Slice && src.IsNil() {
			return src, nil
		}
		var id identity
		if memo {
			cached, key, found := st.lookup(src)
			if found {
				return cached, nil
			}
			id = key
		}
		n := src.Len()
		if elem == nil && n > 0 {
			return reflect.Value{}, mismatch(path, "sequence schema has no element shape for %d elements", n)
		}
		if err := st.enter(path); err != nil {
			return reflect.Value{}, err
		}
		defer st.leave()

		var out reflect.Value
		if k == reflect.Slice {
			out = reflect.MakeSlice(src.Type(), n, n)
		} else {
			out = reflect.New(src.Type()).Elem()
		}
		st.remember(id, out)
		for i := 0; i < n; i++ {
			c, err := elem(src.Index(i), st)
			if err != nil {
				return reflect.Value{}, err
			}
			if err := assign(out.Index(i), c, elemPath); err != nil {
				return reflect.Value{}, err
			}
		}
		return out, nil
	}, nil
}

func (m *materializer) arrayLike(f *fragment) (cloneFunc, error) {
	var elem cloneFunc
	if f.elem != nil {
		fn, err := m.build(f.elem)
		if err != nil {
			return nil, err
		}
		elem = fn
	}
	path, memo := f.path, f.memo

	return func(src reflect.Value, st *invocation) (reflect.Value, error) {
		src = unwrap(src)
		if !src.IsValid() {
			return src, nil
		}
		if !src.CanInterface() {
			return reflect.Value{}, mismatch(path, "expected indexable value, got %s", src.Type())
		}
		idx, ok := src.Interface().(Indexable)
		if !ok {
			return reflect.Value{}, mismatch(path, "expected indexable value, got %s", src.Type())
		}
		var id identity
		if memo {
			cached, key, found := st.lookup(src)
			if found {
				return cached, nil
			}
			id = key
		}
		n := idx.Len()
		if elem == nil && n > 0 {
			return reflect.Value{}, mismatch(path, "array-like schema has no element shape for %d elements", n)
		}
		if err := st.enter(path); err != nil {
			return reflect.Value{}, err
		}
		defer st.leave()

		out := make([]any, n)
		outV := reflect.ValueOf(out)
		st.remember(id, outV)
		for i := 0; i < n; i++ {
			c, err := elem(reflect.ValueOf(idx.At(i)), st)
			if err != nil {
				return reflect.Value{}, err
			}
			if c.IsValid() && c.CanInterface() {
				out[i] = c.Interface()
			}
		}
		return outV, nil
	}, nil
}

func (m *materializer) keyed(f *fragment) (cloneFunc, error) {
	var elem cloneFunc
	if f.elem != nil {
		fn, err := m.build(f.elem)
		if err != nil {
			return nil, err
		}
		elem = fn
	}
	path, memo, snap := f.path, f.memo, m.snap
	elemPath := path + "[]"

	return func(src reflect.Value, st *invocation) (reflect.Value, error) {
		src = unwrap(src)
		if !src.IsValid() {
			return src, nil
		}
		if src.Kind() != reflect.Map {
			return reflect.Value{}, mismatch(path, "expected map, got %s", src.Type())
		}
		if src.IsNil() {
			return src, nil
		}
		var id identity
		if memo {
			cached, key, found := st.lookup(src)
			if found {
				return cached, nil
			}
			id = key
		}
		if err := st.enter(path); err != nil {
			return reflect.Value{}, err
		}
		defer st.leave()

		valueType := src.Type().Elem()
		out := reflect.MakeMapWithSize(src.Type(), src.Len())
		st.remember(id, out)
		iter := src.MapRange()
		for iter.Next() {
			var c reflect.Value
			if elem == nil {
				c = snap.copy(iter.Value(), valueType, elemPath)
			} else {
				var err error
				if c, err = elem(iter.Value(), st); err != nil {
					return reflect.Value{}, err
				}
			}
			val, err := storable(c, valueType, elemPath)
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(iter.Key(), val)
		}
		return out, nil
	}, nil
}

func (m *materializer) set(f *fragment) (cloneFunc, error) {
	var elem cloneFunc
	if f.elem != nil {
		fn, err := m.build(f.elem)
		if err != nil {
			return nil, err
		}
		elem = fn
	}
	path, memo, snap := f.path, f.memo, m.snap
	elemPath := path + "[]"

	return func(src reflect.Value, st *invocation) (reflect.Value, error) {
		src = unwrap(src)
		if !src.IsValid() {
			return src, nil
		}
		if !isSetType(src.Type()) {
			return reflect.Value{}, mismatch(path, "expected set, got %s", src.Type())
		}
		if src.IsNil() {
			return src, nil
		}
		var id identity
		if memo {
			cached, key, found := st.lookup(src)
			if found {
				return cached, nil
			}
			id = key
		}
		if err := st.enter(path); err != nil {
			return reflect.Value{}, err
		}
		defer st.leave()

		keyType := src.Type().Key()
		member := reflect.Zero(src.Type().Elem())
		out := reflect.MakeMapWithSize(src.Type(), src.Len())
		st.remember(id, out)
		iter := src.MapRange()
		for iter.Next() {
			var c reflect.Value
			if elem == nil {
				c = snap.copy(iter.Key(), keyType, elemPath)
			} else {
				var err error
				if c, err = elem(iter.Key(), st); err != nil {
					return reflect.Value{}, err
				}
			}
			key, err := storable(c, keyType, elemPath)
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(key, member)
		}
		return out, nil
	}, nil
}
