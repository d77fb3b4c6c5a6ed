package replica

import (
	"context"
	"encoding/xml"
	"fmt"
	"math/big"
	"reflect"
	"sync"
	"time"
	"unsafe"

	"github.com/zoobzio/replica/codec"
)

// identity is a reference-identity key for maps, pointers and slices.
// Slices sharing a backing array but differing in length are distinct.
type identity struct {
	typ reflect.Type
	ptr unsafe.Pointer
	n   int
}

// identityOf returns the identity of v, if v has one.
func identityOf(v reflect.Value) (identity, bool) {
	switch v.Kind() {
	case reflect.Map, reflect.Pointer:
		if v.IsNil() {
			return identity{}, false
		}
		return identity{typ: v.Type(), ptr: v.UnsafePointer()}, true
	case reflect.Slice:
		if v.IsNil() || v.Len() == 0 {
			return identity{}, false
		}
		return identity{typ: v.Type(), ptr: v.UnsafePointer(), n: v.Len()}, true
	}
	return identity{}, false
}

// invocation is the state of a single Clone call. It is never shared
// between calls.
type invocation struct {
	seen     map[identity]reflect.Value // source -> its copy, placeholders included
	depth    int
	maxDepth int
}

// lookup returns the copy already made for src during this call.
func (st *invocation) lookup(src reflect.Value) (reflect.Value, identity, bool) {
	if st == nil || st.seen == nil {
		return reflect.Value{}, identity{}, false
	}
	id, ok := identityOf(src)
	if !ok {
		return reflect.Value{}, identity{}, false
	}
	out, found := st.seen[id]
	return out, id, found
}

// remember registers out as the copy of the source identified by id.
func (st *invocation) remember(id identity, out reflect.Value) {
	if st == nil || st.seen == nil || id.ptr == nil {
		return
	}
	st.seen[id] = out
}

// enter records one more level of container nesting.
func (st *invocation) enter(path string) error {
	if st == nil || st.maxDepth == 0 {
		return nil
	}
	st.depth++
	if st.depth > st.maxDepth {
		return &CloneError{Err: ErrDepthExceeded, Path: path, Cause: fmt.Errorf("nesting deeper than %d", st.maxDepth)}
	}
	return nil
}

func (st *invocation) leave() {
	if st == nil || st.maxDepth == 0 {
		return
	}
	st.depth--
}

// unwrap strips interface wrappers, returning the zero Value for nil.
func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// assign stores v into dst. The zero Value stores dst's zero value.
func assign(dst, v reflect.Value, path string) error {
	if !v.IsValid() {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if !v.Type().AssignableTo(dst.Type()) {
		if v.Type().ConvertibleTo(dst.Type()) && v.Kind() == dst.Kind() {
			dst.Set(v.Convert(dst.Type()))
			return nil
		}
		return mismatch(path, "cannot store %s in %s", v.Type(), dst.Type())
	}
	dst.Set(v)
	return nil
}

// storable returns v ready to be used as a map key or element of type t.
func storable(v reflect.Value, t reflect.Type, path string) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(t), nil
	}
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if v.Type().ConvertibleTo(t) && v.Kind() == t.Kind() {
		return v.Convert(t), nil
	}
	return reflect.Value{}, mismatch(path, "cannot store %s in %s", v.Type(), t)
}

func cloneBigInt(src reflect.Value, path string) (reflect.Value, error) {
	src = unwrap(src)
	if !src.IsValid() {
		return src, nil
	}
	switch src.Type() {
	case bigIntPtrType:
		if src.IsNil() {
			return src, nil
		}
		return reflect.ValueOf(new(big.Int).Set(src.Interface().(*big.Int))), nil
	case bigIntType:
		x := src.Interface().(big.Int)
		return reflect.ValueOf(*new(big.Int).Set(&x)), nil
	}
	return reflect.Value{}, mismatch(path, "expected big integer, got %s", src.Type())
}

// rebuildTime makes a new instant with the same epoch value and zone.
func rebuildTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond())).In(t.Location())
}

func cloneTime(src reflect.Value, path string) (reflect.Value, error) {
	src = unwrap(src)
	if !src.IsValid() {
		return src, nil
	}
	switch {
	case src.Type() == timePtrType:
		if src.IsNil() {
			return src, nil
		}
		t := rebuildTime(*src.Interface().(*time.Time))
		return reflect.ValueOf(&t), nil
	case src.Type().ConvertibleTo(timeType) && src.Kind() == reflect.Struct:
		t := rebuildTime(src.Convert(timeType).Interface().(time.Time))
		return reflect.ValueOf(t).Convert(src.Type()), nil
	}
	return reflect.Value{}, mismatch(path, "expected time, got %s", src.Type())
}

func cloneBuffer(src reflect.Value, path string) (reflect.Value, error) {
	src = unwrap(src)
	if !src.IsValid() {
		return src, nil
	}
	if src.Kind() != reflect.Slice || !isBufferElem(src.Type().Elem()) {
		return reflect.Value{}, mismatch(path, "expected numeric buffer, got %s", src.Type())
	}
	if src.IsNil() {
		return src, nil
	}
	out := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
	reflect.Copy(out, src)
	return out, nil
}

// snapshotter copies naive collection values through a codec round trip.
type snapshotter struct {
	codec codec.Codec
}

// envelopes caches the one-field wrapper struct used per element type.
var envelopes sync.Map // reflect.Type -> reflect.Type

// envelopeType wraps t in a struct every codec can marshal at top level.
func envelopeType(t reflect.Type) reflect.Type {
	if cached, ok := envelopes.Load(t); ok {
		return cached.(reflect.Type)
	}
	env := reflect.StructOf([]reflect.StructField{
		{
			Name: "XMLName",
			Type: reflect.TypeOf(xml.Name{}),
			Tag:  `xml:"snapshot" json:"-" yaml:"-" msgpack:"-" bson:"-"`,
		},
		{
			Name: "V",
			Type: t,
			Tag:  `xml:"v" json:"v" yaml:"v" msgpack:"v" bson:"v"`,
		},
	})
	actual, _ := envelopes.LoadOrStore(t, env)
	return actual.(reflect.Type)
}

// copy snapshots v as a value of type t. When the codec cannot represent v
// the zero value of t is returned and a lossy signal is raised.
func (s snapshotter) copy(v reflect.Value, t reflect.Type, path string) reflect.Value {
	env := envelopeType(t)
	in := reflect.New(env)
	if v.IsValid() {
		if err := assign(in.Elem().Field(1), v, path); err != nil {
			emitSnapshotLossy(context.Background(), path, s.codec.ContentType(), err)
			return reflect.Zero(t)
		}
	}
	data, err := s.codec.Marshal(in.Interface())
	if err != nil {
		emitSnapshotLossy(context.Background(), path, s.codec.ContentType(), err)
		return reflect.Zero(t)
	}
	out := reflect.New(env)
	if err := s.codec.Unmarshal(data, out.Interface()); err != nil {
		emitSnapshotLossy(context.Background(), path, s.codec.ContentType(), err)
		return reflect.Zero(t)
	}
	return out.Elem().Field(1)
}
