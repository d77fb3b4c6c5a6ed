package replica

import (
	"context"
	"math/big"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zoobzio/sentinel"
)

func init() {
	// Register the clone tag with sentinel
	sentinel.Tag("clone")
}

// Values of the clone struct tag.
const (
	tagSkip    = "-"
	tagShallow = "shallow"
)

var (
	absentType    = reflect.TypeOf(Absent)
	symType       = reflect.TypeOf((*Sym)(nil))
	bigIntType    = reflect.TypeOf(big.Int{})
	bigIntPtrType = reflect.TypeOf((*big.Int)(nil))
	timeType      = reflect.TypeOf(time.Time{})
	timePtrType   = reflect.TypeOf((*time.Time)(nil))
	indexableType = reflect.TypeOf((*Indexable)(nil)).Elem()
)

// shallow is the custom schema used for fields tagged clone:"shallow".
var shallow = CustomFn(func(v any) any { return v })

// Infer walks v once and returns a schema describing its shape.
//
// Slices and array-like values are described by their first element only;
// a warning is raised when more elements exist, since differing shapes cannot
// be represented. Maps and sets are described naively (their contents are not
// inspected). Values reachable from themselves produce schema cycles.
func Infer(v any, opts ...InferOption) (Schema, error) {
	start := time.Now()
	in := &inferrer{
		opts:    buildInferOptions(opts),
		visited: make(map[identity]Schema),
	}
	s, err := in.infer(reflect.ValueOf(v), "input")
	kind := ""
	if s != nil {
		kind = s.Kind().String()
	}
	emitSchemaInferred(context.Background(), kind, in.nodes, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// inferrer holds the state of a single Infer call.
type inferrer struct {
	opts    inferOptions
	visited map[identity]Schema // source container -> its (possibly unfinished) schema
	nodes   int
}

func (in *inferrer) warn(path, message string, v reflect.Value) {
	var value any
	if v.IsValid() && v.CanInterface() {
		value = v.Interface()
	}
	emitInferWarning(context.Background(), path, message)
	if in.opts.onDiagnostic != nil {
		in.opts.onDiagnostic(Diagnostic{Path: path, Message: message, Value: value})
	}
}

func (in *inferrer) infer(rv reflect.Value, path string) (Schema, error) {
	for rv.IsValid() && rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Null, nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return Null, nil
	}

	if id, ok := identityOf(rv); ok {
		if s, seen := in.visited[id]; seen {
			return s, nil
		}
	}

	in.nodes++
	typ := rv.Type()

	switch typ {
	case absentType:
		return Undefined, nil
	case symType:
		if rv.IsNil() {
			return Null, nil
		}
		return Symbol, nil
	case bigIntType, bigIntPtrType:
		if typ.Kind() == reflect.Pointer && rv.IsNil() {
			return Null, nil
		}
		return BigInt, nil
	case timeType, timePtrType:
		if typ.Kind() == reflect.Pointer && rv.IsNil() {
			return Null, nil
		}
		return Time, nil
	}

	if typ.Kind() != reflect.Pointer || !rv.IsNil() {
		if c, ok := selfClonerFor(typ); ok {
			return c, nil
		}
	}

	if typ.Implements(indexableType) && typ.Kind() != reflect.Slice && typ.Kind() != reflect.Array {
		return in.inferArrayLike(rv, path)
	}

	switch typ.Kind() {
	case reflect.Bool:
		return Boolean, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return Number, nil
	case reflect.String:
		return String, nil
	case reflect.Func:
		return Function, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return Null, nil
		}
		if typ.Elem().Kind() == reflect.Struct {
			return in.inferStruct(rv, path)
		}
	case reflect.Struct:
		return in.inferStruct(rv, path)
	case reflect.Map:
		if rv.IsNil() {
			return Null, nil
		}
		if isObjectType(typ) {
			return in.inferObject(rv, path)
		}
		if isSetType(typ) {
			return &Set{Type: typ}, nil
		}
		return &Map{Type: typ}, nil
	case reflect.Slice:
		if rv.IsNil() {
			return Null, nil
		}
		if isBufferElem(typ.Elem()) {
			return Buffer, nil
		}
		return in.inferSequence(rv, path)
	case reflect.Array:
		return in.inferSequence(rv, path)
	}

	var value any
	if rv.CanInterface() {
		value = rv.Interface()
	}
	return nil, &InferError{Err: ErrUnsupportedType, Path: path, Value: value}
}

func (in *inferrer) inferSequence(rv reflect.Value, path string) (Schema, error) {
	seq := &Sequence{Type: rv.Type()}
	if id, ok := identityOf(rv); ok {
		in.visited[id] = seq
	}
	n := rv.Len()
	if n == 0 {
		return seq, nil
	}
	if n > 1 {
		in.warn(path, "sequence has more than one element, inferring from the first", rv)
	}
	elem, err := in.infer(rv.Index(0), path+"[0]")
	if err != nil {
		return nil, err
	}
	seq.Elems = []Schema{elem}
	return seq, nil
}

func (in *inferrer) inferArrayLike(rv reflect.Value, path string) (Schema, error) {
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return Null, nil
	}
	al := &ArrayLike{}
	if id, ok := identityOf(rv); ok {
		in.visited[id] = al
	}
	in.warn(path, "partial support for indexable values", rv)
	idx := rv.Interface().(Indexable)
	n := idx.Len()
	if n == 0 {
		return al, nil
	}
	if n > 1 {
		in.warn(path, "indexable value has more than one element, inferring from the first", rv)
	}
	elem, err := in.infer(reflect.ValueOf(idx.At(0)), path+"[0]")
	if err != nil {
		return nil, err
	}
	al.Elem = elem
	return al, nil
}

func (in *inferrer) inferObject(rv reflect.Value, path string) (Schema, error) {
	rec := &Record{Type: rv.Type()}
	in.visited[identity{typ: rv.Type(), ptr: rv.UnsafePointer()}] = rec

	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		name := k.String()
		s, err := in.infer(rv.MapIndex(k), path+"."+name)
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, Field{Name: name, Schema: s})
	}
	return rec, nil
}

func (in *inferrer) inferStruct(rv reflect.Value, path string) (Schema, error) {
	rec := &Record{Type: rv.Type()}
	st := rv.Type()
	if st.Kind() == reflect.Pointer {
		in.visited[identity{typ: st, ptr: rv.UnsafePointer()}] = rec
		st = st.Elem()
		rv = rv.Elem()
	}

	meta, skipped := scanStruct(st, in.opts.includeInherited)
	for _, name := range skipped {
		in.warn(path+"."+name, "inherited fields skipped", reflect.Value{})
	}

	for _, fm := range meta.Fields {
		fieldPath := path + "." + fm.Name
		var s Schema
		switch fm.Tags["clone"] {
		case tagSkip:
			continue
		case tagShallow:
			s = shallow
		default:
			var err error
			s, err = in.infer(rv.FieldByIndex(fm.Index), fieldPath)
			if err != nil {
				return nil, err
			}
		}
		rec.Fields = append(rec.Fields, Field{Name: fm.Name, Index: fm.Index, Schema: s})
	}
	return rec, nil
}

// structScanKey identifies a cached struct scan.
type structScanKey struct {
	typ       reflect.Type
	inherited bool
}

type structScan struct {
	meta    sentinel.Metadata
	skipped []string
}

var structScans sync.Map // structScanKey -> *structScan

// scanStruct returns metadata for the exported fields of st that records copy,
// and the names of embedded fields left out. With inherited set, fields
// promoted from embedded structs are included with their full index path.
func scanStruct(st reflect.Type, inherited bool) (sentinel.Metadata, []string) {
	key := structScanKey{typ: st, inherited: inherited}
	if cached, ok := structScans.Load(key); ok {
		scan := cached.(*structScan)
		return scan.meta, scan.skipped
	}

	// Tags sentinel already holds for the type take precedence over the raw tag
	known := make(map[string]map[string]string)
	if registered, ok := sentinel.Lookup(st.String()); ok {
		for _, f := range registered.Fields {
			known[f.Name] = f.Tags
		}
	}

	scan := &structScan{
		meta: sentinel.Metadata{
			TypeName:    st.Name(),
			PackageName: st.PkgPath(),
		},
	}

	for _, sf := range reflect.VisibleFields(st) {
		promoted := len(sf.Index) > 1
		if !inherited && (sf.Anonymous || promoted) {
			if sf.Anonymous && !promoted {
				scan.skipped = append(scan.skipped, sf.Name)
			}
			continue
		}
		// Embedded structs are copied through their promoted fields
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			continue
		}
		if !sf.IsExported() || (promoted && crossesPointer(st, sf.Index)) {
			continue
		}

		tags := parseCloneTag(sf.Tag)
		if val, ok := known[sf.Name]["clone"]; ok {
			tags["clone"] = val
		}

		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        tags,
		}
		switch sf.Type.Kind() {
		case reflect.Struct:
			fm.Kind = sentinel.KindStruct
		case reflect.Ptr:
			fm.Kind = sentinel.KindPointer
		case reflect.Slice, reflect.Array:
			fm.Kind = sentinel.KindSlice
		case reflect.Map:
			fm.Kind = sentinel.KindMap
		case reflect.Interface:
			fm.Kind = sentinel.KindInterface
		default:
			fm.Kind = sentinel.KindScalar
		}
		scan.meta.Fields = append(scan.meta.Fields, fm)
	}

	structScans.Store(key, scan)
	return scan.meta, scan.skipped
}

// crossesPointer reports whether a promoted field path goes through an
// embedded pointer, which cannot be written without allocating it.
func crossesPointer(st reflect.Type, index []int) bool {
	t := st
	for _, i := range index[:len(index)-1] {
		f := t.Field(i)
		if f.Type.Kind() == reflect.Pointer {
			return true
		}
		t = f.Type
	}
	return false
}

func parseCloneTag(tag reflect.StructTag) map[string]string {
	tags := make(map[string]string)
	if val, ok := tag.Lookup("clone"); ok {
		tags["clone"] = strings.TrimSpace(val)
	}
	return tags
}

// isObjectType reports whether t is a dynamic record map such as map[string]any.
func isObjectType(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Key().Kind() == reflect.String && t.Elem().Kind() == reflect.Interface
}

// isSetType reports whether t is a map[K]struct{}.
func isSetType(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0
}

// isBufferElem reports whether slices of t are binary buffers.
func isBufferElem(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
