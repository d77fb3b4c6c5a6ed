package replica

import (
	"bytes"
	"fmt"
	"go/format"
	"go/parser"
	"go/token"
	"path"
	"reflect"
	"strconv"
	"strings"
)

// SynthesizeSource returns the Go source of the cloner Compile would build
// for s, with the input bound to inputName. The source is for reading: the
// cloner itself runs as materialized closures.
func SynthesizeSource(s Schema, inputName string, opts ...CompileOption) (string, error) {
	o := buildCompileOptions(opts)
	prog, err := synthesize(s, inputName, o)
	if err != nil {
		return "", err
	}
	return prog.render()
}

// render writes the program as a Go file and checks that it parses.
func (p *program) render() (string, error) {
	r := &renderer{prog: p}
	raw := r.file()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "clone.go", raw, parser.ParseComments)
	if err != nil {
		return raw, newCompileError(raw, err)
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return raw, newCompileError(raw, err)
	}
	return buf.String(), nil
}

type renderer struct {
	prog *program
	b    strings.Builder
}

func (r *renderer) printf(format string, args ...any) {
	fmt.Fprintf(&r.b, format, args...)
	r.b.WriteByte('\n')
}

func (r *renderer) file() string {
	p := r.prog
	r.printf("// Code generated by replica. DO NOT EDIT.")
	r.printf("")
	r.printf("package clone")
	r.printf("")

	if len(p.bindings) > 0 {
		r.printf("func newClone(bindings map[string]func(any) any) func(any) any {")
		for _, b := range p.bindings {
			r.printf("%s := bindings[%q]", b.name, b.name)
		}
		r.printf("return func(%s any) any {", p.input)
		r.body()
		r.printf("}")
		r.printf("}")
	} else {
		r.printf("func clone(%s any) any {", p.input)
		r.body()
		r.printf("}")
	}
	return r.b.String()
}

func (r *renderer) body() {
	p := r.prog
	if p.opts.detectCycles {
		r.printf("seen := map[identity]any{}")
	}
	if len(p.helpers) > 0 {
		names := make([]string, len(p.helpers))
		for i, h := range p.helpers {
			names[i] = h.helper
		}
		r.printf("var %s func(input any) any", strings.Join(names, ", "))
		for _, h := range p.helpers {
			r.printf("%s = func(input any) any {", h.helper)
			r.container(h, "input")
			r.printf("}")
		}
	}
	r.printf("return %s", r.expr(p.root, p.input))
}

// expr returns an expression evaluating to the copy of in.
func (r *renderer) expr(f *fragment, in string) string {
	switch f.op {
	case opIdentity:
		return in
	case opNull:
		return "nil"
	case opUndefined:
		return "replica.Absent"
	case opBigInt:
		return "cloneBigInt(" + in + ")"
	case opTime:
		return "cloneTime(" + in + ")"
	case opBuffer:
		return "cloneBuffer(" + in + ")"
	case opCustom:
		return f.binding + "(" + in + ")"
	case opRef:
		return f.target.helper + "(" + in + ")"
	}
	if f.helper != "" {
		return f.helper + "(" + in + ")"
	}
	var sub renderer
	sub.prog = r.prog
	sub.printf("func(input any) any {")
	sub.container(f, "input")
	sub.b.WriteString("}(" + in + ")")
	return sub.b.String()
}

// container writes the statements of a container fragment body.
func (r *renderer) container(f *fragment, in string) {
	switch f.op {
	case opRecord:
		r.record(f, in)
	case opSequence:
		r.sequence(f, in)
	case opArrayLike:
		r.arrayLike(f, in)
	case opMap:
		r.keyed(f, in)
	case opSet:
		r.set(f, in)
	}
}

func (r *renderer) memoCheck(f *fragment, in string) {
	if !f.memo {
		return
	}
	r.printf("if out, ok := seen[identityOf(%s)]; ok {", in)
	r.printf("return out")
	r.printf("}")
}

func (r *renderer) memoStore(f *fragment, in string) {
	if f.memo {
		r.printf("seen[identityOf(%s)] = out", in)
	}
}

func (r *renderer) record(f *fragment, in string) {
	t := f.typ
	switch {
	case t == nil || t.Kind() == reflect.Map:
		typ := typeExpr(t, "map[string]any")
		r.printf("src := %s.(%s)", in, typ)
		r.memoCheck(f, in)
		r.printf("out := make(%s, %d)", typ, len(f.fields))
		r.memoStore(f, in)
		for _, fld := range f.fields {
			key := strconv.Quote(fld.name)
			r.printf("if v, ok := src[%s]; ok {", key)
			r.printf("out[%s] = %s", key, r.expr(fld.frag, "v"))
			r.printf("}")
		}
	case t.Kind() == reflect.Pointer:
		r.printf("src := %s.(%s)", in, typeExpr(t, ""))
		r.printf("if src == nil {")
		r.printf("return src")
		r.printf("}")
		r.memoCheck(f, in)
		r.printf("out := new(%s)", typeExpr(t.Elem(), ""))
		r.memoStore(f, in)
		r.fields(f)
	default:
		r.printf("src := %s.(%s)", in, typeExpr(t, ""))
		r.printf("var out %s", typeExpr(t, ""))
		r.fields(f)
	}
	r.printf("return out")
}

func (r *renderer) fields(f *fragment) {
	for _, fld := range f.fields {
		r.printf("out.%s = %s", fld.name, r.expr(fld.frag, "src."+fld.name))
	}
}

func (r *renderer) sequence(f *fragment, in string) {
	typ := typeExpr(f.typ, "[]any")
	r.printf("src := %s.(%s)", in, typ)
	array := f.typ != nil && f.typ.Kind() == reflect.Array
	if !array {
		r.printf("if src == nil {")
		r.printf("return src")
		r.printf("}")
	}
	r.memoCheck(f, in)
	if f.elem == nil {
		r.printf("if len(src) != 0 {")
		r.printf("panic(%q)", "shape mismatch at "+f.path)
		r.printf("}")
	}
	if array {
		r.printf("var out %s", typ)
	} else {
		r.printf("out := make(%s, len(src))", typ)
	}
	r.memoStore(f, in)
	if f.elem != nil {
		r.printf("for i, x := range src {")
		r.printf("out[i] = %s", r.expr(f.elem, "x"))
		r.printf("}")
	}
	r.printf("return out")
}

func (r *renderer) arrayLike(f *fragment, in string) {
	r.printf("src := %s.(replica.Indexable)", in)
	r.memoCheck(f, in)
	if f.elem == nil {
		r.printf("if src.Len() != 0 {")
		r.printf("panic(%q)", "shape mismatch at "+f.path)
		r.printf("}")
	}
	r.printf("out := make([]any, src.Len())")
	r.memoStore(f, in)
	if f.elem != nil {
		r.printf("for i := range out {")
		r.printf("out[i] = %s", r.expr(f.elem, "src.At(i)"))
		r.printf("}")
	}
	r.printf("return out")
}

func (r *renderer) keyed(f *fragment, in string) {
	typ := typeExpr(f.typ, "map[any]any")
	r.printf("src := %s.(%s)", in, typ)
	r.printf("if src == nil {")
	r.printf("return src")
	r.printf("}")
	r.memoCheck(f, in)
	r.printf("out := make(%s, len(src))", typ)
	r.memoStore(f, in)
	r.printf("for k, v := range src {")
	r.printf("out[k] = %s", r.value(f.elem, "v"))
	r.printf("}")
	r.printf("return out")
}

func (r *renderer) set(f *fragment, in string) {
	typ := typeExpr(f.typ, "map[any]struct{}")
	r.printf("src := %s.(%s)", in, typ)
	r.printf("if src == nil {")
	r.printf("return src")
	r.printf("}")
	r.memoCheck(f, in)
	r.printf("out := make(%s, len(src))", typ)
	r.memoStore(f, in)
	r.printf("for k := range src {")
	r.printf("out[%s] = struct{}{}", r.value(f.elem, "k"))
	r.printf("}")
	r.printf("return out")
}

// value copies a collection member, falling back to a codec snapshot.
func (r *renderer) value(elem *fragment, in string) string {
	if elem == nil {
		return fmt.Sprintf("snapshot(%q, %s)", r.prog.opts.snapshot.ContentType(), in)
	}
	return r.expr(elem, in)
}

// typeExpr spells t as a Go type expression. Package qualifiers use the last
// path element with anything that is not an identifier character replaced.
func typeExpr(t reflect.Type, fallback string) string {
	if t == nil {
		return fallback
	}
	if name := t.Name(); name != "" {
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		if t.PkgPath() == "" {
			return name
		}
		return qualifier(t.PkgPath()) + "." + name
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + typeExpr(t.Elem(), "any")
	case reflect.Slice:
		return "[]" + typeExpr(t.Elem(), "any")
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), typeExpr(t.Elem(), "any"))
	case reflect.Map:
		return "map[" + typeExpr(t.Key(), "any") + "]" + typeExpr(t.Elem(), "any")
	case reflect.Chan:
		return "chan " + typeExpr(t.Elem(), "any")
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return "any"
		}
		return "interface{}"
	case reflect.Struct:
		parts := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.Anonymous {
				parts = append(parts, typeExpr(sf.Type, "any"))
				continue
			}
			parts = append(parts, sf.Name+" "+typeExpr(sf.Type, "any"))
		}
		return "struct{" + strings.Join(parts, "; ") + "}"
	case reflect.Func:
		in := make([]string, t.NumIn())
		for i := range in {
			in[i] = typeExpr(t.In(i), "any")
		}
		if t.IsVariadic() && len(in) > 0 {
			in[len(in)-1] = "..." + strings.TrimPrefix(in[len(in)-1], "[]")
		}
		out := make([]string, t.NumOut())
		for i := range out {
			out[i] = typeExpr(t.Out(i), "any")
		}
		sig := "func(" + strings.Join(in, ", ") + ")"
		switch len(out) {
		case 0:
		case 1:
			sig += " " + out[0]
		default:
			sig += " (" + strings.Join(out, ", ") + ")"
		}
		return sig
	}
	return fallback
}

func qualifier(pkgPath string) string {
	base := path.Base(pkgPath)
	var b strings.Builder
	for i, c := range base {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			b.WriteRune(c)
		case c >= '0' && c <= '9' && i > 0:
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
