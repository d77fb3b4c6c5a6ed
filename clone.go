package replica

import (
	"reflect"
	"sync"
)

// SelfCloner allows types to provide their own deep copy logic.
// Inference maps values whose type implements SelfCloner of itself to a
// custom leaf that calls Clone, instead of walking their fields.
//
// The Clone method must return a deep copy where modifications to the clone
// do not affect the original value:
//
//	func (o Order) Clone() Order {
//	    items := make([]Item, len(o.Items))
//	    copy(items, o.Items)
//	    return Order{ID: o.ID, Items: items}
//	}
type SelfCloner[T any] interface {
	Clone() T
}

// selfCloners caches the custom schema made for each self-cloning type so
// that every occurrence shares one binding.
var selfCloners sync.Map // reflect.Type -> *Custom

// selfClonerFor returns the custom schema for t when t has a method
// Clone() t.
func selfClonerFor(t reflect.Type) (*Custom, bool) {
	if cached, ok := selfCloners.Load(t); ok {
		return cached.(*Custom), true
	}
	m, ok := t.MethodByName("Clone")
	if !ok || m.Type.NumIn() != 1 || m.Type.NumOut() != 1 || m.Type.Out(0) != t {
		return nil, false
	}

	index := m.Index
	c := CustomFn(func(v any) any {
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || rv.Type() != t {
			return v
		}
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return v
		}
		return rv.Method(index).Call(nil)[0].Interface()
	})
	actual, _ := selfCloners.LoadOrStore(t, c)
	return actual.(*Custom), true
}
