// Package bson provides a BSON codec backed by go.mongodb.org/mongo-driver/bson.
//
// BSON requires a document at the top level. Structs, string-keyed maps and
// bson.D values are encoded as they are; any other value is stored under the
// key "v" of a one-field document and unwrapped again when decoded into a
// non-document target.
package bson

import (
	"fmt"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/zoobzio/replica/codec"
)

// valueKey holds values that are not documents themselves.
const valueKey = "v"

var (
	docType  = reflect.TypeOf(bson.D{})
	rawType  = reflect.TypeOf(bson.Raw{})
	timeType = reflect.TypeOf(time.Time{})
)

// bsonCodec implements codec.Codec for BSON.
type bsonCodec struct{}

// New returns a BSON codec.
func New() codec.Codec {
	return &bsonCodec{}
}

// ContentType returns the MIME type for BSON.
func (c *bsonCodec) ContentType() string {
	return "application/bson"
}

// Marshal encodes v as a BSON document, wrapping it when v is not one.
func (c *bsonCodec) Marshal(v any) ([]byte, error) {
	if isDocument(reflect.TypeOf(v)) {
		return bson.Marshal(v)
	}
	return bson.Marshal(bson.D{{Key: valueKey, Value: v}})
}

// Unmarshal decodes a BSON document into v. v must be a non-nil pointer.
func (c *bsonCodec) Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("bson: unmarshal target must be a non-nil pointer, got %T", v)
	}
	if isDocument(rv.Type().Elem()) {
		return bson.Unmarshal(data, v)
	}

	raw := bson.Raw(data)
	if err := raw.Validate(); err != nil {
		return err
	}
	value, err := raw.LookupErr(valueKey)
	if err != nil {
		return fmt.Errorf("bson: wrapped value: %w", err)
	}
	return value.Unmarshal(v)
}

// isDocument reports whether values of t encode as a top-level BSON document.
func isDocument(t reflect.Type) bool {
	if t == nil {
		return false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == docType, t == rawType:
		return true
	case t == timeType:
		return false
	case t.Kind() == reflect.Struct:
		return true
	case t.Kind() == reflect.Map:
		return t.Key().Kind() == reflect.String
	}
	return false
}
