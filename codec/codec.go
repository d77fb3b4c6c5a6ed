// Package codec defines the marshaling contract replica uses to snapshot values
// held by naive map and set schemas.
//
// Implementations live in subpackages:
//
//   - json - encoding/json (application/json), the default snapshot codec
//   - msgpack - MessagePack (application/msgpack)
//   - yaml - YAML (application/yaml)
//   - xml - XML (application/xml)
//   - bson - BSON (application/bson)
package codec

// Codec provides content-type aware marshaling.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}
