// Package xml provides an XML codec backed by encoding/xml.
//
// encoding/xml cannot decode into interface values or maps, so naive
// collections of such values lose them when snapshotted with this codec.
package xml

import (
	"bytes"
	"encoding/xml"

	"github.com/zoobzio/replica/codec"
)

// xmlCodec implements codec.Codec for XML.
type xmlCodec struct{}

// New returns an XML codec.
func New() codec.Codec {
	return &xmlCodec{}
}

// ContentType returns the MIME type for XML.
func (c *xmlCodec) ContentType() string {
	return "application/xml"
}

// Marshal encodes v as XML.
func (c *xmlCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes XML data into v.
func (c *xmlCodec) Unmarshal(data []byte, v any) error {
	return xml.NewDecoder(bytes.NewReader(data)).Decode(v)
}
