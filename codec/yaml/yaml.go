// Package yaml provides a YAML codec backed by gopkg.in/yaml.v3.
package yaml

import (
	"bytes"

	"github.com/zoobzio/replica/codec"
	"gopkg.in/yaml.v3"
)

// Option configures the YAML codec.
type Option func(*yamlCodec)

// WithKnownFields makes Unmarshal fail on keys the target struct does not declare.
func WithKnownFields() Option {
	return func(c *yamlCodec) {
		c.knownFields = true
	}
}

// yamlCodec implements codec.Codec for YAML.
type yamlCodec struct {
	knownFields bool
}

// New returns a YAML codec.
func New(opts ...Option) codec.Codec {
	c := &yamlCodec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Marshal encodes v as YAML with two-space indentation.
func (c *yamlCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes YAML data into v.
func (c *yamlCodec) Unmarshal(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(c.knownFields)
	return dec.Decode(v)
}
