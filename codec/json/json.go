// Package json provides a JSON codec backed by encoding/json. It is the
// default codec naive maps and sets snapshot their values with.
package json

import (
	"bytes"
	"encoding/json"

	"github.com/zoobzio/replica/codec"
)

// Option configures the JSON codec.
type Option func(*jsonCodec)

// WithNumbers decodes numbers held in interface values as json.Number
// instead of float64, so integers survive a snapshot without rounding.
func WithNumbers() Option {
	return func(c *jsonCodec) {
		c.useNumber = true
	}
}

// jsonCodec implements codec.Codec for JSON.
type jsonCodec struct {
	useNumber bool
}

// New returns a JSON codec.
func New(opts ...Option) codec.Codec {
	c := &jsonCodec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON. HTML characters are kept as they are.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Unmarshal decodes JSON data into v.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if c.useNumber {
		dec.UseNumber()
	}
	return dec.Decode(v)
}
