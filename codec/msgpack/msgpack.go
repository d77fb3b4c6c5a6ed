// Package msgpack provides a MessagePack codec backed by
// github.com/vmihailenco/msgpack/v5. Unlike JSON it keeps time.Time values
// and integer types through a snapshot.
package msgpack

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zoobzio/replica/codec"
)

// msgpackCodec implements codec.Codec for MessagePack.
type msgpackCodec struct{}

// New returns a MessagePack codec.
func New() codec.Codec {
	return &msgpackCodec{}
}

// ContentType returns the MIME type for MessagePack.
func (c *msgpackCodec) ContentType() string {
	return "application/msgpack"
}

// Marshal encodes v as MessagePack. Keys of map[string]any, map[string]string
// and map[string]bool are sorted, so those maps encode to the same bytes on
// every call. Other map types are written in iteration order.
func (c *msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes MessagePack data into v.
func (c *msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.NewDecoder(bytes.NewReader(data)).Decode(v)
}
