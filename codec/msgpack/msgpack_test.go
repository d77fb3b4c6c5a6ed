package msgpack_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/zoobzio/replica"
	"github.com/zoobzio/replica/codec/msgpack"
)

func TestNew(t *testing.T) {
	c := msgpack.New()
	if c == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	c := msgpack.New()
	if c.ContentType() != "application/msgpack" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/msgpack")
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	c := msgpack.New()

	type TestStruct struct {
		Name  string `msgpack:"name"`
		Value int    `msgpack:"value"`
	}

	original := TestStruct{Name: "test", Value: 42}

	data, err := c.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored TestStruct
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if restored != original {
		t.Errorf("round-trip failed: got %+v, want %+v", restored, original)
	}
}

func TestMarshal_SortedKeys(t *testing.T) {
	c := msgpack.New()

	tests := map[string]any{
		"interface values": map[string]any{"c": 3, "a": "one", "b": []any{2}, "d": nil, "e": true},
		"string values":    map[string]string{"c": "3", "a": "1", "b": "2", "d": "4", "e": "5"},
		"bool values":      map[string]bool{"c": true, "a": false, "b": true, "d": false, "e": true},
	}
	for name, m := range tests {
		t.Run(name, func(t *testing.T) {
			first, err := c.Marshal(m)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			for i := 0; i < 10; i++ {
				again, err := c.Marshal(m)
				if err != nil {
					t.Fatalf("Marshal() error: %v", err)
				}
				if !bytes.Equal(first, again) {
					t.Fatal("Marshal() should encode the map to the same bytes every time")
				}
			}
		})
	}
}

func TestMarshal_UnsortedMapRoundTrip(t *testing.T) {
	c := msgpack.New()

	m := map[string]int{"c": 3, "a": 1, "b": 2}
	data, err := c.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var restored map[string]int
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if len(restored) != 3 || restored["a"] != 1 || restored["b"] != 2 || restored["c"] != 3 {
		t.Errorf("round-trip failed: got %v, want %v", restored, m)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	c := msgpack.New()

	var v struct{}
	if err := c.Unmarshal([]byte("not msgpack"), &v); err == nil {
		t.Error("Unmarshal(invalid) should return error")
	}
}

func TestSnapshot_KeepsTime(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)
	src := map[string]time.Time{"created": at}

	cloner, err := replica.Compile(&replica.Map{}, replica.WithSnapshotCodec(msgpack.New()))
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	out, err := cloner.Clone(src)
	if err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	got := out.(map[string]time.Time)
	if !got["created"].Equal(at) {
		t.Errorf("got %v, want %v", got["created"], at)
	}
}
