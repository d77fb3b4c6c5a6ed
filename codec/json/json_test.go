package json_test

import (
	stdjson "encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zoobzio/replica"
	"github.com/zoobzio/replica/codec/json"
)

func TestNew(t *testing.T) {
	c := json.New()
	if c == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	c := json.New()
	if c.ContentType() != "application/json" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/json")
	}
}

func TestMarshal_NoHTMLEscape(t *testing.T) {
	c := json.New()

	data, err := c.Marshal(map[string]string{"q": "<a&b>"})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if want := `{"q":"<a&b>"}`; string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	c := json.New()

	var v map[string]any
	if err := c.Unmarshal([]byte("invalid json"), &v); err == nil {
		t.Error("Unmarshal(invalid) should return error")
	}
}

func TestSnapshot_NaiveMap(t *testing.T) {
	src := map[string][]int{"a": {1, 2}, "b": {3}}

	schema, err := replica.Infer(src)
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}
	cloner, err := replica.Compile(schema, replica.WithSnapshotCodec(json.New()))
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	out, err := cloner.Clone(src)
	if err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	got := out.(map[string][]int)
	if diff := cmp.Diff(src, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	got["a"][0] = 99
	if src["a"][0] != 1 {
		t.Error("snapshot should not share slices with the source")
	}
}

func TestSnapshot_WithNumbers(t *testing.T) {
	src := map[int]any{1: int64(1 << 60)}

	cloner, err := replica.Compile(&replica.Map{}, replica.WithSnapshotCodec(json.New(json.WithNumbers())))
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	out, err := cloner.Clone(src)
	if err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	got := out.(map[int]any)
	if n, ok := got[1].(stdjson.Number); !ok || n.String() != "1152921504606846976" {
		t.Errorf("got[1] = %#v, want json.Number 1152921504606846976", got[1])
	}
}
