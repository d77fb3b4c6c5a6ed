package xml_test

import (
	"testing"

	"github.com/zoobzio/replica"
	"github.com/zoobzio/replica/codec/xml"
)

func TestNew(t *testing.T) {
	c := xml.New()
	if c == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	c := xml.New()
	if c.ContentType() != "application/xml" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/xml")
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	c := xml.New()

	type TestStruct struct {
		Name  string `xml:"name"`
		Value int    `xml:"value"`
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

func TestUnmarshalInvalid(t *testing.T) {
	c := xml.New()

	var v struct{ Name string }
	if err := c.Unmarshal([]byte("<unclosed"), &v); err == nil {
		t.Error("Unmarshal(invalid) should return error")
	}
}

func TestSnapshot_TypedValues(t *testing.T) {
	src := map[int]string{1: "one", 2: "two"}

	cloner, err := replica.Compile(&replica.Map{}, replica.WithSnapshotCodec(xml.New()))
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	out, err := cloner.Clone(src)
	if err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	got := out.(map[int]string)
	if len(got) != 2 || got[1] != "one" || got[2] != "two" {
		t.Errorf("got %v, want %v", got, src)
	}
}

func TestSnapshot_InterfaceValuesDropped(t *testing.T) {
	src := map[int]any{1: "one"}

	cloner, err := replica.Compile(&replica.Map{}, replica.WithSnapshotCodec(xml.New()))
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	out, err := cloner.Clone(src)
	if err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	got := out.(map[int]any)
	if v, ok := got[1]; !ok || v != nil {
		t.Errorf("got[1] = %#v, want a present nil value", v)
	}
}
