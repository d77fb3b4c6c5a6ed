// Package testing provides fixtures and helpers for replica tests.
package testing

import (
	"math/rand/v2"
	"testing"

	"github.com/zoobzio/replica"
)

// SampleSchema describes the values produced by SampleObject.
func SampleSchema() *replica.Record {
	return replica.Object(
		replica.F("x", replica.Number),
		replica.F("y", replica.Object(
			replica.F("z", replica.String),
			replica.F("c", replica.Object(
				replica.F("bb", replica.Number),
			)),
			replica.F("gg", replica.SequenceOf(replica.Object(
				replica.F("ff", replica.Number),
				replica.F("hh", replica.Number),
			))),
		)),
	)
}

// SampleObject returns a small nested dynamic object drawing its numbers from r.
func SampleObject(r *rand.Rand) map[string]any {
	return map[string]any{
		"x": r.Float64(),
		"y": map[string]any{
			"z": "sample",
			"c": map[string]any{
				"bb": r.Float64(),
			},
			"gg": []any{
				map[string]any{
					"ff": 22,
					"hh": r.Float64(),
				},
			},
		},
	}
}

// ManualClone copies a SampleObject value by hand.
func ManualClone(o map[string]any) map[string]any {
	y := o["y"].(map[string]any)
	c := y["c"].(map[string]any)
	gg := y["gg"].([]any)

	items := make([]any, len(gg))
	for i, item := range gg {
		m := item.(map[string]any)
		items[i] = map[string]any{"ff": m["ff"], "hh": m["hh"]}
	}

	return map[string]any{
		"x": o["x"],
		"y": map[string]any{
			"z":  y["z"],
			"c":  map[string]any{"bb": c["bb"]},
			"gg": items,
		},
	}
}

// Sample is the typed form of SampleObject.
type Sample struct {
	X float64
	Y *Inner
}

// Inner is nested inside Sample.
type Inner struct {
	Z  string
	C  Leaf
	GG []Item
}

// Leaf is the innermost record of Sample.
type Leaf struct {
	BB float64
}

// Item is a Sample sequence element.
type Item struct {
	FF int
	HH float64
}

// NewSample returns a Sample drawing its numbers from r.
func NewSample(r *rand.Rand) *Sample {
	return &Sample{
		X: r.Float64(),
		Y: &Inner{
			Z:  "sample",
			C:  Leaf{BB: r.Float64()},
			GG: []Item{{FF: 22, HH: r.Float64()}},
		},
	}
}

// SampleStructSchema describes a *Sample.
func SampleStructSchema() *replica.Record {
	return replica.StructFor[*Sample](
		replica.F("X", replica.Number),
		replica.F("Y", replica.StructFor[*Inner](
			replica.F("Z", replica.String),
			replica.F("C", replica.StructFor[Leaf](
				replica.F("BB", replica.Number),
			)),
			replica.F("GG", replica.SequenceOf(replica.StructFor[Item](
				replica.F("FF", replica.Number),
				replica.F("HH", replica.Number),
			))),
		)),
	)
}

// Node is a singly linked list element that may form cycles.
type Node struct {
	Value int
	Next  *Node
}

// NodeSchema describes a possibly cyclic list of Nodes.
func NodeSchema() *replica.Record {
	node := replica.StructFor[*Node](replica.F("Value", replica.Number))
	node.Fields = append(node.Fields, replica.F("Next", node))
	return node
}

// Ring returns the head of a list of n nodes whose tail points back at the head.
func Ring(n int) *Node {
	if n <= 0 {
		return nil
	}
	head := &Node{Value: 0}
	tail := head
	for i := 1; i < n; i++ {
		tail.Next = &Node{Value: i}
		tail = tail.Next
	}
	tail.Next = head
	return head
}

// CyclicObject returns a dynamic object whose "self" key refers to itself.
func CyclicObject() map[string]any {
	o := map[string]any{"a": 1, "nest": map[string]any{"b": "two"}}
	o["self"] = o
	return o
}

// MustCompile compiles s or fails the test.
func MustCompile(tb testing.TB, s replica.Schema, opts ...replica.CompileOption) *replica.Cloner {
	tb.Helper()
	c, err := replica.Compile(s, opts...)
	if err != nil {
		tb.Fatalf("Compile() error: %v", err)
	}
	return c
}

// MustClone clones v with c or fails the test.
func MustClone(tb testing.TB, c *replica.Cloner, v any) any {
	tb.Helper()
	out, err := c.Clone(v)
	if err != nil {
		tb.Fatalf("Clone() error: %v", err)
	}
	return out
}
