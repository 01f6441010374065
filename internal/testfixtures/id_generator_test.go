package testfixtures

import "testing"

func TestIDGeneratorYieldsSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("entity")

	if first, second := gen.Next(), gen.Next(); first != "entity-1" || second != "entity-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
}

func TestIDGeneratorRewindsAndReprefixes(t *testing.T) {
	gen := NewIDGenerator("resource")
	_ = gen.Next()
	gen.SetCounter(0)
	gen.SetPrefix("res")

	if next := gen.Next(); next != "res-1" {
		t.Fatalf("expected res-1 after rewind, got %q", next)
	}
}
