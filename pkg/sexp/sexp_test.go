package sexp

import (
	"strings"
	"testing"
)

func TestParseAtoms(t *testing.T) {
	nodes, err := ParseString(`(at 100 50 90)`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}

	n := nodes[0]
	if n.Name() != "at" {
		t.Errorf("expected name 'at', got %q", n.Name())
	}

	x, ok := n.Float(1)
	if !ok || x != 100 {
		t.Errorf("expected X=100, got %v (ok=%v)", x, ok)
	}
	y, ok := n.Float(2)
	if !ok || y != 50 {
		t.Errorf("expected Y=50, got %v (ok=%v)", y, ok)
	}
	a, ok := n.Int(3)
	if !ok || a != 90 {
		t.Errorf("expected angle=90, got %v (ok=%v)", a, ok)
	}
}

func TestParseQuotedStrings(t *testing.T) {
	nodes, err := ParseString(`(property "Reference" "R1 \"main\"")`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	n := nodes[0]
	key, _ := n.Str(1)
	if key != "Reference" {
		t.Errorf("expected 'Reference', got %q", key)
	}

	val, _ := n.Str(2)
	if val != `R1 "main"` {
		t.Errorf("escape handling wrong, got %q", val)
	}

	// Quoting must be remembered for round-trips
	arg, _ := n.Arg(1)
	if !arg.Quoted {
		t.Error("expected quoted atom to remember quoting")
	}
	head, _ := n.Arg(0)
	if head.Quoted {
		t.Error("key symbol must not be quoted")
	}
}

func TestParseNested(t *testing.T) {
	input := `(symbol (lib_id "Device:R")
		(at 100 50 0)
		(property "Reference" "R1" (at 100 45 0))
	)`

	n, err := ParseOne(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	libID, found := n.Find("lib_id")
	if !found {
		t.Fatal("lib_id not found")
	}
	id, _ := libID.Str(1)
	if id != "Device:R" {
		t.Errorf("expected 'Device:R', got %q", id)
	}

	props := n.FindAll("property")
	if len(props) != 1 {
		t.Fatalf("expected 1 property, got %d", len(props))
	}
	if _, found := props[0].Find("at"); !found {
		t.Error("nested at node not found")
	}
}

func TestParseComments(t *testing.T) {
	nodes, err := ParseString("# header comment\n(version 20231120) # trailing\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	v, _ := nodes[0].Int(1)
	if v != 20231120 {
		t.Errorf("expected 20231120, got %d", v)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		`(unclosed`,
		`)`,
		`(bad "unterminated`,
	}
	for _, input := range cases {
		if _, err := ParseString(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestWriteFlatList(t *testing.T) {
	n := List("at", Float(100), Float(50.8), Int(90))
	if got := n.Format(); got != "(at 100 50.8 90)" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestWriteNested(t *testing.T) {
	n := List("wire",
		List("pts", List("xy", Float(10), Float(20))),
		List("uuid", Str("w-1")),
	)

	want := "(wire\n\t(pts\n\t\t(xy 10 20)\n\t)\n\t(uuid \"w-1\")\n)"
	if got := n.Format(); got != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	input := `(kicad_sch
	(version 20231120)
	(generator "schsync")
	(symbol
		(lib_id "Device:R")
		(at 100 50 0)
		(uuid "11111111-2222-3333-4444-555555555555")
		(property "Reference" "R1")
		(property "Value" "10k")
	)
)`

	n, err := ParseOne(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	out := n.Format()
	n2, err := ParseOne(strings.NewReader(out))
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	if n2.Format() != out {
		t.Error("round-trip is not stable")
	}
}

func TestClone(t *testing.T) {
	n := List("property", Str("Value"), Str("10k"))
	c := n.Clone()
	c.Children[2].Value = "22k"

	if v, _ := n.Str(2); v != "10k" {
		t.Errorf("clone mutated original: %q", v)
	}
}
