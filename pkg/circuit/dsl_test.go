package circuit

import (
	"strings"
	"testing"
)

const sampleDSL = `
# two-stage design with a reused filter
circuit main {
	component R1 {
		type "Device:R"
		value "10k"
		footprint "Resistor_SMD:R_0603_1608Metric"
	}
	net N1 { R1.1 }
	use filter F1 {
		IN = N1
		OUT = N2
	}
}

circuit filter {
	port IN
	port OUT
	component C1 { type "Device:C" value "100n" }
	net IN { C1.1 }
	net OUT { C1.2 }
}
`

func TestParseDSL(t *testing.T) {
	root, err := Parse("sample.circuit", strings.NewReader(sampleDSL))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if root.Name != "main" {
		t.Errorf("expected root 'main', got %q", root.Name)
	}
	if len(root.Components) != 1 {
		t.Fatalf("expected 1 component, got %d", len(root.Components))
	}

	r1 := root.Components[0]
	if r1.Ref != "R1" || r1.Type != "Device:R" || r1.Value != "10k" {
		t.Errorf("component fields wrong: %+v", r1)
	}
	if r1.Footprint != "Resistor_SMD:R_0603_1608Metric" {
		t.Errorf("footprint wrong: %q", r1.Footprint)
	}

	n1 := root.Net("N1")
	if n1 == nil || len(n1.Pins) != 1 || n1.Pins[0].Number != "1" {
		t.Fatalf("net N1 wrong: %+v", n1)
	}

	// N2 was created implicitly by the binding
	if root.Net("N2") == nil {
		t.Error("implicit net N2 not created")
	}

	if len(root.Instances) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(root.Instances))
	}
	inst := root.Instances[0]
	if inst.Name != "F1" || inst.Child.Name != "filter" {
		t.Errorf("instance wrong: %+v", inst)
	}
	if inst.Bindings["IN"] != n1 {
		t.Error("IN binding does not reference N1")
	}

	// Child ports are exported nets
	if inst.Child.Port("IN") == nil || inst.Child.Port("OUT") == nil {
		t.Error("child ports missing")
	}
}

func TestParseDSLCarriedToken(t *testing.T) {
	input := `
circuit main {
	component R1 {
		type "Device:R"
		value "10k"
		uuid "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
	}
}
`
	root, err := Parse("t.circuit", strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if root.Components[0].Token != "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee" {
		t.Errorf("carried token not parsed: %q", root.Components[0].Token)
	}
}

func TestParseDSLErrors(t *testing.T) {
	cases := map[string]string{
		"unknown component in net": `circuit main { net N1 { R9.1 } }`,
		"unknown child circuit":    `circuit main { use nope U1 { } }`,
		"component without type":   `circuit main { component R1 { value "1k" } }`,
		"unknown port binding": `
circuit main { use child U1 { BAD = N1 } }
circuit child { port IN }`,
	}
	for name, input := range cases {
		if _, err := Parse(name, strings.NewReader(input)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseDSLPlaceholders(t *testing.T) {
	input := `
circuit main {
	component R? { type "Device:R" value "1k" }
	component R? { type "Device:R" value "2k" }
}
`
	root, err := Parse("p.circuit", strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(root.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(root.Components))
	}
	for _, c := range root.Components {
		if !c.Placeholder() {
			t.Errorf("expected placeholder, got %q", c.Ref)
		}
	}
}
