package circuit

import (
	"testing"
)

func TestBuildAndValidate(t *testing.T) {
	filter := New("filter")
	in := filter.AddPort("IN")
	out := filter.AddPort("OUT")
	c1 := filter.AddComponent("C1", "Device:C", "100n", "C_0603")
	in.Connect(c1, "1")
	out.Connect(c1, "2")

	main := New("main")
	r1 := main.AddComponent("R1", "Device:R", "10k", "R_0603")
	n1 := main.AddNet("N1")
	n2 := main.AddNet("N2")
	n1.Connect(r1, "1")
	main.AddInstance("F1", filter, map[string]*Net{"IN": n1, "OUT": n2})

	if err := main.Validate(); err != nil {
		t.Fatalf("valid circuit rejected: %v", err)
	}
}

func TestValidateRejectsDuplicateRefs(t *testing.T) {
	c := New("main")
	c.AddComponent("R1", "Device:R", "10k", "")
	c.AddComponent("R1", "Device:R", "22k", "")

	if err := c.Validate(); err == nil {
		t.Error("expected duplicate reference error")
	}
}

func TestValidateAllowsRepeatedPlaceholders(t *testing.T) {
	c := New("main")
	c.AddComponent("R?", "Device:R", "10k", "")
	c.AddComponent("R?", "Device:R", "22k", "")

	if err := c.Validate(); err != nil {
		t.Errorf("placeholders may repeat: %v", err)
	}
}

func TestValidateRejectsUnknownPortBinding(t *testing.T) {
	child := New("child")
	child.AddPort("IN")

	main := New("main")
	n := main.AddNet("N1")
	main.AddInstance("U1", child, map[string]*Net{"NOPE": n})

	if err := main.Validate(); err == nil {
		t.Error("expected unknown port error")
	}
}

func TestValidateRejectsCrossScopeNet(t *testing.T) {
	a := New("a")
	comp := a.AddComponent("R1", "Device:R", "1k", "")

	b := New("b")
	net := b.AddNet("N1")
	net.Connect(comp, "1")

	if err := b.Validate(); err == nil {
		t.Error("expected cross-scope net error")
	}
}

func TestValidateRejectsRecursion(t *testing.T) {
	a := New("a")
	b := New("b")
	b.AddPort("IN")
	a.AddPort("IN")

	na := a.AddNet("X")
	a.AddInstance("B1", b, map[string]*Net{"IN": na})
	nb := b.AddNet("Y")
	b.AddInstance("A1", a, map[string]*Net{"IN": nb})

	if err := a.Validate(); err == nil {
		t.Error("expected recursion error")
	}
}

func TestPlaceholderHelpers(t *testing.T) {
	cases := []struct {
		ref         string
		placeholder bool
		prefix      string
	}{
		{"R1", false, "R"},
		{"R?", true, "R"},
		{"", true, ""},
		{"U12", false, "U"},
		{"REG3", false, "REG"},
	}
	for _, tc := range cases {
		c := &Component{Ref: tc.ref}
		if c.Placeholder() != tc.placeholder {
			t.Errorf("%q: Placeholder()=%v, want %v", tc.ref, c.Placeholder(), tc.placeholder)
		}
		if c.RefPrefix() != tc.prefix {
			t.Errorf("%q: RefPrefix()=%q, want %q", tc.ref, c.RefPrefix(), tc.prefix)
		}
	}
}
