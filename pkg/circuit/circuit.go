// Package circuit is the declarative-source object model: circuits,
// components, nets and sub-circuit instantiations with named port
// bindings. The synchronizer consumes this graph as an immutable tree.
package circuit

import (
	"fmt"
	"strings"
)

// Component is a declared component. Ref may be a placeholder ending in
// '?' (e.g. "R?"), meaning the reference is assigned at generation time.
type Component struct {
	Ref       string
	Type      string // symbol identifier, e.g. "Device:R"
	Value     string
	Footprint string

	// Token is the identity token assigned on a prior run, when the
	// declarative source carries it. Optional.
	Token string
}

// Placeholder reports whether the reference is unassigned.
func (c *Component) Placeholder() bool {
	return c.Ref == "" || strings.HasSuffix(c.Ref, "?")
}

// RefPrefix returns the designator prefix ("R" for "R12" or "R?").
func (c *Component) RefPrefix() string {
	for i, r := range c.Ref {
		if r >= '0' && r <= '9' || r == '?' {
			return c.Ref[:i]
		}
	}
	return c.Ref
}

// Pin identifies one pin of a component.
type Pin struct {
	Component *Component
	Number    string
}

// Net is a set of pins constructed in one circuit scope. Two nets with
// the same name in different scopes are different nets: membership is
// scoped by construction site, not by name.
type Net struct {
	Name string
	Pins []Pin

	// IsPort marks a net exported through the circuit's boundary, so a
	// parent scope can bind to it by name.
	IsPort bool

	owner *Circuit
}

// Connect adds a component pin to the net.
func (n *Net) Connect(comp *Component, pinNumber string) *Net {
	n.Pins = append(n.Pins, Pin{Component: comp, Number: pinNumber})
	return n
}

// Instance is one instantiation of a child circuit inside a parent
// scope, with parent nets bound to the child's ports by name.
type Instance struct {
	Name     string
	Child    *Circuit
	Bindings map[string]*Net // child port name -> parent-scope net
}

// Circuit is one declarative scope: a reusable circuit definition.
type Circuit struct {
	Name       string
	Components []*Component
	Nets       []*Net
	Instances  []*Instance
}

// New creates an empty circuit definition.
func New(name string) *Circuit {
	return &Circuit{Name: name}
}

// AddComponent declares a component in this scope.
func (c *Circuit) AddComponent(ref, typ, value, footprint string) *Component {
	comp := &Component{Ref: ref, Type: typ, Value: value, Footprint: footprint}
	c.Components = append(c.Components, comp)
	return comp
}

// AddNet constructs a net scoped to this circuit.
func (c *Circuit) AddNet(name string) *Net {
	net := &Net{Name: name, owner: c}
	c.Nets = append(c.Nets, net)
	return net
}

// AddPort constructs a net and exports it through the circuit boundary.
func (c *Circuit) AddPort(name string) *Net {
	net := c.AddNet(name)
	net.IsPort = true
	return net
}

// AddInstance instantiates a child circuit under the given name.
func (c *Circuit) AddInstance(name string, child *Circuit, bindings map[string]*Net) *Instance {
	inst := &Instance{Name: name, Child: child, Bindings: bindings}
	c.Instances = append(c.Instances, inst)
	return inst
}

// Net returns the scope's net with the given name, or nil.
func (c *Circuit) Net(name string) *Net {
	for _, n := range c.Nets {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// Port returns the exported net with the given name, or nil.
func (c *Circuit) Port(name string) *Net {
	n := c.Net(name)
	if n == nil || !n.IsPort {
		return nil
	}
	return n
}

// Validate checks structural consistency of the circuit tree: bindings
// must reference child ports and nets of the parent scope, assigned
// references must be unique within a scope, instance names must be
// unique, and the instantiation graph must be acyclic.
func (c *Circuit) Validate() error {
	return c.validate(map[*Circuit]bool{})
}

func (c *Circuit) validate(visiting map[*Circuit]bool) error {
	if visiting[c] {
		return fmt.Errorf("circuit %q instantiates itself (directly or indirectly)", c.Name)
	}
	visiting[c] = true
	defer delete(visiting, c)

	refs := map[string]bool{}
	for _, comp := range c.Components {
		if comp.Placeholder() {
			continue
		}
		if refs[comp.Ref] {
			return fmt.Errorf("circuit %q: duplicate reference %q", c.Name, comp.Ref)
		}
		refs[comp.Ref] = true
	}

	for _, net := range c.Nets {
		for _, pin := range net.Pins {
			if !c.owns(pin.Component) {
				return fmt.Errorf("circuit %q: net %q connects a component from another scope", c.Name, net.Name)
			}
		}
	}

	names := map[string]bool{}
	for _, inst := range c.Instances {
		if names[inst.Name] {
			return fmt.Errorf("circuit %q: duplicate instance name %q", c.Name, inst.Name)
		}
		names[inst.Name] = true

		for portName, net := range inst.Bindings {
			if inst.Child.Port(portName) == nil {
				return fmt.Errorf("circuit %q: instance %q binds unknown port %q of %q",
					c.Name, inst.Name, portName, inst.Child.Name)
			}
			if net == nil || net.owner != c {
				return fmt.Errorf("circuit %q: instance %q binds port %q to a net outside this scope",
					c.Name, inst.Name, portName)
			}
		}

		if err := inst.Child.validate(visiting); err != nil {
			return err
		}
	}

	return nil
}

func (c *Circuit) owns(comp *Component) bool {
	for _, cc := range c.Components {
		if cc == comp {
			return true
		}
	}
	return false
}
