package sync

import (
	"sort"
	"strings"

	"github.com/circuit-synth/schsync/pkg/circuit"
	"github.com/circuit-synth/schsync/pkg/schematic"
)

// NetID identifies a net by its construction site. Two nets with equal
// names in different scopes have distinct IDs and must never be merged.
type NetID struct {
	Scope string // "/"-joined instance path of the owning sheet
	Name  string
}

// DesiredComponent is a component from the declarative graph, carrying
// no position and (unless round-tripped) no identity token yet.
type DesiredComponent struct {
	Ref       string // declared reference hint, possibly a placeholder
	Type      string
	Value     string
	Footprint string
	Token     schematic.UUID // carried identity from a prior run, or ""
	Order     int            // declaration order, the documented tie-break

	// Pins maps pin number to the net the pin belongs to, by rendered
	// name. Empty for unconnected components.
	Pins map[string]NetID
}

// Placeholder reports whether the reference hint is unassigned.
func (d *DesiredComponent) Placeholder() bool {
	return d.Ref == "" || strings.HasSuffix(d.Ref, "?")
}

// RefPrefix returns the designator prefix ("R" for "R12" or "R?").
func (d *DesiredComponent) RefPrefix() string {
	for i, r := range d.Ref {
		if r >= '0' && r <= '9' || r == '?' {
			return d.Ref[:i]
		}
	}
	return d.Ref
}

// Fingerprint is the derived matching key for components without a
// carried token: an opaque value-equality tuple.
type Fingerprint struct {
	Type      string
	Value     string
	Footprint string
}

// Fingerprint returns the component's derived matching key.
func (d *DesiredComponent) Fingerprint() Fingerprint {
	return Fingerprint{Type: d.Type, Value: d.Value, Footprint: d.Footprint}
}

// DesiredInstance is a sub-circuit instantiation: one child sheet plus
// the port bindings that pass parent nets across the boundary.
type DesiredInstance struct {
	Name     string
	Sheet    *DesiredSheet
	Bindings map[string]NetID // child port name -> parent-scope net
}

// DesiredSheet is one sheet of the desired entity graph.
type DesiredSheet struct {
	Name       string   // instance name; circuit name at the root
	Path       []string // instance names from root (empty at root)
	Components []*DesiredComponent
	Instances  []*DesiredInstance

	// Ports lists the net names this sheet exports, sorted.
	Ports []string
}

// Scope returns the "/"-joined hierarchy path of the sheet.
func (s *DesiredSheet) Scope() string {
	return "/" + strings.Join(s.Path, "/")
}

// BuildDesired walks the declarative circuit tree into the desired
// entity graph: per-sheet component sets with pin->net membership, and
// child instances with port bindings. Identities are not assigned here.
func BuildDesired(root *circuit.Circuit) *DesiredSheet {
	return buildSheet(root, root.Name, nil)
}

func buildSheet(c *circuit.Circuit, name string, path []string) *DesiredSheet {
	sheet := &DesiredSheet{Name: name, Path: path}
	scope := sheet.Scope()

	byComp := map[*circuit.Component]*DesiredComponent{}
	for i, comp := range c.Components {
		d := &DesiredComponent{
			Ref:       comp.Ref,
			Type:      comp.Type,
			Value:     comp.Value,
			Footprint: comp.Footprint,
			Token:     schematic.UUID(comp.Token),
			Order:     i,
			Pins:      map[string]NetID{},
		}
		sheet.Components = append(sheet.Components, d)
		byComp[comp] = d
	}

	for _, net := range c.Nets {
		id := NetID{Scope: scope, Name: net.Name}
		for _, pin := range net.Pins {
			d := byComp[pin.Component]
			if d == nil {
				continue
			}
			// First membership wins when a pin is listed twice.
			if _, taken := d.Pins[pin.Number]; !taken {
				d.Pins[pin.Number] = id
			}
		}
		if net.IsPort {
			sheet.Ports = append(sheet.Ports, net.Name)
		}
	}
	sort.Strings(sheet.Ports)

	for _, inst := range c.Instances {
		childPath := append(append([]string{}, path...), inst.Name)
		child := buildSheet(inst.Child, inst.Name, childPath)

		bindings := map[string]NetID{}
		for portName, parentNet := range inst.Bindings {
			bindings[portName] = NetID{Scope: scope, Name: parentNet.Name}
		}

		sheet.Instances = append(sheet.Instances, &DesiredInstance{
			Name:     inst.Name,
			Sheet:    child,
			Bindings: bindings,
		})
	}
	sort.Slice(sheet.Instances, func(i, j int) bool {
		return sheet.Instances[i].Name < sheet.Instances[j].Name
	})

	return sheet
}

// Instance returns the named child instance, or nil.
func (s *DesiredSheet) Instance(name string) *DesiredInstance {
	for _, inst := range s.Instances {
		if inst.Name == name {
			return inst
		}
	}
	return nil
}
