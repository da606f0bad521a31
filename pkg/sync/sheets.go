package sync

import (
	"fmt"
	"sort"
)

// PortPlan is the port diff for one sheet boundary. A port is a paired
// edge: a sheet pin on the parent side and a hierarchical label on the
// child side; both halves are always created and removed as a unit.
// Ports are keyed by name and order-independent, so adding one never
// disturbs the pins already on the boundary.
type PortPlan struct {
	Keep   []*ExistingPort
	Add    []string
	Remove []*ExistingPort
}

// SheetMatch pairs one desired child instance with its existing sheet.
// Sheets are matched by hierarchy path (the instance name within the
// parent), never by position.
type SheetMatch struct {
	Desired  *DesiredInstance
	Existing *ExistingSheet // nil -> Add
}

// MatchSheets matches the child instances of a desired sheet against
// the child sheets of the loaded target, and lists stale children.
func MatchSheets(desired *DesiredSheet, existing *ExistingSheet) (matches []SheetMatch, removed []*ExistingSheet) {
	taken := map[*ExistingSheet]bool{}

	for _, inst := range desired.Instances {
		var found *ExistingSheet
		if existing != nil {
			found = existing.Child(inst.Name)
		}
		if found != nil {
			taken[found] = true
		}
		matches = append(matches, SheetMatch{Desired: inst, Existing: found})
	}

	if existing != nil {
		for _, child := range existing.Children {
			if !taken[child] {
				removed = append(removed, child)
			}
		}
	}

	return matches, removed
}

// DiffPorts compares the ports a child sheet should export against the
// pin/label pairs found in the target. An orphaned half (a sheet pin
// without its paired label, or the reverse) is a PortMismatch: the
// orphan is removed and, when the desired graph still passes that net,
// the pair is re-derived whole.
func DiffPorts(want []string, existing *ExistingSheet) (*PortPlan, []string) {
	plan := &PortPlan{}
	var warnings []string

	wanted := map[string]bool{}
	for _, name := range want {
		wanted[name] = true
	}

	seen := map[string]bool{}
	if existing != nil {
		for _, port := range existing.Ports {
			if port.Orphaned() {
				warnings = append(warnings, fmt.Sprintf(
					"sheet %q: port %q has an orphaned %s; re-deriving",
					existing.SheetNode.Name, port.Name, orphanHalf(port)))
				plan.Remove = append(plan.Remove, port)
				continue
			}
			if wanted[port.Name] && !seen[port.Name] {
				plan.Keep = append(plan.Keep, port)
				seen[port.Name] = true
			} else {
				plan.Remove = append(plan.Remove, port)
			}
		}
	}

	for _, name := range want {
		if !seen[name] {
			plan.Add = append(plan.Add, name)
		}
	}
	sort.Strings(plan.Add)

	return plan, warnings
}

func orphanHalf(p *ExistingPort) string {
	if p.Pin == nil {
		return "label (sheet pin missing)"
	}
	return "sheet pin (label missing)"
}
