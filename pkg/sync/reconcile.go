package sync

import (
	"fmt"

	"github.com/circuit-synth/schsync/pkg/schematic"
)

// ActionKind classifies the reconciler's per-component decision.
type ActionKind int

const (
	Keep ActionKind = iota
	Update
	Rename
	Retype
	Add
	Remove
)

func (k ActionKind) String() string {
	switch k {
	case Keep:
		return "keep"
	case Update:
		return "update"
	case Rename:
		return "rename"
	case Retype:
		return "retype"
	case Add:
		return "add"
	case Remove:
		return "remove"
	}
	return "unknown"
}

// ComponentAction is one reconciler decision. For Add actions Token is
// freshly minted and Ref holds the assigned designator (placeholders are
// resolved against the refs already in use on the sheet). For all other
// kinds Token is the existing entity's token.
type ComponentAction struct {
	Kind     ActionKind
	Desired  *DesiredComponent
	Existing *ExistingComponent
	Token    schematic.UUID
	Ref      string
}

// ReconcileComponents turns a resolution into per-component actions.
//
// A reference change with an unchanged fingerprint is a Rename, never
// Remove+Add: Remove+Add would silently discard position data. A type
// change with an unchanged reference is a Retype; identity and position
// survive both.
func ReconcileComponents(ctx *Context, desired *DesiredSheet, res *Resolution) []ComponentAction {
	used := map[string]bool{}
	for e := range res.ByExisting {
		used[e.Ref] = true
	}
	for _, d := range desired.Components {
		if !d.Placeholder() {
			used[d.Ref] = true
		}
	}

	var actions []ComponentAction

	for _, d := range desired.Components {
		e := res.ByDesired[d]
		if e == nil {
			ref := d.Ref
			if d.Placeholder() {
				ref = assignRef(d.RefPrefix(), used)
			}
			used[ref] = true
			actions = append(actions, ComponentAction{
				Kind:    Add,
				Desired: d,
				Token:   ctx.Tokens.Next(),
				Ref:     ref,
			})
			continue
		}

		refChanged := !d.Placeholder() && d.Ref != e.Ref
		typeChanged := d.Type != e.Type
		valueChanged := d.Value != e.Value || d.Footprint != e.Footprint

		var kind ActionKind
		switch {
		case !refChanged && !typeChanged && !valueChanged:
			kind = Keep
		case refChanged && !typeChanged && !valueChanged:
			kind = Rename
		case !refChanged && typeChanged:
			kind = Retype
		case !refChanged:
			kind = Update
		default:
			// Reference and properties changed together (token match).
			// Everything mutates in place; identity and position hold.
			kind = Update
		}

		ref := e.Ref
		if !d.Placeholder() {
			ref = d.Ref
		}

		actions = append(actions, ComponentAction{
			Kind:     kind,
			Desired:  d,
			Existing: e,
			Token:    e.Token,
			Ref:      ref,
		})
	}

	for _, e := range res.UnmatchedExisting {
		actions = append(actions, ComponentAction{
			Kind:     Remove,
			Existing: e,
			Token:    e.Token,
			Ref:      e.Ref,
		})
	}

	return actions
}

// overwrittenRemovals counts the removals that discard target-side
// state the declarative source never tracked: a removed component whose
// token the source carries is an ordinary source-side deletion, one
// whose token the source never referenced is an external addition the
// source is overriding.
func overwrittenRemovals(desired *DesiredSheet, actions []ComponentAction) int {
	carried := map[schematic.UUID]bool{}
	for _, d := range desired.Components {
		if d.Token != "" {
			carried[d.Token] = true
		}
	}
	n := 0
	for _, act := range actions {
		if act.Kind == Remove && !carried[act.Token] {
			n++
		}
	}
	return n
}

// assignRef finds the lowest free designator number for a prefix.
func assignRef(prefix string, used map[string]bool) string {
	if prefix == "" {
		prefix = "U"
	}
	for n := 1; ; n++ {
		ref := fmt.Sprintf("%s%d", prefix, n)
		if !used[ref] {
			return ref
		}
	}
}
