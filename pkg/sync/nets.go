package sync

import (
	"sort"

	"github.com/circuit-synth/schsync/pkg/schematic"
)

// LabelActionKind classifies a per-pin label decision.
type LabelActionKind int

const (
	LabelAdd LabelActionKind = iota
	LabelRemove
	LabelRename
)

func (k LabelActionKind) String() string {
	switch k {
	case LabelAdd:
		return "add"
	case LabelRemove:
		return "remove"
	case LabelRename:
		return "rename"
	}
	return "unknown"
}

// LabelAction is one per-pin label decision.
type LabelAction struct {
	Kind    LabelActionKind
	Token   schematic.UUID
	Pin     string
	Name    string // new name (Add/Rename)
	OldName string // prior name (Remove/Rename)
	Power   bool
}

// PinNet is the final rendered state of one pin's net membership.
type PinNet struct {
	Name string
}

// NetSync is the result of net-topology synchronization for one sheet:
// the per-pin label actions, the derived net-level events, and the
// final state the writer renders. Ordinary nets are tracked per pin;
// power nets per name, since one global marker per (sheet, name) is
// reused across all member pins.
type NetSync struct {
	Actions   []LabelAction
	Events    []NetEvent
	Final     map[PinKey]PinNet
	PowerPins map[string][]PinKey
}

// SyncNets recomputes pin->net membership from the desired graph, diffs
// it against the rendered label state of the target, and emits per-pin
// label actions plus net-level Merge/Split/Delete summaries.
//
// Nets and labels have no persistent identity: the rendered label set is
// fully re-derived every run, and net events are computed purely from
// the per-pin diff.
func SyncNets(ctx *Context, desired *DesiredSheet, existing *ExistingSheet, actions []ComponentAction) (*NetSync, error) {
	out := &NetSync{
		Final:     map[PinKey]PinNet{},
		PowerPins: map[string][]PinKey{},
	}

	// Owning-component action per surviving token; Add tokens included.
	ownerKind := map[schematic.UUID]ActionKind{}

	// Desired pin -> rendered name, with the scope that claimed it.
	// Power nets are exempt: their markers connect everywhere.
	claimed := map[string]NetID{}
	for _, act := range actions {
		if act.Kind == Remove {
			continue
		}
		ownerKind[act.Token] = act.Kind
		for pin, id := range act.Desired.Pins {
			key := PinKey{Token: act.Token, Pin: pin}
			if ctx.Config.IsPowerNet(id.Name) {
				out.PowerPins[id.Name] = append(out.PowerPins[id.Name], key)
				continue
			}
			if prev, ok := claimed[id.Name]; ok && prev != id {
				return nil, &NamespaceViolationError{
					Sheet:    desired.Scope(),
					Rendered: id.Name,
					ScopeA:   prev.Scope,
					ScopeB:   id.Scope,
				}
			}
			claimed[id.Name] = id
			out.Final[key] = PinNet{Name: id.Name}
		}
	}
	for name := range out.PowerPins {
		keys := out.PowerPins[name]
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Token != keys[j].Token {
				return keys[i].Token < keys[j].Token
			}
			return keys[i].Pin < keys[j].Pin
		})
	}

	// Existing pin -> rendered name, surviving components only. Labels
	// on removed components die with the component, not as label actions.
	existingPins := map[PinKey]PinLabel{}
	if existing != nil {
		for key, label := range existing.PinLabels {
			if label.Power {
				continue
			}
			if _, survives := ownerKind[key.Token]; survives {
				existingPins[key] = label
			}
		}
	}

	for key, want := range out.Final {
		have, ok := existingPins[key]
		switch {
		case !ok:
			out.Actions = append(out.Actions, LabelAction{
				Kind: LabelAdd, Token: key.Token, Pin: key.Pin, Name: want.Name,
			})
		case have.Name != want.Name:
			// Rename in place when the owner's position context is
			// unaffected (Keep/Update); otherwise remove and re-add.
			if k := ownerKind[key.Token]; k == Keep || k == Update {
				out.Actions = append(out.Actions, LabelAction{
					Kind: LabelRename, Token: key.Token, Pin: key.Pin,
					Name: want.Name, OldName: have.Name,
				})
			} else {
				out.Actions = append(out.Actions,
					LabelAction{Kind: LabelRemove, Token: key.Token, Pin: key.Pin, OldName: have.Name},
					LabelAction{Kind: LabelAdd, Token: key.Token, Pin: key.Pin, Name: want.Name},
				)
			}
		}
	}
	for key, have := range existingPins {
		if _, ok := out.Final[key]; !ok {
			out.Actions = append(out.Actions, LabelAction{
				Kind: LabelRemove, Token: key.Token, Pin: key.Pin, OldName: have.Name,
			})
		}
	}

	out.Actions = append(out.Actions, diffPowerMarkers(out.PowerPins, existing)...)
	sortLabelActions(out.Actions)

	out.Events = deriveNetEvents(desired.Scope(), existingPins, out.Final)

	return out, nil
}

// diffPowerMarkers diffs power nets at name granularity: one global
// marker per (sheet, name), reused across every member pin. Hand-drawn
// markers count as present; only synchronizer-owned ones are removed.
func diffPowerMarkers(want map[string][]PinKey, existing *ExistingSheet) []LabelAction {
	have := map[string]bool{}
	owned := map[string]PinKey{}
	if existing != nil {
		if existing.Doc != nil {
			for i := range existing.Doc.GlobalLabels {
				have[existing.Doc.GlobalLabels[i].Text] = true
			}
		}
		for key, label := range existing.PinLabels {
			if label.Power {
				owned[label.Name] = key
			}
		}
	}

	var actions []LabelAction
	for name, pins := range want {
		if !have[name] {
			first := pins[0]
			actions = append(actions, LabelAction{
				Kind: LabelAdd, Token: first.Token, Pin: first.Pin,
				Name: name, Power: true,
			})
		}
	}
	for name, key := range owned {
		if _, wanted := want[name]; !wanted {
			actions = append(actions, LabelAction{
				Kind: LabelRemove, Token: key.Token, Pin: key.Pin,
				OldName: name, Power: true,
			})
		}
	}
	return actions
}

// deriveNetEvents computes the Merge/Split/Delete reporting summaries
// from the previous and current name-groups.
func deriveNetEvents(sheet string, prev map[PinKey]PinLabel, cur map[PinKey]PinNet) []NetEvent {
	oldGroups := map[string][]PinKey{}
	for key, label := range prev {
		oldGroups[label.Name] = append(oldGroups[label.Name], key)
	}
	newNameOf := map[PinKey]string{}
	for key, net := range cur {
		newNameOf[key] = net.Name
	}
	oldNameOf := map[PinKey]string{}
	for key, label := range prev {
		oldNameOf[key] = label.Name
	}
	newGroups := map[string][]PinKey{}
	for key, net := range cur {
		newGroups[net.Name] = append(newGroups[net.Name], key)
	}

	var events []NetEvent

	// Merge: a current name-group containing pins from >=2 prior groups.
	for name, pins := range newGroups {
		sources := map[string]bool{}
		for _, pin := range pins {
			if old, ok := oldNameOf[pin]; ok {
				sources[old] = true
			}
		}
		if len(sources) >= 2 {
			events = append(events, NetEvent{
				Kind: NetMerge, Sheet: sheet,
				From: sortedNames(sources), To: []string{name},
			})
		}
	}

	// Split: a prior name-group whose pins now map to >=2 names.
	// Delete: a prior name-group whose pins all lost their name.
	for name, pins := range oldGroups {
		targets := map[string]bool{}
		lost := 0
		for _, pin := range pins {
			if cur, ok := newNameOf[pin]; ok {
				targets[cur] = true
			} else {
				lost++
			}
		}
		if len(targets) >= 2 {
			events = append(events, NetEvent{
				Kind: NetSplit, Sheet: sheet,
				From: []string{name}, To: sortedNames(targets),
			})
		}
		if lost == len(pins) {
			events = append(events, NetEvent{
				Kind: NetDelete, Sheet: sheet, From: []string{name},
			})
		}
	}

	return events
}

func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sortLabelActions(actions []LabelAction) {
	sort.Slice(actions, func(i, j int) bool {
		a, b := actions[i], actions[j]
		if a.Token != b.Token {
			return a.Token < b.Token
		}
		if a.Pin != b.Pin {
			return a.Pin < b.Pin
		}
		return a.Kind < b.Kind
	})
}
