// Package sync reconciles a declarative circuit description with a
// hierarchical KiCad schematic. Entities present in both sides keep
// their identity tokens and user layout; entities only in the circuit
// are added; entities only in the schematic are removed, with every
// removal reported. Nets carry no persistent identity and are derived
// fresh each run.
package sync

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/circuit-synth/schsync/pkg/circuit"
	"github.com/circuit-synth/schsync/pkg/schematic"
)

// Run synchronizes one circuit tree into the schematic rooted at
// rootPath. A missing root file is fresh generation; an unreadable or
// unparsable one is fatal. The returned summary lists every action
// taken, including overwrites where the circuit took precedence.
func Run(ctx *Context, root *circuit.Circuit, rootPath string) (*Summary, error) {
	if err := root.Validate(); err != nil {
		return nil, err
	}
	desired := BuildDesired(root)

	var existing *ExistingSheet
	if _, err := os.Stat(rootPath); err == nil {
		existing, err = LoadProject(rootPath)
		if err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read target: %w", err)
	}

	r := &run{
		ctx: ctx,
		sum: NewSummary(),
		dir: filepath.Dir(rootPath),
	}
	r.instances = append(r.instances, schematic.SheetInstance{Path: "/", Page: "1"})
	r.pages = 1

	rootDoc, err := r.syncSheet(desired, existing, rootPath, nil, nil, nil, nil, "")
	if err != nil {
		return nil, err
	}

	// The root carries the page table for the whole hierarchy, so it is
	// staged last, after every child file is already in place.
	rootDoc.SheetInstances = r.instances
	if err := writeFileAtomic(rootDoc, rootPath); err != nil {
		return nil, err
	}

	return r.sum, nil
}

// run is the walk state of one synchronization: sheets are visited in
// deterministic pre-order so page numbers and token minting order are
// stable across identical runs.
type run struct {
	ctx *Context
	sum *Summary

	dir       string
	pages     int
	instances []schematic.SheetInstance
}

// syncSheet reconciles one sheet and recurses into its children. The
// parent document, sheet node, port plan and bindings are nil at the
// root. Children write their own files; the caller writes doc.
func (r *run) syncSheet(desired *DesiredSheet, existing *ExistingSheet, file string, parent *schematic.Schematic, sheetNode *schematic.Sheet, ports *PortPlan, bindings map[string]NetID, pathPrefix string) (*schematic.Schematic, error) {
	ctx := r.ctx

	var doc *schematic.Schematic
	if existing != nil {
		doc = existing.Doc
	} else {
		doc = schematic.New()
		doc.UUID = ctx.Tokens.Next()
	}

	res := Resolve(desired, existing)
	for _, msg := range res.Ambiguities {
		r.sum.warn(msg)
		ctx.Logf("warning: %s", msg)
	}

	actions := ReconcileComponents(ctx, desired, res)
	for _, act := range actions {
		r.sum.countComponent(act.Kind)
		ctx.Logf("%s: %s %s", desired.Scope(), act.Kind, act.Ref)
	}
	r.sum.countOverwrites(overwrittenRemovals(desired, actions))

	ns, err := SyncNets(ctx, desired, existing, actions)
	if err != nil {
		return nil, err
	}
	r.sum.countLabels(ns.Actions)
	r.sum.addNetEvents(ns.Events)

	applyComponentActions(ctx, doc, actions)
	rebuildPinLabels(ctx, doc, existing, ns)

	if sheetNode != nil && ports != nil {
		applyPortPlan(ctx, doc, parent, sheetNode, ports, bindings)
		r.sum.countPorts(len(ports.Add), len(ports.Remove))
	}

	// Sheet nodes are tracked by UUID from here on: both removal and
	// append reshuffle doc.Sheets, so loaded pointers go stale.
	matches, removed := MatchSheets(desired, existing)
	keptNodes := map[string]schematic.UUID{}
	for _, m := range matches {
		if m.Existing != nil {
			keptNodes[m.Desired.Name] = m.Existing.SheetNode.UUID
		}
	}
	staleNodes := map[string]schematic.UUID{}
	stalePins := map[string]bool{}
	for _, stale := range removed {
		staleNodes[stale.SheetNode.Name] = stale.SheetNode.UUID
		for i := range stale.SheetNode.Pins {
			stalePins[posKey(stale.SheetNode.Pins[i].Position)] = true
		}
	}
	for name, id := range staleNodes {
		removeSheetRef(doc, id)
		r.sum.countSheet(Remove)
		ctx.Logf("%s: remove sheet %s", desired.Scope(), name)
	}
	// Binding labels on withdrawn sheet pins would otherwise dangle.
	dropLabelsAt(doc, stalePins)

	newNodes := map[string]schematic.UUID{}
	var placed []SheetMatch
	for _, m := range matches {
		if m.Existing == nil {
			placed = append(placed, m)
		}
	}
	if len(placed) > 0 {
		positions := ctx.Placer.Place(len(placed), occupiedRegions(doc))
		for i, m := range placed {
			ref := newSheetRef(ctx, m.Desired.Name, m.Desired.Name+".kicad_sch", positions[i])
			doc.Sheets = append(doc.Sheets, ref)
			newNodes[m.Desired.Name] = ref.UUID
		}
	}

	for _, m := range matches {
		var node *schematic.Sheet
		var childFile string
		var childExisting *ExistingSheet

		if m.Existing != nil {
			node = sheetByUUID(doc, keptNodes[m.Desired.Name])
			childFile = m.Existing.File
			childExisting = m.Existing
			r.sum.countSheet(Keep)
		} else {
			node = sheetByUUID(doc, newNodes[m.Desired.Name])
			childFile = filepath.Join(r.dir, node.FileName)
			r.sum.countSheet(Add)
			ctx.Logf("%s: add sheet %s", desired.Scope(), m.Desired.Name)
		}

		plan, warnings := DiffPorts(m.Desired.Sheet.Ports, childExisting)
		for _, w := range warnings {
			r.sum.warn(w)
			ctx.Logf("warning: %s", w)
		}

		r.pages++
		childPath := pathPrefix + "/" + string(node.UUID)
		r.instances = append(r.instances, schematic.SheetInstance{
			Path: childPath,
			Page: fmt.Sprintf("%d", r.pages),
		})

		childDoc, err := r.syncSheet(m.Desired.Sheet, childExisting, childFile, doc, node, plan, m.Desired.Bindings, childPath)
		if err != nil {
			return nil, err
		}
		childDoc.SheetInstances = nil
		if err := writeFileAtomic(childDoc, childFile); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

func sheetByUUID(doc *schematic.Schematic, id schematic.UUID) *schematic.Sheet {
	for i := range doc.Sheets {
		if doc.Sheets[i].UUID == id {
			return &doc.Sheets[i]
		}
	}
	return nil
}
