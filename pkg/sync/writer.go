package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/circuit-synth/schsync/pkg/schematic"
	"github.com/circuit-synth/schsync/pkg/sexp"
)

// applyComponentActions mutates one schematic document according to the
// reconciler's decisions. Kept entities are untouched, mutations edit
// properties in place (position and token survive), removals drop the
// symbol, and additions are placed by the oracle on free grid cells.
func applyComponentActions(ctx *Context, doc *schematic.Schematic, actions []ComponentAction) {
	removed := map[schematic.UUID]bool{}
	var adds []ComponentAction

	for _, act := range actions {
		switch act.Kind {
		case Keep, Update, Rename, Retype:
			// The loaded pointer is still valid here: compaction and
			// appends only happen after this loop.
			sym := act.Existing.Sym
			if sym == nil {
				continue
			}
			if act.Kind != Keep {
				sym.SetProperty("Reference", act.Ref)
				sym.SetProperty("Value", act.Desired.Value)
				sym.SetProperty("Footprint", act.Desired.Footprint)
				sym.LibID = act.Desired.Type
			}
			// A net may now reach a pin the embedded library has never
			// rendered, e.g. a component generated while unconnected.
			ensureLibPins(doc, sym.LibID, desiredPinNumbers(act.Desired))
			ensurePinRefs(ctx, sym, desiredPinNumbers(act.Desired))
		case Remove:
			removed[act.Token] = true
		case Add:
			adds = append(adds, act)
		}
	}

	if len(removed) > 0 {
		kept := doc.Symbols[:0]
		for _, sym := range doc.Symbols {
			if !removed[sym.UUID] {
				kept = append(kept, sym)
			}
		}
		doc.Symbols = kept
	}

	if len(adds) == 0 {
		return
	}

	positions := ctx.Placer.Place(len(adds), occupiedRegions(doc))
	for i, act := range adds {
		pins := desiredPinNumbers(act.Desired)
		ensureLibPins(doc, act.Desired.Type, pins)

		sym := schematic.Symbol{
			LibID:    act.Desired.Type,
			Position: positions[i],
			Unit:     1,
			InBom:    true,
			OnBoard:  true,
			UUID:     act.Token,
		}
		sym.Properties = []schematic.Property{
			{Key: "Reference", Value: act.Ref, Position: refPos(positions[i])},
			{Key: "Value", Value: act.Desired.Value, Position: valuePos(positions[i])},
			{Key: "Footprint", Value: act.Desired.Footprint, Position: positions[i]},
		}
		for _, number := range pins {
			sym.Pins = append(sym.Pins, schematic.PinRef{
				Number: number,
				UUID:   ctx.Tokens.Next(),
			})
		}
		doc.Symbols = append(doc.Symbols, sym)
	}
}

func refPos(p schematic.Position) schematic.Position {
	return schematic.Position{X: p.X, Y: p.Y - 5.08}
}

func valuePos(p schematic.Position) schematic.Position {
	return schematic.Position{X: p.X, Y: p.Y + 5.08}
}

func desiredPinNumbers(d *DesiredComponent) []string {
	numbers := make([]string, 0, len(d.Pins))
	for n := range d.Pins {
		numbers = append(numbers, n)
	}
	sortPinNumbers(numbers)
	return numbers
}

// sortPinNumbers orders numerically where possible ("2" before "10"),
// lexically otherwise.
func sortPinNumbers(numbers []string) {
	sort.Slice(numbers, func(i, j int) bool {
		a, errA := strconv.Atoi(numbers[i])
		b, errB := strconv.Atoi(numbers[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return numbers[i] < numbers[j]
	})
}

// occupiedRegions collects the footprint of every placed entity so the
// oracle never overlaps a kept one.
func occupiedRegions(doc *schematic.Schematic) []Region {
	var regions []Region
	for i := range doc.Symbols {
		regions = append(regions, RegionAround(doc.Symbols[i].Position, 7.62))
	}
	for i := range doc.Sheets {
		sh := &doc.Sheets[i]
		regions = append(regions, Region{
			Min: sh.Position,
			Max: schematic.Position{
				X: sh.Position.X + sh.Size.Width,
				Y: sh.Position.Y + sh.Size.Height,
			},
		})
	}
	return regions
}

// ensureLibPins guarantees the embedded library definition for libID
// exists and covers every listed pin number. A missing definition is
// generated minimally: pins run down the left edge on the standard
// 2.54mm pitch, graphics are left to the user's libraries. An existing
// definition is extended in place so its graphics survive.
func ensureLibPins(doc *schematic.Schematic, libID string, pinNumbers []string) {
	lib := doc.LibSymbol(libID)
	if lib == nil {
		doc.LibSymbols = append(doc.LibSymbols, schematic.LibSymbol{
			Name: libID,
			Raw:  libSymbolNode(schematic.LibSymbol{Name: libID}),
		})
		lib = &doc.LibSymbols[len(doc.LibSymbols)-1]
	}

	have := map[string]bool{}
	for _, p := range lib.Pins {
		have[p.Number] = true
	}

	for _, number := range pinNumbers {
		if have[number] {
			continue
		}
		pin := schematic.LibPin{
			Number:   number,
			Name:     number,
			Type:     "passive",
			Position: schematic.Position{X: -7.62, Y: -float64(len(lib.Pins)) * 2.54},
			Length:   2.54,
		}
		lib.Pins = append(lib.Pins, pin)
		appendRawPin(lib, pin)
	}
}

// appendRawPin adds a pin node to the library symbol's pin unit.
func appendRawPin(lib *schematic.LibSymbol, pin schematic.LibPin) {
	unitName := lib.Name + "_1_1"
	var unit *sexp.Node
	for _, child := range lib.Raw.Children {
		if child.IsList && child.Name() == "symbol" {
			if name, ok := child.Str(1); ok && name == unitName {
				unit = child
				break
			}
		}
	}
	if unit == nil {
		unit = sexp.List("symbol", sexp.Str(unitName))
		lib.Raw.Append(unit)
	}
	unit.Append(libPinNode(pin))
}

func libSymbolNode(lib schematic.LibSymbol) *sexp.Node {
	node := sexp.List("symbol",
		sexp.Str(lib.Name),
		sexp.List("pin_numbers", sexp.List("hide", sexp.Sym("no"))),
		sexp.List("in_bom", sexp.Sym("yes")),
		sexp.List("on_board", sexp.Sym("yes")),
	)
	unit := sexp.List("symbol", sexp.Str(lib.Name+"_1_1"))
	for _, pin := range lib.Pins {
		unit.Append(libPinNode(pin))
	}
	node.Append(unit)
	return node
}

func libPinNode(pin schematic.LibPin) *sexp.Node {
	return sexp.List("pin",
		sexp.Sym(pin.Type),
		sexp.Sym("line"),
		sexp.List("at", sexp.Float(pin.Position.X), sexp.Float(pin.Position.Y), sexp.Float(float64(pin.Angle))),
		sexp.List("length", sexp.Float(pin.Length)),
		sexp.List("name", sexp.Str(pin.Name)),
		sexp.List("number", sexp.Str(pin.Number)),
	)
}

// ensurePinRefs keeps the symbol instance's per-pin entries in step
// with the pins the net graph references.
func ensurePinRefs(ctx *Context, sym *schematic.Symbol, pinNumbers []string) {
	have := map[string]bool{}
	for _, p := range sym.Pins {
		have[p.Number] = true
	}
	for _, number := range pinNumbers {
		if !have[number] {
			sym.Pins = append(sym.Pins, schematic.PinRef{
				Number: number,
				UUID:   ctx.Tokens.Next(),
			})
		}
	}
}

// rebuildPinLabels drops every pin-projected label and re-emits the set
// from the final pin->net state. Hand-drawn labels that never matched a
// pin position pass through untouched. A label whose name is unchanged
// keeps its token and angle so an unchanged sheet stays byte-stable.
func rebuildPinLabels(ctx *Context, doc *schematic.Schematic, existing *ExistingSheet, ns *NetSync) {
	prior := map[PinKey]PinLabel{}
	if existing != nil {
		prior = existing.PinLabels

		locals := doc.Labels[:0]
		for _, l := range doc.Labels {
			if !existing.PinAttached(l.UUID) {
				locals = append(locals, l)
			}
		}
		doc.Labels = locals

		globals := doc.GlobalLabels[:0]
		for _, l := range doc.GlobalLabels {
			if !existing.PinAttached(l.UUID) {
				globals = append(globals, l)
			}
		}
		doc.GlobalLabels = globals
	}

	keys := make([]PinKey, 0, len(ns.Final))
	for key := range ns.Final {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Token != keys[j].Token {
			return keys[i].Token < keys[j].Token
		}
		return keys[i].Pin < keys[j].Pin
	})

	for _, key := range keys {
		want := ns.Final[key]
		sym := doc.SymbolByUUID(key.Token)
		if sym == nil {
			continue
		}
		pos, ok := doc.PinPosition(sym, key.Pin)
		if !ok {
			continue
		}

		id := ctx.Tokens.Next()
		var angle schematic.Angle
		if old, had := prior[key]; had && !old.Power && old.Name == want.Name {
			id = old.UUID
			angle = old.Angle
		}

		doc.Labels = append(doc.Labels, schematic.Label{
			Text:     want.Name,
			Position: pos,
			Angle:    angle,
			UUID:     id,
		})
	}

	emitPowerMarkers(ctx, doc, prior, ns)
}

// emitPowerMarkers renders one global marker per power net name. A
// hand-drawn marker already carrying the name satisfies the net; a
// marker owned by the synchronizer is reused in place as long as it
// still sits on a member pin.
func emitPowerMarkers(ctx *Context, doc *schematic.Schematic, prior map[PinKey]PinLabel, ns *NetSync) {
	present := map[string]bool{}
	for i := range doc.GlobalLabels {
		present[doc.GlobalLabels[i].Text] = true
	}
	priorMarker := map[string]PinLabel{}
	for _, label := range prior {
		if label.Power {
			priorMarker[label.Name] = label
		}
	}

	names := make([]string, 0, len(ns.PowerPins))
	for name := range ns.PowerPins {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if present[name] {
			continue
		}

		var positions []schematic.Position
		for _, key := range ns.PowerPins[name] {
			sym := doc.SymbolByUUID(key.Token)
			if sym == nil {
				continue
			}
			if pos, ok := doc.PinPosition(sym, key.Pin); ok {
				positions = append(positions, pos)
			}
		}
		if len(positions) == 0 {
			continue
		}

		pos := positions[0]
		id := ctx.Tokens.Next()
		var angle schematic.Angle
		if old, had := priorMarker[name]; had {
			id = old.UUID
			angle = old.Angle
			for _, p := range positions {
				if posKey(p) == posKey(old.Position) {
					pos = old.Position
				}
			}
		}

		doc.GlobalLabels = append(doc.GlobalLabels, schematic.GlobalLabel{
			Text:     name,
			Position: pos,
			Angle:    angle,
			UUID:     id,
		})
	}
}

// applyPortPlan edits both halves of each port as a unit: the sheet pin
// on the parent-side node and the hierarchical label in the child
// document. Kept ports keep their pin position, but the parent-side
// binding label is re-derived so it always names the currently bound
// net. Bindings are rendered as parent-side labels at the sheet pin,
// tying the pin into the parent net.
func applyPortPlan(ctx *Context, child, parent *schematic.Schematic, sheetNode *schematic.Sheet, plan *PortPlan, bindings map[string]NetID) {
	removePins := map[schematic.UUID]bool{}
	removeLabels := map[schematic.UUID]bool{}
	removedAt := map[string]bool{}
	for _, port := range plan.Remove {
		if port.Pin != nil {
			removePins[port.Pin.UUID] = true
			removedAt[posKey(port.Pin.Position)] = true
		}
		if port.Label != nil {
			removeLabels[port.Label.UUID] = true
		}
	}

	if len(removePins) > 0 {
		kept := sheetNode.Pins[:0]
		for _, pin := range sheetNode.Pins {
			if !removePins[pin.UUID] {
				kept = append(kept, pin)
			}
		}
		sheetNode.Pins = kept

		dropLabelsAt(parent, removedAt)
	}
	if len(removeLabels) > 0 {
		kept := child.HierLabels[:0]
		for _, l := range child.HierLabels {
			if !removeLabels[l.UUID] {
				kept = append(kept, l)
			}
		}
		child.HierLabels = kept
	}

	for _, port := range plan.Keep {
		if port.Pin == nil {
			continue
		}
		net, bound := bindings[port.Name]
		rebindPortLabel(ctx, parent, port.Pin.Position, net, bound)
	}

	if len(plan.Add) == 0 {
		return
	}

	usedRows := map[string]bool{}
	for _, pin := range sheetNode.Pins {
		usedRows[posKey(pin.Position)] = true
	}
	usedLabels := map[string]bool{}
	for _, l := range child.HierLabels {
		usedLabels[posKey(l.Position)] = true
	}

	for _, name := range plan.Add {
		pinPos := nextEdgeSlot(sheetNode, usedRows)
		usedRows[posKey(pinPos)] = true
		sheetNode.Pins = append(sheetNode.Pins, schematic.SheetPin{
			Name:     name,
			Shape:    "passive",
			Position: pinPos,
			Angle:    180,
			UUID:     ctx.Tokens.Next(),
		})

		if net, bound := bindings[name]; bound {
			if ctx.Config.IsPowerNet(net.Name) {
				parent.GlobalLabels = append(parent.GlobalLabels, schematic.GlobalLabel{
					Text:     net.Name,
					Position: pinPos,
					UUID:     ctx.Tokens.Next(),
				})
			} else {
				parent.Labels = append(parent.Labels, schematic.Label{
					Text:     net.Name,
					Position: pinPos,
					UUID:     ctx.Tokens.Next(),
				})
			}
		}

		labelPos := nextLabelSlot(ctx, usedLabels)
		usedLabels[posKey(labelPos)] = true
		child.HierLabels = append(child.HierLabels, schematic.HierLabel{
			Text:     name,
			Shape:    "passive",
			Position: labelPos,
			UUID:     ctx.Tokens.Next(),
		})
	}
}

// rebindPortLabel re-derives the parent-side binding label of one kept
// sheet pin. Renames of the same label kind happen in place so the
// token survives; a kind change (power to ordinary or back) or a
// dropped binding replaces or removes the label.
func rebindPortLabel(ctx *Context, parent *schematic.Schematic, pos schematic.Position, net NetID, bound bool) {
	key := posKey(pos)
	at := map[string]bool{key: true}

	if !bound {
		dropLabelsAt(parent, at)
		return
	}

	if ctx.Config.IsPowerNet(net.Name) {
		for i := range parent.GlobalLabels {
			if posKey(parent.GlobalLabels[i].Position) == key {
				parent.GlobalLabels[i].Text = net.Name
				return
			}
		}
		dropLabelsAt(parent, at)
		parent.GlobalLabels = append(parent.GlobalLabels, schematic.GlobalLabel{
			Text:     net.Name,
			Position: pos,
			UUID:     ctx.Tokens.Next(),
		})
		return
	}

	for i := range parent.Labels {
		if posKey(parent.Labels[i].Position) == key {
			parent.Labels[i].Text = net.Name
			return
		}
	}
	dropLabelsAt(parent, at)
	parent.Labels = append(parent.Labels, schematic.Label{
		Text:     net.Name,
		Position: pos,
		UUID:     ctx.Tokens.Next(),
	})
}

// dropLabelsAt removes labels sitting exactly on withdrawn sheet pins.
func dropLabelsAt(doc *schematic.Schematic, at map[string]bool) {
	if len(at) == 0 {
		return
	}
	locals := doc.Labels[:0]
	for _, l := range doc.Labels {
		if !at[posKey(l.Position)] {
			locals = append(locals, l)
		}
	}
	doc.Labels = locals

	globals := doc.GlobalLabels[:0]
	for _, l := range doc.GlobalLabels {
		if !at[posKey(l.Position)] {
			globals = append(globals, l)
		}
	}
	doc.GlobalLabels = globals
}

// nextEdgeSlot walks down the sheet's left edge to the first free pin row.
func nextEdgeSlot(sheetNode *schematic.Sheet, used map[string]bool) schematic.Position {
	for row := 1; ; row++ {
		pos := schematic.Position{
			X: sheetNode.Position.X,
			Y: sheetNode.Position.Y + float64(row)*2.54,
		}
		if !used[posKey(pos)] {
			return pos
		}
	}
}

// nextLabelSlot stacks hierarchical labels above the component grid.
func nextLabelSlot(ctx *Context, used map[string]bool) schematic.Position {
	p := ctx.Config.Placement
	for row := 0; ; row++ {
		pos := schematic.Position{
			X: p.OriginX,
			Y: p.OriginY - 12.7 - float64(row)*2.54,
		}
		if !used[posKey(pos)] {
			return pos
		}
	}
}

// newSheetRef builds the parent-side node for a freshly added child sheet.
func newSheetRef(ctx *Context, name, fileName string, pos schematic.Position) schematic.Sheet {
	return schematic.Sheet{
		Name:     name,
		FileName: fileName,
		Position: pos,
		Size:     schematic.Size{Width: 25.4, Height: 19.05},
		UUID:     ctx.Tokens.Next(),
	}
}

// removeSheetRef drops a stale child's node from the parent document.
// The child file itself stays on disk; only the hierarchy reference is
// withdrawn. Compaction reshuffles the slice, so callers must hold
// sheets by UUID, not by pointer, across removals.
func removeSheetRef(doc *schematic.Schematic, id schematic.UUID) {
	kept := doc.Sheets[:0]
	for i := range doc.Sheets {
		if doc.Sheets[i].UUID != id {
			kept = append(kept, doc.Sheets[i])
		}
	}
	doc.Sheets = kept
}

// writeFileAtomic stages the serialized document next to the target and
// renames it into place, so a crash mid-write never leaves a torn file.
func writeFileAtomic(doc *schematic.Schematic, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".schsync-*.kicad_sch")
	if err != nil {
		return fmt.Errorf("failed to stage %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if err := doc.Encode(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
