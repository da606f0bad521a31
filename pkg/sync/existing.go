package sync

import (
	"fmt"
	"path/filepath"

	"github.com/circuit-synth/schsync/pkg/schematic"
)

// PinKey identifies one pin of an existing component by identity token
// and pin number. Pins are never created or destroyed independently of
// their component.
type PinKey struct {
	Token schematic.UUID
	Pin   string
}

// PinLabel is the rendered label currently attached to a pin.
type PinLabel struct {
	Name     string
	Power    bool // rendered as a global marker
	UUID     schematic.UUID
	Position schematic.Position
	Angle    schematic.Angle
}

// ExistingComponent is a component loaded from the target schematic,
// with its persistent identity and layout.
type ExistingComponent struct {
	Token     schematic.UUID
	Ref       string
	Type      string
	Value     string
	Footprint string
	Position  schematic.Position
	Angle     schematic.Angle
	Order     int // file order, the existing-side tie-break
	Sym       *schematic.Symbol
}

// Fingerprint returns the component's derived matching key.
func (e *ExistingComponent) Fingerprint() Fingerprint {
	return Fingerprint{Type: e.Type, Value: e.Value, Footprint: e.Footprint}
}

// ExistingPort pairs the two halves of a port: the sheet pin on the
// parent side and the hierarchical label on the child side. Either side
// may be nil when the target was edited into an orphaned state; the
// synchronizer repairs that (PortMismatch recovery).
type ExistingPort struct {
	Name  string
	Pin   *schematic.SheetPin
	Label *schematic.HierLabel
}

// Orphaned reports whether one half of the pair is missing.
func (p *ExistingPort) Orphaned() bool {
	return p.Pin == nil || p.Label == nil
}

// ExistingSheet is one sheet of the target entity graph.
type ExistingSheet struct {
	Path []string
	File string
	Doc  *schematic.Schematic

	Components []*ExistingComponent
	Children   []*ExistingSheet

	// SheetNode is the (sheet ...) reference in the parent document,
	// nil at the root.
	SheetNode *schematic.Sheet

	// Ports pairs this sheet's boundary pins with its hierarchical
	// labels, keyed by name.
	Ports []*ExistingPort

	// PinLabels maps each labeled pin to its rendered net name.
	PinLabels map[PinKey]PinLabel

	// attached records which label UUIDs are pin projections. Labels
	// not in this set were drawn by hand on wires and pass through.
	attached map[schematic.UUID]bool
}

// LoadProject parses the root schematic and every referenced sheet file
// into the existing entity graph. Any parse failure is fatal for the
// run (MalformedTarget): there is no partial recovery.
func LoadProject(rootPath string) (*ExistingSheet, error) {
	return loadSheet(rootPath, nil, nil)
}

func loadSheet(file string, path []string, node *schematic.Sheet) (*ExistingSheet, error) {
	doc, err := schematic.ParseFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTarget, file, err)
	}

	sheet := &ExistingSheet{
		Path:      path,
		File:      file,
		Doc:       doc,
		SheetNode: node,
		PinLabels: map[PinKey]PinLabel{},
		attached:  map[schematic.UUID]bool{},
	}

	for i := range doc.Symbols {
		sym := &doc.Symbols[i]
		sheet.Components = append(sheet.Components, &ExistingComponent{
			Token:     sym.UUID,
			Ref:       sym.Reference(),
			Type:      sym.LibID,
			Value:     sym.Value(),
			Footprint: sym.Footprint(),
			Position:  sym.Position,
			Angle:     sym.Angle,
			Order:     i,
			Sym:       sym,
		})
	}

	sheet.indexPinLabels()

	dir := filepath.Dir(file)
	for i := range doc.Sheets {
		sub := &doc.Sheets[i]
		childPath := append(append([]string{}, path...), sub.Name)
		child, err := loadSheet(filepath.Join(dir, sub.FileName), childPath, sub)
		if err != nil {
			return nil, err
		}
		child.indexPorts()
		sheet.Children = append(sheet.Children, child)
	}

	return sheet, nil
}

// indexPinLabels maps rendered labels back to the pins they project, by
// position: the generator always places a pin's label at the pin itself.
func (s *ExistingSheet) indexPinLabels() {
	type pinAt struct {
		token schematic.UUID
		pin   string
	}
	pins := map[string]pinAt{}

	for i := range s.Doc.Symbols {
		sym := &s.Doc.Symbols[i]
		lib := s.Doc.LibSymbol(sym.LibID)
		if lib == nil {
			continue
		}
		for _, p := range lib.Pins {
			pos, ok := s.Doc.PinPosition(sym, p.Number)
			if !ok {
				continue
			}
			pins[posKey(pos)] = pinAt{token: sym.UUID, pin: p.Number}
		}
	}

	for i := range s.Doc.Labels {
		l := &s.Doc.Labels[i]
		if at, ok := pins[posKey(l.Position)]; ok {
			s.PinLabels[PinKey{Token: at.token, Pin: at.pin}] = PinLabel{
				Name:     l.Text,
				UUID:     l.UUID,
				Position: l.Position,
				Angle:    l.Angle,
			}
			s.attached[l.UUID] = true
		}
	}
	for i := range s.Doc.GlobalLabels {
		l := &s.Doc.GlobalLabels[i]
		if at, ok := pins[posKey(l.Position)]; ok {
			s.PinLabels[PinKey{Token: at.token, Pin: at.pin}] = PinLabel{
				Name:     l.Text,
				Power:    true,
				UUID:     l.UUID,
				Position: l.Position,
				Angle:    l.Angle,
			}
			s.attached[l.UUID] = true
		}
	}
}

// indexPorts pairs the parent-side sheet pins with this sheet's
// hierarchical labels by name.
func (s *ExistingSheet) indexPorts() {
	if s.SheetNode == nil {
		return
	}

	byName := map[string]*ExistingPort{}
	ordered := []*ExistingPort{}

	for i := range s.SheetNode.Pins {
		pin := &s.SheetNode.Pins[i]
		port := &ExistingPort{Name: pin.Name, Pin: pin}
		byName[pin.Name] = port
		ordered = append(ordered, port)
	}
	for i := range s.Doc.HierLabels {
		label := &s.Doc.HierLabels[i]
		if port, ok := byName[label.Text]; ok && port.Label == nil {
			port.Label = label
			continue
		}
		port := &ExistingPort{Name: label.Text, Label: label}
		byName[label.Text] = port
		ordered = append(ordered, port)
	}

	s.Ports = ordered
}

// Component returns the loaded component carrying the given token.
func (s *ExistingSheet) Component(token schematic.UUID) *ExistingComponent {
	for _, c := range s.Components {
		if c.Token == token {
			return c
		}
	}
	return nil
}

// Child returns the child sheet with the given instance name, or nil.
func (s *ExistingSheet) Child(name string) *ExistingSheet {
	for _, c := range s.Children {
		if c.SheetNode != nil && c.SheetNode.Name == name {
			return c
		}
	}
	return nil
}

// PinAttached reports whether a label UUID is a pin projection owned by
// the synchronizer, as opposed to a hand-drawn wire label.
func (s *ExistingSheet) PinAttached(id schematic.UUID) bool {
	return s.attached[id]
}

// posKey buckets a position to 0.01mm so float formatting noise does
// not break label-to-pin matching.
func posKey(p schematic.Position) string {
	return fmt.Sprintf("%.2f,%.2f", p.X, p.Y)
}
