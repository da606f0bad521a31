// Package schematic provides a typed document model for KiCad schematic
// files (.kicad_sch) that supports both parsing and writing. Substructures
// the synchronizer does not understand are carried as raw s-expression
// nodes so they survive a load/modify/write cycle untouched.
package schematic

import (
	"github.com/circuit-synth/schsync/pkg/sexp"
)

// UUID is the persistent identity token carried by schematic entities.
// Minted once per logical entity and never reissued after removal.
type UUID string

// Position is a 2D coordinate in millimeters.
type Position struct {
	X float64
	Y float64
}

// Angle is a rotation in degrees (0, 90, 180, 270 for symbols).
type Angle float64

// Size represents dimensions in millimeters.
type Size struct {
	Width  float64
	Height float64
}

// Property is a key-value property on a symbol or sheet
// (Reference, Value, Footprint, Sheetname, ...).
type Property struct {
	Key      string
	Value    string
	Position Position
	Angle    Angle
	Effects  *sexp.Node // raw (effects ...) subtree, nil for defaults
}

// Symbol is a component instance placed on the schematic.
type Symbol struct {
	LibID      string // library identifier, e.g. "Device:R"
	Position   Position
	Angle      Angle
	Mirror     string // "x", "y", or empty
	Unit       int
	InBom      bool
	OnBoard    bool
	UUID       UUID
	Properties []Property
	Pins       []PinRef
}

// PinRef is a per-instance pin reference.
type PinRef struct {
	Number string
	UUID   UUID
}

// LibPin is a pin definition inside a library symbol. The position is
// relative to the symbol anchor.
type LibPin struct {
	Number   string
	Name     string
	Type     string // passive, input, output, power_in, ...
	Position Position
	Angle    Angle
	Length   float64
}

// LibSymbol is an embedded library symbol definition. The full definition
// (graphics included) is kept as a raw node and written back verbatim;
// only the pins are lifted out, since the synchronizer needs pin offsets
// to derive label positions.
type LibSymbol struct {
	Name string
	Pins []LibPin
	Raw  *sexp.Node
}

// Label is a local net label tying the wire stub at one pin to a net name.
// Labels are projections of net membership: the synchronizer regenerates
// them from scratch every run.
type Label struct {
	Text     string
	Position Position
	Angle    Angle
	UUID     UUID
	Effects  *sexp.Node
}

// GlobalLabel is a label visible across the whole design. Used for
// power/ground nets, which escape sheet scoping by design.
type GlobalLabel struct {
	Text     string
	Shape    string // input, output, bidirectional, passive
	Position Position
	Angle    Angle
	UUID     UUID
	Effects  *sexp.Node
}

// HierLabel is a hierarchical label: the child-side half of a port
// crossing a sheet boundary.
type HierLabel struct {
	Text     string
	Shape    string
	Position Position
	Angle    Angle
	UUID     UUID
	Effects  *sexp.Node
}

// SheetPin is the parent-side half of a port, attached to a sheet node.
type SheetPin struct {
	Name     string
	Shape    string
	Position Position
	Angle    Angle
	UUID     UUID
	Effects  *sexp.Node
}

// Sheet is a hierarchical sheet reference in a parent schematic.
type Sheet struct {
	Name     string
	FileName string
	Position Position
	Size     Size
	UUID     UUID
	Pins     []SheetPin
}

// SheetInstance maps a sheet path to its page number.
type SheetInstance struct {
	Path string
	Page string
}

// Text is a free-form annotation. Opaque to the synchronizer and always
// preserved unless the whole sheet is removed.
type Text struct {
	Text     string
	Position Position
	Angle    Angle
	UUID     UUID
	Effects  *sexp.Node
}

// Wire is a wire segment. Pass-through for the synchronizer.
type Wire struct {
	Points []Position
	UUID   UUID
	Raw    *sexp.Node
}

// Junction is a wire junction. Pass-through.
type Junction struct {
	Position Position
	UUID     UUID
	Raw      *sexp.Node
}

// NoConnect is a no-connect marker. Pass-through.
type NoConnect struct {
	Position Position
	UUID     UUID
	Raw      *sexp.Node
}

// TitleBlock contains schematic title block information.
type TitleBlock struct {
	Title    string
	Date     string
	Revision string
	Company  string
	Comments []string
}

// Schematic represents one complete schematic file.
type Schematic struct {
	Version        int
	Generator      string
	GeneratorVer   string
	UUID           UUID
	Paper          string
	TitleBlock     TitleBlock
	LibSymbols     []LibSymbol
	Symbols        []Symbol
	Wires          []Wire
	Junctions      []Junction
	NoConnects     []NoConnect
	Labels         []Label
	GlobalLabels   []GlobalLabel
	HierLabels     []HierLabel
	Sheets         []Sheet
	SheetInstances []SheetInstance
	Texts          []Text
	Extras         []*sexp.Node // unrecognized top-level nodes, written back verbatim
}

// New returns an empty schematic with the header fields a freshly
// generated file carries.
func New() *Schematic {
	return &Schematic{
		Version:   FormatVersion,
		Generator: GeneratorName,
		Paper:     "A4",
	}
}

// Property returns the value of a named property on a symbol.
func (s *Symbol) Property(key string) string {
	for _, p := range s.Properties {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// SetProperty updates a named property, adding it when missing.
func (s *Symbol) SetProperty(key, value string) {
	for i := range s.Properties {
		if s.Properties[i].Key == key {
			s.Properties[i].Value = value
			return
		}
	}
	s.Properties = append(s.Properties, Property{Key: key, Value: value})
}

// Reference returns the symbol's reference designator.
func (s *Symbol) Reference() string { return s.Property("Reference") }

// Value returns the symbol's value property.
func (s *Symbol) Value() string { return s.Property("Value") }

// Footprint returns the symbol's footprint property.
func (s *Symbol) Footprint() string { return s.Property("Footprint") }

// LibSymbol returns the embedded library definition for a lib ID.
func (s *Schematic) LibSymbol(name string) *LibSymbol {
	for i := range s.LibSymbols {
		if s.LibSymbols[i].Name == name {
			return &s.LibSymbols[i]
		}
	}
	return nil
}

// SymbolByUUID returns the symbol carrying the given identity token.
func (s *Schematic) SymbolByUUID(id UUID) *Symbol {
	for i := range s.Symbols {
		if s.Symbols[i].UUID == id {
			return &s.Symbols[i]
		}
	}
	return nil
}

// PinPosition computes the absolute position of a symbol pin by applying
// the symbol's rotation and mirror to the library pin offset.
func (s *Schematic) PinPosition(sym *Symbol, pinNumber string) (Position, bool) {
	lib := s.LibSymbol(sym.LibID)
	if lib == nil {
		return Position{}, false
	}
	for _, p := range lib.Pins {
		if p.Number == pinNumber {
			return transformPin(sym, p.Position), true
		}
	}
	return Position{}, false
}

// transformPin maps a library-relative pin offset into sheet coordinates.
// KiCad symbol space has Y up while the sheet has Y down, so the offset's
// Y flips before rotation.
func transformPin(sym *Symbol, off Position) Position {
	x, y := off.X, -off.Y

	switch sym.Mirror {
	case "x":
		y = -y
	case "y":
		x = -x
	}

	switch int(sym.Angle) % 360 {
	case 90:
		x, y = y, -x
	case 180:
		x, y = -x, -y
	case 270:
		x, y = -y, x
	}

	return Position{X: sym.Position.X + x, Y: sym.Position.Y + y}
}
