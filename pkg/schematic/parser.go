package schematic

import (
	"fmt"
	"io"
	"os"

	"github.com/circuit-synth/schsync/pkg/sexp"
)

const (
	// Minimum supported file format version (KiCad 6.0)
	MinSupportedVersion = 20211014

	// FormatVersion is the version written into generated files
	FormatVersion = 20231120

	// GeneratorName identifies files produced by this tool
	GeneratorName = "schsync"
)

// ParseFile reads and parses a schematic file.
func ParseFile(filename string) (*Schematic, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads and parses a schematic from an io.Reader.
func Parse(r io.Reader) (*Schematic, error) {
	nodes, err := sexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("empty file or no valid s-expressions found")
	}

	root := nodes[0]
	if root.Name() != "kicad_sch" {
		return nil, fmt.Errorf("not a schematic file: expected 'kicad_sch', got %q", root.Name())
	}

	sch := &Schematic{}

	if err := parseHeader(root, sch); err != nil {
		return nil, err
	}

	for _, child := range root.Children {
		if !child.IsList {
			continue
		}
		switch child.Name() {
		case "version", "generator", "generator_version", "uuid", "paper":
			// handled in parseHeader

		case "title_block":
			sch.TitleBlock = parseTitleBlock(child)

		case "lib_symbols":
			for _, symNode := range child.FindAll("symbol") {
				sch.LibSymbols = append(sch.LibSymbols, parseLibSymbol(symNode))
			}

		case "symbol":
			sch.Symbols = append(sch.Symbols, parseSymbol(child))

		case "wire":
			sch.Wires = append(sch.Wires, Wire{
				Points: parsePoints(child),
				UUID:   parseUUID(child),
				Raw:    child,
			})

		case "junction":
			sch.Junctions = append(sch.Junctions, Junction{
				Position: parseAt(child).pos,
				UUID:     parseUUID(child),
				Raw:      child,
			})

		case "no_connect":
			sch.NoConnects = append(sch.NoConnects, NoConnect{
				Position: parseAt(child).pos,
				UUID:     parseUUID(child),
				Raw:      child,
			})

		case "label":
			sch.Labels = append(sch.Labels, parseLabel(child))

		case "global_label":
			sch.GlobalLabels = append(sch.GlobalLabels, parseGlobalLabel(child))

		case "hierarchical_label":
			sch.HierLabels = append(sch.HierLabels, parseHierLabel(child))

		case "sheet":
			sch.Sheets = append(sch.Sheets, parseSheet(child))

		case "sheet_instances":
			for _, pn := range child.FindAll("path") {
				inst := SheetInstance{}
				inst.Path, _ = pn.Str(1)
				if pageNode, found := pn.Find("page"); found {
					inst.Page, _ = pageNode.Str(1)
				}
				sch.SheetInstances = append(sch.SheetInstances, inst)
			}

		case "text":
			sch.Texts = append(sch.Texts, parseText(child))

		default:
			// Buses, polylines, images, embedded fonts... carried verbatim.
			sch.Extras = append(sch.Extras, child)
		}
	}

	return sch, nil
}

// parseHeader extracts version, generator, uuid and paper.
func parseHeader(root *sexp.Node, sch *Schematic) error {
	versionNode, found := root.Find("version")
	if !found {
		return fmt.Errorf("missing required 'version' field")
	}
	ver, ok := versionNode.Int(1)
	if !ok {
		return fmt.Errorf("failed to parse version")
	}
	if ver < MinSupportedVersion {
		return fmt.Errorf("unsupported file version: %d (minimum %d / KiCad 6.0)", ver, MinSupportedVersion)
	}
	sch.Version = ver

	if n, found := root.Find("generator"); found {
		sch.Generator, _ = n.Str(1)
	}
	if n, found := root.Find("generator_version"); found {
		sch.GeneratorVer, _ = n.Str(1)
	}
	if n, found := root.Find("uuid"); found {
		id, _ := n.Str(1)
		sch.UUID = UUID(id)
	}
	if n, found := root.Find("paper"); found {
		sch.Paper, _ = n.Str(1)
	}

	return nil
}

func parseTitleBlock(node *sexp.Node) TitleBlock {
	tb := TitleBlock{}
	if n, found := node.Find("title"); found {
		tb.Title, _ = n.Str(1)
	}
	if n, found := node.Find("date"); found {
		tb.Date, _ = n.Str(1)
	}
	if n, found := node.Find("rev"); found {
		tb.Revision, _ = n.Str(1)
	}
	if n, found := node.Find("company"); found {
		tb.Company, _ = n.Str(1)
	}
	for _, cn := range node.FindAll("comment") {
		if text, ok := cn.Str(2); ok {
			tb.Comments = append(tb.Comments, text)
		}
	}
	return tb
}

// parseLibSymbol lifts the pins out of a library symbol and keeps the
// whole definition as a raw node for verbatim write-back.
func parseLibSymbol(node *sexp.Node) LibSymbol {
	sym := LibSymbol{Raw: node}
	sym.Name, _ = node.Str(1)

	// Pins live inside nested unit symbols, or directly on the symbol.
	collectPins(node, &sym.Pins)

	return sym
}

func collectPins(node *sexp.Node, pins *[]LibPin) {
	for _, pn := range node.FindAll("pin") {
		pin := LibPin{}
		pin.Type, _ = pn.Str(1)
		at := parseAt(pn)
		pin.Position = at.pos
		pin.Angle = at.angle
		if lenNode, found := pn.Find("length"); found {
			pin.Length, _ = lenNode.Float(1)
		}
		if nameNode, found := pn.Find("name"); found {
			pin.Name, _ = nameNode.Str(1)
		}
		if numNode, found := pn.Find("number"); found {
			pin.Number, _ = numNode.Str(1)
		}
		*pins = append(*pins, pin)
	}
	for _, unit := range node.FindAll("symbol") {
		collectPins(unit, pins)
	}
}

func parseSymbol(node *sexp.Node) Symbol {
	sym := Symbol{InBom: true, OnBoard: true, Unit: 1}

	if n, found := node.Find("lib_id"); found {
		sym.LibID, _ = n.Str(1)
	}
	at := parseAt(node)
	sym.Position = at.pos
	sym.Angle = at.angle
	if n, found := node.Find("mirror"); found {
		sym.Mirror, _ = n.Str(1)
	}
	if n, found := node.Find("unit"); found {
		sym.Unit, _ = n.Int(1)
	}
	if n, found := node.Find("in_bom"); found {
		v, _ := n.Str(1)
		sym.InBom = v == "yes"
	}
	if n, found := node.Find("on_board"); found {
		v, _ := n.Str(1)
		sym.OnBoard = v == "yes"
	}
	sym.UUID = parseUUID(node)

	for _, pn := range node.FindAll("property") {
		sym.Properties = append(sym.Properties, parseProperty(pn))
	}

	for _, pn := range node.FindAll("pin") {
		ref := PinRef{}
		ref.Number, _ = pn.Str(1)
		if uuidNode, found := pn.Find("uuid"); found {
			id, _ := uuidNode.Str(1)
			ref.UUID = UUID(id)
		}
		sym.Pins = append(sym.Pins, ref)
	}

	return sym
}

func parseProperty(node *sexp.Node) Property {
	prop := Property{}
	prop.Key, _ = node.Str(1)
	prop.Value, _ = node.Str(2)
	at := parseAt(node)
	prop.Position = at.pos
	prop.Angle = at.angle
	if effects, found := node.Find("effects"); found {
		prop.Effects = effects
	}
	return prop
}

func parseLabel(node *sexp.Node) Label {
	l := Label{}
	l.Text, _ = node.Str(1)
	at := parseAt(node)
	l.Position = at.pos
	l.Angle = at.angle
	l.UUID = parseUUID(node)
	if effects, found := node.Find("effects"); found {
		l.Effects = effects
	}
	return l
}

func parseGlobalLabel(node *sexp.Node) GlobalLabel {
	l := GlobalLabel{}
	l.Text, _ = node.Str(1)
	if n, found := node.Find("shape"); found {
		l.Shape, _ = n.Str(1)
	}
	at := parseAt(node)
	l.Position = at.pos
	l.Angle = at.angle
	l.UUID = parseUUID(node)
	if effects, found := node.Find("effects"); found {
		l.Effects = effects
	}
	return l
}

func parseHierLabel(node *sexp.Node) HierLabel {
	l := HierLabel{}
	l.Text, _ = node.Str(1)
	if n, found := node.Find("shape"); found {
		l.Shape, _ = n.Str(1)
	}
	at := parseAt(node)
	l.Position = at.pos
	l.Angle = at.angle
	l.UUID = parseUUID(node)
	if effects, found := node.Find("effects"); found {
		l.Effects = effects
	}
	return l
}

func parseSheet(node *sexp.Node) Sheet {
	sheet := Sheet{}
	sheet.Position = parseAt(node).pos
	if n, found := node.Find("size"); found {
		sheet.Size.Width, _ = n.Float(1)
		sheet.Size.Height, _ = n.Float(2)
	}
	sheet.UUID = parseUUID(node)

	for _, pn := range node.FindAll("property") {
		prop := parseProperty(pn)
		switch prop.Key {
		case "Sheetname":
			sheet.Name = prop.Value
		case "Sheetfile":
			sheet.FileName = prop.Value
		}
	}

	for _, pn := range node.FindAll("pin") {
		pin := SheetPin{}
		pin.Name, _ = pn.Str(1)
		pin.Shape, _ = pn.Str(2)
		at := parseAt(pn)
		pin.Position = at.pos
		pin.Angle = at.angle
		if uuidNode, found := pn.Find("uuid"); found {
			id, _ := uuidNode.Str(1)
			pin.UUID = UUID(id)
		}
		if effects, found := pn.Find("effects"); found {
			pin.Effects = effects
		}
		sheet.Pins = append(sheet.Pins, pin)
	}

	return sheet
}

func parseText(node *sexp.Node) Text {
	t := Text{}
	t.Text, _ = node.Str(1)
	at := parseAt(node)
	t.Position = at.pos
	t.Angle = at.angle
	t.UUID = parseUUID(node)
	if effects, found := node.Find("effects"); found {
		t.Effects = effects
	}
	return t
}

type posAngle struct {
	pos   Position
	angle Angle
}

// parseAt extracts (at X Y [angle]) from a node, zero values if absent.
func parseAt(node *sexp.Node) posAngle {
	result := posAngle{}
	atNode, found := node.Find("at")
	if !found {
		return result
	}
	result.pos.X, _ = atNode.Float(1)
	result.pos.Y, _ = atNode.Float(2)
	if a, ok := atNode.Float(3); ok {
		result.angle = Angle(a)
	}
	return result
}

func parseUUID(node *sexp.Node) UUID {
	if n, found := node.Find("uuid"); found {
		id, _ := n.Str(1)
		return UUID(id)
	}
	return ""
}

func parsePoints(node *sexp.Node) []Position {
	var points []Position
	if ptsNode, found := node.Find("pts"); found {
		for _, xy := range ptsNode.FindAll("xy") {
			p := Position{}
			p.X, _ = xy.Float(1)
			p.Y, _ = xy.Float(2)
			points = append(points, p)
		}
	}
	return points
}
