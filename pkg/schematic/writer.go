package schematic

import (
	"fmt"
	"io"
	"os"

	"github.com/circuit-synth/schsync/pkg/sexp"
)

// Node serializes the schematic into its s-expression tree. Entities that
// were loaded but never touched keep their raw subtrees; regenerated
// entities (labels, properties) are rebuilt with default text effects
// unless they carried explicit ones.
func (s *Schematic) Node() *sexp.Node {
	root := sexp.List("kicad_sch",
		sexp.List("version", sexp.Int(s.Version)),
		sexp.List("generator", sexp.Str(s.Generator)),
	)
	if s.GeneratorVer != "" {
		root.Append(sexp.List("generator_version", sexp.Str(s.GeneratorVer)))
	}
	if s.UUID != "" {
		root.Append(sexp.List("uuid", sexp.Str(string(s.UUID))))
	}
	if s.Paper != "" {
		root.Append(sexp.List("paper", sexp.Str(s.Paper)))
	}
	if tb := titleBlockNode(s.TitleBlock); tb != nil {
		root.Append(tb)
	}

	libs := sexp.List("lib_symbols")
	for _, lib := range s.LibSymbols {
		if lib.Raw != nil {
			libs.Append(lib.Raw)
		}
	}
	root.Append(libs)

	for _, j := range s.Junctions {
		root.Append(rawOr(j.Raw, junctionNode(j)))
	}
	for _, nc := range s.NoConnects {
		root.Append(rawOr(nc.Raw, noConnectNode(nc)))
	}
	for _, w := range s.Wires {
		root.Append(rawOr(w.Raw, wireNode(w)))
	}
	for _, l := range s.Labels {
		root.Append(labelNode(l))
	}
	for _, l := range s.GlobalLabels {
		root.Append(globalLabelNode(l))
	}
	for _, l := range s.HierLabels {
		root.Append(hierLabelNode(l))
	}
	for _, sym := range s.Symbols {
		root.Append(symbolNode(sym))
	}
	for _, sheet := range s.Sheets {
		root.Append(sheetNode(sheet))
	}
	for _, t := range s.Texts {
		root.Append(textNode(t))
	}
	for _, extra := range s.Extras {
		root.Append(extra)
	}

	if len(s.SheetInstances) > 0 {
		instances := sexp.List("sheet_instances")
		for _, inst := range s.SheetInstances {
			instances.Append(sexp.List("path", sexp.Str(inst.Path),
				sexp.List("page", sexp.Str(inst.Page))))
		}
		root.Append(instances)
	}

	return root
}

// Encode writes the serialized schematic to w.
func (s *Schematic) Encode(w io.Writer) error {
	return sexp.Write(w, s.Node())
}

// WriteFile serializes the schematic directly to a file. Callers that
// need crash safety should stage and rename instead (see pkg/sync).
func (s *Schematic) WriteFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := s.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func rawOr(raw, built *sexp.Node) *sexp.Node {
	if raw != nil {
		return raw
	}
	return built
}

func titleBlockNode(tb TitleBlock) *sexp.Node {
	if tb.Title == "" && tb.Date == "" && tb.Revision == "" && tb.Company == "" && len(tb.Comments) == 0 {
		return nil
	}
	node := sexp.List("title_block")
	if tb.Title != "" {
		node.Append(sexp.List("title", sexp.Str(tb.Title)))
	}
	if tb.Date != "" {
		node.Append(sexp.List("date", sexp.Str(tb.Date)))
	}
	if tb.Revision != "" {
		node.Append(sexp.List("rev", sexp.Str(tb.Revision)))
	}
	if tb.Company != "" {
		node.Append(sexp.List("company", sexp.Str(tb.Company)))
	}
	for i, c := range tb.Comments {
		node.Append(sexp.List("comment", sexp.Int(i+1), sexp.Str(c)))
	}
	return node
}

func atNode(pos Position, angle Angle) *sexp.Node {
	return sexp.List("at", sexp.Float(pos.X), sexp.Float(pos.Y), sexp.Float(float64(angle)))
}

// defaultEffects is the standard 1.27mm font KiCad applies to new text.
func defaultEffects() *sexp.Node {
	return sexp.List("effects",
		sexp.List("font", sexp.List("size", sexp.Float(1.27), sexp.Float(1.27))))
}

func effectsOr(effects *sexp.Node) *sexp.Node {
	if effects != nil {
		return effects
	}
	return defaultEffects()
}

func yesNo(v bool) *sexp.Node {
	if v {
		return sexp.Sym("yes")
	}
	return sexp.Sym("no")
}

func uuidNode(id UUID) *sexp.Node {
	return sexp.List("uuid", sexp.Str(string(id)))
}

func symbolNode(sym Symbol) *sexp.Node {
	node := sexp.List("symbol",
		sexp.List("lib_id", sexp.Str(sym.LibID)),
		atNode(sym.Position, sym.Angle),
	)
	if sym.Mirror != "" {
		node.Append(sexp.List("mirror", sexp.Sym(sym.Mirror)))
	}
	node.Append(
		sexp.List("unit", sexp.Int(sym.Unit)),
		sexp.List("in_bom", yesNo(sym.InBom)),
		sexp.List("on_board", yesNo(sym.OnBoard)),
		uuidNode(sym.UUID),
	)
	for _, prop := range sym.Properties {
		node.Append(propertyNode(prop))
	}
	for _, pin := range sym.Pins {
		pinNode := sexp.List("pin", sexp.Str(pin.Number))
		if pin.UUID != "" {
			pinNode.Append(uuidNode(pin.UUID))
		}
		node.Append(pinNode)
	}
	return node
}

func propertyNode(prop Property) *sexp.Node {
	return sexp.List("property",
		sexp.Str(prop.Key),
		sexp.Str(prop.Value),
		atNode(prop.Position, prop.Angle),
		effectsOr(prop.Effects),
	)
}

func labelNode(l Label) *sexp.Node {
	return sexp.List("label",
		sexp.Str(l.Text),
		atNode(l.Position, l.Angle),
		effectsOr(l.Effects),
		uuidNode(l.UUID),
	)
}

func globalLabelNode(l GlobalLabel) *sexp.Node {
	return sexp.List("global_label",
		sexp.Str(l.Text),
		sexp.List("shape", sexp.Sym(shapeOr(l.Shape))),
		atNode(l.Position, l.Angle),
		effectsOr(l.Effects),
		uuidNode(l.UUID),
	)
}

func hierLabelNode(l HierLabel) *sexp.Node {
	return sexp.List("hierarchical_label",
		sexp.Str(l.Text),
		sexp.List("shape", sexp.Sym(shapeOr(l.Shape))),
		atNode(l.Position, l.Angle),
		effectsOr(l.Effects),
		uuidNode(l.UUID),
	)
}

func sheetNode(sheet Sheet) *sexp.Node {
	node := sexp.List("sheet",
		atNode(sheet.Position, 0),
		sexp.List("size", sexp.Float(sheet.Size.Width), sexp.Float(sheet.Size.Height)),
		uuidNode(sheet.UUID),
		sexp.List("property", sexp.Str("Sheetname"), sexp.Str(sheet.Name),
			atNode(sheet.Position, 0), defaultEffects()),
		sexp.List("property", sexp.Str("Sheetfile"), sexp.Str(sheet.FileName),
			atNode(Position{X: sheet.Position.X, Y: sheet.Position.Y + sheet.Size.Height}, 0), defaultEffects()),
	)
	for _, pin := range sheet.Pins {
		pinNode := sexp.List("pin",
			sexp.Str(pin.Name),
			sexp.Sym(shapeOr(pin.Shape)),
			atNode(pin.Position, pin.Angle),
			effectsOr(pin.Effects),
			uuidNode(pin.UUID),
		)
		node.Append(pinNode)
	}
	return node
}

func shapeOr(shape string) string {
	if shape == "" {
		return "passive"
	}
	return shape
}

func textNode(t Text) *sexp.Node {
	return sexp.List("text",
		sexp.Str(t.Text),
		atNode(t.Position, t.Angle),
		effectsOr(t.Effects),
		uuidNode(t.UUID),
	)
}

func wireNode(w Wire) *sexp.Node {
	pts := sexp.List("pts")
	for _, p := range w.Points {
		pts.Append(sexp.List("xy", sexp.Float(p.X), sexp.Float(p.Y)))
	}
	return sexp.List("wire",
		pts,
		sexp.List("stroke", sexp.List("width", sexp.Int(0)), sexp.List("type", sexp.Sym("default"))),
		uuidNode(w.UUID),
	)
}

func junctionNode(j Junction) *sexp.Node {
	return sexp.List("junction",
		atNode(j.Position, 0),
		sexp.List("diameter", sexp.Int(0)),
		uuidNode(j.UUID),
	)
}

func noConnectNode(nc NoConnect) *sexp.Node {
	return sexp.List("no_connect",
		atNode(nc.Position, 0),
		uuidNode(nc.UUID),
	)
}
