package circuit

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The .circuit format is a small declarative description of circuits:
//
//	circuit main {
//		component R1 { type "Device:R" value "10k" footprint "R_0603" }
//		net N1 { R1.1 U1.3 }
//		use filter F1 {
//			IN = N1
//			OUT = N2
//		}
//	}
//
//	circuit filter {
//		port IN
//		port OUT
//		component C? { type "Device:C" value "100n" }
//		net IN { C?.1 }
//	}
//
// Nets referenced in a binding but never declared are created implicitly.
// The root is the circuit named "main", or the first declaration when no
// "main" exists.

var circuitLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// String literals with escape sequences
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},

	// Identifiers: references (R1, R?), net names (N1, VCC_3V3+), pins
	{Name: "Ident", Pattern: `[a-zA-Z0-9_][a-zA-Z0-9_?+\-]*`},

	{Name: "Dot", Pattern: `\.`},
	{Name: "Equals", Pattern: `=`},
	{Name: "LBrace", Pattern: `{`},
	{Name: "RBrace", Pattern: `}`},
})

type dslFile struct {
	Circuits []*dslCircuit `parser:"@@*"`
}

type dslCircuit struct {
	Name  string     `parser:"'circuit' @Ident"`
	Stmts []*dslStmt `parser:"'{' @@* '}'"`
}

type dslStmt struct {
	Port      *dslPort      `parser:"@@"`
	Component *dslComponent `parser:"| @@"`
	Net       *dslNet       `parser:"| @@"`
	Use       *dslUse       `parser:"| @@"`
}

type dslPort struct {
	Name string `parser:"'port' @Ident"`
}

type dslComponent struct {
	Ref    string      `parser:"'component' @Ident"`
	Fields []*dslField `parser:"'{' @@* '}'"`
}

type dslField struct {
	Key   string `parser:"@('type' | 'value' | 'footprint' | 'uuid')"`
	Value string `parser:"@String"`
}

type dslNet struct {
	Name string       `parser:"'net' @Ident"`
	Pins []*dslPinRef `parser:"'{' @@* '}'"`
}

type dslPinRef struct {
	Comp string `parser:"@Ident"`
	Pin  string `parser:"'.' @Ident"`
}

type dslUse struct {
	Def   string     `parser:"'use' @Ident"`
	Name  string     `parser:"@Ident"`
	Binds []*dslBind `parser:"'{' @@* '}'"`
}

type dslBind struct {
	Port string `parser:"@Ident"`
	Net  string `parser:"'=' @Ident"`
}

var dslParser = participle.MustBuild[dslFile](
	participle.Lexer(circuitLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
)

// ParseFile reads a .circuit file and returns the root circuit.
func ParseFile(filename string) (*Circuit, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open circuit file: %w", err)
	}
	defer f.Close()

	return Parse(filename, f)
}

// Parse reads a circuit description and links it into a circuit tree.
func Parse(filename string, r io.Reader) (*Circuit, error) {
	ast, err := dslParser.Parse(filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse circuit description: %w", err)
	}
	if len(ast.Circuits) == 0 {
		return nil, fmt.Errorf("no circuit declarations found")
	}

	circuits := map[string]*Circuit{}
	for _, decl := range ast.Circuits {
		if _, exists := circuits[decl.Name]; exists {
			return nil, fmt.Errorf("duplicate circuit %q", decl.Name)
		}
		circuits[decl.Name] = New(decl.Name)
	}

	for _, decl := range ast.Circuits {
		if err := link(circuits[decl.Name], decl, circuits); err != nil {
			return nil, err
		}
	}

	root := circuits["main"]
	if root == nil {
		root = circuits[ast.Circuits[0].Name]
	}

	if err := root.Validate(); err != nil {
		return nil, err
	}

	return root, nil
}

func link(c *Circuit, decl *dslCircuit, circuits map[string]*Circuit) error {
	comps := map[string]*Component{}

	// First pass: ports and components, so nets can reference them.
	for _, stmt := range decl.Stmts {
		switch {
		case stmt.Port != nil:
			if c.Net(stmt.Port.Name) != nil {
				return fmt.Errorf("circuit %q: duplicate port %q", c.Name, stmt.Port.Name)
			}
			c.AddPort(stmt.Port.Name)

		case stmt.Component != nil:
			comp := c.AddComponent(stmt.Component.Ref, "", "", "")
			for _, f := range stmt.Component.Fields {
				switch f.Key {
				case "type":
					comp.Type = f.Value
				case "value":
					comp.Value = f.Value
				case "footprint":
					comp.Footprint = f.Value
				case "uuid":
					comp.Token = f.Value
				}
			}
			if comp.Type == "" {
				return fmt.Errorf("circuit %q: component %q has no type", c.Name, comp.Ref)
			}
			if _, dup := comps[comp.Ref]; dup && !comp.Placeholder() {
				return fmt.Errorf("circuit %q: duplicate component %q", c.Name, comp.Ref)
			}
			comps[comp.Ref] = comp
		}
	}

	// Second pass: nets and instantiations.
	for _, stmt := range decl.Stmts {
		switch {
		case stmt.Net != nil:
			net := c.Net(stmt.Net.Name)
			if net == nil {
				net = c.AddNet(stmt.Net.Name)
			}
			for _, pin := range stmt.Net.Pins {
				comp := comps[pin.Comp]
				if comp == nil {
					return fmt.Errorf("circuit %q: net %q references unknown component %q",
						c.Name, stmt.Net.Name, pin.Comp)
				}
				net.Connect(comp, pin.Pin)
			}

		case stmt.Use != nil:
			child := circuits[stmt.Use.Def]
			if child == nil {
				return fmt.Errorf("circuit %q: instance %q uses unknown circuit %q",
					c.Name, stmt.Use.Name, stmt.Use.Def)
			}
			bindings := map[string]*Net{}
			for _, bind := range stmt.Use.Binds {
				net := c.Net(bind.Net)
				if net == nil {
					net = c.AddNet(bind.Net)
				}
				bindings[bind.Port] = net
			}
			c.AddInstance(stmt.Use.Name, child, bindings)
		}
	}

	return nil
}
