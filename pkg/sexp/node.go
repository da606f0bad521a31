// Package sexp provides the S-expression document model used by the
// schematic codec: a parser, a printer, and navigation helpers.
// Unlike general-purpose sexp libraries, nodes remember whether an atom was
// quoted in the source so a document round-trips with correct quoting.
package sexp

import (
	"strconv"
)

// Node is an S-expression node: either an atom (symbol or quoted string)
// or a list of child nodes.
type Node struct {
	// Atom value, unescaped. Only meaningful when IsList is false.
	Value string

	// Quoted records whether the atom was written as a quoted string.
	Quoted bool

	// IsList marks list nodes. A list's children are in file order.
	IsList   bool
	Children []*Node
}

// Sym returns a bare symbol atom.
func Sym(v string) *Node {
	return &Node{Value: v}
}

// Str returns a quoted string atom.
func Str(v string) *Node {
	return &Node{Value: v, Quoted: true}
}

// Int returns a numeric atom from an integer.
func Int(v int) *Node {
	return &Node{Value: strconv.Itoa(v)}
}

// Float returns a numeric atom. Trailing zeros are not emitted, matching
// the way KiCad writes coordinates (100, 2.54, 0.127).
func Float(v float64) *Node {
	return &Node{Value: strconv.FormatFloat(v, 'f', -1, 64)}
}

// List returns a list node whose first child is the symbol key.
func List(key string, children ...*Node) *Node {
	n := &Node{IsList: true, Children: make([]*Node, 0, len(children)+1)}
	n.Children = append(n.Children, Sym(key))
	n.Children = append(n.Children, children...)
	return n
}

// Name returns the first symbol of a list (the node type), or the atom
// value for a leaf.
func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	if !n.IsList {
		return n.Value
	}
	if len(n.Children) == 0 || n.Children[0].IsList {
		return ""
	}
	return n.Children[0].Value
}

// Append adds children to a list node and returns it for chaining.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Find returns the first child list whose name matches key.
func (n *Node) Find(key string) (*Node, bool) {
	if n == nil || !n.IsList {
		return nil, false
	}
	for _, c := range n.Children {
		if c.IsList && c.Name() == key {
			return c, true
		}
	}
	return nil, false
}

// FindAll returns every child list whose name matches key.
func (n *Node) FindAll(key string) []*Node {
	if n == nil || !n.IsList {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.IsList && c.Name() == key {
			out = append(out, c)
		}
	}
	return out
}

// Arg returns the child atom at index (0 is the key symbol for lists).
func (n *Node) Arg(index int) (*Node, bool) {
	if n == nil || !n.IsList || index < 0 || index >= len(n.Children) {
		return nil, false
	}
	c := n.Children[index]
	if c.IsList {
		return nil, false
	}
	return c, true
}

// Str returns the atom value at index, quoted or not.
func (n *Node) Str(index int) (string, bool) {
	c, ok := n.Arg(index)
	if !ok {
		return "", false
	}
	return c.Value, true
}

// Int returns the integer value at index.
func (n *Node) Int(index int) (int, bool) {
	s, ok := n.Str(index)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Float returns the float value at index.
func (n *Node) Float(index int) (float64, bool) {
	s, ok := n.Str(index)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Value: n.Value, Quoted: n.Quoted, IsList: n.IsList}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}
