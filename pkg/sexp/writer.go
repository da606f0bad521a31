package sexp

import (
	"io"
	"strings"
)

// Write serializes a node tree in the nested, tab-indented layout KiCad
// uses. A list is kept on one line when none of its children are lists;
// otherwise every child list starts a new indented line.
func Write(w io.Writer, n *Node) error {
	var b strings.Builder
	writeNode(&b, n, 0)
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

// Format returns the serialized form of the node.
func (n *Node) Format() string {
	var b strings.Builder
	writeNode(&b, n, 0)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node, depth int) {
	if !n.IsList {
		writeAtom(b, n)
		return
	}

	if flat(n) {
		b.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeAtom(b, c)
		}
		b.WriteByte(')')
		return
	}

	b.WriteByte('(')
	for i, c := range n.Children {
		if !c.IsList {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeAtom(b, c)
			continue
		}
		b.WriteByte('\n')
		indent(b, depth+1)
		writeNode(b, c, depth+1)
	}
	b.WriteByte('\n')
	indent(b, depth)
	b.WriteByte(')')
}

// flat reports whether a list has only atom children
func flat(n *Node) bool {
	for _, c := range n.Children {
		if c.IsList {
			return false
		}
	}
	return true
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteByte('\t')
	}
}

func writeAtom(b *strings.Builder, n *Node) {
	if !n.Quoted {
		b.WriteString(n.Value)
		return
	}
	b.WriteByte('"')
	for _, r := range n.Value {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}
