package sexp

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Parse reads every top-level expression from r.
func Parse(r io.Reader) ([]*Node, error) {
	p := &parser{in: bufio.NewReader(r)}
	var nodes []*Node
	for {
		node, err := p.next()
		if err == io.EOF {
			return nodes, nil
		}
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
}

// ParseString parses S-expressions from a string.
func ParseString(s string) ([]*Node, error) {
	return Parse(strings.NewReader(s))
}

// ParseOne parses exactly one top-level S-expression.
func ParseOne(r io.Reader) (*Node, error) {
	nodes, err := Parse(r)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("expected one top-level expression, got %d", len(nodes))
	}
	return nodes[0], nil
}

// parser is a single-pass recursive-descent reader. Tokenization is
// byte-oriented: the format is ASCII outside quoted strings, and
// string bodies pass through as raw bytes, so multi-byte runes never
// need decoding.
type parser struct {
	in *bufio.Reader
}

const (
	tokOpen = iota
	tokClose
	tokAtom
)

type token struct {
	kind   int
	text   string
	quoted bool
}

// next returns the next top-level expression, io.EOF at end of input.
func (p *parser) next() (*Node, error) {
	tok, err := p.scan()
	if err != nil {
		return nil, err
	}
	return p.expr(tok)
}

func (p *parser) expr(tok token) (*Node, error) {
	switch tok.kind {
	case tokAtom:
		return &Node{Value: tok.text, Quoted: tok.quoted}, nil
	case tokClose:
		return nil, fmt.Errorf("unexpected ')'")
	}

	node := &Node{IsList: true}
	for {
		tok, err := p.scan()
		if err == io.EOF {
			return nil, fmt.Errorf("unexpected end of input in list")
		}
		if err != nil {
			return nil, err
		}
		if tok.kind == tokClose {
			return node, nil
		}
		child, err := p.expr(tok)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
}

// scan returns the next token, skipping whitespace and # comments.
func (p *parser) scan() (token, error) {
	b, err := p.skipBlank()
	if err != nil {
		return token{}, err
	}
	switch b {
	case '(':
		return token{kind: tokOpen}, nil
	case ')':
		return token{kind: tokClose}, nil
	case '"':
		text, err := p.scanString()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokAtom, text: text, quoted: true}, nil
	}
	text, err := p.scanBare(b)
	if err != nil {
		return token{}, err
	}
	return token{kind: tokAtom, text: text}, nil
}

// skipBlank consumes whitespace and comments, returning the first byte
// of the next token.
func (p *parser) skipBlank() (byte, error) {
	for {
		b, err := p.in.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\n', '\r':
		case '#':
			if _, err := p.in.ReadString('\n'); err != nil {
				return 0, err
			}
		default:
			return b, nil
		}
	}
}

// scanString consumes a quoted string body, resolving backslash
// escapes. An unknown escape keeps the escaped byte, so files written
// by other tools survive a round-trip.
func (p *parser) scanString() (string, error) {
	var sb strings.Builder
	for {
		b, err := p.in.ReadByte()
		if err != nil {
			return "", fmt.Errorf("unterminated string")
		}
		switch b {
		case '"':
			return sb.String(), nil
		case '\\':
			esc, err := p.in.ReadByte()
			if err != nil {
				return "", fmt.Errorf("unterminated string")
			}
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(esc)
			}
		default:
			sb.WriteByte(b)
		}
	}
}

// scanBare consumes an unquoted atom whose first byte is already read.
func (p *parser) scanBare(first byte) (string, error) {
	var sb strings.Builder
	sb.WriteByte(first)
	for {
		b, err := p.in.ReadByte()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
		switch b {
		case ' ', '\t', '\n', '\r', '(', ')', '"':
			p.in.UnreadByte()
			return sb.String(), nil
		default:
			sb.WriteByte(b)
		}
	}
}
