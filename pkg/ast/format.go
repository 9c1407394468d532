package ast

import (
	"strings"
)

// Format renders the tree in the leading-dot notation read by the parser
// package, one node per line.
func (n *Node) Format() string {
	var b strings.Builder
	n.format(&b, 0)
	return b.String()
}

func (n *Node) String() string {
	return strings.TrimSuffix(n.Format(), "\n")
}

func (n *Node) format(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat(".", depth))
	b.WriteString(n.Label())
	b.WriteByte('\n')
	for _, child := range n.children {
		child.format(b, depth+1)
	}
}

// Label is the display form of the node's type and value.
func (n *Node) Label() string {
	switch n.Type {
	case NodeIdentifier:
		return "<ID:" + n.Value + ">"
	case NodeInteger:
		return "<INT:" + n.Value + ">"
	case NodeString:
		return "<STR:'" + EscapeString(n.Value) + "'>"
	case NodeYStar:
		return "<Y*>"
	case NodeTrue, NodeFalse, NodeNil, NodeDummy, NodeEmpty:
		return "<" + string(n.Type) + ">"
	default:
		return string(n.Type)
	}
}

// EscapeString reverses the escape decoding applied to string leaves.
func EscapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\'':
			b.WriteString(`\'`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
