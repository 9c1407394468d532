package parser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rpal/interpreter-go/pkg/ast"
)

// Error reports a malformed line in the tree notation.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parser: line %d: %s", e.Line, e.Msg)
}

type frame struct {
	node  *ast.Node
	depth int
}

// ParseTree reads one tree in the leading-dot notation. The depth of a node
// is the number of dots before its label; leaves are written as <ID:x>,
// <INT:3>, <STR:'s'>, <true>, <false>, <nil>, <dummy>, <()> or <Y*>.
// Reading stops at the second line found at depth zero.
func ParseTree(r io.Reader) (*ast.Node, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		root   *ast.Node
		stack  []frame
		lineNo int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		data := strings.TrimLeft(line, ".")
		depth := len(line) - len(data)
		if data == "" {
			return nil, &Error{Line: lineNo, Msg: "missing node label"}
		}
		if root == nil && depth != 0 {
			return nil, &Error{Line: lineNo, Msg: fmt.Sprintf("root node must be at depth 0, found depth %d", depth)}
		}
		if depth == 0 && root != nil {
			break
		}
		for len(stack) > 0 && stack[len(stack)-1].depth >= depth {
			stack = stack[:len(stack)-1]
		}
		node, err := parseLabel(data)
		if err != nil {
			return nil, &Error{Line: lineNo, Msg: err.Error()}
		}
		if len(stack) == 0 {
			root = node
		} else {
			parent := stack[len(stack)-1]
			if depth != parent.depth+1 {
				return nil, &Error{Line: lineNo, Msg: fmt.Sprintf("depth jumps from %d to %d", parent.depth, depth)}
			}
			if parent.node.Type.IsLeaf() {
				return nil, &Error{Line: lineNo, Msg: fmt.Sprintf("leaf %s cannot have children", parent.node.Label())}
			}
			parent.node.Append(node)
		}
		stack = append(stack, frame{node: node, depth: depth})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parser: read: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("parser: empty tree")
	}
	return root, nil
}

// ParseTreeString is a convenience wrapper around ParseTree.
func ParseTreeString(src string) (*ast.Node, error) {
	return ParseTree(strings.NewReader(src))
}

func parseLabel(data string) (*ast.Node, error) {
	if !strings.HasPrefix(data, "<") || !strings.HasSuffix(data, ">") || len(data) < 2 {
		return ast.N(ast.NodeType(data)), nil
	}
	inner := data[1 : len(data)-1]
	colon := strings.IndexByte(inner, ':')
	if colon < 0 {
		switch label := strings.ToLower(inner); label {
		case "y*", "ystar":
			return ast.N(ast.NodeYStar), nil
		case "":
			return nil, fmt.Errorf("empty leaf %q", data)
		default:
			return ast.N(ast.NodeType(label)), nil
		}
	}

	kind := strings.ToLower(inner[:colon])
	raw := inner[colon+1:]
	switch kind {
	case "id":
		if raw == "" {
			return nil, fmt.Errorf("identifier without a name")
		}
		return ast.ID(raw), nil
	case "int":
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		return ast.Int(raw), nil
	case "str":
		if len(raw) < 2 || raw[0] != '\'' || raw[len(raw)-1] != '\'' {
			return nil, fmt.Errorf("string leaf must be quoted: %q", raw)
		}
		return ast.Str(Unescape(raw[1 : len(raw)-1])), nil
	default:
		return nil, fmt.Errorf("unknown leaf kind %q", kind)
	}
}

// Unescape decodes backslash escapes: \b \f \n \r \t \" \' \\, octal
// \0 through \377, and \uXXXX. Unknown escapes keep the escaped character.
func Unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' {
			b.WriteByte(ch)
			continue
		}
		if i == len(s)-1 {
			b.WriteByte('\\')
			break
		}
		next := s[i+1]
		if next >= '0' && next <= '7' {
			end := i + 2
			for end < len(s) && end < i+4 && s[end] >= '0' && s[end] <= '7' {
				end++
			}
			code, _ := strconv.ParseUint(s[i+1:end], 8, 16)
			b.WriteRune(rune(code))
			i = end - 1
			continue
		}
		switch next {
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'u':
			if i+5 < len(s) {
				if code, err := strconv.ParseUint(s[i+2:i+6], 16, 32); err == nil {
					b.WriteRune(rune(code))
					i += 5
					continue
				}
			}
			b.WriteByte('u')
		default:
			b.WriteByte(next)
		}
		i++
	}
	return b.String()
}
