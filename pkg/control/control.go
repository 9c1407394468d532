// Package control linearizes a standardized tree into indexed control
// structures for the CSE machine.
package control

import (
	"fmt"
	"strings"

	"rpal/interpreter-go/pkg/ast"
	"rpal/interpreter-go/pkg/runtime"
)

// Structure is an ordered element sequence. Expanding a delta pushes the
// elements in order, so the last element is evaluated first.
type Structure []runtime.Element

func (s Structure) String() string {
	parts := make([]string, len(s))
	for i, el := range s {
		parts[i] = el.String()
	}
	return strings.Join(parts, " ")
}

// Program holds every control structure; index 0 is the top level.
type Program struct {
	Structures []Structure
}

// Len is the number of control structures.
func (p *Program) Len() int {
	return len(p.Structures)
}

// Structure returns the structure referenced by delta index i.
func (p *Program) Structure(i int) (Structure, error) {
	if i < 0 || i >= len(p.Structures) {
		return nil, &Error{Label: "delta", Msg: fmt.Sprintf("no control structure %d (program has %d)", i, len(p.Structures))}
	}
	return p.Structures[i], nil
}

// Format lists the structures one per line.
func (p *Program) Format() string {
	var b strings.Builder
	for i, s := range p.Structures {
		fmt.Fprintf(&b, "delta(%d): %s\n", i, s)
	}
	return b.String()
}

// Error reports a tree node the generator cannot translate.
type Error struct {
	Label ast.NodeType
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("control: %s: %s", e.Label, e.Msg)
}

type generator struct {
	structures []Structure
}

// Generate walks root in preorder and returns its control structures.
func Generate(root *ast.Node) (*Program, error) {
	if root == nil {
		return nil, &Error{Label: "tree", Msg: "nil root"}
	}
	g := &generator{structures: []Structure{nil}}
	if err := g.emit(root, 0); err != nil {
		return nil, err
	}
	return &Program{Structures: g.structures}, nil
}

func (g *generator) open() int {
	g.structures = append(g.structures, nil)
	return len(g.structures) - 1
}

func (g *generator) push(target int, el runtime.Element) {
	g.structures[target] = append(g.structures[target], el)
}

func (g *generator) emit(n *ast.Node, target int) error {
	switch {
	case n.Is(ast.NodeLambda):
		return g.emitLambda(n, target)
	case n.Is(ast.NodeConditional):
		return g.emitConditional(n, target)
	case n.Is(ast.NodeTau):
		g.push(target, runtime.Tau{Arity: n.Len()})
		return g.emitChildren(n, target)
	}

	el, err := element(n)
	if err != nil {
		return err
	}
	g.push(target, el)
	return g.emitChildren(n, target)
}

func (g *generator) emitChildren(n *ast.Node, target int) error {
	for _, child := range n.Children() {
		if err := g.emit(child, target); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) emitLambda(n *ast.Node, target int) error {
	if n.Len() != 2 {
		return &Error{Label: n.Type, Msg: fmt.Sprintf("expected 2 children, found %d", n.Len())}
	}
	params, err := parameters(n.Child(0))
	if err != nil {
		return err
	}
	body := g.open()
	g.push(target, runtime.Lambda{Body: body, Params: params, Env: runtime.Unbound})
	return g.emit(n.Child(1), body)
}

// -> emits delta(then) delta(else) beta followed by the condition, so the
// condition is evaluated before beta picks a branch.
func (g *generator) emitConditional(n *ast.Node, target int) error {
	if n.Len() != 3 {
		return &Error{Label: n.Type, Msg: fmt.Sprintf("expected 3 children, found %d", n.Len())}
	}
	cond, then, alt := n.Child(0), n.Child(1), n.Child(2)

	thenIndex := g.open()
	g.push(target, runtime.Delta{Index: thenIndex})
	if err := g.emit(then, thenIndex); err != nil {
		return err
	}

	elseIndex := g.open()
	g.push(target, runtime.Delta{Index: elseIndex})
	if err := g.emit(alt, elseIndex); err != nil {
		return err
	}

	g.push(target, runtime.Beta())
	return g.emit(cond, target)
}

func parameters(n *ast.Node) ([]string, error) {
	switch n.Type {
	case ast.NodeIdentifier:
		return []string{n.Value}, nil
	case ast.NodeEmpty:
		return []string{string(ast.NodeEmpty)}, nil
	case ast.NodeComma:
		if n.Len() == 0 {
			return nil, &Error{Label: n.Type, Msg: "empty parameter list"}
		}
		names := make([]string, 0, n.Len())
		for _, child := range n.Children() {
			if !child.Is(ast.NodeIdentifier) {
				return nil, &Error{Label: n.Type, Msg: fmt.Sprintf("parameter must be an identifier, found %s", child.Label())}
			}
			names = append(names, child.Value)
		}
		return names, nil
	default:
		return nil, &Error{Label: ast.NodeLambda, Msg: fmt.Sprintf("invalid parameter %s", n.Label())}
	}
}

func element(n *ast.Node) (runtime.Element, error) {
	switch {
	case n.Is(ast.NodeGamma):
		if n.Len() != 2 {
			return nil, &Error{Label: n.Type, Msg: fmt.Sprintf("expected 2 children, found %d", n.Len())}
		}
		return runtime.Gamma(), nil
	case n.Is(ast.NodeYStar):
		return runtime.YStar(), nil
	case n.Is(ast.NodeIdentifier):
		return runtime.Identifier(n.Value), nil
	case n.Is(ast.NodeInteger):
		return runtime.IntText(n.Value), nil
	case n.Is(ast.NodeString):
		return runtime.Str(n.Value), nil
	case n.Is(ast.NodeTrue):
		return runtime.Bool(true), nil
	case n.Is(ast.NodeFalse):
		return runtime.Bool(false), nil
	case n.Is(ast.NodeNil), n.Is(ast.NodeEmpty):
		return runtime.Nil(), nil
	case n.Is(ast.NodeDummy):
		return runtime.Dummy(), nil
	case n.Type.IsBinaryOperator():
		if n.Len() != 2 {
			return nil, &Error{Label: n.Type, Msg: fmt.Sprintf("binary operator expects 2 operands, found %d", n.Len())}
		}
		return runtime.Operator(string(n.Type)), nil
	case n.Type.IsUnaryOperator():
		if n.Len() != 1 {
			return nil, &Error{Label: n.Type, Msg: fmt.Sprintf("unary operator expects 1 operand, found %d", n.Len())}
		}
		return runtime.Operator(string(n.Type)), nil
	default:
		return nil, &Error{Label: n.Type, Msg: "label has no runtime meaning"}
	}
}
