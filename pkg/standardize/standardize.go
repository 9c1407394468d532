// Package standardize rewrites RPAL syntax trees into the primitive form
// consumed by the control-structure generator: only gamma, lambda, tau, ->,
// comma parameter lists, operators and leaves survive.
package standardize

import (
	"fmt"

	"rpal/interpreter-go/pkg/ast"
)

// Error reports a node whose shape does not match its rewrite template.
type Error struct {
	Label    ast.NodeType
	Expected string
}

func (e *Error) Error() string {
	return fmt.Sprintf("standardize: %s node: expected %s", e.Label, e.Expected)
}

type rule func(*ast.Node) error

var rules map[ast.NodeType]rule

func init() {
	rules = map[ast.NodeType]rule{
		ast.NodeLet:          standardizeLet,
		ast.NodeWhere:        standardizeWhere,
		ast.NodeFunctionForm: standardizeFunctionForm,
		ast.NodeAnd:          standardizeAnd,
		ast.NodeRec:          standardizeRec,
		ast.NodeLambda:       standardizeLambda,
		ast.NodeWithin:       standardizeWithin,
		ast.NodeAt:           standardizeAt,
	}
}

// Standardize rewrites node and its subtree in place. Children are handled
// before their parent, so every template sees primitive subtrees.
func Standardize(node *ast.Node) error {
	if node == nil {
		return fmt.Errorf("standardize: nil tree")
	}
	for i := 0; i < node.Len(); i++ {
		if err := Standardize(node.Child(i)); err != nil {
			return err
		}
	}
	if fn, ok := rules[node.Type]; ok {
		return fn(node)
	}
	return nil
}

// IsStandardized reports whether the tree contains no sugared forms.
func IsStandardized(node *ast.Node) bool {
	clean := true
	node.Walk(func(n *ast.Node) bool {
		switch n.Type {
		case ast.NodeLambda:
			if n.Len() != 2 {
				clean = false
			}
		default:
			if _, ok := rules[n.Type]; ok {
				clean = false
			}
		}
		return clean
	})
	return clean
}

//	  let          gamma
//	 /   \         /   \
//	=     P  => lambda  E
//	/ \           /  \
//	X  E          X   P
func standardizeLet(n *ast.Node) error {
	if err := expectChildren(n, 2); err != nil {
		return err
	}
	eq, p := n.Child(0), n.Child(1)
	x, e, err := splitDefinition(n, eq)
	if err != nil {
		return err
	}
	eq.Reshape(ast.NodeLambda, x, p)
	n.Reshape(ast.NodeGamma, eq, e)
	return nil
}

//	where          gamma
//	/   \          /   \
//	P    =   => lambda  E
//	    / \       /  \
//	   X   E      X   P
func standardizeWhere(n *ast.Node) error {
	if err := expectChildren(n, 2); err != nil {
		return err
	}
	p, eq := n.Child(0), n.Child(1)
	x, e, err := splitDefinition(n, eq)
	if err != nil {
		return err
	}
	eq.Reshape(ast.NodeLambda, x, p)
	n.Reshape(ast.NodeGamma, eq, e)
	return nil
}

// function_form(P, V1..Vn, E) => =(P, lambda(V1, ... lambda(Vn, E)))
func standardizeFunctionForm(n *ast.Node) error {
	if err := expectAtLeast(n, 3); err != nil {
		return err
	}
	children := n.Children()
	p, params, e := children[0], children[1:len(children)-1], children[len(children)-1]
	n.Reshape(ast.NodeEquals, p, curry(params, e))
	return nil
}

// and(=(X1,E1) .. =(Xn,En)) => =(,(X1..Xn), tau(E1..En))
func standardizeAnd(n *ast.Node) error {
	if err := expectAtLeast(n, 2); err != nil {
		return err
	}
	names := make([]*ast.Node, 0, n.Len())
	values := make([]*ast.Node, 0, n.Len())
	for _, eq := range n.Children() {
		x, e, err := splitDefinition(n, eq)
		if err != nil {
			return err
		}
		names = append(names, x)
		values = append(values, e)
	}
	n.Reshape(ast.NodeEquals, ast.N(ast.NodeComma, names...), ast.N(ast.NodeTau, values...))
	return nil
}

// rec(=(X,E)) => =(X, gamma(yStar, lambda(X, E)))
func standardizeRec(n *ast.Node) error {
	if err := expectChildren(n, 1); err != nil {
		return err
	}
	x, e, err := splitDefinition(n, n.Child(0))
	if err != nil {
		return err
	}
	fixed := ast.N(ast.NodeGamma, ast.N(ast.NodeYStar), ast.N(ast.NodeLambda, x.Copy(), e))
	n.Reshape(ast.NodeEquals, x, fixed)
	return nil
}

// lambda(V1..Vn, E) => lambda(V1, lambda(V2, ... lambda(Vn, E)))
func standardizeLambda(n *ast.Node) error {
	if err := expectAtLeast(n, 2); err != nil {
		return err
	}
	if n.Len() == 2 {
		return nil
	}
	children := n.Children()
	params, e := children[:len(children)-1], children[len(children)-1]
	n.Reshape(ast.NodeLambda, params[0], curry(params[1:], e))
	return nil
}

// within(=(X1,E1), =(X2,E2)) => =(X2, gamma(lambda(X1, E2), E1))
func standardizeWithin(n *ast.Node) error {
	if err := expectChildren(n, 2); err != nil {
		return err
	}
	x1, e1, err := splitDefinition(n, n.Child(0))
	if err != nil {
		return err
	}
	x2, e2, err := splitDefinition(n, n.Child(1))
	if err != nil {
		return err
	}
	n.Reshape(ast.NodeEquals, x2, ast.N(ast.NodeGamma, ast.N(ast.NodeLambda, x1, e2), e1))
	return nil
}

// @(E1, N, E2) => gamma(gamma(N, E1), E2)
func standardizeAt(n *ast.Node) error {
	if err := expectChildren(n, 3); err != nil {
		return err
	}
	e1, name, e2 := n.Child(0), n.Child(1), n.Child(2)
	n.Reshape(ast.NodeGamma, ast.N(ast.NodeGamma, name, e1), e2)
	return nil
}

// curry nests single-parameter lambdas around body, outermost first.
func curry(params []*ast.Node, body *ast.Node) *ast.Node {
	for i := len(params) - 1; i >= 0; i-- {
		body = ast.N(ast.NodeLambda, params[i], body)
	}
	return body
}

func splitDefinition(owner, eq *ast.Node) (*ast.Node, *ast.Node, error) {
	if !eq.Is(ast.NodeEquals) {
		return nil, nil, &Error{Label: owner.Type, Expected: fmt.Sprintf("an = child, found %s", eq.Type)}
	}
	if eq.Len() != 2 {
		return nil, nil, &Error{Label: owner.Type, Expected: fmt.Sprintf("= child with 2 children, found %d", eq.Len())}
	}
	return eq.Child(0), eq.Child(1), nil
}

func expectChildren(n *ast.Node, count int) error {
	if n.Len() != count {
		return &Error{Label: n.Type, Expected: fmt.Sprintf("%d children, found %d", count, n.Len())}
	}
	return nil
}

func expectAtLeast(n *ast.Node, minimum int) error {
	if n.Len() < minimum {
		return &Error{Label: n.Type, Expected: fmt.Sprintf("at least %d children, found %d", minimum, n.Len())}
	}
	return nil
}
