package control

import (
	"errors"
	"testing"

	"rpal/interpreter-go/pkg/ast"
	"rpal/interpreter-go/pkg/runtime"
)

func expectStructure(t *testing.T, got Structure, want ...runtime.Element) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d elements, got %d: %s", len(want), len(got), got)
	}
	for i := range want {
		if !runtime.Equal(got[i], want[i]) {
			t.Fatalf("element %d: expected %s, got %s (structure %s)", i, want[i], got[i], got)
		}
	}
}

func lambda(body int, params ...string) runtime.Lambda {
	return runtime.Lambda{Body: body, Params: params, Env: runtime.Unbound}
}

func TestGenerateLetBinding(t *testing.T) {
	// let x = 3 in x + 4, standardized.
	tree := ast.N(ast.NodeGamma,
		ast.N(ast.NodeLambda, ast.ID("x"), ast.N(ast.NodePlus, ast.ID("x"), ast.Int("4"))),
		ast.Int("3"),
	)
	prog, err := Generate(tree)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if prog.Len() != 2 {
		t.Fatalf("expected 2 structures, got %d", prog.Len())
	}
	expectStructure(t, prog.Structures[0], runtime.Gamma(), lambda(1, "x"), runtime.IntText("3"))
	expectStructure(t, prog.Structures[1], runtime.Operator("+"), runtime.Identifier("x"), runtime.IntText("4"))
}

func TestGenerateConditional(t *testing.T) {
	tree := ast.N(ast.NodeConditional,
		ast.N(ast.NodeGr, ast.ID("x"), ast.Int("0")),
		ast.N(ast.NodeLambda, ast.ID("y"), ast.ID("y")),
		ast.Str("neg"),
	)
	prog, err := Generate(tree)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	// then branch takes index 1, its lambda body index 2, else branch index 3.
	if prog.Len() != 4 {
		t.Fatalf("expected 4 structures, got %d\n%s", prog.Len(), prog.Format())
	}
	expectStructure(t, prog.Structures[0],
		runtime.Delta{Index: 1}, runtime.Delta{Index: 3}, runtime.Beta(),
		runtime.Operator("gr"), runtime.Identifier("x"), runtime.IntText("0"))
	expectStructure(t, prog.Structures[1], lambda(2, "y"))
	expectStructure(t, prog.Structures[2], runtime.Identifier("y"))
	expectStructure(t, prog.Structures[3], runtime.Str("neg"))
}

func TestGenerateTauAndTupleParameters(t *testing.T) {
	tree := ast.N(ast.NodeGamma,
		ast.N(ast.NodeLambda, ast.N(ast.NodeComma, ast.ID("a"), ast.ID("b")), ast.ID("a")),
		ast.N(ast.NodeTau, ast.Int("1"), ast.Bool(true), ast.Nil()),
	)
	prog, err := Generate(tree)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	expectStructure(t, prog.Structures[0],
		runtime.Gamma(), lambda(1, "a", "b"), runtime.Tau{Arity: 3},
		runtime.IntText("1"), runtime.Bool(true), runtime.Nil())
	expectStructure(t, prog.Structures[1], runtime.Identifier("a"))
}

func TestGenerateIsDeterministic(t *testing.T) {
	tree := ast.N(ast.NodeGamma,
		ast.N(ast.NodeLambda, ast.ID("f"),
			ast.N(ast.NodeGamma, ast.ID("f"), ast.Int("1"))),
		ast.N(ast.NodeLambda, ast.ID("n"),
			ast.N(ast.NodeConditional, ast.N(ast.NodeEq, ast.ID("n"), ast.Int("0")), ast.Int("1"), ast.ID("n"))),
	)
	first, err := Generate(tree)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	second, err := Generate(tree.Copy())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if first.Format() != second.Format() {
		t.Fatalf("generation not deterministic:\n%s\nvs\n%s", first.Format(), second.Format())
	}
}

func TestGenerateRejectsUnstandardizedLabels(t *testing.T) {
	tree := ast.N(ast.NodeLet,
		ast.N(ast.NodeEquals, ast.ID("x"), ast.Int("3")),
		ast.ID("x"),
	)
	_, err := Generate(tree)
	var genErr *Error
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *control.Error, got %v", err)
	}
	if genErr.Label != ast.NodeLet {
		t.Fatalf("expected error on let, got %s", genErr.Label)
	}
}

func TestGenerateRejectsBadParameter(t *testing.T) {
	tree := ast.N(ast.NodeLambda, ast.Int("1"), ast.ID("x"))
	if _, err := Generate(tree); err == nil {
		t.Fatalf("expected error for integer parameter")
	}
}

func TestProgramStructureBounds(t *testing.T) {
	prog, err := Generate(ast.Int("1"))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := prog.Structure(1); err == nil {
		t.Fatalf("expected out of range error")
	}
	s, err := prog.Structure(0)
	if err != nil || s.String() != "int(1)" {
		t.Fatalf("unexpected structure %q (err %v)", s, err)
	}
}
