package ast

import "testing"

func TestReshapeReplacesChildrenAndClearsValue(t *testing.T) {
	x, e := ID("x"), Int("3")
	n := Leaf(NodeIdentifier, "stale")
	n.Append(x)
	n.Reshape(NodeEquals, x, e)
	if n.Value != "" {
		t.Fatalf("expected value cleared, got %q", n.Value)
	}
	if n.Len() != 2 || n.Child(0) != x || n.Child(1) != e {
		t.Fatalf("unexpected children %s", n)
	}
	if x.Parent() != n || e.Parent() != n {
		t.Fatalf("children not adopted")
	}

	old := n.Child(1)
	n.Reshape(NodeGamma, x)
	if old.Parent() != nil {
		t.Fatalf("dropped child kept its parent link")
	}
}

func TestCopyIsDeep(t *testing.T) {
	orig := N(NodeLambda, ID("x"), N(NodePlus, ID("x"), Int("1")))
	dup := orig.Copy()
	if !orig.Equal(dup) {
		t.Fatalf("copy differs from original")
	}
	dup.Child(1).Child(1).Value = "2"
	if orig.Equal(dup) {
		t.Fatalf("mutating the copy changed the original")
	}
	if dup.Parent() != nil {
		t.Fatalf("copy should be detached")
	}
}

func TestEqual(t *testing.T) {
	a := N(NodeTau, Int("1"), Str("a"))
	if !a.Equal(N(NodeTau, Int("1"), Str("a"))) {
		t.Fatalf("expected equal trees")
	}
	if a.Equal(N(NodeTau, Int("1"))) {
		t.Fatalf("different arity should not be equal")
	}
	if a.Equal(N(NodeTau, Int("1"), ID("a"))) {
		t.Fatalf("different leaf kinds should not be equal")
	}
	var none *Node
	if !none.Equal(nil) || a.Equal(nil) {
		t.Fatalf("nil comparison mismatch")
	}
}

func TestTypeClassification(t *testing.T) {
	if !NodePlus.IsBinaryOperator() || NodeNeg.IsBinaryOperator() {
		t.Fatalf("binary classification mismatch")
	}
	if !NodeNot.IsUnaryOperator() || NodeAug.IsUnaryOperator() {
		t.Fatalf("unary classification mismatch")
	}
	if !NodeYStar.IsLeaf() || NodeGamma.IsLeaf() {
		t.Fatalf("leaf classification mismatch")
	}
}

func TestFormat(t *testing.T) {
	tree := N(NodeLet,
		N(NodeEquals, ID("s"), Str("it's\n")),
		N(NodeGamma, ID("Print"), Bool(true)),
	)
	want := "let\n" +
		".=\n" +
		"..<ID:s>\n" +
		"..<STR:'it\\'s\\n'>\n" +
		".gamma\n" +
		"..<ID:Print>\n" +
		"..<true>\n"
	if got := tree.Format(); got != want {
		t.Fatalf("unexpected format:\n%s\nwant:\n%s", got, want)
	}
	if tree.String() != want[:len(want)-1] {
		t.Fatalf("String should trim the final newline")
	}
	if N(NodeYStar).Label() != "<Y*>" || Empty().Label() != "<()>" {
		t.Fatalf("unexpected leaf labels")
	}
}

func TestWalkStopsDescending(t *testing.T) {
	tree := N(NodeGamma, N(NodeLambda, ID("x"), ID("x")), Int("1"))
	var seen []NodeType
	tree.Walk(func(n *Node) bool {
		seen = append(seen, n.Type)
		return !n.Is(NodeLambda)
	})
	want := []NodeType{NodeGamma, NodeLambda, NodeInteger}
	if len(seen) != len(want) {
		t.Fatalf("unexpected walk %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("unexpected walk %v", seen)
		}
	}
}
