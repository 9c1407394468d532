package ast

type NodeType string

const (
	NodeLet          NodeType = "let"
	NodeWhere        NodeType = "where"
	NodeFunctionForm NodeType = "function_form"
	NodeAnd          NodeType = "and"
	NodeRec          NodeType = "rec"
	NodeLambda       NodeType = "lambda"
	NodeWithin       NodeType = "within"
	NodeAt           NodeType = "@"
	NodeEquals       NodeType = "="
	NodeComma        NodeType = ","
	NodeGamma        NodeType = "gamma"
	NodeTau          NodeType = "tau"
	NodeConditional  NodeType = "->"
	NodeYStar        NodeType = "yStar"

	NodeIdentifier NodeType = "id"
	NodeInteger    NodeType = "int"
	NodeString     NodeType = "str"
	NodeTrue       NodeType = "true"
	NodeFalse      NodeType = "false"
	NodeNil        NodeType = "nil"
	NodeDummy      NodeType = "dummy"
	NodeEmpty      NodeType = "()"

	NodeAug    NodeType = "aug"
	NodeOr     NodeType = "or"
	NodeAmp    NodeType = "&"
	NodeNot    NodeType = "not"
	NodeGr     NodeType = "gr"
	NodeGe     NodeType = "ge"
	NodeLs     NodeType = "ls"
	NodeLe     NodeType = "le"
	NodeEq     NodeType = "eq"
	NodeNe     NodeType = "ne"
	NodeGt     NodeType = ">"
	NodeLt     NodeType = "<"
	NodeGtEq   NodeType = ">="
	NodeLtEq   NodeType = "<="
	NodePlus   NodeType = "+"
	NodeMinus  NodeType = "-"
	NodeNeg    NodeType = "neg"
	NodeTimes  NodeType = "*"
	NodeDivide NodeType = "/"
	NodePower  NodeType = "**"
)

var binaryOperators = map[NodeType]struct{}{
	NodeAug: {}, NodeOr: {}, NodeAmp: {},
	NodeGr: {}, NodeGe: {}, NodeLs: {}, NodeLe: {}, NodeEq: {}, NodeNe: {},
	NodeGt: {}, NodeLt: {}, NodeGtEq: {}, NodeLtEq: {},
	NodePlus: {}, NodeMinus: {}, NodeTimes: {}, NodeDivide: {}, NodePower: {},
}

// IsLeaf reports whether nodes of this type never have children.
func (t NodeType) IsLeaf() bool {
	switch t {
	case NodeIdentifier, NodeInteger, NodeString,
		NodeTrue, NodeFalse, NodeNil, NodeDummy, NodeEmpty, NodeYStar:
		return true
	default:
		return false
	}
}

// HasValue reports whether nodes of this type carry a value payload.
func (t NodeType) HasValue() bool {
	return t == NodeIdentifier || t == NodeInteger || t == NodeString
}

// IsBinaryOperator reports whether t is an infix operator label.
func (t NodeType) IsBinaryOperator() bool {
	_, ok := binaryOperators[t]
	return ok
}

// IsUnaryOperator reports whether t is a prefix operator label.
func (t NodeType) IsUnaryOperator() bool {
	return t == NodeNeg || t == NodeNot
}

// Node is one vertex of an RPAL syntax tree. Children are owned by their
// parent; the parent pointer is only a navigation link.
type Node struct {
	Type  NodeType
	Value string

	children []*Node
	parent   *Node
}

// N builds an interior node and adopts the given children.
func N(kind NodeType, children ...*Node) *Node {
	n := &Node{Type: kind}
	n.adopt(children)
	return n
}

// Leaf builds a valued leaf (id, int, str).
func Leaf(kind NodeType, value string) *Node {
	return &Node{Type: kind, Value: value}
}

func ID(name string) *Node  { return Leaf(NodeIdentifier, name) }
func Int(text string) *Node { return Leaf(NodeInteger, text) }
func Str(text string) *Node { return Leaf(NodeString, text) }
func Nil() *Node            { return N(NodeNil) }
func Dummy() *Node          { return N(NodeDummy) }
func Empty() *Node          { return N(NodeEmpty) }

func Bool(value bool) *Node {
	if value {
		return N(NodeTrue)
	}
	return N(NodeFalse)
}

// Parent exposes the enclosing node (nil for the root).
func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) Len() int {
	return len(n.children)
}

func (n *Node) Child(i int) *Node {
	return n.children[i]
}

// Children returns a copy of the child slice.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

func (n *Node) Is(kind NodeType) bool {
	return n.Type == kind
}

// Append adds a child at the end.
func (n *Node) Append(child *Node) {
	n.adopt([]*Node{child})
}

// Reshape relabels n and replaces its children wholesale. The value is
// dropped unless the new type is a valued leaf.
func (n *Node) Reshape(kind NodeType, children ...*Node) {
	for _, child := range n.children {
		if child.parent == n {
			child.parent = nil
		}
	}
	n.children = nil
	n.Type = kind
	if !kind.HasValue() {
		n.Value = ""
	}
	n.adopt(children)
}

func (n *Node) adopt(children []*Node) {
	for _, child := range children {
		if child == nil {
			continue
		}
		child.parent = n
		n.children = append(n.children, child)
	}
}

// Copy returns a deep structural copy detached from any parent.
func (n *Node) Copy() *Node {
	out := &Node{Type: n.Type, Value: n.Value}
	for _, child := range n.children {
		out.Append(child.Copy())
	}
	return out
}

// Equal compares two trees structurally.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Type != other.Type || n.Value != other.Value || len(n.children) != len(other.children) {
		return false
	}
	for i := range n.children {
		if !n.children[i].Equal(other.children[i]) {
			return false
		}
	}
	return true
}

// Walk visits n and its descendants in preorder until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.children {
		child.Walk(fn)
	}
}
