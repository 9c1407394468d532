package runtime

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the element category held on the control and value stacks.
type Kind int

const (
	KindIdentifier Kind = iota
	KindInteger
	KindString
	KindTrue
	KindFalse
	KindNil
	KindDummy
	KindYStar
	KindGamma
	KindBeta
	KindOperator
	KindBuiltin
	KindConcPartial
	KindDelta
	KindTau
	KindEnvMarker
	KindLambda
	KindEta
	KindTuple
)

func (k Kind) String() string {
	switch k {
	case KindIdentifier:
		return "id"
	case KindInteger:
		return "int"
	case KindString:
		return "str"
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindNil:
		return "nil"
	case KindDummy:
		return "dummy"
	case KindYStar:
		return "yStar"
	case KindGamma:
		return "gamma"
	case KindBeta:
		return "beta"
	case KindOperator:
		return "operator"
	case KindBuiltin:
		return "builtin"
	case KindConcPartial:
		return "conc_partial"
	case KindDelta:
		return "delta"
	case KindTau:
		return "tau"
	case KindEnvMarker:
		return "env"
	case KindLambda:
		return "lambda"
	case KindEta:
		return "eta"
	case KindTuple:
		return "tuple"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Element is the shared behaviour of everything the machine manipulates.
// Elements are immutable once built.
type Element interface {
	Kind() Kind
	String() string
}

//-----------------------------------------------------------------------------
// Atoms
//-----------------------------------------------------------------------------

// Value is an atom: a literal, a name, an operator label or a built-in.
type Value struct {
	K       Kind
	Payload string
}

func (v Value) Kind() Kind { return v.K }

func (v Value) String() string {
	switch v.K {
	case KindOperator, KindBuiltin:
		return v.Payload
	}
	if v.Payload == "" && v.K != KindString {
		return v.K.String()
	}
	return fmt.Sprintf("%s(%s)", v.K, v.Payload)
}

// Int parses the payload of an integer atom.
func (v Value) Int() (int64, error) {
	if v.K != KindInteger {
		return 0, fmt.Errorf("runtime: %s is not an integer", v)
	}
	n, err := strconv.ParseInt(v.Payload, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("runtime: integer payload %q: %w", v.Payload, err)
	}
	return n, nil
}

func Identifier(name string) Value { return Value{K: KindIdentifier, Payload: name} }
func Int(n int64) Value            { return Value{K: KindInteger, Payload: strconv.FormatInt(n, 10)} }
func IntText(text string) Value    { return Value{K: KindInteger, Payload: text} }
func Str(s string) Value           { return Value{K: KindString, Payload: s} }
func Nil() Value                   { return Value{K: KindNil} }
func Dummy() Value                 { return Value{K: KindDummy} }
func YStar() Value                 { return Value{K: KindYStar} }
func Gamma() Value                 { return Value{K: KindGamma} }
func Beta() Value                  { return Value{K: KindBeta} }
func Operator(label string) Value  { return Value{K: KindOperator, Payload: label} }
func Builtin(name string) Value    { return Value{K: KindBuiltin, Payload: name} }
func ConcPartial(s string) Value   { return Value{K: KindConcPartial, Payload: s} }

func Bool(b bool) Value {
	if b {
		return Value{K: KindTrue}
	}
	return Value{K: KindFalse}
}

// IsTruthValue reports whether e is true or false.
func IsTruthValue(e Element) bool {
	k := e.Kind()
	return k == KindTrue || k == KindFalse
}

//-----------------------------------------------------------------------------
// Structural markers
//-----------------------------------------------------------------------------

// Delta refers to a control structure by index.
type Delta struct {
	Index int
}

func (d Delta) Kind() Kind     { return KindDelta }
func (d Delta) String() string { return fmt.Sprintf("delta(%d)", d.Index) }

// Tau collects Arity values into a tuple.
type Tau struct {
	Arity int
}

func (t Tau) Kind() Kind     { return KindTau }
func (t Tau) String() string { return fmt.Sprintf("tau(%d)", t.Arity) }

// EnvMarker delimits the lifetime of an environment on both stacks.
type EnvMarker struct {
	Index int
}

func (m EnvMarker) Kind() Kind     { return KindEnvMarker }
func (m EnvMarker) String() string { return fmt.Sprintf("e(%d)", m.Index) }

//-----------------------------------------------------------------------------
// Closures and tuples
//-----------------------------------------------------------------------------

// Unbound marks a lambda that has not captured an environment yet.
const Unbound = -1

// Lambda is a closure over the control structure Body. More than one
// parameter name means the closure binds the components of a tuple.
type Lambda struct {
	Body   int
	Params []string
	Env    int
}

func (l Lambda) Kind() Kind { return KindLambda }

func (l Lambda) String() string {
	if l.Env == Unbound {
		return fmt.Sprintf("lambda(%d, %s)", l.Body, l.ParamList())
	}
	return fmt.Sprintf("lambda(%d, %s, %d)", l.Body, l.ParamList(), l.Env)
}

// ParamList joins the parameter names with commas.
func (l Lambda) ParamList() string {
	return strings.Join(l.Params, ",")
}

// BindsTuple reports whether applying the closure destructures a tuple.
func (l Lambda) BindsTuple() bool {
	return len(l.Params) > 1
}

// Capture returns a copy of l closed over env.
func (l Lambda) Capture(env int) Lambda {
	l.Env = env
	return l
}

// Eta is the recursive closure built when Y* is applied to a lambda.
type Eta struct {
	Lambda Lambda
}

func (e Eta) Kind() Kind { return KindEta }

func (e Eta) String() string {
	return fmt.Sprintf("eta(%d, %s, %d)", e.Lambda.Body, e.Lambda.ParamList(), e.Lambda.Env)
}

type Tuple struct {
	Elements []Element
}

func (t Tuple) Kind() Kind { return KindTuple }

func (t Tuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, el := range t.Elements {
		parts[i] = el.String()
	}
	return "tuple(" + strings.Join(parts, ", ") + ")"
}

// Len is the tuple order.
func (t Tuple) Len() int {
	return len(t.Elements)
}

// Append returns a new tuple with el added at the end.
func (t Tuple) Append(el Element) Tuple {
	out := make([]Element, len(t.Elements), len(t.Elements)+1)
	copy(out, t.Elements)
	return Tuple{Elements: append(out, el)}
}

// Equal compares elements structurally: atoms by kind and payload (integers
// by numeric value), tuples
// element by element, closures by body, parameters and environment.
func Equal(a, b Element) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Value:
		y, ok := b.(Value)
		if !ok || x.K != y.K {
			return false
		}
		if x.K == KindInteger && x.Payload != y.Payload {
			m, errX := x.Int()
			n, errY := y.Int()
			return errX == nil && errY == nil && m == n
		}
		return x.Payload == y.Payload
	case Tuple:
		y, ok := b.(Tuple)
		if !ok || len(x.Elements) != len(y.Elements) {
			return false
		}
		for i := range x.Elements {
			if !Equal(x.Elements[i], y.Elements[i]) {
				return false
			}
		}
		return true
	case Lambda:
		y, ok := b.(Lambda)
		return ok && lambdaEqual(x, y)
	case Eta:
		y, ok := b.(Eta)
		return ok && lambdaEqual(x.Lambda, y.Lambda)
	default:
		return a == b
	}
}

func lambdaEqual(a, b Lambda) bool {
	if a.Body != b.Body || a.Env != b.Env || len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	return true
}
