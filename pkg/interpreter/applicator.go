package interpreter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"rpal/interpreter-go/pkg/runtime"
)

var binaryOperators = map[string]struct{}{
	"+": {}, "-": {}, "*": {}, "/": {}, "**": {},
	"or": {}, "&": {}, "aug": {},
	"eq": {}, "ne": {},
	"gr": {}, ">": {}, "ls": {}, "<": {}, "ge": {}, ">=": {}, "le": {}, "<=": {},
}

var unaryOperators = map[string]struct{}{
	"neg": {}, "not": {},
}

// Applicator performs the primitive operations of the language: binary and
// unary operators, built-in functions and tuple indexing.
type Applicator struct {
	out io.Writer
}

// NewApplicator returns an applicator that prints to out (discarded when nil).
func NewApplicator(out io.Writer) *Applicator {
	if out == nil {
		out = io.Discard
	}
	return &Applicator{out: out}
}

// IsBinary reports whether op is a binary operator label.
func (a *Applicator) IsBinary(op string) bool {
	_, ok := binaryOperators[op]
	return ok
}

// IsUnary reports whether op is a unary operator label.
func (a *Applicator) IsUnary(op string) bool {
	_, ok := unaryOperators[op]
	return ok
}

// Apply applies rator to rand. Built-ins, unary operators, partial Conc
// applications and tuples can be applied.
func (a *Applicator) Apply(rator, rand runtime.Element) (runtime.Element, error) {
	switch r := rator.(type) {
	case runtime.Tuple:
		return extract(r, rand)
	case runtime.Value:
		switch r.K {
		case runtime.KindBuiltin, runtime.KindOperator:
			return a.ApplyUnary(r.Payload, rand)
		case runtime.KindConcPartial:
			s, ok := rand.(runtime.Value)
			if !ok || s.K != runtime.KindString {
				return nil, runtimeError("Conc", "expected a string to concatenate", runtime.Str(r.Payload), rand)
			}
			return runtime.Str(r.Payload + s.Payload), nil
		}
	}
	return nil, machineErrorf("cannot apply %s to %s", rator, rand)
}

// ApplyUnary runs a built-in function or unary operator.
func (a *Applicator) ApplyUnary(name string, rand runtime.Element) (runtime.Element, error) {
	switch name {
	case "Print":
		if _, err := fmt.Fprintln(a.out, Render(rand)); err != nil {
			return nil, &RuntimeError{Op: name, Reason: "write output", Err: err}
		}
		return runtime.Dummy(), nil
	case "Isstring":
		return runtime.Bool(rand.Kind() == runtime.KindString), nil
	case "Isinteger":
		return runtime.Bool(rand.Kind() == runtime.KindInteger), nil
	case "Istruthvalue":
		return runtime.Bool(runtime.IsTruthValue(rand)), nil
	case "Istuple":
		return runtime.Bool(rand.Kind() == runtime.KindTuple || rand.Kind() == runtime.KindNil), nil
	case "Isfunction":
		return runtime.Bool(rand.Kind() == runtime.KindLambda || rand.Kind() == runtime.KindEta), nil
	case "Null":
		if t, ok := rand.(runtime.Tuple); ok {
			return runtime.Bool(t.Len() == 0), nil
		}
		return runtime.Bool(rand.Kind() == runtime.KindNil), nil
	case "Order":
		switch t := rand.(type) {
		case runtime.Tuple:
			return runtime.Int(int64(t.Len())), nil
		case runtime.Value:
			if t.K == runtime.KindNil {
				return runtime.Int(0), nil
			}
		}
		return nil, runtimeError(name, "expected a tuple", rand)
	case "Stem", "Stern":
		s, ok := stringOperand(rand)
		if !ok {
			return nil, runtimeError(name, "expected a string", rand)
		}
		runes := []rune(s)
		if len(runes) == 0 {
			return runtime.Str(""), nil
		}
		if name == "Stem" {
			return runtime.Str(string(runes[:1])), nil
		}
		return runtime.Str(string(runes[1:])), nil
	case "ItoS":
		n, err := intOperand(rand)
		if err != nil {
			return nil, runtimeError(name, "expected an integer", rand)
		}
		return runtime.Str(strconv.FormatInt(n, 10)), nil
	case "Conc":
		s, ok := stringOperand(rand)
		if !ok {
			return nil, runtimeError(name, "expected a string", rand)
		}
		return runtime.ConcPartial(s), nil
	case "neg":
		n, err := intOperand(rand)
		if err != nil {
			return nil, runtimeError(name, "expected an integer", rand)
		}
		return runtime.Int(-n), nil
	case "not":
		if !runtime.IsTruthValue(rand) {
			return nil, runtimeError(name, "expected a truth value", rand)
		}
		return runtime.Bool(rand.Kind() == runtime.KindFalse), nil
	default:
		return nil, machineErrorf("unknown function %s", name)
	}
}

// ApplyBinary evaluates left op right.
func (a *Applicator) ApplyBinary(op string, left, right runtime.Element) (runtime.Element, error) {
	switch op {
	case "+", "-", "*", "/", "**":
		x, errX := intOperand(left)
		y, errY := intOperand(right)
		if errX != nil || errY != nil {
			return nil, runtimeError(op, "expected integer operands", left, right)
		}
		return arithmetic(op, x, y, left, right)
	case "or", "&":
		if !runtime.IsTruthValue(left) || !runtime.IsTruthValue(right) {
			return nil, runtimeError(op, "expected truth values", left, right)
		}
		x, y := left.Kind() == runtime.KindTrue, right.Kind() == runtime.KindTrue
		if op == "or" {
			return runtime.Bool(x || y), nil
		}
		return runtime.Bool(x && y), nil
	case "eq":
		return runtime.Bool(runtime.Equal(left, right)), nil
	case "ne":
		return runtime.Bool(!runtime.Equal(left, right)), nil
	case "gr", ">", "ls", "<", "ge", ">=", "le", "<=":
		c, err := compare(op, left, right)
		if err != nil {
			return nil, err
		}
		switch op {
		case "gr", ">":
			return runtime.Bool(c > 0), nil
		case "ls", "<":
			return runtime.Bool(c < 0), nil
		case "ge", ">=":
			return runtime.Bool(c >= 0), nil
		default:
			return runtime.Bool(c <= 0), nil
		}
	case "aug":
		switch t := left.(type) {
		case runtime.Tuple:
			return t.Append(right), nil
		case runtime.Value:
			if t.K == runtime.KindNil {
				return runtime.Tuple{}.Append(right), nil
			}
		}
		return nil, runtimeError(op, "left operand must be a tuple", left, right)
	default:
		return nil, machineErrorf("unknown operator %s", op)
	}
}

func arithmetic(op string, x, y int64, left, right runtime.Element) (runtime.Element, error) {
	switch op {
	case "+":
		return runtime.Int(x + y), nil
	case "-":
		return runtime.Int(x - y), nil
	case "*":
		return runtime.Int(x * y), nil
	case "/":
		if y == 0 {
			return nil, runtimeError(op, "division by zero", left, right)
		}
		return runtime.Int(x / y), nil
	default:
		if x == 0 && y < 0 {
			return nil, runtimeError(op, "division by zero", left, right)
		}
		return runtime.Int(power(x, y)), nil
	}
}

// power truncates negative exponents toward zero.
func power(base, exp int64) int64 {
	if exp < 0 {
		switch base {
		case 1:
			return 1
		case -1:
			if exp%2 == 0 {
				return 1
			}
			return -1
		default:
			return 0
		}
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func compare(op string, left, right runtime.Element) (int, error) {
	if x, err := intOperand(left); err == nil {
		if y, err := intOperand(right); err == nil {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if x, ok := stringOperand(left); ok {
		if y, ok := stringOperand(right); ok {
			return strings.Compare(x, y), nil
		}
	}
	return 0, runtimeError(op, "incompatible types for comparison", left, right)
}

// extract indexes a tuple from 1.
func extract(t runtime.Tuple, rand runtime.Element) (runtime.Element, error) {
	i, err := intOperand(rand)
	if err != nil {
		return nil, runtimeError("tuple", "index must be an integer", t, rand)
	}
	if i < 1 || i > int64(t.Len()) {
		return nil, runtimeError("tuple", fmt.Sprintf("index %d out of range 1..%d", i, t.Len()), t, rand)
	}
	return t.Elements[i-1], nil
}

func intOperand(e runtime.Element) (int64, error) {
	v, ok := e.(runtime.Value)
	if !ok {
		return 0, fmt.Errorf("%s is not an integer", e)
	}
	return v.Int()
}

func stringOperand(e runtime.Element) (string, bool) {
	v, ok := e.(runtime.Value)
	if !ok || v.K != runtime.KindString {
		return "", false
	}
	return v.Payload, true
}

// Render is the Print form of an element.
func Render(e runtime.Element) string {
	switch v := e.(type) {
	case runtime.Tuple:
		parts := make([]string, len(v.Elements))
		for i, el := range v.Elements {
			parts[i] = Render(el)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case runtime.Lambda:
		return fmt.Sprintf("[lambda closure: %s: %d]", v.ParamList(), v.Body)
	case runtime.Eta:
		return fmt.Sprintf("[lambda closure: %s: %d]", v.Lambda.ParamList(), v.Lambda.Body)
	case runtime.Value:
		switch v.K {
		case runtime.KindString, runtime.KindInteger, runtime.KindIdentifier,
			runtime.KindBuiltin, runtime.KindOperator:
			return v.Payload
		default:
			return v.K.String()
		}
	default:
		return e.String()
	}
}
