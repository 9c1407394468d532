package interpreter

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emirpasic/gods/stacks/arraystack"

	"rpal/interpreter-go/pkg/control"
	"rpal/interpreter-go/pkg/runtime"
)

// Machine is a control/stack/environment machine executing one program.
// A machine is single use; create a new one per evaluation.
type Machine struct {
	program *control.Program
	control *arraystack.Stack
	stack   *arraystack.Stack
	pool    *runtime.Pool
	scopes  []int
	apply   *Applicator
	trace   io.Writer
	steps   int
}

// NewMachine prepares a machine with e(0) delta(0) on the control stack and
// e(0) on the value stack.
func NewMachine(program *control.Program, opts Options) *Machine {
	m := &Machine{
		program: program,
		control: arraystack.New(),
		stack:   arraystack.New(),
		pool:    runtime.NewPool(),
		scopes:  []int{runtime.PrimitiveEnv},
		apply:   NewApplicator(opts.Output),
		trace:   opts.Trace,
	}
	m.control.Push(runtime.EnvMarker{Index: runtime.PrimitiveEnv})
	m.control.Push(runtime.Delta{Index: 0})
	m.stack.Push(runtime.EnvMarker{Index: runtime.PrimitiveEnv})
	return m
}

// Steps is the number of transitions taken so far.
func (m *Machine) Steps() int {
	return m.steps
}

// Run executes until the control stack is empty and returns the single
// value left on the stack.
func (m *Machine) Run() (runtime.Element, error) {
	if m.trace != nil {
		fmt.Fprintf(m.trace, "%4d %s\n", m.steps, m)
	}
	for !m.control.Empty() {
		raw, _ := m.control.Pop()
		if err := m.step(raw.(runtime.Element)); err != nil {
			return nil, err
		}
		m.steps++
		if m.trace != nil {
			fmt.Fprintf(m.trace, "%4d %s\n", m.steps, m)
		}
	}
	if m.stack.Size() != 1 {
		return nil, machineErrorf("expected one result on the stack, found %d", m.stack.Size())
	}
	result, _ := m.stack.Pop()
	return result.(runtime.Element), nil
}

func (m *Machine) step(el runtime.Element) error {
	switch e := el.(type) {
	case runtime.Delta:
		return m.expand(e.Index)
	case runtime.Lambda:
		m.stack.Push(e.Capture(m.current()))
		return nil
	case runtime.EnvMarker:
		return m.exitEnvironment(e)
	case runtime.Tau:
		return m.buildTuple(e.Arity)
	case runtime.Value:
		switch e.K {
		case runtime.KindGamma:
			return m.gamma()
		case runtime.KindBeta:
			return m.branch()
		case runtime.KindIdentifier:
			return m.lookup(e.Payload)
		case runtime.KindOperator:
			return m.operator(e.Payload)
		}
	}
	m.stack.Push(el)
	return nil
}

func (m *Machine) current() int {
	if len(m.scopes) == 0 {
		return runtime.PrimitiveEnv
	}
	return m.scopes[len(m.scopes)-1]
}

func (m *Machine) pop() (runtime.Element, error) {
	v, ok := m.stack.Pop()
	if !ok {
		return nil, machineErrorf("value stack underflow")
	}
	return v.(runtime.Element), nil
}

func (m *Machine) popControl() (runtime.Element, error) {
	v, ok := m.control.Pop()
	if !ok {
		return nil, machineErrorf("control stack underflow")
	}
	return v.(runtime.Element), nil
}

func (m *Machine) expand(index int) error {
	structure, err := m.program.Structure(index)
	if err != nil {
		return &MachineError{Msg: "expand delta", Err: err}
	}
	for _, el := range structure {
		m.control.Push(el)
	}
	return nil
}

// rule 1
func (m *Machine) lookup(name string) error {
	v, err := m.pool.Lookup(m.current(), name)
	if err != nil {
		return &RuntimeError{Op: "lookup", Operands: []runtime.Element{runtime.Identifier(name)}, Reason: "name is not bound", Err: err}
	}
	m.stack.Push(v)
	return nil
}

func (m *Machine) gamma() error {
	rator, err := m.pop()
	if err != nil {
		return err
	}
	rand, err := m.pop()
	if err != nil {
		return err
	}
	switch r := rator.(type) {
	case runtime.Lambda:
		if r.BindsTuple() {
			return m.bindTuple(r, rand)
		}
		return m.enter(r, func(env *runtime.Environment) error {
			return env.Define(r.Params[0], rand)
		})
	case runtime.Eta:
		// rule 13: gamma gamma on control, lambda eta R on the stack.
		m.stack.Push(rand)
		m.stack.Push(r)
		m.stack.Push(r.Lambda)
		m.control.Push(runtime.Gamma())
		m.control.Push(runtime.Gamma())
		return nil
	case runtime.Value:
		if r.K == runtime.KindYStar {
			l, ok := rand.(runtime.Lambda)
			if !ok {
				return machineErrorf("Y* must be applied to a lambda, found %s", rand)
			}
			m.stack.Push(runtime.Eta{Lambda: l})
			return nil
		}
	}
	// rule 3
	result, err := m.apply.Apply(rator, rand)
	if err != nil {
		return err
	}
	m.stack.Push(result)
	return nil
}

// rule 11: one binding per tuple component.
func (m *Machine) bindTuple(l runtime.Lambda, rand runtime.Element) error {
	t, ok := rand.(runtime.Tuple)
	if !ok {
		return runtimeError("lambda", fmt.Sprintf("(%s) must be applied to a tuple", l.ParamList()), l, rand)
	}
	if t.Len() != len(l.Params) {
		return runtimeError("lambda", fmt.Sprintf("(%s) expects %d components, found %d", l.ParamList(), len(l.Params), t.Len()), l, rand)
	}
	return m.enter(l, func(env *runtime.Environment) error {
		for i, name := range l.Params {
			v, err := Component(t, i)
			if err != nil {
				return err
			}
			if err := env.Define(name, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Component selects element i of t counting from zero (rule 10).
func Component(t runtime.Tuple, i int) (runtime.Element, error) {
	if i < 0 || i >= t.Len() {
		return nil, runtimeError("tuple", fmt.Sprintf("component %d out of range 0..%d", i, t.Len()-1), t)
	}
	return t.Elements[i], nil
}

// enter opens a child scope of the closure environment (rule 4), populates
// it and schedules the body.
func (m *Machine) enter(l runtime.Lambda, bind func(*runtime.Environment) error) error {
	index, env, err := m.pool.Extend(l.Env)
	if err != nil {
		return &MachineError{Msg: fmt.Sprintf("apply %s", l), Err: err}
	}
	if err := bind(env); err != nil {
		var rtErr *RuntimeError
		if errors.As(err, &rtErr) {
			return err
		}
		return &RuntimeError{Op: "bind", Operands: []runtime.Element{l}, Reason: "cannot bind parameters", Err: err}
	}
	marker := runtime.EnvMarker{Index: index}
	m.control.Push(marker)
	m.control.Push(runtime.Delta{Index: l.Body})
	m.stack.Push(marker)
	m.scopes = append(m.scopes, index)
	return nil
}

// rule 5
func (m *Machine) exitEnvironment(marker runtime.EnvMarker) error {
	value, err := m.pop()
	if err != nil {
		return err
	}
	below, err := m.pop()
	if err != nil {
		return err
	}
	if !runtime.Equal(below, marker) {
		return machineErrorf("environment marker mismatch: control has %s, stack has %s", marker, below)
	}
	if len(m.scopes) == 0 || m.current() != marker.Index {
		return machineErrorf("environment marker mismatch: leaving %s while e(%d) is current", marker, m.current())
	}
	m.scopes = m.scopes[:len(m.scopes)-1]
	m.stack.Push(value)
	return nil
}

// rules 6 and 7
func (m *Machine) operator(op string) error {
	switch {
	case m.apply.IsBinary(op):
		left, err := m.pop()
		if err != nil {
			return err
		}
		right, err := m.pop()
		if err != nil {
			return err
		}
		result, err := m.apply.ApplyBinary(op, left, right)
		if err != nil {
			return err
		}
		m.stack.Push(result)
	case m.apply.IsUnary(op):
		rand, err := m.pop()
		if err != nil {
			return err
		}
		result, err := m.apply.ApplyUnary(op, rand)
		if err != nil {
			return err
		}
		m.stack.Push(result)
	default:
		return machineErrorf("unknown operator %s", op)
	}
	return nil
}

// rule 8
func (m *Machine) branch() error {
	alt, err := m.popControl()
	if err != nil {
		return err
	}
	then, err := m.popControl()
	if err != nil {
		return err
	}
	if alt.Kind() != runtime.KindDelta || then.Kind() != runtime.KindDelta {
		return machineErrorf("beta expects two deltas, found %s and %s", then, alt)
	}
	cond, err := m.pop()
	if err != nil {
		return err
	}
	switch cond.Kind() {
	case runtime.KindTrue:
		m.control.Push(then)
	case runtime.KindFalse:
		m.control.Push(alt)
	default:
		return runtimeError("->", "condition must be a truth value", cond)
	}
	return nil
}

// rule 9: the value on top becomes the first component.
func (m *Machine) buildTuple(arity int) error {
	elements := make([]runtime.Element, arity)
	for i := 0; i < arity; i++ {
		v, err := m.pop()
		if err != nil {
			return err
		}
		elements[i] = v
	}
	m.stack.Push(runtime.Tuple{Elements: elements})
	return nil
}

// String renders the control stack, the value stack (both bottom to top)
// and the current environment chain.
func (m *Machine) String() string {
	return fmt.Sprintf("C[%s] S[%s] E(%s)", bottomUp(m.control), bottomUp(m.stack), m.pool.Chain(m.current()))
}

func bottomUp(s *arraystack.Stack) string {
	values := s.Values()
	parts := make([]string, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		parts = append(parts, values[i].(runtime.Element).String())
	}
	return strings.Join(parts, " ")
}
