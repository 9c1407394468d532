package interpreter

import (
	"fmt"
	"strings"

	"rpal/interpreter-go/pkg/runtime"
)

// MachineError reports an inconsistency in the machine state: a mismatched
// environment marker, a malformed branch, an element that cannot be applied
// or a control program that could not be generated.
type MachineError struct {
	Msg string
	Err error
}

func (e *MachineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cse: %s: %v", e.Msg, e.Err)
	}
	return "cse: " + e.Msg
}

func (e *MachineError) Unwrap() error {
	return e.Err
}

func machineErrorf(format string, args ...any) *MachineError {
	return &MachineError{Msg: fmt.Sprintf(format, args...)}
}

// RuntimeError reports a failure of the program being evaluated: bad operand
// types, tuple index out of range, division by zero, unbound names.
type RuntimeError struct {
	Op       string
	Operands []runtime.Element
	Reason   string
	Err      error
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if len(e.Operands) > 0 {
		parts := make([]string, len(e.Operands))
		for i, operand := range e.Operands {
			parts[i] = operand.String()
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func runtimeError(op string, reason string, operands ...runtime.Element) *RuntimeError {
	return &RuntimeError{Op: op, Operands: operands, Reason: reason}
}
