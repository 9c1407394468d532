package interpreter

import (
	"io"

	"rpal/interpreter-go/pkg/ast"
	"rpal/interpreter-go/pkg/control"
	"rpal/interpreter-go/pkg/runtime"
	"rpal/interpreter-go/pkg/standardize"
)

// Options configures a single evaluation.
type Options struct {
	// Output receives one line per Print call. Nil discards output.
	Output io.Writer
	// Trace, when set, receives the machine state after every transition.
	Trace io.Writer
}

// StandardizeAndEvaluate standardizes tree in place, generates its control
// structures and runs them to completion.
func StandardizeAndEvaluate(tree *ast.Node, opts Options) (runtime.Element, error) {
	if err := standardize.Standardize(tree); err != nil {
		return nil, err
	}
	return Evaluate(tree, opts)
}

// Evaluate runs an already standardized tree.
func Evaluate(tree *ast.Node, opts Options) (runtime.Element, error) {
	program, err := control.Generate(tree)
	if err != nil {
		return nil, &MachineError{Msg: "generate control structures", Err: err}
	}
	return NewMachine(program, opts).Run()
}
