package main

import (
	"errors"
	"fmt"
	"io"

	"rpal/interpreter-go/pkg/ast"
	"rpal/interpreter-go/pkg/control"
	"rpal/interpreter-go/pkg/driver"
	"rpal/interpreter-go/pkg/interpreter"
	"rpal/interpreter-go/pkg/standardize"
)

const (
	headerStandardize = "Error occurred while standardizing ast:"
	headerMachine     = "Error occurred while evaluating cse:"
	headerRuntime     = "Runtime error:"
)

type runConfig struct {
	dumpAST     bool
	dumpST      bool
	dumpCS      bool
	trace       bool
	printResult bool
}

func (c runConfig) withManifest(m *driver.Manifest) runConfig {
	if m != nil {
		c.trace = c.trace || m.Evaluation.Trace
		c.printResult = c.printResult || m.Evaluation.PrintResult
	}
	return c
}

func (c runConfig) withSettings(s driver.Settings) runConfig {
	c.trace = c.trace || s.Trace
	return c
}

// executeTree standardizes and evaluates tree, writing program output to
// stdout and diagnostics to stderr. It returns the process exit code.
func executeTree(tree *ast.Node, cfg runConfig, stdout, stderr io.Writer) int {
	if cfg.dumpAST {
		fmt.Fprint(stdout, tree.Format())
	}
	if err := standardize.Standardize(tree); err != nil {
		reportError(stderr, err)
		return 1
	}
	if cfg.dumpST {
		fmt.Fprint(stdout, tree.Format())
	}

	program, err := control.Generate(tree)
	if err != nil {
		reportError(stderr, &interpreter.MachineError{Msg: "generate control structures", Err: err})
		return 1
	}
	if cfg.dumpCS {
		fmt.Fprint(stdout, program.Format())
	}

	opts := interpreter.Options{Output: stdout}
	if cfg.trace {
		opts.Trace = stderr
	}
	result, err := interpreter.NewMachine(program, opts).Run()
	if err != nil {
		reportError(stderr, err)
		return 1
	}
	if cfg.printResult {
		fmt.Fprintln(stdout, interpreter.Render(result))
	}
	return 0
}

func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s\n%v\n", errorHeader(err), err)
}

func errorHeader(err error) string {
	var stdErr *standardize.Error
	var rtErr *interpreter.RuntimeError
	switch {
	case errors.As(err, &stdErr):
		return headerStandardize
	case errors.As(err, &rtErr):
		return headerRuntime
	default:
		return headerMachine
	}
}
