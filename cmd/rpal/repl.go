package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"rpal/interpreter-go/pkg/driver"
	"rpal/interpreter-go/pkg/parser"
)

const (
	replPrompt       = "rpal> "
	replContinuation = "....> "
	replHistoryFile  = "repl_history"
)

// replSession accumulates tree lines until a blank line, then evaluates
// the buffered tree.
type replSession struct {
	cfg     runConfig
	stdout  io.Writer
	stderr  io.Writer
	pending strings.Builder
}

func (s *replSession) prompt() string {
	if s.pending.Len() == 0 {
		return replPrompt
	}
	return replContinuation
}

// feed consumes one input line. It returns true when the line completed a
// tree and the tree was evaluated.
func (s *replSession) feed(line string) bool {
	if strings.TrimSpace(line) != "" {
		s.pending.WriteString(line)
		s.pending.WriteByte('\n')
		return false
	}
	return s.flush()
}

func (s *replSession) flush() bool {
	if s.pending.Len() == 0 {
		return false
	}
	src := s.pending.String()
	s.pending.Reset()
	tree, err := parser.ParseTreeString(src)
	if err != nil {
		fmt.Fprintf(s.stderr, "parse error: %v\n", err)
		return true
	}
	executeTree(tree, s.cfg, s.stdout, s.stderr)
	return true
}

func runRepl(args []string) int {
	cfg, rest, err := parseRunFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(rest) > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(rest, " "))
		return 1
	}
	settings := driver.LoadSettings()
	// Results are always echoed interactively.
	cfg.printResult = true
	session := &replSession{cfg: cfg.withSettings(settings), stdout: os.Stdout, stderr: os.Stderr}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(settings.Home, replHistoryFile)
	if f, err := os.Open(historyPath); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	fmt.Fprintln(os.Stdout, "Enter a tree in dotted notation; a blank line evaluates it. Ctrl-D exits.")
	for {
		input, err := line.Prompt(session.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				session.flush()
				break
			}
			fmt.Fprintf(os.Stderr, "repl: %v\n", err)
			return 1
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		session.feed(input)
	}

	if err := os.MkdirAll(settings.Home, 0o755); err == nil {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}
	return 0
}
