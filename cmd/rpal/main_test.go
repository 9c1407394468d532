package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"rpal/interpreter-go/pkg/driver"
	"rpal/interpreter-go/pkg/interpreter"
	"rpal/interpreter-go/pkg/standardize"
)

const letTree = `let
.=
..<ID:x>
..<INT:3>
.+
..<ID:x>
..<INT:4>
`

func TestRunPrintsResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "let.ast")
	writeFile(t, path, letTree)

	code, stdout, stderr := captureCLI(t, []string{"--print-result", path})
	if code != 0 {
		t.Fatalf("rpal exited %d (stderr: %q)", code, stderr)
	}
	if stdout != "7\n" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
}

func TestRunWritesPrintOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "print.ast")
	writeFile(t, path, "gamma\n.<ID:Print>\n.<STR:'hi'>\n")

	code, stdout, stderr := captureCLI(t, []string{"run", path})
	if code != 0 {
		t.Fatalf("rpal run exited %d (stderr: %q)", code, stderr)
	}
	if stdout != "hi\n" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
}

func TestRunDumpsStandardizedTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "let.ast")
	writeFile(t, path, letTree)

	code, stdout, _ := captureCLI(t, []string{"run", "--st", path})
	if code != 0 {
		t.Fatalf("rpal run exited %d", code)
	}
	want := "gamma\n.lambda\n..<ID:x>\n..+\n...<ID:x>\n...<INT:4>\n.<INT:3>\n"
	if stdout != want {
		t.Fatalf("unexpected standardized dump:\n%s\nwant:\n%s", stdout, want)
	}
}

func TestRunDumpsControlStructures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "let.ast")
	writeFile(t, path, letTree)

	code, stdout, _ := captureCLI(t, []string{"--cs", path})
	if code != 0 {
		t.Fatalf("rpal exited %d", code)
	}
	if !strings.HasPrefix(stdout, "delta(0): ") || !strings.Contains(stdout, "delta(1): ") {
		t.Fatalf("unexpected control structure dump %q", stdout)
	}
}

func TestRunReportsErrorHeaders(t *testing.T) {
	cases := []struct {
		name   string
		tree   string
		header string
	}{
		{"unbound name", "<ID:y>\n", headerRuntime},
		{"malformed let", "let\n.<ID:x>\n.<INT:1>\n", headerStandardize},
		{"apply integer", "gamma\n.<INT:1>\n.<INT:2>\n", headerMachine},
	}
	for _, tc := range cases {
		path := filepath.Join(t.TempDir(), "bad.ast")
		writeFile(t, path, tc.tree)
		code, _, stderr := captureCLI(t, []string{path})
		if code != 1 {
			t.Fatalf("%s: expected exit 1, got %d", tc.name, code)
		}
		if !strings.HasPrefix(stderr, tc.header+"\n") {
			t.Fatalf("%s: expected header %q, got %q", tc.name, tc.header, stderr)
		}
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	code, _, stderr := captureCLI(t, []string{"--bogus", "x.ast"})
	if code != 1 || !strings.Contains(stderr, "unknown flag --bogus") {
		t.Fatalf("expected unknown flag failure, got %d %q", code, stderr)
	}
}

func TestRunUsesManifestEvaluationSettings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, driver.ManifestFile), "name: demo\nevaluation:\n  print_result: true\n")
	path := filepath.Join(dir, "src", "let.ast")
	writeFile(t, path, letTree)

	code, stdout, stderr := captureCLI(t, []string{path})
	if code != 0 {
		t.Fatalf("rpal exited %d (stderr: %q)", code, stderr)
	}
	if stdout != "7\n" {
		t.Fatalf("expected manifest to enable result printing, got %q", stdout)
	}
}

func TestRunRejectsNewerToolRequirement(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, driver.ManifestFile), "name: demo\nrequires: 99.0.0\n")
	path := filepath.Join(dir, "let.ast")
	writeFile(t, path, letTree)

	code, _, stderr := captureCLI(t, []string{path})
	if code != 1 || !strings.Contains(stderr, "too old") {
		t.Fatalf("expected version failure, got %d %q", code, stderr)
	}
}

func TestVersionAndHelp(t *testing.T) {
	code, stdout, _ := captureCLI(t, []string{"version"})
	if code != 0 || stdout != "rpal "+cliToolVersion+"\n" {
		t.Fatalf("unexpected version output %d %q", code, stdout)
	}
	code, _, stderr := captureCLI(t, []string{"--help"})
	if code != 0 || !strings.HasPrefix(stderr, "Usage:") {
		t.Fatalf("unexpected help output %d %q", code, stderr)
	}
	if code, _, _ := captureCLI(t, nil); code != 1 {
		t.Fatalf("expected exit 1 without arguments, got %d", code)
	}
}

func TestTestCommandReportsMismatches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, driver.ManifestFile), `
name: demo
evaluation:
  print_result: true
fixtures:
  basics:
    path: cases
`)
	writeFile(t, filepath.Join(dir, "cases", "let.ast"), letTree)
	writeFile(t, filepath.Join(dir, "cases", "let.out"), "7\n")
	writeFile(t, filepath.Join(dir, "cases", "wrong.ast"), "<INT:1>\n")
	writeFile(t, filepath.Join(dir, "cases", "wrong.out"), "2\n")
	chdir(t, dir)

	code, stdout, stderr := captureCLI(t, []string{"test"})
	if code != 1 {
		t.Fatalf("expected exit 1 with a failing case, got %d (stderr: %q)", code, stderr)
	}
	for _, want := range []string{"ok   basics/let\n", "FAIL basics/wrong\n", "1 passed, 1 failed\n"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output:\n%s", want, stdout)
		}
	}

	code, _, stderr = captureCLI(t, []string{"test", "missing"})
	if code != 1 || !strings.Contains(stderr, `unknown fixture suite "missing"`) {
		t.Fatalf("expected unknown suite failure, got %d %q", code, stderr)
	}
}

func TestFetchSuitesAndRunFromCache(t *testing.T) {
	repoDir := t.TempDir()
	writeFile(t, filepath.Join(repoDir, "print.ast"), "gamma\n.<ID:Print>\n.<INT:5>\n")
	writeFile(t, filepath.Join(repoDir, "print.out"), "5\n")
	commit := initGitRepo(t, repoDir)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, driver.ManifestFile), fmt.Sprintf(`
name: demo
fixtures:
  remote:
    git: %s
`, repoDir))
	manifest, err := driver.LoadManifest(filepath.Join(dir, driver.ManifestFile))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	settings := driver.Settings{Home: t.TempDir()}
	lock := driver.NewLockfile(manifest.Name, cliToolVersion)

	if _, _, err := captureOutput(t, func() error {
		return fetchSuites(manifest, lock, settings, nil, false)
	}); err != nil {
		t.Fatalf("fetchSuites: %v", err)
	}
	entry, ok := lock.Find("remote")
	if !ok || entry.Commit != commit {
		t.Fatalf("expected remote pinned to %s, got %+v", commit, entry)
	}

	spec, _ := manifest.Suite("remote")
	suite, err := driver.OpenSuite(manifest, spec, lock, settings)
	if err != nil {
		t.Fatalf("OpenSuite: %v", err)
	}
	var out bytes.Buffer
	report, err := runSuite(suite, runConfig{}, &out)
	if err != nil {
		t.Fatalf("runSuite: %v", err)
	}
	if report.passed != 1 || report.failed != 0 {
		t.Fatalf("unexpected report %+v:\n%s", report, out.String())
	}
}

func TestReplSessionEvaluatesOnBlankLine(t *testing.T) {
	var out, errOut bytes.Buffer
	session := &replSession{cfg: runConfig{printResult: true}, stdout: &out, stderr: &errOut}

	if session.prompt() != replPrompt {
		t.Fatalf("expected primary prompt")
	}
	for _, line := range strings.Split(strings.TrimSuffix(letTree, "\n"), "\n") {
		if session.feed(line) {
			t.Fatalf("evaluated before blank line")
		}
	}
	if session.prompt() != replContinuation {
		t.Fatalf("expected continuation prompt while buffering")
	}
	if !session.feed("") {
		t.Fatalf("blank line should evaluate the buffered tree")
	}
	if out.String() != "7\n" {
		t.Fatalf("unexpected repl output %q (stderr %q)", out.String(), errOut.String())
	}
	if session.feed("   ") {
		t.Fatalf("blank line with nothing buffered should not evaluate")
	}

	session.feed(".<INT:1>")
	session.feed("")
	if !strings.HasPrefix(errOut.String(), "parse error:") {
		t.Fatalf("expected parse error, got %q", errOut.String())
	}
}

func TestErrorHeader(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&standardize.Error{Expected: "= definition"}, headerStandardize},
		{fmt.Errorf("wrapped: %w", &interpreter.RuntimeError{Op: "+", Reason: "bad operands"}), headerRuntime},
		{&interpreter.MachineError{Msg: "cannot apply"}, headerMachine},
	}
	for _, tc := range cases {
		if got := errorHeader(tc.err); got != tc.want {
			t.Fatalf("errorHeader(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWD); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}

func initGitRepo(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := worktree.AddGlob("*"); err != nil {
		t.Fatalf("stage files: %v", err)
	}
	hash, err := worktree.Commit("init", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "RPAL CLI",
			Email: "rpal@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

func captureCLI(t *testing.T, args []string) (int, string, string) {
	t.Helper()
	var code int
	stdout, stderr, _ := captureOutput(t, func() error {
		code = run(args)
		return nil
	})
	return code, stdout, stderr
}

func captureOutput(t *testing.T, fn func() error) (string, string, error) {
	t.Helper()

	stdout := os.Stdout
	stderr := os.Stderr

	rOut, wOut, err := os.Pipe()
	if err != nil {
		t.Fatalf("stdout pipe: %v", err)
	}
	rErr, wErr, err := os.Pipe()
	if err != nil {
		t.Fatalf("stderr pipe: %v", err)
	}

	os.Stdout = wOut
	os.Stderr = wErr

	fnErr := fn()

	if err := wOut.Close(); err != nil {
		t.Fatalf("stdout close: %v", err)
	}
	if err := wErr.Close(); err != nil {
		t.Fatalf("stderr close: %v", err)
	}

	os.Stdout = stdout
	os.Stderr = stderr

	outBytes, err := io.ReadAll(rOut)
	if err != nil {
		t.Fatalf("stdout read: %v", err)
	}
	errBytes, err := io.ReadAll(rErr)
	if err != nil {
		t.Fatalf("stderr read: %v", err)
	}
	rOut.Close()
	rErr.Close()

	return string(outBytes), string(errBytes), fnErr
}
