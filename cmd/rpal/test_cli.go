package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/sergi/go-diff/diffmatchpatch"

	"rpal/interpreter-go/pkg/driver"
	"rpal/interpreter-go/pkg/parser"
)

type suiteReport struct {
	passed int
	failed int
}

func runTests(args []string) int {
	manifest, err := loadManifestNear(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
		return 1
	}
	if manifest == nil {
		fmt.Fprintf(os.Stderr, "rpal test requires %s\n", driver.ManifestFile)
		return 1
	}
	lock, err := loadLockfileForManifest(manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	settings := driver.LoadSettings()

	names := args
	if len(names) == 0 {
		names = manifest.SuiteOrder
	}
	var total suiteReport
	for _, name := range names {
		spec, ok := manifest.Suite(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown fixture suite %q\n", name)
			return 1
		}
		suite, err := driver.OpenSuite(manifest, spec, lock, settings)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		cfg := runConfig{}.withManifest(manifest)
		report, err := runSuite(suite, cfg, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		total.passed += report.passed
		total.failed += report.failed
	}

	fmt.Fprintf(os.Stdout, "%d passed, %d failed\n", total.passed, total.failed)
	if total.failed > 0 {
		return 1
	}
	return 0
}

// runSuite evaluates every case of suite and compares the combined
// output and diagnostics with the expected file.
func runSuite(suite *driver.Suite, cfg runConfig, out io.Writer) (suiteReport, error) {
	var report suiteReport
	cases, err := suite.Cases()
	if err != nil {
		return report, err
	}
	for _, c := range cases {
		label := suite.Spec.Name + "/" + c.Name
		got, err := evaluateCase(suite, c, cfg)
		if err != nil {
			report.failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", label, err)
			continue
		}
		want, err := suite.ReadExpected(c)
		if err != nil {
			report.failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", label, err)
			continue
		}
		if got != want {
			report.failed++
			fmt.Fprintf(out, "FAIL %s\n%s\n", label, outputDiff(want, got))
			continue
		}
		report.passed++
		fmt.Fprintf(out, "ok   %s\n", label)
	}
	return report, nil
}

func evaluateCase(suite *driver.Suite, c driver.Case, cfg runConfig) (string, error) {
	src, err := suite.ReadSource(c)
	if err != nil {
		return "", err
	}
	tree, err := parser.ParseTreeString(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	executeTree(tree, cfg, &buf, &buf)
	return buf.String(), nil
}

func outputDiff(want, got string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(want, got, false)
	return dmp.DiffPrettyText(dmp.DiffCleanupSemantic(diffs))
}
