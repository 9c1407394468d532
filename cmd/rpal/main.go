package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rpal/interpreter-go/pkg/driver"
	"rpal/interpreter-go/pkg/parser"
)

const cliToolVersion = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintf(os.Stdout, "rpal %s\n", cliToolVersion)
		return 0
	case "run":
		return runFile(args[1:])
	case "repl":
		return runRepl(args[1:])
	case "test":
		return runTests(args[1:])
	case "fixtures":
		return runFixtures(args[1:])
	default:
		return runFile(args)
	}
}

func runFile(args []string) int {
	cfg, rest, err := parseRunFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		printUsage()
		return 1
	}
	if len(rest) != 1 {
		if len(rest) == 0 {
			fmt.Fprintln(os.Stderr, "rpal run requires a tree file")
		} else {
			fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(rest[1:], " "))
		}
		return 1
	}
	path := rest[0]

	manifest, err := loadManifestNear(filepath.Dir(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
		return 1
	}
	cfg = cfg.withManifest(manifest).withSettings(driver.LoadSettings())

	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", path, err)
		return 1
	}
	tree, err := parser.ParseTree(file)
	file.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse %s: %v\n", path, err)
		return 1
	}
	return executeTree(tree, cfg, os.Stdout, os.Stderr)
}

func parseRunFlags(args []string) (runConfig, []string, error) {
	var cfg runConfig
	var rest []string
	for _, arg := range args {
		switch arg {
		case "--ast":
			cfg.dumpAST = true
		case "--st":
			cfg.dumpST = true
		case "--cs":
			cfg.dumpCS = true
		case "--trace":
			cfg.trace = true
		case "--print-result":
			cfg.printResult = true
		default:
			if strings.HasPrefix(arg, "--") {
				return cfg, nil, fmt.Errorf("unknown flag %s", arg)
			}
			rest = append(rest, arg)
		}
	}
	return cfg, rest, nil
}

// loadManifestNear returns nil without error when no manifest governs dir.
func loadManifestNear(dir string) (*driver.Manifest, error) {
	path, err := driver.FindManifest(dir)
	if err != nil {
		if errors.Is(err, driver.ErrManifestNotFound) {
			return nil, nil
		}
		return nil, err
	}
	manifest, err := driver.LoadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := manifest.CheckToolVersion(cliToolVersion); err != nil {
		return nil, err
	}
	return manifest, nil
}

func loadLockfileForManifest(manifest *driver.Manifest) (*driver.Lockfile, error) {
	if manifest == nil {
		return nil, nil
	}
	lock, err := driver.LoadLockfileIfExists(filepath.Join(manifest.Dir, driver.LockFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", driver.LockFile, err)
	}
	return lock, nil
}
