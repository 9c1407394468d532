package main

import (
	"fmt"
	"os"
	"path/filepath"

	"rpal/interpreter-go/pkg/driver"
)

func runFixtures(args []string) int {
	if len(args) == 0 || args[0] != "fetch" {
		fmt.Fprintln(os.Stderr, "usage: rpal fixtures fetch [--update] [suite ...]")
		return 1
	}
	update := false
	var names []string
	for _, arg := range args[1:] {
		if arg == "--update" {
			update = true
			continue
		}
		names = append(names, arg)
	}

	manifest, err := loadManifestNear(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
		return 1
	}
	if manifest == nil {
		fmt.Fprintf(os.Stderr, "rpal fixtures fetch requires %s\n", driver.ManifestFile)
		return 1
	}
	lock, err := loadLockfileForManifest(manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if lock == nil {
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
	}
	lock.Tool = cliToolVersion

	if err := fetchSuites(manifest, lock, driver.LoadSettings(), names, update); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if err := driver.WriteLockfile(lock, filepath.Join(manifest.Dir, driver.LockFile)); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

// fetchSuites clones the requested git suites (all of them when names is
// empty) and records each pin in lock. Locked commits are reused unless
// update is set.
func fetchSuites(manifest *driver.Manifest, lock *driver.Lockfile, settings driver.Settings, names []string, update bool) error {
	if len(names) == 0 {
		names = manifest.SuiteOrder
	}
	fetcher := driver.NewFetcher(settings)
	for _, name := range names {
		spec, ok := manifest.Suite(name)
		if !ok {
			return fmt.Errorf("unknown fixture suite %q", name)
		}
		if !spec.IsGit() {
			continue
		}
		var locked *driver.LockedSuite
		if !update {
			locked, _ = lock.Find(spec.Name)
		}
		entry, err := fetcher.Fetch(spec, locked)
		if err != nil {
			return err
		}
		lock.Upsert(entry)
		fmt.Fprintf(os.Stdout, "fetched %s %s\n", entry.Name, entry.Version)
	}
	return nil
}
