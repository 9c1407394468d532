package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LockFile is the conventional lockfile name written next to rpal.yml.
const LockFile = "rpal.lock"

// Lockfile records the pinned state of every fetched fixture suite.
type Lockfile struct {
	Path   string
	Root   string
	Tool   string
	Suites []*LockedSuite
}

// LockedSuite is one resolved suite entry.
type LockedSuite struct {
	Name     string
	Version  string
	Source   string
	Commit   string
	Checksum string
}

// NewLockfile constructs an empty lockfile for the named manifest root.
func NewLockfile(root, tool string) *Lockfile {
	return &Lockfile{
		Root:   sanitizeSegment(root),
		Tool:   strings.TrimSpace(tool),
		Suites: []*LockedSuite{},
	}
}

// LoadLockfile parses rpal.lock from disk.
func LoadLockfile(path string) (*Lockfile, error) {
	if path == "" {
		return nil, fmt.Errorf("lockfile: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("lockfile: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw lockfileDisk
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("lockfile: %s is empty", absPath)
		}
		return nil, fmt.Errorf("lockfile: parse %s: %w", absPath, err)
	}

	lock := raw.toLockfile()
	lock.Path = absPath
	if err := lock.validate(); err != nil {
		return nil, err
	}
	return lock, nil
}

// LoadLockfileIfExists returns nil without error when path does not exist.
func LoadLockfileIfExists(path string) (*Lockfile, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return LoadLockfile(path)
}

// WriteLockfile writes the lockfile to disk using deterministic ordering.
func WriteLockfile(lock *Lockfile, path string) error {
	if lock == nil {
		return fmt.Errorf("lockfile: nil lockfile")
	}
	if path == "" {
		return fmt.Errorf("lockfile: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}

	lock.normalize()
	if err := lock.validate(); err != nil {
		return err
	}

	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(lock.toDisk()); err != nil {
		return fmt.Errorf("lockfile: encode: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("lockfile: encode: %w", err)
	}
	if err := os.WriteFile(absPath, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", absPath, err)
	}
	lock.Path = absPath
	return nil
}

// Find returns the locked entry for a suite.
func (l *Lockfile) Find(name string) (*LockedSuite, bool) {
	if l == nil {
		return nil, false
	}
	name = sanitizeSegment(name)
	for _, suite := range l.Suites {
		if suite != nil && suite.Name == name {
			return suite, true
		}
	}
	return nil, false
}

// Upsert replaces the entry with the same name or appends a new one.
func (l *Lockfile) Upsert(entry *LockedSuite) {
	if l == nil || entry == nil {
		return
	}
	entry.Name = sanitizeSegment(entry.Name)
	for i, suite := range l.Suites {
		if suite != nil && suite.Name == entry.Name {
			l.Suites[i] = entry
			return
		}
	}
	l.Suites = append(l.Suites, entry)
}

func (l *Lockfile) normalize() {
	l.Root = sanitizeSegment(l.Root)
	l.Tool = strings.TrimSpace(l.Tool)
	suites := l.Suites[:0]
	for _, suite := range l.Suites {
		if suite == nil {
			continue
		}
		suite.Name = sanitizeSegment(suite.Name)
		suite.Version = strings.TrimSpace(suite.Version)
		suite.Source = strings.TrimSpace(suite.Source)
		suite.Commit = strings.TrimSpace(suite.Commit)
		suite.Checksum = strings.TrimSpace(suite.Checksum)
		suites = append(suites, suite)
	}
	sort.Slice(suites, func(i, j int) bool {
		return suites[i].Name < suites[j].Name
	})
	l.Suites = suites
}

func (l *Lockfile) validate() error {
	var errs ValidationError
	if l.Root == "" {
		errs.Issues = append(errs.Issues, "root must be provided")
	}
	seen := make(map[string]struct{}, len(l.Suites))
	for i, suite := range l.Suites {
		if suite == nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("suites[%d]: entry is empty", i))
			continue
		}
		if suite.Name == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("suites[%d]: name must be provided", i))
			continue
		}
		if _, dup := seen[suite.Name]; dup {
			errs.Issues = append(errs.Issues, fmt.Sprintf("suites[%d]: duplicate suite %q", i, suite.Name))
		}
		seen[suite.Name] = struct{}{}
		if suite.Source == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("suites.%s: source must be provided", suite.Name))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

type lockfileDisk struct {
	Root   string            `yaml:"root"`
	Tool   string            `yaml:"tool,omitempty"`
	Suites []lockedSuiteDisk `yaml:"suites"`
}

type lockedSuiteDisk struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version,omitempty"`
	Source   string `yaml:"source"`
	Commit   string `yaml:"commit,omitempty"`
	Checksum string `yaml:"checksum,omitempty"`
}

func (l *Lockfile) toDisk() lockfileDisk {
	disk := lockfileDisk{
		Root:   l.Root,
		Tool:   l.Tool,
		Suites: make([]lockedSuiteDisk, 0, len(l.Suites)),
	}
	for _, suite := range l.Suites {
		disk.Suites = append(disk.Suites, lockedSuiteDisk{
			Name:     suite.Name,
			Version:  suite.Version,
			Source:   suite.Source,
			Commit:   suite.Commit,
			Checksum: suite.Checksum,
		})
	}
	return disk
}

func (d lockfileDisk) toLockfile() *Lockfile {
	lock := NewLockfile(d.Root, d.Tool)
	for _, suite := range d.Suites {
		lock.Suites = append(lock.Suites, &LockedSuite{
			Name:     sanitizeSegment(suite.Name),
			Version:  strings.TrimSpace(suite.Version),
			Source:   strings.TrimSpace(suite.Source),
			Commit:   strings.TrimSpace(suite.Commit),
			Checksum: strings.TrimSpace(suite.Checksum),
		})
	}
	return lock
}
