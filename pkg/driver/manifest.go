package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dario.cat/mergo"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the conventional manifest name looked up by the CLI.
const ManifestFile = "rpal.yml"

// DefaultSuite holds the values every fixture suite falls back to.
var DefaultSuite = SuiteSpec{
	Pattern:        "*.ast",
	ExpectedSuffix: ".out",
}

var (
	// ErrToolTooOld is returned when the manifest requires a newer tool.
	ErrToolTooOld = errors.New("manifest: tool version too old")
	// ErrManifestNotFound is returned by FindManifest when no rpal.yml exists
	// in the directory or any of its parents.
	ErrManifestNotFound = errors.New("manifest: rpal.yml not found")
)

// Manifest represents the parsed contents of rpal.yml.
type Manifest struct {
	Path       string
	Dir        string
	Name       string
	Version    string
	Requires   string
	Evaluation EvaluationConfig
	Suites     map[string]*SuiteSpec
	SuiteOrder []string
}

// EvaluationConfig tunes how programs are run by the CLI.
type EvaluationConfig struct {
	// Trace prints the machine state after every transition.
	Trace bool `yaml:"trace"`
	// PrintResult appends the rendered final value to the program output.
	PrintResult bool `yaml:"print_result"`
}

// SuiteSpec describes a directory of tree fixtures with expected outputs.
type SuiteSpec struct {
	Name           string `yaml:"-"`
	Path           string `yaml:"path"`
	Git            string `yaml:"git"`
	Rev            string `yaml:"rev"`
	Tag            string `yaml:"tag"`
	Branch         string `yaml:"branch"`
	Pattern        string `yaml:"pattern"`
	ExpectedSuffix string `yaml:"expected_suffix"`
}

// IsGit reports whether the suite is fetched from a git repository.
func (s *SuiteSpec) IsGit() bool {
	return s.Git != ""
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadManifest parses rpal.yml from disk, returning a validated manifest
// with suite defaults applied.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest, err := raw.toManifest(absPath)
	if err != nil {
		return nil, err
	}
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// FindManifest walks up from dir looking for rpal.yml.
func FindManifest(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("manifest: resolve %s: %w", dir, err)
	}
	for {
		candidate := filepath.Join(abs, ManifestFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("%w (searched from %s)", ErrManifestNotFound, dir)
		}
		abs = parent
	}
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if m.Requires != "" && !semver.IsValid(canonicalVersion(m.Requires)) {
		errs.Issues = append(errs.Issues, fmt.Sprintf("requires %q is not a semantic version", m.Requires))
	}
	for _, name := range m.SuiteOrder {
		for _, issue := range m.Suites[name].validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("fixtures.%s: %s", name, issue))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (s *SuiteSpec) validate() []string {
	var issues []string
	switch {
	case s.Path != "" && s.Git != "":
		issues = append(issues, "path and git are mutually exclusive")
	case s.Path == "" && s.Git == "":
		issues = append(issues, "must specify path or git")
	}
	pins := 0
	for _, pin := range []string{s.Rev, s.Tag, s.Branch} {
		if pin != "" {
			pins++
		}
	}
	if pins > 0 && s.Git == "" {
		issues = append(issues, "rev, tag and branch apply only to git suites")
	}
	if pins > 1 {
		issues = append(issues, "specify at most one of rev, tag or branch")
	}
	if _, err := filepath.Match(s.Pattern, ""); err != nil {
		issues = append(issues, fmt.Sprintf("invalid pattern %q", s.Pattern))
	}
	if s.ExpectedSuffix == "" {
		issues = append(issues, "expected_suffix must not be empty")
	}
	return issues
}

// CheckToolVersion fails with ErrToolTooOld when tool is older than the
// version the manifest requires.
func (m *Manifest) CheckToolVersion(tool string) error {
	if m == nil || m.Requires == "" {
		return nil
	}
	have := canonicalVersion(tool)
	if !semver.IsValid(have) {
		return fmt.Errorf("manifest: tool version %q is not a semantic version", tool)
	}
	if semver.Compare(have, canonicalVersion(m.Requires)) < 0 {
		return fmt.Errorf("%w: %s requires %s, running %s", ErrToolTooOld, m.Name, m.Requires, tool)
	}
	return nil
}

// Suite looks up a suite by name.
func (m *Manifest) Suite(name string) (*SuiteSpec, bool) {
	if m == nil {
		return nil, false
	}
	spec, ok := m.Suites[sanitizeSegment(name)]
	return spec, ok && spec != nil
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func sanitizeSegment(seg string) string {
	seg = strings.TrimSpace(seg)
	seg = strings.ReplaceAll(seg, "-", "_")
	return seg
}

type manifestFile struct {
	Name       string               `yaml:"name"`
	Version    string               `yaml:"version"`
	Requires   string               `yaml:"requires"`
	Evaluation EvaluationConfig     `yaml:"evaluation"`
	Defaults   SuiteSpec            `yaml:"defaults"`
	Fixtures   map[string]SuiteSpec `yaml:"fixtures"`
}

func (mf manifestFile) toManifest(path string) (*Manifest, error) {
	defaults := mf.Defaults.trimmed()
	if err := mergo.Merge(&defaults, DefaultSuite); err != nil {
		return nil, fmt.Errorf("manifest: merge defaults: %w", err)
	}

	result := &Manifest{
		Path:       path,
		Dir:        filepath.Dir(path),
		Name:       sanitizeSegment(mf.Name),
		Version:    strings.TrimSpace(mf.Version),
		Requires:   strings.TrimSpace(mf.Requires),
		Evaluation: mf.Evaluation,
		Suites:     make(map[string]*SuiteSpec, len(mf.Fixtures)),
		SuiteOrder: make([]string, 0, len(mf.Fixtures)),
	}
	for rawName, raw := range mf.Fixtures {
		name := sanitizeSegment(rawName)
		if name == "" {
			return nil, fmt.Errorf("manifest: fixture suites must not use empty keys")
		}
		if _, exists := result.Suites[name]; exists {
			return nil, fmt.Errorf("manifest: fixture suite %q collides after sanitization", rawName)
		}
		spec := raw.trimmed()
		spec.Name = name
		if err := mergo.Merge(&spec, defaults); err != nil {
			return nil, fmt.Errorf("manifest: fixture suite %q: %w", rawName, err)
		}
		result.Suites[name] = &spec
		result.SuiteOrder = append(result.SuiteOrder, name)
	}
	sort.Strings(result.SuiteOrder)
	return result, nil
}

func (s SuiteSpec) trimmed() SuiteSpec {
	return SuiteSpec{
		Name:           strings.TrimSpace(s.Name),
		Path:           strings.TrimSpace(s.Path),
		Git:            strings.TrimSpace(s.Git),
		Rev:            strings.TrimSpace(s.Rev),
		Tag:            strings.TrimSpace(s.Tag),
		Branch:         strings.TrimSpace(s.Branch),
		Pattern:        strings.TrimSpace(s.Pattern),
		ExpectedSuffix: strings.TrimSpace(s.ExpectedSuffix),
	}
}
