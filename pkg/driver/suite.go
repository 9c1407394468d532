package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Case is a single fixture: a tree file and the output it must produce.
type Case struct {
	Name     string
	Source   string
	Expected string
}

// Suite is a resolved fixture directory.
type Suite struct {
	Spec *SuiteSpec
	Root string
	fs   billy.Filesystem
}

// OpenSuite resolves the on-disk directory for spec. Local suites are
// confined to the manifest directory; git suites live under the fixture
// cache and must already be locked.
func OpenSuite(m *Manifest, spec *SuiteSpec, lock *Lockfile, settings Settings) (*Suite, error) {
	root, err := SuiteDir(m, spec, lock, settings)
	if err != nil {
		return nil, err
	}
	return NewSuite(spec, osfs.New(root)), nil
}

// SuiteDir computes where a suite's fixtures live on disk.
func SuiteDir(m *Manifest, spec *SuiteSpec, lock *Lockfile, settings Settings) (string, error) {
	if spec == nil {
		return "", fmt.Errorf("suite: nil spec")
	}
	if !spec.IsGit() {
		dir, err := securejoin.SecureJoin(m.Dir, spec.Path)
		if err != nil {
			return "", fmt.Errorf("suite %s: resolve %s: %w", spec.Name, spec.Path, err)
		}
		return dir, nil
	}
	entry, ok := lock.Find(spec.Name)
	if !ok || entry.Version == "" {
		return "", fmt.Errorf("suite %s: not fetched; run `rpal fixtures fetch`", spec.Name)
	}
	return settings.FixtureDir(spec.Name, entry.Version), nil
}

// NewSuite wraps an existing filesystem.
func NewSuite(spec *SuiteSpec, fs billy.Filesystem) *Suite {
	return &Suite{Spec: spec, Root: fs.Root(), fs: fs}
}

// Cases lists the fixtures whose file name matches the suite pattern,
// sorted by relative path.
func (s *Suite) Cases() ([]Case, error) {
	files, err := listFiles(s.fs)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", s.Spec.Name, err)
	}
	var cases []Case
	for _, rel := range files {
		matched, err := filepath.Match(s.Spec.Pattern, filepath.Base(rel))
		if err != nil {
			return nil, fmt.Errorf("suite %s: pattern %q: %w", s.Spec.Name, s.Spec.Pattern, err)
		}
		if !matched {
			continue
		}
		stem := strings.TrimSuffix(rel, filepath.Ext(rel))
		cases = append(cases, Case{
			Name:     filepath.ToSlash(stem),
			Source:   rel,
			Expected: stem + s.Spec.ExpectedSuffix,
		})
	}
	return cases, nil
}

// ReadSource returns the tree text for c.
func (s *Suite) ReadSource(c Case) (string, error) {
	return s.read(c.Source)
}

// ReadExpected returns the expected output for c.
func (s *Suite) ReadExpected(c Case) (string, error) {
	return s.read(c.Expected)
}

func (s *Suite) read(rel string) (string, error) {
	data, err := util.ReadFile(s.fs, rel)
	if err != nil {
		return "", fmt.Errorf("suite %s: read %s: %w", s.Spec.Name, rel, err)
	}
	return string(data), nil
}

// Checksum hashes every file of the suite in path order.
func Checksum(fs billy.Filesystem) (string, error) {
	files, err := listFiles(fs)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, rel := range files {
		file, err := fs.Open(rel)
		if err != nil {
			return "", err
		}
		h.Write([]byte(filepath.ToSlash(rel)))
		_, err = io.Copy(h, file)
		file.Close()
		if err != nil {
			return "", err
		}
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

func listFiles(fs billy.Filesystem) ([]string, error) {
	var files []string
	err := util.Walk(fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		hidden := path != "." && strings.HasPrefix(info.Name(), ".")
		if info.IsDir() {
			if hidden {
				return filepath.SkipDir
			}
			return nil
		}
		if !hidden {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
