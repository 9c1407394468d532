package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

func writeFixtures(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	fs := osfs.New(root)
	for name, contents := range files {
		if err := util.WriteFile(fs, name, []byte(contents), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return root
}

func TestSuiteCases(t *testing.T) {
	root := writeFixtures(t, map[string]string{
		"b.ast":         "<INT:2>\n",
		"b.out":         "2\n",
		"a.ast":         "<INT:1>\n",
		"a.out":         "1\n",
		"nested/c.ast":  "<ID:x>\n",
		"notes.txt":     "ignored",
		".hidden/d.ast": "<INT:4>\n",
		"nested/.e.ast": "<INT:5>\n",
	})
	suite := NewSuite(&SuiteSpec{Name: "basics", Pattern: "*.ast", ExpectedSuffix: ".out"}, osfs.New(root))
	cases, err := suite.Cases()
	if err != nil {
		t.Fatalf("Cases: %v", err)
	}
	var names []string
	for _, c := range cases {
		names = append(names, c.Name)
	}
	if got := strings.Join(names, ","); got != "a,b,nested/c" {
		t.Fatalf("unexpected cases %q", got)
	}

	src, err := suite.ReadSource(cases[0])
	if err != nil || src != "<INT:1>\n" {
		t.Fatalf("unexpected source %q (err %v)", src, err)
	}
	want, err := suite.ReadExpected(cases[1])
	if err != nil || want != "2\n" {
		t.Fatalf("unexpected expected output %q (err %v)", want, err)
	}
	if _, err := suite.ReadExpected(cases[2]); err == nil {
		t.Fatalf("expected error for missing expected file")
	}
}

func TestChecksumTracksContents(t *testing.T) {
	root := writeFixtures(t, map[string]string{"a.ast": "<INT:1>\n"})
	first, err := Checksum(osfs.New(root))
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	again, _ := Checksum(osfs.New(root))
	if first != again || !strings.HasPrefix(first, "sha256:") {
		t.Fatalf("checksum not stable: %s vs %s", first, again)
	}
	if err := os.WriteFile(filepath.Join(root, "a.ast"), []byte("<INT:2>\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	changed, _ := Checksum(osfs.New(root))
	if changed == first {
		t.Fatalf("checksum ignored a content change")
	}
}

func TestSuiteDirConfinesLocalPaths(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{Name: "x", Dir: dir}
	got, err := SuiteDir(m, &SuiteSpec{Name: "up", Path: "../../escape"}, nil, Settings{})
	if err != nil {
		t.Fatalf("SuiteDir: %v", err)
	}
	if got != filepath.Join(dir, "escape") {
		t.Fatalf("expected path confined to %s, got %s", dir, got)
	}
}

func TestSuiteDirRequiresLockForGit(t *testing.T) {
	m := &Manifest{Name: "x", Dir: t.TempDir()}
	spec := &SuiteSpec{Name: "remote", Git: "https://example.com/r.git"}
	if _, err := SuiteDir(m, spec, nil, Settings{Home: "/cache"}); err == nil {
		t.Fatalf("expected error for unfetched git suite")
	}
	lock := NewLockfile("x", "")
	lock.Upsert(&LockedSuite{Name: "remote", Version: "main@abc", Source: "git+https://example.com/r.git@abc"})
	got, err := SuiteDir(m, spec, lock, Settings{Home: "/cache"})
	if err != nil {
		t.Fatalf("SuiteDir: %v", err)
	}
	if got != filepath.Join("/cache", "fixtures", "remote", "main_abc") {
		t.Fatalf("unexpected cache dir %s", got)
	}
}
