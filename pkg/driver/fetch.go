package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Fetcher materializes git fixture suites in the settings cache.
type Fetcher struct {
	settings Settings
}

// NewFetcher returns a fetcher rooted at settings.Home.
func NewFetcher(settings Settings) *Fetcher {
	return &Fetcher{settings: settings}
}

// Fetch clones spec and checks out its pinned revision. When locked is
// non-nil and names the same source, its commit is reused instead of
// re-resolving the branch or tag.
func (f *Fetcher) Fetch(spec *SuiteSpec, locked *LockedSuite) (*LockedSuite, error) {
	if f == nil {
		return nil, errors.New("fetch: fetcher unavailable")
	}
	if spec == nil || !spec.IsGit() {
		return nil, fmt.Errorf("fetch: suite is not a git suite")
	}
	url := strings.TrimSpace(spec.Git)

	revision, descriptor := gitRevisionFromSpec(spec)
	if locked != nil && locked.Commit != "" && strings.HasPrefix(locked.Source, "git+"+url+"@") {
		revision = plumbing.Revision(locked.Commit)
	}

	baseDir := filepath.Join(f.settings.Home, "fixtures", sanitizePathSegment(spec.Name))
	version, commit, err := ensureGitCheckout(baseDir, url, revision, descriptor)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", spec.Name, err)
	}

	checksum, err := Checksum(osfs.New(f.settings.FixtureDir(spec.Name, version)))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: checksum: %w", spec.Name, err)
	}
	return &LockedSuite{
		Name:     spec.Name,
		Version:  version,
		Source:   fmt.Sprintf("git+%s@%s", url, commit),
		Commit:   commit,
		Checksum: checksum,
	}, nil
}

func ensureGitCheckout(baseDir, url string, revision plumbing.Revision, descriptor string) (string, string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", "", err
	}

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{URL: url})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git clone %s: %w", url, err)
	}

	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}

	version := gitPinnedVersion(descriptor, hash.String())
	targetDir := filepath.Join(baseDir, sanitizePathSegment(version))
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
		return version, hash.String(), nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{
		Hash:  *hash,
		Force: true,
	}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git checkout %s: %w", revision, err)
	}
	if err := os.RemoveAll(filepath.Join(tmpDir, ".git")); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}

	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	return version, hash.String(), nil
}

func gitPinnedVersion(descriptor, commit string) string {
	commit = strings.TrimSpace(commit)
	descriptor = strings.TrimSpace(descriptor)
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return fmt.Sprintf("%s@%s", descriptor, commit)
}

func gitRevisionFromSpec(spec *SuiteSpec) (plumbing.Revision, string) {
	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		return plumbing.Revision(rev), rev
	}
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), tag
	}
	if branch := strings.TrimSpace(spec.Branch); branch != "" {
		return plumbing.Revision("refs/heads/" + branch), branch
	}
	return plumbing.Revision("HEAD"), ""
}
