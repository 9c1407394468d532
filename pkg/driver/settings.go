package driver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"
)

// Settings are the environment-level knobs of the CLI.
type Settings struct {
	// Home is the cache root for fetched fixtures.
	Home string
	// Trace forces machine tracing regardless of flags.
	Trace bool
}

// LoadSettings reads RPAL_HOME and RPAL_TRACE.
func LoadSettings() Settings {
	return Settings{
		Home:  env.Str("RPAL_HOME", defaultHome()),
		Trace: env.Bool("RPAL_TRACE"),
	}
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "rpal")
	}
	return filepath.Join(home, ".rpal")
}

// FixtureDir is the cache location of one pinned suite version.
func (s Settings) FixtureDir(suite, version string) string {
	return filepath.Join(s.Home, "fixtures", sanitizePathSegment(suite), sanitizePathSegment(version))
}

func sanitizePathSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "_"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "@", "_", " ", "_")
	return replacer.Replace(value)
}
