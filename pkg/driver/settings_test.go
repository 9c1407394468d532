package driver

import (
	"path/filepath"
	"testing"
)

func TestFixtureDirSanitizesSegments(t *testing.T) {
	s := Settings{Home: "/cache"}
	got := s.FixtureDir("course/set", "v1@abc")
	if want := filepath.Join("/cache", "fixtures", "course_set", "v1_abc"); got != want {
		t.Fatalf("FixtureDir = %q, want %q", got, want)
	}
	if got := sanitizePathSegment("  "); got != "_" {
		t.Fatalf("expected placeholder for empty segment, got %q", got)
	}
}

func TestLoadSettingsDefaultsHome(t *testing.T) {
	s := LoadSettings()
	if s.Home == "" {
		t.Fatalf("expected a cache root")
	}
}
