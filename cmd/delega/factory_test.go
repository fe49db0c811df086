package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/delega/delega/internal/config"
)

// isolateConfig points every config source at temp directories so the
// host environment cannot leak into the test.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("DELEGA_BACKEND_URL", "")
	t.Setenv("DELEGA_MODEL", "")
	t.Setenv("DELEGA_ROSTER", writeTestRoster(t))
}

func writeTestRoster(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	doc := `tasks:
  - id: TASK-001
    title: Fix login bug
    difficulty: HIGH
candidates:
  - id: USR-001
    name: Alice
    availability: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func TestNewServiceMissingCredentialsFatal(t *testing.T) {
	isolateConfig(t)

	_, _, err := newService(false)
	if err == nil {
		t.Fatal("reasoning enabled without credentials must fail at startup")
	}
	if !errors.Is(err, config.ErrNoAPIKey) {
		t.Errorf("error = %v, want it to carry ErrNoAPIKey", err)
	}
}

func TestNewServiceMalformedKeyFatal(t *testing.T) {
	isolateConfig(t)
	t.Setenv("ANTHROPIC_API_KEY", "not-an-anthropic-key-123")

	if _, _, err := newService(false); err == nil {
		t.Fatal("malformed key must fail at startup, not fall back to rule-based")
	}
}

func TestNewServiceRuleBasedNeedsNoCredentials(t *testing.T) {
	isolateConfig(t)

	svc, cleanup, err := newService(true)
	if err != nil {
		t.Fatalf("newService: %v", err)
	}
	defer cleanup()
	if svc == nil {
		t.Fatal("rule-based service not built")
	}
}
