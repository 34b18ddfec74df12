package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveEnvCandidatesIncludesCwd(t *testing.T) {
	candidates := resolveEnvCandidates()
	if len(candidates) == 0 {
		t.Fatal("expected at least one candidate path")
	}
	for _, c := range candidates {
		if filepath.Base(c) != ".env" {
			t.Errorf("candidate %q does not end in .env", c)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	want := filepath.Join(cwd, ".env")
	found := false
	for _, c := range candidates {
		if c == want {
			found = true
		}
	}
	if !found {
		t.Errorf("candidates %v do not include %q", candidates, want)
	}
}

func TestLoadEnvExplicitPathMissingDoesNotPanic(t *testing.T) {
	LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
}
