package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()

	cfg, err := Load(projectDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", cfg.Project.Version)
	}
	if cfg.Project.Engine.MaxIterations != 10 {
		t.Fatalf("expected default max_iterations == 10, got %d", cfg.Project.Engine.MaxIterations)
	}
	if cfg.DefaultWorkflowID() != defaultWorkflowID {
		t.Fatalf("expected default workflow %q, got %q", defaultWorkflowID, cfg.DefaultWorkflowID())
	}
	if len(cfg.Project.Engine.TerminalResponseTypes) == 0 {
		t.Fatal("expected default terminal response types")
	}
}

func TestLoadParsesYAML(t *testing.T) {
	projectDir := t.TempDir()
	waypointDir := filepath.Join(projectDir, WaypointDir)
	if err := os.MkdirAll(waypointDir, 0o755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
engine:
  max_iterations: 3
  terminal_response_types:
    - final
providers:
  - name: gemini
    model: gemini-2.0-flash
    api_key_env: GEMINI_API_KEY
workflows:
  default: billing_support
`)
	if err := os.WriteFile(filepath.Join(waypointDir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(projectDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Project.Engine.MaxIterations != 3 {
		t.Fatalf("expected max_iterations == 3, got %d", cfg.Project.Engine.MaxIterations)
	}
	if got := cfg.Project.Engine.TerminalResponseTypes; len(got) != 1 || got[0] != "final" {
		t.Fatalf("unexpected terminal types: %v", got)
	}
	if cfg.DefaultWorkflowID() != "billing_support" {
		t.Fatalf("expected workflow billing_support, got %q", cfg.DefaultWorkflowID())
	}
	provider, ok := cfg.Provider("gemini")
	if !ok {
		t.Fatal("expected gemini provider entry")
	}
	if provider.APIKeyEnv != "GEMINI_API_KEY" {
		t.Fatalf("unexpected provider env: %q", provider.APIKeyEnv)
	}
}

func TestInitWaypointDirSeedsConfig(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitWaypointDir(projectDir); err != nil {
		t.Fatalf("InitWaypointDir returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(projectDir, WaypointDir, "config.yaml")); err != nil {
		t.Fatalf("expected seeded config.yaml: %v", err)
	}
	if _, err := os.Stat(filepath.Join(projectDir, WaypointDir, "logs")); err != nil {
		t.Fatalf("expected logs dir: %v", err)
	}
	// Re-running must not clobber an existing config.
	custom := []byte("version: 1\nworkflows:\n  default: custom\n")
	if err := os.WriteFile(filepath.Join(projectDir, WaypointDir, "config.yaml"), custom, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InitWaypointDir(projectDir); err != nil {
		t.Fatalf("InitWaypointDir second run: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(projectDir, WaypointDir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "default: custom") {
		t.Fatal("expected existing config to be preserved")
	}
}
