package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flapneat/internal/scape"
)

func TestDefaultMatchesSimulationDefaults(t *testing.T) {
	if got, want := Default().Game(), scape.DefaultConfig(); got != want {
		t.Fatalf("default game config mismatch: got=%+v want=%+v", got, want)
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("validate defaults: %v", err)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Session.Workers != 4 || cfg.Storage.Kind != "memory" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverridesOnlyProvidedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flapneat.yaml")
	raw := `
obstacles:
  gap: 180
session:
  max_frames: 2000
  seed: 42
storage:
  kind: sqlite
  db_path: runs.db
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	game := cfg.Game()
	if game.PipeGap != 180 || game.MaxFrames != 2000 || cfg.Session.Seed != 42 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if game.PipeWidth != 52 || game.Gravity != 0.5 || cfg.Session.Workers != 4 {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
	if cfg.Storage.Kind != "sqlite" || cfg.Storage.DBPath != "runs.db" {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"unknown section": "physics:\n  gravity: 1\n",
		"unknown field":   "bird:\n  wingspan: 3\n",
		"wrong type":      "session:\n  max_frames: lots\n",
		"bad enum":        "storage:\n  kind: postgres\n",
		"below minimum":   "session:\n  workers: 0\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(raw)); err == nil {
				t.Fatalf("expected schema error for %q", raw)
			}
		})
	}
}

func TestParseImpossibleGap(t *testing.T) {
	_, err := Parse([]byte("screen:\n  height: 300\nobstacles:\n  gap: 150\n  margin: 100\n"))
	if !errors.Is(err, ErrImpossibleGap) {
		t.Fatalf("expected ErrImpossibleGap, got %v", err)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse([]byte("# nothing here\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Game() != scape.DefaultConfig() {
		t.Fatalf("expected defaults for empty document")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestEmbeddedSchemaCompiles(t *testing.T) {
	if _, err := compileSchema(); err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	if !strings.Contains(schemaSource, "\"observer\"") {
		t.Fatal("expected observer section in schema")
	}
}
