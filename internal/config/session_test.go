package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sysmel/bootstrap/internal/config"
)

func TestLoadSessionConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.LoadSessionConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Prompt != config.DefaultSessionConfig().Prompt {
		t.Fatalf("got prompt %q, want the default", cfg.Prompt)
	}
}

func TestLoadSessionConfigParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sysmelrc.yaml")
	contents := "prompt: \"st> \"\nlogLevel: debug\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg, err := config.LoadSessionConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Prompt != "st> " {
		t.Fatalf("got prompt %q, want \"st> \"", cfg.Prompt)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("got logLevel %q, want \"debug\"", cfg.LogLevel)
	}
}

func TestHasSourceExtRecognizesSysmelFiles(t *testing.T) {
	if !config.HasSourceExt("program.sysmel") {
		t.Fatal("expected .sysmel to be recognized as a source extension")
	}
	if config.HasSourceExt("program.txt") {
		t.Fatal("did not expect .txt to be recognized as a source extension")
	}
}
