package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SessionConfigFileName is the file an invocation of the CLI driver looks
// for beside its working directory, following the same "small optional
// YAML file, absent is not an error" convention as funxy.yaml.
const SessionConfigFileName = ".sysmelrc.yaml"

// SessionConfig controls the REPL/CLI driver's ambient behavior: none of
// it is read by the interpreter core (components A-J), only by the
// driver (component K).
type SessionConfig struct {
	// Prompt is printed before each REPL line when stdin is a terminal.
	Prompt string `yaml:"prompt,omitempty"`

	// HistoryFile, if set, persists REPL line history across sessions.
	HistoryFile string `yaml:"historyFile,omitempty"`

	// LogLevel gates structured logging: "debug", "info", "warn", "error".
	// Empty means logging stays off, matching the ambient-stack default.
	LogLevel string `yaml:"logLevel,omitempty"`
}

// DefaultSessionConfig returns the values a driver uses when no config
// file is present.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{Prompt: "sysmel> "}
}

// LoadSessionConfig reads path and parses it as a SessionConfig. A
// missing file is not an error: it returns DefaultSessionConfig()
// unchanged, matching funxy.yaml's own absence-is-not-an-error contract.
func LoadSessionConfig(path string) (*SessionConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSessionConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := DefaultSessionConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
