package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Color modes for REPL and CLI output.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Settings holds user-tunable options read from monkey.yaml or monkey.toml.
type Settings struct {
	// Prompt is printed before each REPL line when stdin is a terminal.
	Prompt string `yaml:"prompt" toml:"prompt"`

	// StackSize is the number of value stack slots per run.
	StackSize int `yaml:"stack_size" toml:"stack_size"`

	// MaxFrames bounds call depth.
	MaxFrames int `yaml:"max_frames" toml:"max_frames"`

	// HistoryPath is the SQLite file storing REPL input. Empty means
	// HistoryFile in the user's home directory; "-" disables history.
	HistoryPath string `yaml:"history_path" toml:"history_path"`

	// HistoryLimit is the number of entries kept after trimming.
	HistoryLimit int `yaml:"history_limit" toml:"history_limit"`

	// Verbosity is passed to the logger: 0 logs errors only.
	Verbosity int `yaml:"verbosity" toml:"verbosity"`

	// Trace logs the disassembly of every compiled input.
	Trace bool `yaml:"trace" toml:"trace"`

	// Color is one of auto, always or never.
	Color string `yaml:"color" toml:"color"`

	// Path is the file the settings were loaded from, if any.
	Path string `yaml:"-" toml:"-"`
}

// DefaultSettings returns the settings used when no file is found.
func DefaultSettings() *Settings {
	return &Settings{
		Prompt:       Prompt,
		StackSize:    StackSize,
		MaxFrames:    MaxFrames,
		HistoryLimit: HistoryLimit,
		Color:        ColorAuto,
	}
}

// LoadSettings reads a settings file. The format is chosen by extension;
// fields absent from the file keep their defaults.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}
	return ParseSettings(data, path)
}

// ParseSettings decodes settings content. The path selects the format and
// is used in error messages.
func ParseSettings(data []byte, path string) (*Settings, error) {
	s := DefaultSettings()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), s); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported settings format", path)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// FindSettings searches dir and its parents for a settings file.
// It returns an empty path and nil error when none exists.
func FindSettings(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range SettingsFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Validate rejects limits the VM cannot run with.
func (s *Settings) Validate() error {
	if s.StackSize < 16 {
		return fmt.Errorf("stack_size must be at least 16, got %d", s.StackSize)
	}
	if s.MaxFrames < 2 {
		return fmt.Errorf("max_frames must be at least 2, got %d", s.MaxFrames)
	}
	if s.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative, got %d", s.HistoryLimit)
	}
	if s.Verbosity < 0 {
		return fmt.Errorf("verbosity must not be negative, got %d", s.Verbosity)
	}
	switch s.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("color must be %s, %s or %s, got %q", ColorAuto, ColorAlways, ColorNever, s.Color)
	}
	return nil
}

// ResolveHistoryPath returns the history database location, or "" when
// history is disabled.
func (s *Settings) ResolveHistoryPath() string {
	switch s.HistoryPath {
	case "-":
		return ""
	case "":
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		return filepath.Join(home, HistoryFile)
	}
	return s.HistoryPath
}
