package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/phonemize/internal/punctuation"
	"github.com/chaz8081/phonemize/internal/separator"
)

// Config holds all application configuration.
type Config struct {
	Backend     string            `yaml:"backend"`
	Language    string            `yaml:"language"`
	Separator   SeparatorConfig   `yaml:"separator"`
	Punctuation PunctuationConfig `yaml:"punctuation"`
	NJobs       int               `yaml:"njobs"`
	Strip       bool              `yaml:"strip"`
	EmptyLines  bool              `yaml:"preserve_empty_lines"`
	Timeout     Duration          `yaml:"timeout"`
	Espeak      EspeakConfig      `yaml:"espeak"`
	Festival    FestivalConfig    `yaml:"festival"`
	Mapping     MappingConfig     `yaml:"mapping"`
	LogLevel    string            `yaml:"log_level"`
}

// Duration wraps time.Duration so YAML values like "30s" parse; the
// yaml package only decodes plain integers into time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(td)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// SeparatorConfig holds the token delimiters.
type SeparatorConfig struct {
	Word     string `yaml:"word"`
	Syllable string `yaml:"syllable"`
	Phone    string `yaml:"phone"`
}

// PunctuationConfig holds punctuation preservation settings. Marks and
// Pattern are mutually exclusive; Pattern wins when both are set.
type PunctuationConfig struct {
	Preserve bool   `yaml:"preserve"`
	Marks    string `yaml:"marks"`
	Pattern  string `yaml:"pattern"`
}

// EspeakConfig holds espeak backend settings.
type EspeakConfig struct {
	Path  string `yaml:"path"`  // executable, discovered on PATH if empty
	SAMPA bool   `yaml:"sampa"` // SAMPA phoneme alphabet instead of IPA
}

// FestivalConfig holds festival backend settings.
type FestivalConfig struct {
	Path string `yaml:"path"` // executable, discovered on PATH if empty
}

// MappingConfig holds grapheme-to-phoneme mapping backend settings.
type MappingConfig struct {
	Profile string `yaml:"profile"` // path to the two-column g2p file
	Unknown string `yaml:"unknown"` // "strict" or "ignore"
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "phonemize")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Backend:  "espeak",
		Language: "en-us",
		Separator: SeparatorConfig{
			Word:     " ",
			Syllable: "",
			Phone:    "_",
		},
		Punctuation: PunctuationConfig{
			Preserve: false,
			Marks:    punctuation.DefaultMarks,
		},
		NJobs:      1,
		EmptyLines: true,
		Mapping: MappingConfig{
			Unknown: "strict",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in the mapping profile path is expanded to
// the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Mapping.Profile = expandTilde(cfg.Mapping.Profile)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Backend {
	case "espeak", "festival", "goruut", "mapping":
	default:
		return fmt.Errorf("backend must be espeak, festival, goruut, or mapping, got %q", c.Backend)
	}

	if c.Language == "" {
		return fmt.Errorf("language must not be empty")
	}

	if _, err := separator.New(c.Separator.Word, c.Separator.Syllable, c.Separator.Phone); err != nil {
		return err
	}

	if c.Punctuation.Preserve && c.Punctuation.Marks == "" && c.Punctuation.Pattern == "" {
		return fmt.Errorf("punctuation.marks or punctuation.pattern required when preserving punctuation")
	}

	if c.NJobs < 1 {
		return fmt.Errorf("njobs must be >= 1, got %d", c.NJobs)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", time.Duration(c.Timeout))
	}

	if c.Backend == "mapping" && c.Mapping.Profile == "" {
		return fmt.Errorf("mapping.profile is required for the mapping backend")
	}

	switch c.Mapping.Unknown {
	case "strict", "ignore":
	default:
		return fmt.Errorf("mapping.unknown must be \"strict\" or \"ignore\", got %q", c.Mapping.Unknown)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// WriteDefault writes the default config to the default path, creating
// the directory if needed. Returns the path written. Refuses to
// overwrite an existing file.
func WriteDefault() (string, error) {
	dir := DefaultConfigDir()
	if dir == "" {
		return "", fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists: %s", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("marshaling default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
