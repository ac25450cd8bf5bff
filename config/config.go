// Package config holds the host-tunable knobs the core exposes: ignore
// rules for the Source Classifier, the extension-to-parser mapping, and
// the API prefix the Endpoint Extractor prepends.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParserKind names one of the L2 parser identities a file extension can
// map to.
type ParserKind string

const (
	ParserScript    ParserKind = "script"
	ParserWebScript ParserKind = "web-script"
	ParserMarkup    ParserKind = "markup"
)

// Config is the full set of options §6 enumerates.
type Config struct {
	IgnoredDirectories    []string             `yaml:"ignored_directories"`
	IgnoredFileExtensions []string             `yaml:"ignored_file_extensions"`
	IgnoredFiles          []string             `yaml:"ignored_files"`
	ParserMapping         map[string]ParserKind `yaml:"parser_mapping"`
	APIPrefix             string               `yaml:"api_prefix"`
}

// Default returns the configuration the original repository hard-coded:
// a .py/.js/.jsx/.html(.htm) mapping and an "/api" prefix.
func Default() *Config {
	return &Config{
		IgnoredDirectories:    []string{"node_modules", ".git", "__pycache__", "venv", ".venv", "dist", "build"},
		IgnoredFileExtensions: []string{".min.js", ".map"},
		IgnoredFiles:          []string{},
		ParserMapping: map[string]ParserKind{
			".py":   ParserScript,
			".js":   ParserWebScript,
			".jsx":  ParserWebScript,
			".html": ParserMarkup,
			".htm":  ParserMarkup,
		},
		APIPrefix: "/api",
	}
}

// Load reads a YAML configuration file, starting from Default() so a
// partial file only overrides what it mentions.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
