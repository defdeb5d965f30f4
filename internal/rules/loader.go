package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a ruleset file from disk and compiles it. An empty path yields
// the built-in default pipeline.
func Load(path string) (*Ruleset, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse compiles a YAML-encoded ruleset document.
func Parse(data []byte) (*Ruleset, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("rules: parse ruleset: %w", err)
	}
	return Compile(f)
}
