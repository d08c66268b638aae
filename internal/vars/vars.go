// Package vars gathers raw variable values from the command line, files and
// interactive prompts before they are handed to the render pipeline.
package vars

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseAssignments parses key=value pairs. The first '=' splits the pair so
// values may contain '='. Later assignments override earlier ones.
func ParseAssignments(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid variable %q: expected key=value", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid variable %q: empty key", pair)
		}
		values[key] = value
	}
	return values, nil
}

// LoadFile reads a JSON or YAML mapping of variable values.
func LoadFile(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("variables file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variables file %s: %w", path, err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse variables file %s: %w", path, err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

// Merge layers sources left to right; later sources win.
func Merge(sources ...map[string]any) map[string]any {
	merged := make(map[string]any)
	for _, source := range sources {
		for key, value := range source {
			merged[key] = value
		}
	}
	return merged
}
