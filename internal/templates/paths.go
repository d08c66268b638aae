package templates

import (
	"os"
	"path/filepath"
	"strings"
)

// TemplateSearchPaths returns template search directories in precedence
// order: extra paths first, then project and user directories.
func TemplateSearchPaths(projectDir string, extra []string) []string {
	paths := make([]string, 0, len(extra)+4)
	seen := make(map[string]struct{})
	add := func(path string) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		path = expandHome(path)
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; ok {
			return
		}
		seen[clean] = struct{}{}
		paths = append(paths, clean)
	}

	for _, path := range extra {
		add(path)
	}
	if projectDir != "" {
		add(filepath.Join(projectDir, "templates"))
		add(filepath.Join(projectDir, "prompts"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		add(filepath.Join(home, ".config", "prompt", "templates"))
		add(filepath.Join(home, ".prompt_templates"))
	}
	return paths
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
