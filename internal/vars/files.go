package vars

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExpandFileRefs replaces string values of the form "@path" with the content
// of the referenced file. A glob pattern may match several files; their
// contents are concatenated, each preceded by a "# File: <path>" line. A
// leading "@@" yields a literal "@". Relative paths resolve against baseDir.
func ExpandFileRefs(values map[string]any, baseDir string) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for key, value := range values {
		s, ok := value.(string)
		if !ok || !strings.HasPrefix(s, "@") {
			out[key] = value
			continue
		}
		if strings.HasPrefix(s, "@@") {
			out[key] = s[1:]
			continue
		}
		content, err := readFileRef(strings.TrimPrefix(s, "@"), baseDir)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", key, err)
		}
		out[key] = content
	}
	return out, nil
}

func readFileRef(ref, baseDir string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty file reference")
	}
	pattern := expandHome(ref)
	if !filepath.IsAbs(pattern) && baseDir != "" {
		pattern = filepath.Join(baseDir, pattern)
	}

	if !strings.ContainsAny(ref, "*?[") {
		data, err := os.ReadFile(pattern)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", ref, err)
		}
		return string(data), nil
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern %s: %w", ref, err)
	}
	files := matches[:0]
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil && !info.IsDir() {
			files = append(files, match)
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no files match %s", ref)
	}
	sort.Strings(files)

	if len(files) == 1 {
		data, err := os.ReadFile(files[0])
		if err != nil {
			return "", fmt.Errorf("read %s: %w", files[0], err)
		}
		return string(data), nil
	}

	parts := make([]string, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		parts = append(parts, fmt.Sprintf("# File: %s\n%s", file, strings.TrimRight(string(data), "\n")))
	}
	return strings.Join(parts, "\n\n"), nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, path[2:])
}
