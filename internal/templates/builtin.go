package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/opencode-ai/promptctl/internal/prompt"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// LoadBuiltinTemplates returns the templates bundled with the binary.
func LoadBuiltinTemplates() ([]*prompt.Definition, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, fmt.Errorf("read builtin templates: %w", err)
	}

	defs := make([]*prompt.Definition, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := builtinFS.ReadFile("builtin/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read builtin template %s: %w", entry.Name(), err)
		}
		def, err := ParseTemplate(data, SourceBuiltin)
		if err != nil {
			return nil, fmt.Errorf("parse builtin template %s: %w", entry.Name(), err)
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs, nil
}

// WriteBuiltinTemplates copies the bundled template files into dir. Existing
// files are left alone unless overwrite is set; their paths are returned as
// skipped.
func WriteBuiltinTemplates(dir string, overwrite bool) (written, skipped []string, err error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, nil, fmt.Errorf("read builtin templates: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		target := filepath.Join(dir, entry.Name())
		if _, statErr := os.Stat(target); statErr == nil && !overwrite {
			skipped = append(skipped, target)
			continue
		}
		data, err := builtinFS.ReadFile("builtin/" + entry.Name())
		if err != nil {
			return written, skipped, fmt.Errorf("read builtin template %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return written, skipped, fmt.Errorf("write %s: %w", target, err)
		}
		written = append(written, target)
	}
	return written, skipped, nil
}
