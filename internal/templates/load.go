package templates

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opencode-ai/promptctl/internal/prompt"
)

var templateExtensions = []string{".yaml", ".yml", ".json"}

// IsTemplateFile reports whether path has a template file extension.
func IsTemplateFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range templateExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// LoadTemplate reads a single template from disk.
func LoadTemplate(path string) (*prompt.Definition, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("template path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}

	def, err := ParseTemplate(data, path)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	return def, nil
}

// ParseTemplate decodes a YAML or JSON document into a definition.
func ParseTemplate(data []byte, source string) (*prompt.Definition, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("template document is empty")
	}

	def, err := prompt.FromMap(doc)
	if err != nil {
		return nil, err
	}
	def.Source = source
	return def, nil
}

// LoadTemplatesFromDir loads every template under dir, descending into
// subdirectories but skipping hidden ones. Files that fail to load are
// returned as LoadErrors alongside the templates that did load. A missing
// directory yields no templates and no error.
func LoadTemplatesFromDir(dir string) ([]*prompt.Definition, []*LoadError, error) {
	if strings.TrimSpace(dir) == "" {
		return []*prompt.Definition{}, nil, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*prompt.Definition{}, nil, nil
		}
		return nil, nil, fmt.Errorf("read templates dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("templates path %s is not a directory", dir)
	}

	defs := make([]*prompt.Definition, 0)
	var failures []*LoadError
	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			if path != dir && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") || !IsTemplateFile(path) {
			return nil
		}
		def, err := LoadTemplate(path)
		if err != nil {
			failures = append(failures, &LoadError{Path: path, Err: err})
			return nil
		}
		defs = append(defs, def)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("read templates dir %s: %w", dir, err)
	}

	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs, failures, nil
}
