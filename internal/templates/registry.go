package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opencode-ai/promptctl/internal/logging"
	"github.com/opencode-ai/promptctl/internal/prompt"
)

// Registry resolves templates across search paths and the builtin set.
// It reads from disk on every call and holds no cache.
type Registry struct {
	paths    []string
	builtins bool
	logger   zerolog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithBuiltins toggles the embedded templates.
func WithBuiltins(enabled bool) RegistryOption {
	return func(r *Registry) {
		r.builtins = enabled
	}
}

// WithLogger sets the logger used for skipped files.
func WithLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry over paths, searched in order.
func NewRegistry(paths []string, opts ...RegistryOption) *Registry {
	r := &Registry{
		paths:    append([]string(nil), paths...),
		builtins: true,
		logger:   logging.Component("templates"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Paths returns the search directories in precedence order.
func (r *Registry) Paths() []string {
	return append([]string(nil), r.paths...)
}

// List returns every reachable template, sorted by name. When two sources
// define the same name the earlier search path wins and builtins come last.
// Files that fail to load are logged, skipped and returned as failures.
func (r *Registry) List() ([]*prompt.Definition, []*LoadError, error) {
	seen := make(map[string]*prompt.Definition)
	var failures []*LoadError

	for _, path := range r.paths {
		defs, problems, err := LoadTemplatesFromDir(path)
		if err != nil {
			return nil, nil, err
		}
		for _, problem := range problems {
			r.logger.Warn().Err(problem.Err).Str("path", problem.Path).Msg("skipping invalid template")
		}
		failures = append(failures, problems...)
		for _, def := range defs {
			if existing, exists := seen[def.Name]; exists {
				r.logger.Debug().
					Str("template", def.Name).
					Str("path", def.Source).
					Str("shadowed_by", existing.Source).
					Msg("template shadowed")
				continue
			}
			seen[def.Name] = def
		}
	}

	if r.builtins {
		builtins, err := LoadBuiltinTemplates()
		if err != nil {
			return nil, nil, err
		}
		for _, def := range builtins {
			if _, exists := seen[def.Name]; !exists {
				seen[def.Name] = def
			}
		}
	}

	resolved := make([]*prompt.Definition, 0, len(seen))
	for _, def := range seen {
		resolved = append(resolved, def)
	}
	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].Name < resolved[j].Name
	})
	return resolved, failures, nil
}

// Find resolves name as a file path, then as a file stem in the search
// paths, then as a template name. It returns nil when nothing matches.
func (r *Registry) Find(name string) (*prompt.Definition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("template name is required")
	}

	if IsTemplateFile(name) {
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			return LoadTemplate(name)
		}
	}

	for _, dir := range r.paths {
		for _, ext := range templateExtensions {
			path := filepath.Join(dir, name+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return LoadTemplate(path)
			}
		}
	}

	defs, _, err := r.List()
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if def.Name == name {
			return def, nil
		}
	}
	for _, def := range defs {
		if strings.EqualFold(def.Name, name) {
			return def, nil
		}
	}
	return nil, nil
}

// Load is Find with a *NotFoundError carrying close matches.
func (r *Registry) Load(name string) (*prompt.Definition, error) {
	def, err := r.Find(name)
	if err != nil {
		return nil, err
	}
	if def != nil {
		return def, nil
	}

	defs, _, err := r.List()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return nil, &NotFoundError{Name: name, Suggestions: suggest(name, names, 3)}
}

// Search returns templates whose name or description contains query
// (case-insensitive) and that carry every tag in tags.
func (r *Registry) Search(query string, tags []string) ([]*prompt.Definition, error) {
	defs, _, err := r.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	matches := make([]*prompt.Definition, 0)
	for _, def := range defs {
		if query != "" &&
			!strings.Contains(strings.ToLower(def.Name), query) &&
			!strings.Contains(strings.ToLower(def.Description), query) {
			continue
		}
		if !hasTags(def, tags) {
			continue
		}
		matches = append(matches, def)
	}
	return matches, nil
}

// PathStatus reports each search directory and how many templates load from it.
func (r *Registry) PathStatus() []PathStatus {
	statuses := make([]PathStatus, 0, len(r.paths))
	for _, path := range r.paths {
		status := PathStatus{Path: path}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			status.Exists = true
			if defs, _, err := LoadTemplatesFromDir(path); err == nil {
				status.Templates = len(defs)
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func hasTags(def *prompt.Definition, tags []string) bool {
	for _, want := range tags {
		want = strings.TrimSpace(want)
		if want == "" {
			continue
		}
		found := false
		for _, tag := range def.Tags {
			if strings.EqualFold(tag, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// suggest returns up to limit candidates close to name, nearest first.
func suggest(name string, candidates []string, limit int) []string {
	type scored struct {
		name string
		dist int
	}

	target := strings.ToLower(name)
	threshold := len(target)/3 + 1
	if threshold < 2 {
		threshold = 2
	}

	var matches []scored
	for _, candidate := range candidates {
		lower := strings.ToLower(candidate)
		dist := levenshtein(target, lower)
		if strings.Contains(lower, target) || strings.Contains(target, lower) {
			dist = 0
		}
		if dist <= threshold {
			matches = append(matches, scored{name: candidate, dist: dist})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].name < matches[j].name
	})

	out := make([]string, 0, limit)
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, m.name)
	}
	return out
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
