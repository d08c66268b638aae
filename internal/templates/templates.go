// Package templates discovers prompt template files on disk and in the
// embedded builtin set, and resolves them by name.
package templates

import (
	"fmt"
	"strings"
)

// SourceBuiltin marks definitions loaded from the embedded set.
const SourceBuiltin = "builtin"

// LoadError describes a template file that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load template %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when no template matches a name.
type NotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("template %q not found", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

// PathStatus reports one search directory.
type PathStatus struct {
	Path      string `json:"path"`
	Exists    bool   `json:"exists"`
	Templates int    `json:"templates"`
}
