// Package prompt defines prompt template definitions and the pipeline that
// validates them and renders them against caller-supplied variables.
//
// A Definition is built once from a parsed document (FromMap), may be
// validated (Validate) without any variable values, and may be rendered
// (Render) any number of times. Definitions are treated as read-only after
// construction, so concurrent validation and rendering need no locking.
package prompt

import "strings"

// DefaultVersion is assigned to definitions that do not declare one.
const DefaultVersion = "1.0.0"

// Body names used in issues and errors.
const (
	BodyTemplate = "template"
	BodySystem   = "system"
	BodyUser     = "user"
)

// VariableType is the declared semantic type of a variable.
type VariableType string

const (
	TypeString  VariableType = "string"
	TypeInteger VariableType = "integer"
	TypeFloat   VariableType = "float"
	TypeBoolean VariableType = "boolean"
	TypeList    VariableType = "list"
	TypeObject  VariableType = "object"
)

// VariableTypes lists the closed set of supported types.
var VariableTypes = []VariableType{TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeList, TypeObject}

var typeAliases = map[string]VariableType{
	"string":            TypeString,
	"str":               TypeString,
	"text":              TypeString,
	"integer":           TypeInteger,
	"int":               TypeInteger,
	"float":             TypeFloat,
	"decimal":           TypeFloat,
	"number":            TypeFloat,
	"boolean":           TypeBoolean,
	"bool":              TypeBoolean,
	"list":              TypeList,
	"array":             TypeList,
	"object":            TypeObject,
	"structured-object": TypeObject,
	"map":               TypeObject,
	"dict":              TypeObject,
}

// ParseVariableType resolves a type name or one of its aliases.
func ParseVariableType(name string) (VariableType, bool) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Valid reports whether t is one of the supported types.
func (t VariableType) Valid() bool {
	_, ok := coercers[t]
	return ok
}

// Scalar reports whether values of t can be enum-constrained.
func (t VariableType) Scalar() bool {
	switch t {
	case TypeString, TypeInteger, TypeFloat, TypeBoolean:
		return true
	}
	return false
}

// Variable declares one formal parameter of a template.
type Variable struct {
	Name        string       `json:"name" yaml:"name"`
	Type        VariableType `json:"type" yaml:"type"`
	Required    bool         `json:"required" yaml:"required"`
	Default     any          `json:"default,omitempty" yaml:"default,omitempty"`
	Enum        []any        `json:"enum,omitempty" yaml:"enum,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Delimiter   string       `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
}

// HasDefault reports whether the variable declares a default value.
func (v Variable) HasDefault() bool {
	return v.Default != nil
}

// Definition is a named, versioned prompt template.
//
// Exactly one of Template or the System/User pair is set.
type Definition struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string         `json:"version" yaml:"version"`
	Author      string         `json:"author,omitempty" yaml:"author,omitempty"`
	Tags        []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Variables   []Variable     `json:"variables,omitempty" yaml:"variables,omitempty"`
	Template    string         `json:"template,omitempty" yaml:"template,omitempty"`
	System      string         `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	User        string         `json:"user_prompt,omitempty" yaml:"user_prompt,omitempty"`
	ModelConfig map[string]any `json:"model_config,omitempty" yaml:"model_config,omitempty"`
	Source      string         `json:"-" yaml:"-"` // file path or "builtin"
}

// IsChat reports whether the definition uses the system/user body pair.
func (d *Definition) IsChat() bool {
	return d.System != "" || d.User != ""
}

// Bodies returns the definition's bodies keyed by body name, in render order.
func (d *Definition) Bodies() []NamedBody {
	if d.IsChat() {
		return []NamedBody{
			{Name: BodySystem, Text: d.System},
			{Name: BodyUser, Text: d.User},
		}
	}
	return []NamedBody{{Name: BodyTemplate, Text: d.Template}}
}

// Variable returns the declaration with the given name.
func (d *Definition) Variable(name string) (Variable, bool) {
	for _, v := range d.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// RequiredVariables returns declarations that must be supplied by the caller.
func (d *Definition) RequiredVariables() []Variable {
	var out []Variable
	for _, v := range d.Variables {
		if v.Required && !v.HasDefault() {
			out = append(out, v)
		}
	}
	return out
}

// NamedBody pairs a body with its name.
type NamedBody struct {
	Name string
	Text string
}
