package prompt

import (
	"fmt"
	"strings"
)

// SchemaError reports a structurally invalid definition.
type SchemaError struct {
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid template: %s", e.Message)
	}
	return fmt.Sprintf("invalid template: %s: %s", e.Field, e.Message)
}

// TypeCoercionError reports a value that cannot become its declared type.
type TypeCoercionError struct {
	Variable string
	Type     VariableType
	Value    any
	Reason   string
}

func (e *TypeCoercionError) Error() string {
	msg := fmt.Sprintf("variable %q: cannot convert %s to %s", e.Variable, describeValue(e.Value), e.Type)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// EnumViolationError reports a coerced value outside the declared enum.
type EnumViolationError struct {
	Variable string
	Value    any
	Allowed  []any
}

func (e *EnumViolationError) Error() string {
	allowed := make([]string, 0, len(e.Allowed))
	for _, v := range e.Allowed {
		allowed = append(allowed, fmt.Sprint(v))
	}
	return fmt.Sprintf("variable %q: value %s is not one of [%s]", e.Variable, describeValue(e.Value), strings.Join(allowed, ", "))
}

// MissingVariableError reports a required variable with no value and no default.
type MissingVariableError struct {
	Variable string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("missing required variable %q", e.Variable)
}

// SyntaxError reports a body that the template parser rejects.
type SyntaxError struct {
	Body    string
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s body: syntax error%s: %s", e.Body, position(e.Line, e.Column), e.Message)
}

// UndefinedVariableError reports a render-time access to a name absent from
// the resolved context.
type UndefinedVariableError struct {
	Body     string
	Name     string
	Path     string // full reference, e.g. ".user.email"
	Line     int
	Column   int
	Declared bool // the name is declared but was not bound for this render
}

func (e *UndefinedVariableError) Error() string {
	ref := e.Name
	if e.Path != "" {
		ref = e.Path
	}
	msg := fmt.Sprintf("%s body: undefined variable %q%s", e.Body, ref, position(e.Line, e.Column))
	if e.Declared {
		msg += " (declared optional with no default and not supplied)"
	}
	return msg
}

// RenderError wraps any other execution failure, naming the body that failed.
type RenderError struct {
	Body string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s body: render failed: %v", e.Body, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func position(line, col int) string {
	switch {
	case line > 0 && col > 0:
		return fmt.Sprintf(" at line %d, column %d", line, col)
	case line > 0:
		return fmt.Sprintf(" at line %d", line)
	}
	return ""
}

func describeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprintf("%v (%T)", val, val)
	}
}
