package prompt

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"text/template"
)

var (
	errorLocation = regexp.MustCompile(`^template: [^:]*:(\d+)(?::(\d+))?: ((?s).*)$`)
	missingKey    = regexp.MustCompile(`map has no entry for key "([^"]*)"`)
	execTarget    = regexp.MustCompile(`at <([^>]*)>`)
	rootIndex     = regexp.MustCompile(`^index (?:\.|\$) "([^"]*)"$`)
)

// Output is the result of one render.
type Output struct {
	Chat      bool
	Text      string
	System    string
	User      string
	Variables RenderContext
	// Ignored lists supplied names that the template does not declare.
	Ignored []string
}

// Combined returns the single body, or the system and user bodies separated
// by a blank line.
func (o *Output) Combined() string {
	if !o.Chat {
		return o.Text
	}
	return o.System + "\n\n" + o.User
}

// Render resolves raw against the definition's declarations and renders every
// body in strict-undefined mode. Either every body renders or an error is
// returned; there is no partial output.
func Render(def *Definition, raw map[string]any, opts ...Option) (*Output, error) {
	ctx, err := Resolve(def, raw, opts...)
	if err != nil {
		return nil, err
	}
	out, err := Execute(def, ctx)
	if err != nil {
		return nil, err
	}
	out.Ignored = UnknownVariables(def, raw)
	return out, nil
}

// Execute renders def against an already resolved context. Reading a name
// that ctx does not bind fails with *UndefinedVariableError.
func Execute(def *Definition, ctx RenderContext) (*Output, error) {
	if def == nil {
		return nil, errors.New("template is required")
	}
	if ctx == nil {
		ctx = RenderContext{}
	}

	out := &Output{Chat: def.IsChat(), Variables: ctx}
	for _, body := range def.Bodies() {
		text, err := execute(def, body, ctx)
		if err != nil {
			return nil, err
		}
		switch body.Name {
		case BodySystem:
			out.System = text
		case BodyUser:
			out.User = text
		default:
			out.Text = text
		}
	}
	return out, nil
}

func execute(def *Definition, body NamedBody, ctx RenderContext) (string, error) {
	tmpl, err := parseBody(body.Name, body.Text)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, map[string]any(ctx)); err != nil {
		return "", executionError(def, body.Name, err)
	}
	return out.String(), nil
}

// Preview renders def leniently for display: missing values become
// "[name]" placeholders and values that fail coercion are shown as given.
func Preview(def *Definition, raw map[string]any) (string, error) {
	if def == nil {
		return "", errors.New("template is required")
	}

	data := make(map[string]any)
	for _, v := range def.Variables {
		if value, ok := raw[v.Name]; ok && value != nil {
			if coerced, err := Coerce(v, value); err == nil {
				data[v.Name] = coerced
			} else {
				data[v.Name] = value
			}
			continue
		}
		if v.HasDefault() {
			data[v.Name] = v.Default
			continue
		}
		data[v.Name] = placeholder(v.Type, v.Name)
	}

	parts := make([]string, 0, 2)
	for _, body := range def.Bodies() {
		if info, err := inspectBody(body.Name, body.Text); err == nil {
			for _, name := range info.Names() {
				if _, ok := data[name]; !ok {
					data[name] = placeholder(TypeString, name)
				}
			}
		}

		tmpl, err := newTemplate(body.Name, "zero").Parse(body.Text)
		if err != nil {
			return "", syntaxError(body.Name, err)
		}
		var out strings.Builder
		if err := tmpl.Execute(&out, data); err != nil {
			return "", &RenderError{Body: body.Name, Err: err}
		}
		parts = append(parts, out.String())
	}
	return strings.Join(parts, "\n\n"), nil
}

func placeholder(t VariableType, name string) any {
	text := "[" + name + "]"
	switch t {
	case TypeList:
		return []any{text}
	case TypeObject:
		return map[string]any{}
	}
	return text
}

func newTemplate(name, missingkey string) *template.Template {
	tmpl := template.New(name).Funcs(Filters())
	if missingkey != "error" {
		tmpl = tmpl.Funcs(lenientFilters())
	}
	return tmpl.Option("missingkey=" + missingkey)
}

func parseBody(name, text string) (*template.Template, error) {
	tmpl, err := newTemplate(name, "error").Parse(text)
	if err != nil {
		return nil, syntaxError(name, err)
	}
	return tmpl, nil
}

func syntaxError(body string, err error) *SyntaxError {
	serr := &SyntaxError{Body: body, Message: err.Error()}
	if m := errorLocation.FindStringSubmatch(err.Error()); m != nil {
		serr.Line, _ = strconv.Atoi(m[1])
		serr.Column, _ = strconv.Atoi(m[2])
		serr.Message = m[3]
	}
	return serr
}

func executionError(def *Definition, body string, err error) error {
	msg := err.Error()
	uerr := &UndefinedVariableError{Body: body}
	var indexErr *UndefinedVariableError
	switch m := missingKey.FindStringSubmatch(msg); {
	case errors.As(err, &indexErr):
		uerr.Name = indexErr.Name
	case m != nil:
		uerr.Name = m[1]
	default:
		return &RenderError{Body: body, Err: err}
	}

	if target := execTarget.FindStringSubmatch(msg); target != nil {
		uerr.Path = target[1]
		if indexErr != nil {
			switch m := rootIndex.FindStringSubmatch(uerr.Path); {
			case m != nil && m[1] == uerr.Name:
				uerr.Path = "." + uerr.Name
			case !strings.Contains(uerr.Path, " "):
				uerr.Path = ""
			}
		}
	}
	if loc := errorLocation.FindStringSubmatch(msg); loc != nil {
		uerr.Line, _ = strconv.Atoi(loc[1])
		uerr.Column, _ = strconv.Atoi(loc[2])
	}
	if uerr.Path == "" || uerr.Path == "."+uerr.Name || uerr.Path == "$."+uerr.Name {
		_, uerr.Declared = def.Variable(uerr.Name)
	}
	return uerr
}
