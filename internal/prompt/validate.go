package prompt

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue codes.
const (
	CodeInvalidName        = "invalid_name"
	CodeInvalidBody        = "invalid_body"
	CodeSyntax             = "syntax_error"
	CodeInvalidVariable    = "invalid_variable"
	CodeDuplicateVariable  = "duplicate_variable"
	CodeInvalidDefault     = "invalid_default"
	CodeInvalidEnum        = "invalid_enum"
	CodeUndeclaredVariable = "undeclared_variable"
	CodeUnusedVariable     = "unused_variable"
	CodeMissingDescription = "missing_description"
)

var undefinedFunction = regexp.MustCompile(`function "([^"]+)" not defined`)

// Issue is a single validation finding.
type Issue struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Variable string `json:"variable,omitempty"`
	Body     string `json:"body,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

func (i Issue) String() string {
	var b strings.Builder
	if i.Body != "" {
		b.WriteString(i.Body)
		if i.Line > 0 {
			fmt.Fprintf(&b, ":%d", i.Line)
			if i.Column > 0 {
				fmt.Fprintf(&b, ":%d", i.Column)
			}
		}
		b.WriteString(": ")
	}
	b.WriteString(i.Message)
	return b.String()
}

// Report is the outcome of validating one definition.
type Report struct {
	Template   string   `json:"template"`
	Valid      bool     `json:"valid"`
	Errors     []Issue  `json:"errors"`
	Warnings   []Issue  `json:"warnings"`
	Declared   []string `json:"declared"`
	Referenced []string `json:"referenced"`
}

func (r *Report) addError(issue Issue) {
	issue.Severity = SeverityError
	r.Errors = append(r.Errors, issue)
}

func (r *Report) addWarning(issue Issue) {
	issue.Severity = SeverityWarning
	r.Warnings = append(r.Warnings, issue)
}

// Err returns nil for a valid report and a *ValidationError otherwise.
func (r *Report) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	return &ValidationError{Report: r}
}

// ValidationError carries an invalid report through error returns.
type ValidationError struct {
	Report *Report
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Report.Errors))
	for _, issue := range e.Report.Errors {
		msgs = append(msgs, issue.String())
	}
	return fmt.Sprintf("template %q is invalid: %s", e.Report.Template, strings.Join(msgs, "; "))
}

// Validate statically checks def without any variable values. It never
// mutates def and returns a fresh report on every call; warnings do not
// affect Report.Valid.
func Validate(def *Definition) *Report {
	report := &Report{Errors: []Issue{}, Warnings: []Issue{}, Declared: []string{}, Referenced: []string{}}
	if def == nil {
		report.addError(Issue{Code: CodeInvalidName, Message: "template is required"})
		return report
	}
	report.Template = def.Name

	if strings.TrimSpace(def.Name) == "" {
		report.addError(Issue{Code: CodeInvalidName, Message: "template name is required"})
	}
	checkBodies(report, def)
	declared := checkVariables(report, def)

	referenced := make(map[string]bool)
	wholeContext := false
	for _, body := range def.Bodies() {
		if strings.TrimSpace(body.Text) == "" {
			continue
		}
		info, err := inspectBody(body.Name, body.Text)
		if err != nil {
			var serr *SyntaxError
			if errors.As(err, &serr) {
				report.addError(syntaxIssue(serr, declared))
				continue
			}
			report.addError(Issue{Code: CodeSyntax, Body: body.Name, Message: err.Error()})
			continue
		}
		wholeContext = wholeContext || info.UsesWholeContext

		undeclared := make([]Reference, 0)
		for _, name := range info.Names() {
			referenced[name] = true
			if declared[name] {
				continue
			}
			first, _ := info.First(name)
			undeclared = append(undeclared, first)
		}
		sort.Slice(undeclared, func(i, j int) bool { return undeclared[i].offset < undeclared[j].offset })
		for _, ref := range undeclared {
			report.addError(Issue{
				Code:     CodeUndeclaredVariable,
				Variable: ref.Name,
				Body:     body.Name,
				Line:     ref.Line,
				Column:   ref.Column,
				Message:  fmt.Sprintf("variable %q is used but not declared", ref.Name),
			})
		}
	}

	if !wholeContext {
		for _, v := range def.Variables {
			if v.Name != "" && !referenced[v.Name] {
				report.addWarning(Issue{
					Code:     CodeUnusedVariable,
					Variable: v.Name,
					Message:  fmt.Sprintf("variable %q is declared but not used", v.Name),
				})
			}
		}
	}

	if strings.TrimSpace(def.Description) == "" {
		report.addWarning(Issue{Code: CodeMissingDescription, Message: "template has no description"})
	}
	for _, v := range def.Variables {
		if strings.TrimSpace(v.Description) == "" {
			report.addWarning(Issue{
				Code:     CodeMissingDescription,
				Variable: v.Name,
				Message:  fmt.Sprintf("variable %q has no description", v.Name),
			})
		}
	}

	for _, v := range def.Variables {
		report.Declared = append(report.Declared, v.Name)
	}
	for name := range referenced {
		report.Referenced = append(report.Referenced, name)
	}
	sort.Strings(report.Referenced)

	report.Valid = len(report.Errors) == 0
	return report
}

func checkBodies(report *Report, def *Definition) {
	hasTemplate := def.Template != ""
	hasSystem := def.System != ""
	hasUser := def.User != ""

	switch {
	case hasTemplate && (hasSystem || hasUser):
		report.addError(Issue{Code: CodeInvalidBody, Message: "set either template or system_prompt/user_prompt, not both"})
	case !hasTemplate && !hasSystem && !hasUser:
		report.addError(Issue{Code: CodeInvalidBody, Message: "one of template or system_prompt/user_prompt is required"})
	case hasTemplate:
		if strings.TrimSpace(def.Template) == "" {
			report.addError(Issue{Code: CodeInvalidBody, Body: BodyTemplate, Message: "template body is blank"})
		}
	default:
		if strings.TrimSpace(def.System) == "" {
			report.addError(Issue{Code: CodeInvalidBody, Body: BodySystem, Message: "system_prompt is required together with user_prompt"})
		}
		if strings.TrimSpace(def.User) == "" {
			report.addError(Issue{Code: CodeInvalidBody, Body: BodyUser, Message: "user_prompt is required together with system_prompt"})
		}
	}
}

// checkVariables re-verifies declarations, including definitions that were
// built directly rather than through FromMap.
func checkVariables(report *Report, def *Definition) map[string]bool {
	declared := make(map[string]bool, len(def.Variables))
	for _, v := range def.Variables {
		if !identifierPattern.MatchString(v.Name) {
			report.addError(Issue{Code: CodeInvalidVariable, Variable: v.Name, Message: fmt.Sprintf("variable name %q is not an identifier", v.Name)})
		}
		if declared[v.Name] {
			report.addError(Issue{Code: CodeDuplicateVariable, Variable: v.Name, Message: fmt.Sprintf("duplicate variable %q", v.Name)})
		}
		declared[v.Name] = true

		if !v.Type.Valid() {
			report.addError(Issue{Code: CodeInvalidVariable, Variable: v.Name, Message: fmt.Sprintf("variable %q has unknown type %q", v.Name, v.Type)})
			continue
		}
		if v.Required && v.HasDefault() {
			report.addError(Issue{Code: CodeInvalidDefault, Variable: v.Name, Message: fmt.Sprintf("required variable %q cannot declare a default", v.Name)})
		}

		enumOK := true
		if len(v.Enum) > 0 {
			if !v.Type.Scalar() {
				enumOK = false
				report.addError(Issue{Code: CodeInvalidEnum, Variable: v.Name, Message: fmt.Sprintf("enum is not supported for %s variable %q", v.Type, v.Name)})
			} else {
				plain := Variable{Name: v.Name, Type: v.Type}
				for _, value := range v.Enum {
					if _, err := Coerce(plain, value); err != nil || value == nil {
						enumOK = false
						report.addError(Issue{Code: CodeInvalidEnum, Variable: v.Name, Message: fmt.Sprintf("enum value %v of %q is not a valid %s", value, v.Name, v.Type)})
					}
				}
			}
		}

		if v.HasDefault() && enumOK {
			if _, err := Coerce(v, v.Default); err != nil {
				var enumErr *EnumViolationError
				msg := fmt.Sprintf("default of %q is not a valid %s: %v", v.Name, v.Type, err)
				if errors.As(err, &enumErr) {
					msg = fmt.Sprintf("default %v of %q is not in enum", v.Default, v.Name)
				}
				report.addError(Issue{Code: CodeInvalidDefault, Variable: v.Name, Message: msg})
			}
		}
	}
	return declared
}

func syntaxIssue(serr *SyntaxError, declared map[string]bool) Issue {
	msg := serr.Message
	if m := undefinedFunction.FindStringSubmatch(msg); m != nil && declared[m[1]] {
		msg += fmt.Sprintf(" (variables are referenced as {{.%s}})", m[1])
	}
	return Issue{
		Code:    CodeSyntax,
		Body:    serr.Body,
		Line:    serr.Line,
		Column:  serr.Column,
		Message: msg,
	}
}
