package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateClean(t *testing.T) {
	def := &Definition{
		Name:        "greet",
		Description: "Greets someone",
		Template:    "Hello, {{.name}}!",
		Variables:   []Variable{{Name: "name", Type: TypeString, Required: true, Description: "Who"}},
	}

	report := Validate(def)
	if !report.Valid {
		t.Fatalf("expected valid report, got %+v", report.Errors)
	}
	if diff := cmp.Diff([]Issue{}, report.Warnings); diff != "" {
		t.Fatalf("unexpected warnings (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name"}, report.Referenced); diff != "" {
		t.Fatalf("unexpected referenced (-want +got):\n%s", diff)
	}
	if report.Err() != nil {
		t.Fatalf("expected nil Err for valid report")
	}
}

func TestValidateUndeclaredAndUnused(t *testing.T) {
	def := &Definition{
		Name:        "refs",
		Description: "d",
		Template:    "Hi {{.who}} {{.what}}\n{{.when}}",
		Variables: []Variable{
			{Name: "who", Type: TypeString, Required: true, Description: "d"},
			{Name: "spare", Type: TypeString, Description: "d"},
		},
	}

	report := Validate(def)
	wantErrors := []Issue{
		{
			Code:     CodeUndeclaredVariable,
			Severity: SeverityError,
			Message:  `variable "what" is used but not declared`,
			Variable: "what",
			Body:     BodyTemplate,
			Line:     1,
			Column:   15,
		},
		{
			Code:     CodeUndeclaredVariable,
			Severity: SeverityError,
			Message:  `variable "when" is used but not declared`,
			Variable: "when",
			Body:     BodyTemplate,
			Line:     2,
			Column:   3,
		},
	}
	if diff := cmp.Diff(wantErrors, report.Errors); diff != "" {
		t.Fatalf("unexpected errors (-want +got):\n%s", diff)
	}
	wantWarnings := []Issue{{
		Code:     CodeUnusedVariable,
		Severity: SeverityWarning,
		Message:  `variable "spare" is declared but not used`,
		Variable: "spare",
	}}
	if diff := cmp.Diff(wantWarnings, report.Warnings); diff != "" {
		t.Fatalf("unexpected warnings (-want +got):\n%s", diff)
	}
	if report.Valid {
		t.Fatalf("expected invalid report")
	}

	var verr *ValidationError
	if !errors.As(report.Err(), &verr) || !strings.Contains(verr.Error(), "template:1:15") {
		t.Fatalf("unexpected Err: %v", report.Err())
	}
}

func TestValidateChatBodiesReportPerBody(t *testing.T) {
	def := &Definition{
		Name:        "chat",
		Description: "d",
		System:      "You are {{.role}} for {{.team}}.",
		User:        "{{.task}}",
		Variables: []Variable{
			{Name: "role", Type: TypeString, Required: true, Description: "d"},
			{Name: "task", Type: TypeString, Required: true, Description: "d"},
		},
	}

	report := Validate(def)
	if len(report.Errors) != 1 {
		t.Fatalf("expected one error, got %+v", report.Errors)
	}
	if report.Errors[0].Body != BodySystem || report.Errors[0].Variable != "team" {
		t.Fatalf("unexpected error: %+v", report.Errors[0])
	}
}

func TestValidateWholeContextSuppressesUnused(t *testing.T) {
	def := &Definition{
		Name:        "dump",
		Description: "d",
		Template:    "{{toJSON .}}",
		Variables:   []Variable{{Name: "a", Type: TypeString, Description: "d"}},
	}

	report := Validate(def)
	if !report.Valid || len(report.Warnings) != 0 {
		t.Fatalf("expected clean report, got %+v / %+v", report.Errors, report.Warnings)
	}
}

func TestValidateIndexLiteralKeys(t *testing.T) {
	def := &Definition{
		Name:        "lookup",
		Description: "d",
		Template:    `Hi {{index . "nme"}}!`,
		Variables:   []Variable{{Name: "name", Type: TypeString, Required: true, Description: "d"}},
	}

	report := Validate(def)
	wantErrors := []Issue{{
		Code:     CodeUndeclaredVariable,
		Severity: SeverityError,
		Message:  `variable "nme" is used but not declared`,
		Variable: "nme",
		Body:     BodyTemplate,
		Line:     1,
		Column:   14,
	}}
	if diff := cmp.Diff(wantErrors, report.Errors); diff != "" {
		t.Fatalf("unexpected errors (-want +got):\n%s", diff)
	}
	wantWarnings := []Issue{{
		Code:     CodeUnusedVariable,
		Severity: SeverityWarning,
		Message:  `variable "name" is declared but not used`,
		Variable: "name",
	}}
	if diff := cmp.Diff(wantWarnings, report.Warnings); diff != "" {
		t.Fatalf("unexpected warnings (-want +got):\n%s", diff)
	}
}

func TestValidateReboundAlias(t *testing.T) {
	def := &Definition{
		Name:        "alias",
		Description: "d",
		Template:    "{{$u := .}}{{$u = .user}}{{$u.email}}",
		Variables:   []Variable{{Name: "user", Type: TypeObject, Required: true, Description: "d"}},
	}

	report := Validate(def)
	if !report.Valid || len(report.Warnings) != 0 {
		t.Fatalf("expected clean report, got %+v / %+v", report.Errors, report.Warnings)
	}
}

func TestValidateSyntax(t *testing.T) {
	def := &Definition{
		Name:      "syntax",
		Template:  "Hello {{name}}",
		Variables: []Variable{{Name: "name", Type: TypeString, Required: true}},
	}

	report := Validate(def)
	if report.Valid || len(report.Errors) != 1 {
		t.Fatalf("expected one syntax error, got %+v", report.Errors)
	}
	issue := report.Errors[0]
	if issue.Code != CodeSyntax || issue.Line != 1 {
		t.Fatalf("unexpected issue: %+v", issue)
	}
	if !strings.Contains(issue.Message, "{{.name}}") {
		t.Fatalf("expected reference hint, got %q", issue.Message)
	}
	// Unparseable bodies contribute no references, so nothing is flagged unused.
	for _, w := range report.Warnings {
		if w.Code == CodeUnusedVariable {
			t.Fatalf("unexpected unused warning: %+v", w)
		}
	}
}

func TestValidateDeclarations(t *testing.T) {
	def := &Definition{
		Name:        "decls",
		Description: "d",
		Template:    "{{.a}}{{.b}}{{.c}}{{.d}}{{.e}}",
		Variables: []Variable{
			{Name: "a", Type: TypeString, Required: true, Default: "x", Description: "d"},
			{Name: "b", Type: TypeInteger, Default: "nope", Description: "d"},
			{Name: "c", Type: TypeString, Default: "loud", Enum: []any{"formal"}, Description: "d"},
			{Name: "d", Type: "blob", Description: "d"},
			{Name: "e", Type: TypeList, Enum: []any{"x"}, Description: "d"},
			{Name: "a", Type: TypeString, Description: "d"},
		},
	}

	report := Validate(def)
	var codes []string
	for _, issue := range report.Errors {
		codes = append(codes, issue.Code+":"+issue.Variable)
	}
	want := []string{
		CodeInvalidDefault + ":a",
		CodeInvalidDefault + ":b",
		CodeInvalidDefault + ":c",
		CodeInvalidVariable + ":d",
		CodeInvalidEnum + ":e",
		CodeDuplicateVariable + ":a",
	}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Fatalf("unexpected issues (-want +got):\n%s", diff)
	}
}

func TestValidateBodies(t *testing.T) {
	tests := []struct {
		name string
		def  *Definition
	}{
		{name: "no body", def: &Definition{Name: "x"}},
		{name: "both forms", def: &Definition{Name: "x", Template: "t", System: "s", User: "u"}},
		{name: "system only", def: &Definition{Name: "x", System: "s"}},
		{name: "blank template", def: &Definition{Name: "x", Template: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Validate(tt.def)
			if report.Valid {
				t.Fatalf("expected invalid report")
			}
			if report.Errors[0].Code != CodeInvalidBody {
				t.Fatalf("unexpected first issue: %+v", report.Errors[0])
			}
		})
	}
}

func TestValidateMetadataWarnings(t *testing.T) {
	def := &Definition{
		Name:      "meta",
		Template:  "{{.a}}",
		Variables: []Variable{{Name: "a", Type: TypeString, Required: true}},
	}

	report := Validate(def)
	if !report.Valid {
		t.Fatalf("warnings must not invalidate: %+v", report.Errors)
	}
	if len(report.Warnings) != 2 {
		t.Fatalf("expected two description warnings, got %+v", report.Warnings)
	}
	for _, w := range report.Warnings {
		if w.Code != CodeMissingDescription {
			t.Fatalf("unexpected warning: %+v", w)
		}
	}
}

func TestValidateIsRepeatable(t *testing.T) {
	def := &Definition{
		Name:      "repeat",
		Template:  "{{.x}} {{.y}}",
		Variables: []Variable{{Name: "x", Type: TypeString}, {Name: "z", Type: TypeString}},
	}

	first := Validate(def)
	second := Validate(def)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("reports differ (-first +second):\n%s", diff)
	}
	if first == second {
		t.Fatalf("expected a fresh report per call")
	}
}
