package prompt

import (
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func decode(t *testing.T, doc string) map[string]any {
	t.Helper()
	var data map[string]any
	if err := yaml.Unmarshal([]byte(doc), &data); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	return data
}

func TestFromMapSingleBody(t *testing.T) {
	data := decode(t, `
name: greet
description: Greets someone
author: docs
tags: [demo, " greeting "]
template: "Hello, {{.name}}!"
variables:
  - name: name
    type: text
    description: Who to greet
  - name: count
    type: int
    default: 3
  - name: ratio
    type: decimal
    required: false
model_config:
  temperature: 0.2
`)

	def, err := FromMap(data)
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	if def.Name != "greet" || def.Version != DefaultVersion {
		t.Fatalf("unexpected identity: %q %q", def.Name, def.Version)
	}
	if def.IsChat() {
		t.Fatalf("expected single-body definition")
	}
	if strings.Join(def.Tags, ",") != "demo,greeting" {
		t.Fatalf("unexpected tags: %v", def.Tags)
	}
	if def.ModelConfig["temperature"] != 0.2 {
		t.Fatalf("model_config not preserved: %v", def.ModelConfig)
	}
	if len(def.Variables) != 3 {
		t.Fatalf("expected 3 variables, got %d", len(def.Variables))
	}

	name := def.Variables[0]
	if name.Type != TypeString || !name.Required || name.HasDefault() {
		t.Fatalf("unexpected name variable: %+v", name)
	}
	count := def.Variables[1]
	if count.Type != TypeInteger || count.Required || count.Default != int64(3) {
		t.Fatalf("unexpected count variable: %+v", count)
	}
	ratio := def.Variables[2]
	if ratio.Type != TypeFloat || ratio.Required || ratio.HasDefault() {
		t.Fatalf("unexpected ratio variable: %+v", ratio)
	}
}

func TestFromMapChatBodies(t *testing.T) {
	def, err := FromMap(decode(t, `
name: reviewer
system: "You are a {{.role}}."
user_prompt: "Please {{.task}}."
variables:
  - name: role
  - name: task
`))
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	if !def.IsChat() {
		t.Fatalf("expected chat definition")
	}
	bodies := def.Bodies()
	if len(bodies) != 2 || bodies[0].Name != BodySystem || bodies[1].Name != BodyUser {
		t.Fatalf("unexpected bodies: %+v", bodies)
	}
}

func TestFromMapEnumAndDefault(t *testing.T) {
	def, err := FromMap(decode(t, `
name: styled
template: "{{.style}}"
variables:
  - name: style
    default: formal
    enum: [formal, casual]
  - name: level
    type: integer
    enum: ["1", 2]
`))
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	style, _ := def.Variable("style")
	if style.Default != "formal" || style.Required {
		t.Fatalf("unexpected style: %+v", style)
	}
	level, _ := def.Variable("level")
	if len(level.Enum) != 2 || level.Enum[0] != int64(1) || level.Enum[1] != int64(2) {
		t.Fatalf("enum values should be coerced to the declared type: %#v", level.Enum)
	}
}

func TestFromMapErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{
			name:  "missing name",
			doc:   `template: hi`,
			field: "name",
		},
		{
			name:  "bad template name",
			doc:   "name: \"a/b\"\ntemplate: hi",
			field: "name",
		},
		{
			name:  "no body",
			doc:   `name: empty`,
			field: "template",
		},
		{
			name:  "both body forms",
			doc:   "name: x\ntemplate: hi\nsystem_prompt: sys\nuser_prompt: usr",
			field: "template",
		},
		{
			name:  "system without user",
			doc:   "name: x\nsystem_prompt: sys",
			field: "user_prompt",
		},
		{
			name:  "blank template",
			doc:   "name: x\ntemplate: \"   \"",
			field: "template",
		},
		{
			name:  "unknown type",
			doc:   "name: x\ntemplate: hi\nvariables:\n  - name: a\n    type: blob",
			field: "variables[0].type",
		},
		{
			name:  "non identifier variable",
			doc:   "name: x\ntemplate: hi\nvariables:\n  - name: 1st",
			field: "variables[0].name",
		},
		{
			name:  "duplicate variable",
			doc:   "name: x\ntemplate: hi\nvariables:\n  - name: a\n  - name: a",
			field: "variables[1].name",
		},
		{
			name:  "required with default",
			doc:   "name: x\ntemplate: hi\nvariables:\n  - name: a\n    required: true\n    default: z",
			field: "variables[0].default",
		},
		{
			name:  "default of wrong type",
			doc:   "name: x\ntemplate: hi\nvariables:\n  - name: a\n    type: integer\n    default: \"12.5\"",
			field: "variables[0].default",
		},
		{
			name:  "default outside enum",
			doc:   "name: x\ntemplate: hi\nvariables:\n  - name: a\n    default: loud\n    enum: [formal, casual]",
			field: "variables[0].default",
		},
		{
			name:  "enum on list",
			doc:   "name: x\ntemplate: hi\nvariables:\n  - name: a\n    type: list\n    enum: [a]",
			field: "variables[0].enum",
		},
		{
			name:  "variables not a list",
			doc:   "name: x\ntemplate: hi\nvariables: nope",
			field: "variables",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(decode(t, tt.doc))
			var serr *SchemaError
			if !errors.As(err, &serr) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
			if serr.Field != tt.field {
				t.Fatalf("expected field %q, got %q (%v)", tt.field, serr.Field, serr)
			}
		})
	}
}

func TestFromMapNil(t *testing.T) {
	if _, err := FromMap(nil); err == nil {
		t.Fatalf("expected error for nil document")
	}
}

func TestParseVariableTypeAliases(t *testing.T) {
	tests := map[string]VariableType{
		"text":              TypeString,
		"Decimal":           TypeFloat,
		"number":            TypeFloat,
		"int":               TypeInteger,
		"bool":              TypeBoolean,
		"array":             TypeList,
		"structured-object": TypeObject,
		" dict ":            TypeObject,
	}
	for alias, want := range tests {
		got, ok := ParseVariableType(alias)
		if !ok || got != want {
			t.Fatalf("ParseVariableType(%q) = %q, %v; want %q", alias, got, ok, want)
		}
	}
	if _, ok := ParseVariableType("blob"); ok {
		t.Fatalf("expected blob to be rejected")
	}
}
