package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	identifierPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	templateNamePattern = regexp.MustCompile(`^[A-Za-z0-9_\- ]+$`)
)

// FromMap builds a Definition from a parsed document such as the result of
// decoding a YAML or JSON template file into map[string]any.
//
// Only structure and types are checked here; body syntax and the
// cross-reference between declared and referenced variables belong to
// Validate.
func FromMap(data map[string]any) (*Definition, error) {
	if data == nil {
		return nil, &SchemaError{Message: "template document is empty"}
	}

	def := &Definition{}

	name, err := optionalString(data, "name")
	if err != nil {
		return nil, err
	}
	def.Name = strings.TrimSpace(name)
	if def.Name == "" {
		return nil, &SchemaError{Field: "name", Message: "is required"}
	}
	if !templateNamePattern.MatchString(def.Name) {
		return nil, &SchemaError{Field: "name", Message: fmt.Sprintf("%q may only contain letters, digits, hyphens, underscores and spaces", def.Name)}
	}

	if def.Description, err = optionalString(data, "description"); err != nil {
		return nil, err
	}
	def.Description = strings.TrimSpace(def.Description)
	if def.Version, err = optionalString(data, "version"); err != nil {
		return nil, err
	}
	def.Version = strings.TrimSpace(def.Version)
	if def.Version == "" {
		def.Version = DefaultVersion
	}
	if def.Author, err = optionalString(data, "author"); err != nil {
		return nil, err
	}
	if def.Tags, err = stringList(data, "tags"); err != nil {
		return nil, err
	}

	if err := parseBodies(def, data); err != nil {
		return nil, err
	}

	if raw, ok := data["model_config"]; ok && raw != nil {
		cfg, ok := raw.(map[string]any)
		if !ok {
			return nil, &SchemaError{Field: "model_config", Message: fmt.Sprintf("must be a mapping, got %T", raw)}
		}
		def.ModelConfig = cfg
	}

	if raw, ok := data["variables"]; ok && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return nil, &SchemaError{Field: "variables", Message: fmt.Sprintf("must be a list, got %T", raw)}
		}
		seen := make(map[string]struct{}, len(items))
		for i, item := range items {
			field := fmt.Sprintf("variables[%d]", i)
			entry, ok := item.(map[string]any)
			if !ok {
				return nil, &SchemaError{Field: field, Message: fmt.Sprintf("must be a mapping, got %T", item)}
			}
			v, err := parseVariable(field, entry)
			if err != nil {
				return nil, err
			}
			if _, exists := seen[v.Name]; exists {
				return nil, &SchemaError{Field: field + ".name", Message: fmt.Sprintf("duplicate variable %q", v.Name)}
			}
			seen[v.Name] = struct{}{}
			def.Variables = append(def.Variables, v)
		}
	}

	return def, nil
}

func parseBodies(def *Definition, data map[string]any) error {
	var err error
	if def.Template, err = firstString(data, "template", "body"); err != nil {
		return err
	}
	if def.System, err = firstString(data, "system_prompt", "system"); err != nil {
		return err
	}
	if def.User, err = firstString(data, "user_prompt", "user"); err != nil {
		return err
	}

	hasTemplate := def.Template != ""
	hasSystem := def.System != ""
	hasUser := def.User != ""

	switch {
	case hasTemplate && (hasSystem || hasUser):
		return &SchemaError{Field: "template", Message: "set either template or system_prompt/user_prompt, not both"}
	case hasTemplate:
		if strings.TrimSpace(def.Template) == "" {
			return &SchemaError{Field: "template", Message: "cannot be blank"}
		}
	case hasSystem || hasUser:
		if !hasSystem || strings.TrimSpace(def.System) == "" {
			return &SchemaError{Field: "system_prompt", Message: "is required together with user_prompt"}
		}
		if !hasUser || strings.TrimSpace(def.User) == "" {
			return &SchemaError{Field: "user_prompt", Message: "is required together with system_prompt"}
		}
	default:
		return &SchemaError{Field: "template", Message: "one of template or system_prompt/user_prompt is required"}
	}
	return nil
}

func parseVariable(field string, entry map[string]any) (Variable, error) {
	var v Variable

	name, err := optionalString(entry, "name")
	if err != nil {
		return v, prefixField(field, err)
	}
	v.Name = strings.TrimSpace(name)
	if v.Name == "" {
		return v, &SchemaError{Field: field + ".name", Message: "is required"}
	}
	if !identifierPattern.MatchString(v.Name) {
		return v, &SchemaError{Field: field + ".name", Message: fmt.Sprintf("%q must be an identifier (letters, digits, underscores, not starting with a digit)", v.Name)}
	}

	typeName, err := optionalString(entry, "type")
	if err != nil {
		return v, prefixField(field, err)
	}
	if strings.TrimSpace(typeName) == "" {
		v.Type = TypeString
	} else {
		t, ok := ParseVariableType(typeName)
		if !ok {
			return v, &SchemaError{Field: field + ".type", Message: fmt.Sprintf("unknown type %q", typeName)}
		}
		v.Type = t
	}

	if v.Description, err = optionalString(entry, "description"); err != nil {
		return v, prefixField(field, err)
	}
	v.Description = strings.TrimSpace(v.Description)
	if v.Delimiter, err = optionalString(entry, "delimiter"); err != nil {
		return v, prefixField(field, err)
	}

	if raw, ok := entry["enum"]; ok && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return v, &SchemaError{Field: field + ".enum", Message: fmt.Sprintf("must be a list, got %T", raw)}
		}
		if !v.Type.Scalar() {
			return v, &SchemaError{Field: field + ".enum", Message: fmt.Sprintf("not supported for %s variables", v.Type)}
		}
		plain := Variable{Name: v.Name, Type: v.Type}
		for i, item := range items {
			value, err := Coerce(plain, item)
			if err != nil || item == nil {
				return v, &SchemaError{Field: fmt.Sprintf("%s.enum[%d]", field, i), Message: fmt.Sprintf("%v is not a valid %s", item, v.Type)}
			}
			v.Enum = append(v.Enum, value)
		}
	}

	if raw, ok := entry["default"]; ok && raw != nil {
		value, err := Coerce(v, raw)
		if err != nil {
			return v, &SchemaError{Field: field + ".default", Message: err.Error()}
		}
		v.Default = value
	}

	required, explicit, err := optionalBool(entry, "required")
	if err != nil {
		return v, prefixField(field, err)
	}
	switch {
	case !explicit:
		v.Required = !v.HasDefault()
	case required && v.HasDefault():
		return v, &SchemaError{Field: field + ".default", Message: "required variables cannot declare a default"}
	default:
		v.Required = required
	}

	return v, nil
}

func optionalString(data map[string]any, key string) (string, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return "", nil
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case int, int64, float64, bool:
		// YAML turns `version: 1.0` into a number.
		return fmt.Sprint(v), nil
	}
	return "", &SchemaError{Field: key, Message: fmt.Sprintf("must be a string, got %T", raw)}
}

func firstString(data map[string]any, keys ...string) (string, error) {
	for _, key := range keys {
		if _, ok := data[key]; !ok {
			continue
		}
		raw, ok := data[key].(string)
		if !ok && data[key] != nil {
			return "", &SchemaError{Field: key, Message: fmt.Sprintf("must be a string, got %T", data[key])}
		}
		if raw != "" {
			return raw, nil
		}
	}
	return "", nil
}

func optionalBool(data map[string]any, key string) (value, present bool, err error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return false, false, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, true, nil
	case string:
		b, perr := strconv.ParseBool(strings.TrimSpace(v))
		if perr == nil {
			return b, true, nil
		}
	}
	return false, false, &SchemaError{Field: key, Message: fmt.Sprintf("must be a boolean, got %v", raw)}
}

func stringList(data map[string]any, key string) ([]string, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &SchemaError{Field: key, Message: fmt.Sprintf("must be a list of strings, got %T", raw)}
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, &SchemaError{Field: fmt.Sprintf("%s[%d]", key, i), Message: fmt.Sprintf("must be a string, got %T", item)}
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func prefixField(prefix string, err error) error {
	if se, ok := err.(*SchemaError); ok {
		return &SchemaError{Field: prefix + "." + se.Field, Message: se.Message}
	}
	return err
}
