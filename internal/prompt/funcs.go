package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Filters are the pipeline functions available to every body.
func Filters() template.FuncMap {
	return template.FuncMap{
		"upper":    func(v any) string { return strings.ToUpper(toText(v)) },
		"lower":    func(v any) string { return strings.ToLower(toText(v)) },
		"title":    titleCase,
		"trim":     func(v any) string { return strings.TrimSpace(toText(v)) },
		"quote":    func(v any) string { return strconv.Quote(toText(v)) },
		"join":     join,
		"indent":   indent,
		"truncate": truncate,
		"bullets":  bullets,
		"toJSON":   toJSON,
		"default":  defaultValue,
		"index":    strictIndex,
	}
}

// lenientFilters replaces strict lookups for display-only rendering.
func lenientFilters() template.FuncMap {
	return template.FuncMap{"index": lenientIndex}
}

func toText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func titleCase(v any) string {
	// Casers carry state and are not shared between goroutines.
	return cases.Title(language.Und).String(toText(v))
}

func items(v any) []string {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []string{toText(v)}
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, toText(rv.Index(i).Interface()))
	}
	return out
}

func join(sep string, v any) string {
	return strings.Join(items(v), sep)
}

func bullets(v any) string {
	list := items(v)
	lines := make([]string, 0, len(list))
	for _, item := range list {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}

func indent(spaces int, v any) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(toText(v), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

func truncate(limit int, v any) string {
	text := toText(v)
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// strictIndex is the built-in index with strict-undefined semantics: a key
// absent from a map fails with *UndefinedVariableError instead of yielding the
// zero value.
func strictIndex(item any, keys ...any) (any, error) {
	cur := reflect.ValueOf(item)
	for _, key := range keys {
		cur = indirectValue(cur)
		if !cur.IsValid() {
			return nil, fmt.Errorf("index of nil value with key %v", key)
		}

		switch cur.Kind() {
		case reflect.Map:
			k, err := mapKey(cur.Type().Key(), key)
			if err != nil {
				return nil, err
			}
			next := cur.MapIndex(k)
			if !next.IsValid() {
				return nil, &UndefinedVariableError{Name: fmt.Sprint(key)}
			}
			cur = next
		case reflect.Slice, reflect.Array, reflect.String:
			i, ok := indexInt(key)
			if !ok {
				return nil, fmt.Errorf("cannot index %s with %T", cur.Type(), key)
			}
			if i < 0 || i >= cur.Len() {
				return nil, fmt.Errorf("index out of range: %d", i)
			}
			cur = cur.Index(i)
		default:
			return nil, fmt.Errorf("cannot index item of type %s", cur.Type())
		}
	}
	if !cur.IsValid() {
		return nil, nil
	}
	return cur.Interface(), nil
}

func lenientIndex(item any, keys ...any) (any, error) {
	v, err := strictIndex(item, keys...)
	var uerr *UndefinedVariableError
	if errors.As(err, &uerr) {
		return nil, nil
	}
	return v, err
}

func indirectValue(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func mapKey(keyType reflect.Type, key any) (reflect.Value, error) {
	k := reflect.ValueOf(key)
	switch {
	case !k.IsValid():
		return reflect.Value{}, errors.New("map key is nil")
	case k.Type().AssignableTo(keyType):
		return k, nil
	case k.Kind() == reflect.String && keyType.Kind() == reflect.String:
		return k.Convert(keyType), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s map key", key, keyType)
}

func indexInt(key any) (int, bool) {
	rv := reflect.ValueOf(key)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	}
	return 0, false
}

func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// defaultValue substitutes def when value is present but blank. Under strict
// rendering an absent variable fails before the filter runs.
func defaultValue(def string, value any) string {
	if value == nil {
		return def
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	default:
		text := strings.TrimSpace(fmt.Sprint(v))
		if text == "" {
			return def
		}
		return text
	}
}
