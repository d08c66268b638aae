package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultListDelimiter splits string input for list variables.
const DefaultListDelimiter = ","

var (
	integerPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)
	decimalPattern = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

	truthy = map[string]bool{"true": true, "yes": true, "1": true}
	falsy  = map[string]bool{"false": true, "no": true, "0": true}
)

// Option configures coercion and rendering.
type Option func(*options)

type options struct {
	listDelimiter string
}

// WithListDelimiter overrides the delimiter used to split string input for
// list variables that do not declare their own.
func WithListDelimiter(delim string) Option {
	return func(o *options) {
		if delim != "" {
			o.listDelimiter = delim
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{listDelimiter: DefaultListDelimiter}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

type coerceFunc func(v Variable, raw any, o options) (any, error)

var coercers = map[VariableType]coerceFunc{
	TypeString:  coerceString,
	TypeInteger: coerceInteger,
	TypeFloat:   coerceFloat,
	TypeBoolean: coerceBoolean,
	TypeList:    coerceList,
	TypeObject:  coerceObject,
}

// RenderContext is the resolved, type-correct binding set for one render.
type RenderContext map[string]any

// Coerce converts raw into the declared type of v and checks enum membership.
func Coerce(v Variable, raw any, opts ...Option) (any, error) {
	return coerce(v, raw, buildOptions(opts))
}

func coerce(v Variable, raw any, o options) (any, error) {
	fn, ok := coercers[v.Type]
	if !ok {
		return nil, &TypeCoercionError{Variable: v.Name, Type: v.Type, Value: raw, Reason: "unknown type"}
	}
	value, err := fn(v, raw, o)
	if err != nil {
		return nil, &TypeCoercionError{Variable: v.Name, Type: v.Type, Value: raw, Reason: err.Error()}
	}
	if len(v.Enum) > 0 && !enumContains(v.Enum, value) {
		return nil, &EnumViolationError{Variable: v.Name, Value: value, Allowed: v.Enum}
	}
	return value, nil
}

// Resolve builds the render context for def from raw caller input.
//
// Declared variables present in raw are coerced. Absent ones take their
// default, fail with MissingVariableError when required, and are otherwise
// left unbound. A nil value counts as absent. Names that are not declared are
// not bound; see UnknownVariables.
func Resolve(def *Definition, raw map[string]any, opts ...Option) (RenderContext, error) {
	if def == nil {
		return nil, errors.New("template is required")
	}
	o := buildOptions(opts)

	ctx := make(RenderContext, len(def.Variables))
	for _, v := range def.Variables {
		value, present := raw[v.Name]
		if present && value != nil {
			coerced, err := coerce(v, value, o)
			if err != nil {
				return nil, err
			}
			ctx[v.Name] = coerced
			continue
		}
		if v.HasDefault() {
			ctx[v.Name] = v.Default
			continue
		}
		if v.Required {
			return nil, &MissingVariableError{Variable: v.Name}
		}
	}
	return ctx, nil
}

// UnknownVariables returns the names in raw that def does not declare, sorted.
func UnknownVariables(def *Definition, raw map[string]any) []string {
	if def == nil {
		return nil
	}
	var unknown []string
	for name := range raw {
		if _, ok := def.Variable(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func coerceString(_ Variable, raw any, _ options) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	switch reflect.ValueOf(raw).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
	return fmt.Sprint(raw), nil
}

func coerceInteger(_ Variable, raw any, _ options) (any, error) {
	switch v := raw.(type) {
	case bool:
		return nil, errors.New("booleans are not integers")
	case string:
		return parseInteger(v)
	case json.Number:
		return parseInteger(v.String())
	case float64:
		return integralFloat(v)
	case float32:
		return integralFloat(float64(v))
	case uint64:
		if v > math.MaxInt64 {
			return nil, errors.New("out of range")
		}
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, errors.New("out of range")
		}
		return int64(v), nil
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("expected an integer, got %T", raw)
}

func parseInteger(s string) (any, error) {
	s = strings.TrimSpace(s)
	if !integerPattern.MatchString(s) {
		return nil, errors.New("not a base-10 integer")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errors.New("out of range")
	}
	return n, nil
}

func integralFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.New("not a finite number")
	}
	if f != math.Trunc(f) {
		return nil, errors.New("has a fractional part")
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, errors.New("out of range")
	}
	return int64(f), nil
}

func coerceFloat(_ Variable, raw any, _ options) (any, error) {
	switch v := raw.(type) {
	case bool:
		return nil, errors.New("booleans are not numbers")
	case string:
		return parseDecimal(v)
	case json.Number:
		return parseDecimal(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("not a finite number")
		}
		return v, nil
	case float32:
		return float64(v), nil
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("expected a number, got %T", raw)
}

func parseDecimal(s string) (any, error) {
	s = strings.TrimSpace(s)
	if !decimalPattern.MatchString(s) {
		return nil, errors.New("not a base-10 number")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("out of range")
	}
	return f, nil
}

func coerceBoolean(_ Variable, raw any, _ options) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		token := strings.ToLower(strings.TrimSpace(v))
		switch {
		case truthy[token]:
			return true, nil
		case falsy[token]:
			return false, nil
		}
		return nil, errors.New("expected one of true/yes/1 or false/no/0")
	}
	return nil, fmt.Errorf("expected a boolean, got %T", raw)
}

func coerceList(v Variable, raw any, o options) (any, error) {
	if s, ok := raw.(string); ok {
		delim := v.Delimiter
		if delim == "" {
			delim = o.listDelimiter
		}
		items := make([]any, 0)
		for _, part := range strings.Split(s, delim) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			items = append(items, part)
		}
		return items, nil
	}
	switch reflect.ValueOf(raw).Kind() {
	case reflect.Slice, reflect.Array:
		if _, isBytes := raw.([]byte); isBytes {
			break
		}
		return raw, nil
	}
	return nil, fmt.Errorf("expected a list, got %T", raw)
}

func coerceObject(_ Variable, raw any, _ options) (any, error) {
	if s, ok := raw.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil, errors.New("empty object literal")
		}
		var parsed any
		if err := yaml.Unmarshal([]byte(s), &parsed); err != nil {
			return nil, fmt.Errorf("malformed object literal: %v", err)
		}
		obj, ok := parsed.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("object literal must be a mapping, got %T", parsed)
		}
		return obj, nil
	}
	if reflect.ValueOf(raw).Kind() == reflect.Map {
		return raw, nil
	}
	return nil, fmt.Errorf("expected an object, got %T", raw)
}

func enumContains(enum []any, value any) bool {
	if value == nil || !reflect.TypeOf(value).Comparable() {
		return false
	}
	for _, candidate := range enum {
		if candidate != nil && !reflect.TypeOf(candidate).Comparable() {
			continue
		}
		if candidate == value {
			return true
		}
	}
	return false
}
