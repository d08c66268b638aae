package prompt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		typ     VariableType
		raw     any
		want    any
		wantErr bool
	}{
		{name: "string passthrough", typ: TypeString, raw: "hi", want: "hi"},
		{name: "string from int", typ: TypeString, raw: 42, want: "42"},
		{name: "string from bool", typ: TypeString, raw: true, want: "true"},
		{name: "string from float", typ: TypeString, raw: 2.5, want: "2.5"},
		{name: "integer from string", typ: TypeInteger, raw: " -7 ", want: int64(-7)},
		{name: "integer from int", typ: TypeInteger, raw: 5, want: int64(5)},
		{name: "integer from integral float", typ: TypeInteger, raw: 3.0, want: int64(3)},
		{name: "integer rejects fraction string", typ: TypeInteger, raw: "12.5", wantErr: true},
		{name: "integer rejects fractional float", typ: TypeInteger, raw: 12.5, wantErr: true},
		{name: "integer rejects 2^63 float", typ: TypeInteger, raw: float64(1 << 63), wantErr: true},
		{name: "integer from min int64 float", typ: TypeInteger, raw: float64(-1 << 63), want: int64(-1 << 63)},
		{name: "integer rejects bool", typ: TypeInteger, raw: true, wantErr: true},
		{name: "integer rejects words", typ: TypeInteger, raw: "twelve", wantErr: true},
		{name: "float from string", typ: TypeFloat, raw: "2.5", want: 2.5},
		{name: "float from exponent", typ: TypeFloat, raw: "1e3", want: 1000.0},
		{name: "float from int", typ: TypeFloat, raw: 3, want: 3.0},
		{name: "float rejects words", typ: TypeFloat, raw: "NaN", wantErr: true},
		{name: "boolean yes", typ: TypeBoolean, raw: "yes", want: true},
		{name: "boolean upper true", typ: TypeBoolean, raw: "TRUE", want: true},
		{name: "boolean zero", typ: TypeBoolean, raw: "0", want: false},
		{name: "boolean native", typ: TypeBoolean, raw: false, want: false},
		{name: "boolean rejects maybe", typ: TypeBoolean, raw: "maybe", wantErr: true},
		{name: "boolean rejects int", typ: TypeBoolean, raw: 1, wantErr: true},
		{name: "list from string", typ: TypeList, raw: "a, b,,c ", want: []any{"a", "b", "c"}},
		{name: "list from empty string", typ: TypeList, raw: "", want: []any{}},
		{name: "list passthrough", typ: TypeList, raw: []string{"x"}, want: []string{"x"}},
		{name: "list rejects scalar", typ: TypeList, raw: 5, wantErr: true},
		{name: "object from json", typ: TypeObject, raw: `{"a": 1}`, want: map[string]any{"a": 1}},
		{name: "object from yaml", typ: TypeObject, raw: "a: b", want: map[string]any{"a": "b"}},
		{name: "object passthrough", typ: TypeObject, raw: map[string]string{"k": "v"}, want: map[string]string{"k": "v"}},
		{name: "object rejects list literal", typ: TypeObject, raw: "[1, 2]", wantErr: true},
		{name: "object rejects blank", typ: TypeObject, raw: " ", wantErr: true},
		{name: "object rejects malformed", typ: TypeObject, raw: `{"a": `, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(Variable{Name: "v", Type: tt.typ}, tt.raw)
			if tt.wantErr {
				var cerr *TypeCoercionError
				require.ErrorAs(t, err, &cerr)
				require.Equal(t, "v", cerr.Variable)
				require.Equal(t, tt.typ, cerr.Type)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceListDelimiter(t *testing.T) {
	v := Variable{Name: "tags", Type: TypeList}

	got, err := Coerce(v, "a;b", WithListDelimiter(";"))
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b"}, got)

	v.Delimiter = "|"
	got, err = Coerce(v, "a|b;c", WithListDelimiter(";"))
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b;c"}, got)
}

func TestCoerceEnum(t *testing.T) {
	style := Variable{Name: "style", Type: TypeString, Enum: []any{"formal", "casual"}}

	got, err := Coerce(style, "casual")
	require.NoError(t, err)
	require.Equal(t, "casual", got)

	_, err = Coerce(style, "loud")
	var enumErr *EnumViolationError
	require.ErrorAs(t, err, &enumErr)
	require.Equal(t, "style", enumErr.Variable)
	require.Equal(t, "loud", enumErr.Value)

	level := Variable{Name: "level", Type: TypeInteger, Enum: []any{int64(1), int64(2)}}
	got, err = Coerce(level, "2")
	require.NoError(t, err)
	require.Equal(t, int64(2), got)

	_, err = Coerce(level, 3)
	require.ErrorAs(t, err, &enumErr)
}

func TestCoerceUnknownType(t *testing.T) {
	_, err := Coerce(Variable{Name: "x", Type: "blob"}, "value")
	var cerr *TypeCoercionError
	require.ErrorAs(t, err, &cerr)
}

func TestResolve(t *testing.T) {
	def := &Definition{
		Name:     "resolve",
		Template: "{{.name}}",
		Variables: []Variable{
			{Name: "name", Type: TypeString, Required: true},
			{Name: "count", Type: TypeInteger, Default: int64(2)},
			{Name: "note", Type: TypeString},
		},
	}

	ctx, err := Resolve(def, map[string]any{"name": "Ada", "count": nil, "extra": 1})
	require.NoError(t, err)
	require.Equal(t, RenderContext{"name": "Ada", "count": int64(2)}, ctx)

	ctx, err = Resolve(def, map[string]any{"name": "", "count": "5", "note": "n"})
	require.NoError(t, err)
	require.Equal(t, RenderContext{"name": "", "count": int64(5), "note": "n"}, ctx)

	_, err = Resolve(def, map[string]any{})
	var missing *MissingVariableError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "name", missing.Variable)

	_, err = Resolve(def, map[string]any{"name": "Ada", "count": "many"})
	var cerr *TypeCoercionError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, "count", cerr.Variable)

	require.Equal(t, []string{"extra", "zzz"}, UnknownVariables(def, map[string]any{"zzz": 1, "name": "x", "extra": 2}))
}
