package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/promptctl/internal/prompt"
)

func TestCountTokens(t *testing.T) {
	require.Equal(t, 0, CountTokens(""))
	require.Equal(t, 1, CountTokens("abcd"))
	require.Equal(t, 3, CountTokens("hello world"))
	require.Equal(t, 3, CountTokens("hello \n\t world"))
}

func TestEstimateVariable(t *testing.T) {
	tests := []struct {
		name    string
		v       prompt.Variable
		samples map[string]any
		want    int
	}{
		{name: "sample wins", v: prompt.Variable{Name: "a", Type: prompt.TypeString, Default: "x"}, samples: map[string]any{"a": "hello world"}, want: 3},
		{name: "default", v: prompt.Variable{Name: "a", Type: prompt.TypeString, Default: "abcdefgh"}, want: 2},
		{name: "string base", v: prompt.Variable{Name: "a", Type: prompt.TypeString}, want: 50},
		{name: "large hint", v: prompt.Variable{Name: "a", Type: prompt.TypeString, Description: "Full source code"}, want: 250},
		{name: "small hint", v: prompt.Variable{Name: "a", Type: prompt.TypeString, Description: "Short title"}, want: 25},
		{name: "list base", v: prompt.Variable{Name: "a", Type: prompt.TypeList}, want: 100},
		{name: "boolean base", v: prompt.Variable{Name: "a", Type: prompt.TypeBoolean}, want: 1},
		{name: "nil sample ignored", v: prompt.Variable{Name: "a", Type: prompt.TypeObject}, samples: map[string]any{"a": nil}, want: 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, EstimateVariable(tt.v, tt.samples))
		})
	}
}

func TestModelLimit(t *testing.T) {
	require.Equal(t, 8192, ModelLimit("gpt-4"))
	require.Equal(t, 8192, ModelLimit(" GPT-4 "))
	require.Equal(t, 128000, ModelLimit("gpt-4o-2024-08-06"))
	require.Equal(t, 200000, ModelLimit("claude-3-sonnet-20240229"))
	require.Equal(t, DefaultContextLimit, ModelLimit("llama-local"))
	require.Equal(t, DefaultContextLimit, ModelLimit(""))

	require.True(t, Fits(6143, "gpt-4"))
	require.False(t, Fits(6144, "gpt-4"))
}

func TestAnalyzeChatTemplate(t *testing.T) {
	def := &prompt.Definition{
		Name:   "review",
		System: "## Role\nYou are {{.role}}.",
		User:   "{{if .strict}}{{range .items}}{{.}}{{end}}{{end}} as {{.role}}",
		Variables: []prompt.Variable{
			{Name: "role", Type: prompt.TypeString, Required: true, Description: "The reviewer persona to adopt"},
			{Name: "strict", Type: prompt.TypeBoolean, Default: false, Description: "Strict"},
			{Name: "items", Type: prompt.TypeList},
		},
	}

	result := Analyze(def, Options{})
	require.Equal(t, "review", result.Template)
	require.Len(t, result.Tokens.ModelFit, len(DefaultModels))
	for _, fits := range result.Tokens.ModelFit {
		require.True(t, fits)
	}
	require.Equal(t, result.Tokens.System+result.Tokens.User, result.Tokens.Static)

	role := result.Variables[0]
	require.Equal(t, 2, role.UsageCount)
	require.True(t, role.InSystemPrompt)
	require.True(t, role.InUserPrompt)
	require.Equal(t, DescriptionGood, role.DescriptionQuality)
	require.Equal(t, DescriptionMinimal, result.Variables[1].DescriptionQuality)
	require.Equal(t, DescriptionMissing, result.Variables[2].DescriptionQuality)
	require.False(t, result.Variables[2].InSystemPrompt)

	require.Equal(t, Structure{
		HasSystemPrompt: true,
		HasUserPrompt:   true,
		Conditionals:    1,
		Loops:           1,
		NestingDepth:    2,
		SectionCount:    1,
	}, result.Structure)

	require.Equal(t, []string{
		`Variable "items" lacks a description.`,
		"Template lacks a description.",
	}, result.Recommendations)
}

func TestAnalyzeLargeTemplate(t *testing.T) {
	def := &prompt.Definition{
		Name:        "big",
		Description: "A very large prompt",
		Template:    strings.Repeat("x ", 25000),
	}

	result := Analyze(def, Options{Models: []string{"gpt-4", "claude-3-opus"}})
	require.Equal(t, 18750, result.Tokens.Total)
	require.Equal(t, map[string]bool{"gpt-4": false, "claude-3-opus": true}, result.Tokens.ModelFit)
	require.Len(t, result.Recommendations, 3)
	require.Contains(t, result.Recommendations[0], "smaller")
	require.Contains(t, result.Recommendations[1], "structure")
	require.Contains(t, result.Recommendations[2], "[gpt-4]")
}

func TestAnalyzeSamplesAndPlaceholders(t *testing.T) {
	def := &prompt.Definition{
		Name:        "s",
		Description: "d",
		Template:    "{{.a}}",
		Variables:   []prompt.Variable{{Name: "a", Type: prompt.TypeString, Description: "d"}},
	}

	result := Analyze(def, Options{Samples: map[string]any{"a": strings.Repeat("y", 400)}})
	require.Equal(t, 100, result.Tokens.Variables["a"])
	require.Equal(t, result.Tokens.Static-2+100, result.Tokens.Total)
}

func TestAnalyzeUnparseableBody(t *testing.T) {
	def := &prompt.Definition{Name: "bad", Description: "d", Template: "{{if .x}}open"}
	result := Analyze(def, Options{})
	require.Zero(t, result.Structure.Conditionals)
	require.Positive(t, result.Tokens.Static)
}
