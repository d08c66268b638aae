package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/opencode-ai/promptctl/internal/prompt"
)

const (
	charsPerToken   = 4.0
	whitespaceShare = 0.25
	placeholderCost = 2
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// CountTokens estimates the token count of text from its length and the
// number of whitespace runs.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	runs := len(whitespaceRun.FindAllStringIndex(text, -1))
	return int(float64(len(text))/charsPerToken + float64(runs)*whitespaceShare)
}

var typeBaseTokens = map[prompt.VariableType]int{
	prompt.TypeString:  50,
	prompt.TypeInteger: 2,
	prompt.TypeFloat:   3,
	prompt.TypeBoolean: 1,
	prompt.TypeList:    100,
	prompt.TypeObject:  150,
}

var (
	largeHints = []string{"long", "large", "full", "complete", "code", "content"}
	smallHints = []string{"short", "brief", "single"}
)

// EstimateVariable estimates the tokens v contributes once rendered. A sample
// value wins over the default; with neither, the estimate comes from the type
// and size hints in the description.
func EstimateVariable(v prompt.Variable, samples map[string]any) int {
	if value, ok := samples[v.Name]; ok && value != nil {
		return CountTokens(fmt.Sprint(value))
	}
	if v.HasDefault() {
		return CountTokens(fmt.Sprint(v.Default))
	}

	base, ok := typeBaseTokens[v.Type]
	if !ok {
		base = typeBaseTokens[prompt.TypeString]
	}
	desc := strings.ToLower(v.Description)
	switch {
	case desc == "":
	case containsAny(desc, largeHints):
		base *= 5
	case containsAny(desc, smallHints):
		base /= 2
	}
	return base
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
