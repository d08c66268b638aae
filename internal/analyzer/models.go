package analyzer

import "strings"

// DefaultContextLimit applies to models that match no known family.
const DefaultContextLimit = 8192

// fitRatio is the share of the context window a prompt may use, leaving the
// rest for the response.
const fitRatio = 0.75

// DefaultModels are checked when the caller names none.
var DefaultModels = []string{"gpt-4", "gpt-4-turbo", "claude-3-sonnet"}

var modelLimits = map[string]int{
	"gpt-4":             8192,
	"gpt-4-32k":         32768,
	"gpt-4-turbo":       128000,
	"gpt-4o":            128000,
	"gpt-4o-mini":       128000,
	"gpt-4.1":           1047576,
	"gpt-3.5-turbo":     16385,
	"o1":                200000,
	"o3":                200000,
	"claude-2":          100000,
	"claude-3-opus":     200000,
	"claude-3-sonnet":   200000,
	"claude-3-haiku":    200000,
	"claude-3.5-sonnet": 200000,
	"claude-3.5-haiku":  200000,
	"claude-3.7-sonnet": 200000,
	"claude-sonnet-4":   200000,
	"claude-opus-4":     200000,
	"gemini-1.5-pro":    2097152,
	"gemini-1.5-flash":  1048576,
}

// ModelLimit returns the context window for model. Unknown names fall back to
// the longest known key that contains, or is contained in, the name.
func ModelLimit(model string) int {
	name := strings.ToLower(strings.TrimSpace(model))
	if limit, ok := modelLimits[name]; ok {
		return limit
	}

	best, bestLen := DefaultContextLimit, 0
	for key, limit := range modelLimits {
		if !strings.Contains(name, key) && !strings.Contains(key, name) {
			continue
		}
		if len(key) > bestLen || (len(key) == bestLen && limit > best) {
			best, bestLen = limit, len(key)
		}
	}
	if name == "" {
		return DefaultContextLimit
	}
	return best
}

// Fits reports whether tokens leaves a quarter of model's window free.
func Fits(tokens int, model string) bool {
	return float64(tokens) < float64(ModelLimit(model))*fitRatio
}
