// Package quality grades prompt templates on heuristic writing-quality
// dimensions and reports semantic issues that structural validation does not
// cover.
package quality

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/opencode-ai/promptctl/internal/analyzer"
	"github.com/opencode-ai/promptctl/internal/prompt"
)

// Dimensions, in report order.
const (
	Clarity      = "clarity"
	Consistency  = "consistency"
	Completeness = "completeness"
	Efficiency   = "efficiency"
	Structure    = "structure"
)

// Weights sum to 1.
var weights = map[string]float64{
	Clarity:      0.25,
	Consistency:  0.20,
	Completeness: 0.25,
	Efficiency:   0.15,
	Structure:    0.15,
}

// ProductionThreshold is the lowest overall score considered ready for use.
const ProductionThreshold = 70

const maxSuggestions = 5

var grades = []struct {
	min   int
	grade string
}{
	{90, "A"},
	{80, "B"},
	{70, "C"},
	{60, "D"},
	{0, "F"},
}

var summaries = map[string]string{
	"A": "Excellent quality template, ready for production use.",
	"B": "Good quality template with minor improvements possible.",
	"C": "Acceptable template, but several areas need attention.",
	"D": "Below average quality, significant improvements recommended.",
	"F": "Poor quality template, requires substantial revision.",
}

// Names that usually take a fixed set of values.
var constrainedNames = map[string]bool{"style": true, "format": true, "type": true, "mode": true, "level": true}

var (
	camelCase = regexp.MustCompile(`[a-z][A-Z]`)
	wordSplit = regexp.MustCompile(`\s+`)
)

// DimensionScore is the 0-100 score of one dimension.
type DimensionScore struct {
	Dimension   string   `json:"dimension"`
	Score       int      `json:"score"`
	Weight      float64  `json:"weight"`
	Details     []string `json:"details"`
	Suggestions []string `json:"suggestions"`
}

func newDimension(name string) *DimensionScore {
	return &DimensionScore{Dimension: name, Score: 100, Weight: weights[name], Details: []string{}, Suggestions: []string{}}
}

func (d *DimensionScore) penalize(points int, detail, suggestion string) {
	d.Score -= points
	if detail != "" {
		d.Details = append(d.Details, detail)
	}
	if suggestion != "" {
		d.Suggestions = append(d.Suggestions, suggestion)
	}
}

func (d *DimensionScore) note(detail string) {
	d.Details = append(d.Details, detail)
}

// Report is the graded assessment of one template.
type Report struct {
	Template        string           `json:"template"`
	Score           int              `json:"score"`
	Grade           string           `json:"grade"`
	ProductionReady bool             `json:"production_ready"`
	Summary         string           `json:"summary"`
	Dimensions      []DimensionScore `json:"dimensions"`
	Suggestions     []string         `json:"suggestions"`
	Semantic        *SemanticReport  `json:"semantic"`
}

// Options controls scoring.
type Options struct {
	// Samples are representative values used for token estimates.
	Samples map[string]any
}

// Score grades def across every dimension.
func Score(def *prompt.Definition, opts Options) *Report {
	analysis := analyzer.Analyze(def, analyzer.Options{Samples: opts.Samples})
	content := allContent(def)

	dims := []*DimensionScore{
		scoreClarity(def, content),
		scoreConsistency(def),
		scoreCompleteness(def, content),
		scoreEfficiency(content, analysis),
		scoreStructure(def, content, analysis.Structure),
	}

	report := &Report{
		Template:    def.Name,
		Dimensions:  make([]DimensionScore, 0, len(dims)),
		Suggestions: []string{},
		Semantic:    CheckSemantics(def),
	}

	var total float64
	seen := make(map[string]bool)
	for _, d := range dims {
		d.Score = min(100, max(0, d.Score))
		total += float64(d.Score) * d.Weight
		report.Dimensions = append(report.Dimensions, *d)
		for _, s := range d.Suggestions {
			if !seen[s] && len(report.Suggestions) < maxSuggestions {
				seen[s] = true
				report.Suggestions = append(report.Suggestions, s)
			}
		}
	}

	report.Score = int(total)
	report.Grade = Grade(report.Score)
	report.Summary = summaries[report.Grade]
	report.ProductionReady = report.Score >= ProductionThreshold
	return report
}

// Grade maps an overall score to a letter grade.
func Grade(score int) string {
	for _, g := range grades {
		if score >= g.min {
			return g.grade
		}
	}
	return "F"
}

func scoreClarity(def *prompt.Definition, content string) *DimensionScore {
	d := newDimension(Clarity)

	if matchesAny(rolePatterns, content) {
		d.note("clear role definition found")
	} else {
		d.penalize(15, "no clear role definition", "Add a clear role definition (e.g. 'You are a...').")
	}
	if matchesAny(taskPatterns, content) {
		d.note("task instructions present")
	} else {
		d.penalize(15, "task instructions could be clearer", "Add explicit task instructions.")
	}
	if matchesAny(outputPatterns, content) {
		d.note("output format specified")
	} else {
		d.penalize(10, "no output format specification", "Specify the expected output format.")
	}

	if total := len(def.Variables); total > 0 {
		described := 0
		for _, v := range def.Variables {
			if strings.TrimSpace(v.Description) != "" {
				described++
			}
		}
		if described*2 < total {
			d.penalize(10, fmt.Sprintf("only %d/%d variables have descriptions", described, total), "Add descriptions to all variables.")
		} else {
			d.note(fmt.Sprintf("%d/%d variables documented", described, total))
		}
	}

	if n := countMatches(ambiguousPatterns, content); n > maxAmbiguousPhrases {
		d.penalize(10, fmt.Sprintf("found %d ambiguous phrases", n), "Replace ambiguous language with direct instructions.")
	}
	return d
}

func scoreConsistency(def *prompt.Definition) *DimensionScore {
	d := newDimension(Consistency)

	snake, camel := 0, 0
	for _, v := range def.Variables {
		if strings.Contains(v.Name, "_") {
			snake++
		}
		if camelCase.MatchString(v.Name) {
			camel++
		}
	}
	switch {
	case snake > 0 && camel > 0:
		d.penalize(15, "mixed snake_case and camelCase variable names", "Use one naming convention for variables.")
	case len(def.Variables) > 0:
		d.note("consistent variable naming")
	}

	for _, v := range def.Variables {
		if v.Type != prompt.TypeString || len(v.Enum) == 0 {
			continue
		}
		for _, value := range v.Enum {
			if _, ok := value.(string); !ok {
				d.penalize(10, fmt.Sprintf("variable %q mixes enum value types", v.Name), "")
				break
			}
		}
	}

	if def.System != "" && def.User != "" {
		if hasTags(def.System) != hasTags(def.User) {
			d.penalize(10, "system_prompt and user_prompt use different formatting", "Use consistent formatting (XML tags, markdown) throughout.")
		} else {
			d.note("consistent formatting across prompts")
		}
		if duplicatedSentences(def) {
			d.penalize(10, "duplicate content between prompts", "Remove content duplicated between system_prompt and user_prompt.")
		}
	}
	return d
}

func scoreCompleteness(def *prompt.Definition, content string) *DimensionScore {
	d := newDimension(Completeness)

	switch desc := strings.TrimSpace(def.Description); {
	case desc == "":
		d.penalize(10, "missing description", "Add a template description.")
	case len(desc) < 20:
		d.penalize(5, "description is very brief", "Expand the template description.")
	default:
		d.note("description present")
	}

	if len(def.Tags) == 0 {
		d.penalize(5, "no tags defined", "Add tags for better discoverability.")
	} else {
		d.note(fmt.Sprintf("%d tags defined", len(def.Tags)))
	}

	var undocumented []string
	optional, defaults := 0, 0
	for _, v := range def.Variables {
		if strings.TrimSpace(v.Description) == "" {
			undocumented = append(undocumented, v.Name)
		}
		if constrainedNames[v.Name] && len(v.Enum) == 0 {
			d.penalize(5, "", fmt.Sprintf("Consider enum values for %q.", v.Name))
		}
		if !v.Required {
			optional++
		}
		if v.HasDefault() {
			defaults++
		}
	}
	if len(undocumented) > 0 {
		shown := strings.Join(undocumented[:min(3, len(undocumented))], ", ")
		if len(undocumented) > 3 {
			shown += "..."
		}
		d.penalize(min(15, 3*len(undocumented)), "variables without descriptions: "+shown, "Add descriptions to all variables.")
	}
	if optional > 0 && defaults == 0 {
		d.penalize(5, "optional variables have no default values", "Add default values for optional variables.")
	}

	if len(content) > 500 && !hasMarkup(content) {
		d.penalize(10, "long template without clear structure", "Add sections or XML tags to organize longer templates.")
	}
	return d
}

func scoreEfficiency(content string, analysis *analyzer.Result) *DimensionScore {
	d := newDimension(Efficiency)

	switch tokens := analyzer.CountTokens(content); {
	case tokens > 10000:
		d.penalize(30, fmt.Sprintf("very high token count: %d", tokens), "Consider breaking into smaller templates.")
	case tokens > 5000:
		d.penalize(15, fmt.Sprintf("high token count: %d", tokens), "Review for unnecessary content.")
	default:
		d.note(fmt.Sprintf("token count: %d", tokens))
	}

	freq := make(map[string]int)
	for _, word := range wordSplit.Split(strings.ToLower(content), -1) {
		if len(word) > 4 {
			freq[word]++
		}
	}
	type wordCount struct {
		word  string
		count int
	}
	var repeated []wordCount
	for word, count := range freq {
		if count > 5 {
			repeated = append(repeated, wordCount{word, count})
		}
	}
	if len(repeated) > 0 {
		sort.Slice(repeated, func(i, j int) bool {
			if repeated[i].count != repeated[j].count {
				return repeated[i].count > repeated[j].count
			}
			return repeated[i].word < repeated[j].word
		})
		top := make([]string, 0, 3)
		for _, wc := range repeated[:min(3, len(repeated))] {
			top = append(top, wc.word)
		}
		d.note("frequently repeated words: " + strings.Join(top, ", "))
		if repeated[0].count > 10 {
			d.penalize(10, "", "Review the template for unnecessary repetition.")
		}
	}

	for _, v := range analysis.Variables {
		if v.UsageCount > 5 {
			d.penalize(5, fmt.Sprintf("variable %q used %d times", v.Name, v.UsageCount),
				fmt.Sprintf("Consider whether %q needs to be repeated %d times.", v.Name, v.UsageCount))
		}
	}

	if blocks := analysis.Structure.Conditionals + analysis.Structure.Loops; blocks > 10 {
		d.penalize(15, fmt.Sprintf("high control-flow complexity: %d blocks", blocks), "Simplify template logic or split into multiple templates.")
	}
	return d
}

func scoreStructure(def *prompt.Definition, content string, s analyzer.Structure) *DimensionScore {
	d := newDimension(Structure)

	switch {
	case def.System != "" && def.User != "":
		d.Score += 5
		d.note("uses system_prompt/user_prompt split")
	case def.System != "":
		d.penalize(10, "has system_prompt but no user_prompt", "Add a user_prompt for a complete chat structure.")
	case def.Template != "":
		d.note("uses single template format")
		if len(def.Template) > 2000 {
			d.Suggestions = append(d.Suggestions, "Consider a system_prompt/user_prompt split.")
		}
	}

	if len(content) > 1000 {
		if s.SectionCount < 3 {
			d.penalize(15, "long template with minimal structure", "Add XML tags or section headers to organize content.")
		} else {
			d.note(fmt.Sprintf("good structure: %d structural elements", s.SectionCount))
		}
	}

	switch {
	case s.NestingDepth > 3:
		d.penalize(15, fmt.Sprintf("deep nesting: %d levels", s.NestingDepth), "Reduce nesting depth for better readability.")
	case s.NestingDepth > 0:
		d.note(fmt.Sprintf("nesting depth: %d", s.NestingDepth))
	}
	return d
}

func hasTags(text string) bool {
	return strings.Contains(text, "<") && strings.Contains(text, ">")
}
