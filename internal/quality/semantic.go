package quality

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/opencode-ai/promptctl/internal/prompt"
)

// Finding kinds.
const (
	KindRoleConfusion      = "role_confusion"
	KindInstructionClarity = "instruction_clarity"
	KindContextCoherence   = "context_coherence"
	KindTaskAlignment      = "task_alignment"
	KindPlaceholderQuality = "placeholder_quality"
	KindPromptStructure    = "prompt_structure"
)

// Finding severities. Semantic checks are advisory and never block.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

const (
	longUnstructuredChars = 3000
	duplicateSentenceLen  = 30
	minDescriptionOverlap = 0.3
	maxAmbiguousPhrases   = 2
)

var (
	rolePatterns = compileAll(
		`you are\s+(a|an|the)\s+`,
		`act as\s+(a|an|the)\s+`,
		`<role>`,
		`<persona>`,
		`your role is`,
		`you will be\s+(a|an|the)\s+`,
		`as\s+(a|an)\s+\w+,?\s+you`,
	)
	taskPatterns = compileAll(
		`your (task|job|goal|objective) is`,
		`you (should|must|will|need to)`,
		`please\s+\w+`,
		`<task>`,
		`<instructions>`,
		`i (want|need) you to`,
	)
	outputPatterns = compileAll(
		`<output_format>`,
		`<output>`,
		`respond in (this|the following) format`,
		`format your (response|answer|output)`,
		`your (response|answer|output) should`,
		`use (this|the following) (format|structure)`,
		`return (the result|your answer) (as|in)`,
	)
	ambiguousPatterns = compileAll(
		`\bmaybe\b`,
		`\bperhaps\b`,
		`\bmight want to\b`,
		`\bcould potentially\b`,
		`\bpossibly\b`,
		`\bif you want\b`,
	)
	keyTerm = regexp.MustCompile(`\b[a-z]{4,}\b`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func countMatches(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, p := range patterns {
		n += len(p.FindAllStringIndex(text, -1))
	}
	return n
}

// Finding is one semantic observation about a template.
type Finding struct {
	Kind       string `json:"kind"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Location   string `json:"location"`
	Variable   string `json:"variable,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// SemanticReport collects findings and per-aspect scores (0-100).
type SemanticReport struct {
	Findings           []Finding `json:"findings"`
	RoleClarity        int       `json:"role_clarity"`
	InstructionClarity int       `json:"instruction_clarity"`
	ContextCoherence   int       `json:"context_coherence"`
	TaskAlignment      int       `json:"task_alignment"`
}

func (r *SemanticReport) add(f Finding) {
	if f.Severity == "" {
		f.Severity = SeverityInfo
	}
	r.Findings = append(r.Findings, f)
}

// Issues converts findings to validation warnings.
func (r *SemanticReport) Issues() []prompt.Issue {
	issues := make([]prompt.Issue, 0, len(r.Findings))
	for _, f := range r.Findings {
		msg := f.Message
		if f.Suggestion != "" {
			msg += " (" + f.Suggestion + ")"
		}
		body := ""
		switch f.Location {
		case prompt.BodyTemplate, prompt.BodySystem, prompt.BodyUser:
			body = f.Location
		}
		issues = append(issues, prompt.Issue{
			Code:     "semantic_" + f.Kind,
			Severity: prompt.SeverityWarning,
			Message:  msg,
			Variable: f.Variable,
			Body:     body,
		})
	}
	return issues
}

// CheckSemantics looks for prompt-writing problems the structural validator
// cannot see: missing or misplaced roles, vague instructions, duplicated
// content and placeholders dropped in without context.
func CheckSemantics(def *prompt.Definition) *SemanticReport {
	r := &SemanticReport{Findings: []Finding{}}
	content := allContent(def)

	checkRole(def, r)
	checkInstructions(def, content, r)
	checkCoherence(def, r)
	checkAlignment(def, content, r)
	checkPlaceholders(def, r)
	checkStructure(def, content, r)
	return r
}

func checkRole(def *prompt.Definition, r *SemanticReport) {
	r.RoleClarity = 100
	if !matchesAny(rolePatterns, def.System) && !matchesAny(rolePatterns, def.Template) {
		r.RoleClarity = 60
		location := prompt.BodyTemplate
		if def.System != "" {
			location = prompt.BodySystem
		}
		r.add(Finding{
			Kind:       KindRoleConfusion,
			Message:    "no clear role definition found",
			Location:   location,
			Suggestion: "add 'You are a [role]' to establish context",
		})
	}
	if def.System != "" && matchesAny(rolePatterns, def.User) {
		r.RoleClarity -= 20
		r.add(Finding{
			Kind:       KindRoleConfusion,
			Severity:   SeverityWarning,
			Message:    "role definition found in user_prompt, not system_prompt",
			Location:   prompt.BodyUser,
			Suggestion: "move the role definition to system_prompt",
		})
	}
}

func checkInstructions(def *prompt.Definition, content string, r *SemanticReport) {
	score := 100
	if !matchesAny(taskPatterns, content) {
		score -= 25
		r.add(Finding{
			Kind:       KindInstructionClarity,
			Message:    "no clear task instructions found",
			Location:   mainBody(def),
			Suggestion: "add 'Your task is to...' or 'Please...'",
		})
	}
	if !matchesAny(outputPatterns, content) {
		score -= 15
		location := prompt.BodyTemplate
		if def.User != "" {
			location = prompt.BodyUser
		}
		r.add(Finding{
			Kind:       KindInstructionClarity,
			Message:    "no output format specification found",
			Location:   location,
			Suggestion: "specify the expected output format",
		})
	}
	if n := countMatches(ambiguousPatterns, content); n > maxAmbiguousPhrases {
		score -= 10
		r.add(Finding{
			Kind:       KindInstructionClarity,
			Message:    fmt.Sprintf("found %d ambiguous phrases", n),
			Location:   mainBody(def),
			Suggestion: "replace ambiguous language with direct instructions",
		})
	}
	r.InstructionClarity = max(0, score)
}

func checkCoherence(def *prompt.Definition, r *SemanticReport) {
	r.ContextCoherence = 100
	if duplicatedSentences(def) {
		r.ContextCoherence -= 15
		r.add(Finding{
			Kind:       KindContextCoherence,
			Message:    "content is duplicated between system_prompt and user_prompt",
			Location:   prompt.BodyUser,
			Suggestion: "deduplicate the repeated content",
		})
	}
}

func checkAlignment(def *prompt.Definition, content string, r *SemanticReport) {
	r.TaskAlignment = 100
	desc := strings.ToLower(def.Description)
	if strings.TrimSpace(desc) == "" {
		r.TaskAlignment -= 10
		r.add(Finding{
			Kind:       KindTaskAlignment,
			Message:    "template lacks a description",
			Location:   "description",
			Suggestion: "describe the template's purpose",
		})
		return
	}

	terms := termSet(desc)
	if len(terms) == 0 {
		return
	}
	body := termSet(strings.ToLower(content))
	shared := 0
	for term := range terms {
		if body[term] {
			shared++
		}
	}
	if float64(shared)/float64(len(terms)) < minDescriptionOverlap {
		r.TaskAlignment -= 20
		r.add(Finding{
			Kind:       KindTaskAlignment,
			Message:    "description may not match the template content",
			Location:   "description",
			Suggestion: "update the description to reflect what the template does",
		})
	}
}

// checkPlaceholders flags declared variables whose action sits alone on its
// line with no surrounding text to say what the value is.
func checkPlaceholders(def *prompt.Definition, r *SemanticReport) {
	for _, body := range def.Bodies() {
		info, err := prompt.Inspect(body.Text)
		if err != nil {
			continue
		}
		lines := strings.Split(body.Text, "\n")
		for _, name := range info.Names() {
			if _, ok := def.Variable(name); !ok {
				continue
			}
			for _, ref := range info.References {
				if ref.Name != name || ref.Line < 1 || ref.Line > len(lines) {
					continue
				}
				if bareAction(lines[ref.Line-1]) {
					r.add(Finding{
						Kind:       KindPlaceholderQuality,
						Message:    fmt.Sprintf("variable %q appears without context", name),
						Location:   body.Name,
						Variable:   name,
						Suggestion: fmt.Sprintf("label it, e.g. '%s: {{.%s}}'", name, name),
					})
					break
				}
			}
		}
	}
}

func bareAction(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, "{{") && strings.HasSuffix(line, "}}") &&
		strings.Count(line, "{{") == 1
}

func checkStructure(def *prompt.Definition, content string, r *SemanticReport) {
	if def.System != "" && strings.TrimSpace(def.User) == "" {
		r.add(Finding{
			Kind:       KindPromptStructure,
			Message:    "system_prompt is set but user_prompt is empty",
			Location:   prompt.BodyUser,
			Suggestion: "add a user_prompt for a complete chat structure",
		})
	}
	if def.System == "" && len(content) > longUnstructuredChars && !hasMarkup(content) {
		r.add(Finding{
			Kind:       KindPromptStructure,
			Message:    "long template without clear structure",
			Location:   prompt.BodyTemplate,
			Suggestion: "split into system/user prompts or add sections",
		})
	}
}

func allContent(def *prompt.Definition) string {
	return def.System + def.User + def.Template
}

func mainBody(def *prompt.Definition) string {
	if def.IsChat() {
		return prompt.BodySystem
	}
	return prompt.BodyTemplate
}

func hasMarkup(content string) bool {
	return (strings.Contains(content, "<") && strings.Contains(content, ">")) ||
		strings.Contains(content, "##") || strings.Contains(content, "===")
}

func duplicatedSentences(def *prompt.Definition) bool {
	if def.System == "" || def.User == "" {
		return false
	}
	system := sentences(def.System)
	for s := range sentences(def.User) {
		if system[s] {
			return true
		}
	}
	return false
}

func sentences(text string) map[string]bool {
	out := make(map[string]bool)
	for _, s := range strings.Split(strings.ToLower(text), ".") {
		if s = strings.TrimSpace(s); len(s) > duplicateSentenceLen {
			out[s] = true
		}
	}
	return out
}

func termSet(text string) map[string]bool {
	out := make(map[string]bool)
	for _, term := range keyTerm.FindAllString(text, -1) {
		out[term] = true
	}
	return out
}
