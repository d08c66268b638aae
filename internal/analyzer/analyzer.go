// Package analyzer estimates the token footprint of prompt templates and
// suggests structural improvements.
package analyzer

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/opencode-ai/promptctl/internal/prompt"
)

// Description quality grades.
const (
	DescriptionMissing = "missing"
	DescriptionMinimal = "minimal"
	DescriptionGood    = "good"
)

const (
	largeTemplateTokens = 10000
	unstructuredTokens  = 500
	deepNesting         = 3
	heavyReuse          = 5
	goodDescriptionLen  = 20
)

var (
	markdownHeader = regexp.MustCompile(`(?m)^#{1,3}\s`)
	xmlTag         = regexp.MustCompile(`(?i)<[a-z_]+>`)
	ruleMarker     = regexp.MustCompile(`(?m)^===`)
)

// TokenEstimate breaks the estimated prompt size down by source.
type TokenEstimate struct {
	Template  int             `json:"template_tokens"`
	System    int             `json:"system_prompt_tokens"`
	User      int             `json:"user_prompt_tokens"`
	Variables map[string]int  `json:"estimated_variable_tokens"`
	Static    int             `json:"total_static_tokens"`
	Total     int             `json:"estimated_total"`
	ModelFit  map[string]bool `json:"model_fit"`
}

// VariableAnalysis describes how one declared variable is used.
type VariableAnalysis struct {
	Name               string `json:"name"`
	Type               string `json:"type"`
	EstimatedTokens    int    `json:"estimated_tokens"`
	UsageCount         int    `json:"usage_count"`
	InSystemPrompt     bool   `json:"in_system_prompt"`
	InUserPrompt       bool   `json:"in_user_prompt"`
	DescriptionQuality string `json:"description_quality"`
}

// Structure summarizes the control flow and layout of the bodies.
type Structure struct {
	HasSystemPrompt  bool `json:"has_system_prompt"`
	HasUserPrompt    bool `json:"has_user_prompt"`
	HasTemplate      bool `json:"has_template"`
	Conditionals     int  `json:"conditionals"`
	Loops            int  `json:"loops"`
	NestingDepth     int  `json:"nesting_depth"`
	SectionCount     int  `json:"section_count"`
	UsesWholeContext bool `json:"uses_whole_context"`
}

// Result is the full analysis of a template.
type Result struct {
	Template        string             `json:"template_name"`
	Tokens          TokenEstimate      `json:"token_estimate"`
	Variables       []VariableAnalysis `json:"variable_analysis"`
	Structure       Structure          `json:"structural_analysis"`
	Recommendations []string           `json:"recommendations"`
}

// Options controls an analysis run.
type Options struct {
	// Samples supplies representative values by variable name.
	Samples map[string]any
	// Models lists model names to check fit against; DefaultModels when empty.
	Models []string
}

// Analyze estimates token usage, inspects structure and collects
// recommendations for def. Bodies that fail to parse contribute only their
// size.
func Analyze(def *prompt.Definition, opts Options) *Result {
	infos := inspectBodies(def)

	tokens := estimateTokens(def, opts.Samples)
	models := opts.Models
	if len(models) == 0 {
		models = DefaultModels
	}
	tokens.ModelFit = make(map[string]bool, len(models))
	for _, model := range models {
		tokens.ModelFit[model] = Fits(tokens.Total, model)
	}

	variables := analyzeVariables(def, infos, opts.Samples)
	structure := analyzeStructure(def, infos)

	return &Result{
		Template:        def.Name,
		Tokens:          tokens,
		Variables:       variables,
		Structure:       structure,
		Recommendations: recommend(def, tokens, variables, structure),
	}
}

func inspectBodies(def *prompt.Definition) map[string]*prompt.BodyInfo {
	infos := make(map[string]*prompt.BodyInfo)
	for _, body := range def.Bodies() {
		info, err := prompt.Inspect(body.Text)
		if err != nil {
			continue
		}
		infos[body.Name] = info
	}
	return infos
}

func estimateTokens(def *prompt.Definition, samples map[string]any) TokenEstimate {
	est := TokenEstimate{
		Template:  CountTokens(def.Template),
		System:    CountTokens(def.System),
		User:      CountTokens(def.User),
		Variables: make(map[string]int, len(def.Variables)),
	}
	est.Static = est.Template + est.System + est.User

	total := est.Static - placeholderCost*len(def.Variables)
	for _, v := range def.Variables {
		n := EstimateVariable(v, samples)
		est.Variables[v.Name] = n
		total += n
	}
	if total < 0 {
		total = 0
	}
	est.Total = total
	return est
}

func analyzeVariables(def *prompt.Definition, infos map[string]*prompt.BodyInfo, samples map[string]any) []VariableAnalysis {
	out := make([]VariableAnalysis, 0, len(def.Variables))
	for _, v := range def.Variables {
		va := VariableAnalysis{
			Name:               v.Name,
			Type:               string(v.Type),
			EstimatedTokens:    EstimateVariable(v, samples),
			DescriptionQuality: descriptionQuality(v.Description),
		}
		for body, info := range infos {
			n := info.Count(v.Name)
			va.UsageCount += n
			if n == 0 {
				continue
			}
			switch body {
			case prompt.BodySystem:
				va.InSystemPrompt = true
			case prompt.BodyUser:
				va.InUserPrompt = true
			}
		}
		out = append(out, va)
	}
	return out
}

func descriptionQuality(desc string) string {
	switch {
	case desc == "":
		return DescriptionMissing
	case len(desc) > goodDescriptionLen:
		return DescriptionGood
	default:
		return DescriptionMinimal
	}
}

func analyzeStructure(def *prompt.Definition, infos map[string]*prompt.BodyInfo) Structure {
	s := Structure{
		HasSystemPrompt: def.System != "",
		HasUserPrompt:   def.User != "",
		HasTemplate:     def.Template != "",
	}
	for _, info := range infos {
		s.Conditionals += info.Conditionals
		s.Loops += info.Loops
		if info.MaxDepth > s.NestingDepth {
			s.NestingDepth = info.MaxDepth
		}
		s.UsesWholeContext = s.UsesWholeContext || info.UsesWholeContext
	}
	for _, body := range def.Bodies() {
		s.SectionCount += len(markdownHeader.FindAllStringIndex(body.Text, -1)) +
			len(xmlTag.FindAllStringIndex(body.Text, -1)) +
			len(ruleMarker.FindAllStringIndex(body.Text, -1))
	}
	return s
}

func recommend(def *prompt.Definition, tokens TokenEstimate, variables []VariableAnalysis, s Structure) []string {
	recs := []string{}

	if tokens.Total > largeTemplateTokens {
		recs = append(recs, "Consider breaking this template into smaller, focused templates.")
	}
	if !s.HasSystemPrompt && !s.HasUserPrompt && s.SectionCount == 0 && tokens.Static > unstructuredTokens {
		recs = append(recs, "Consider a system_prompt/user_prompt split or markdown sections to give the prompt structure.")
	}
	if s.NestingDepth > deepNesting {
		recs = append(recs, fmt.Sprintf("Template has deep nesting (depth %d); consider simplifying the conditional logic.", s.NestingDepth))
	}

	var tooSmall []string
	for model, fits := range tokens.ModelFit {
		if !fits {
			tooSmall = append(tooSmall, model)
		}
	}
	if len(tooSmall) > 0 {
		sort.Strings(tooSmall)
		recs = append(recs, fmt.Sprintf("Estimated size leaves too little response room for: %v.", tooSmall))
	}

	for _, v := range variables {
		if v.DescriptionQuality == DescriptionMissing {
			recs = append(recs, fmt.Sprintf("Variable %q lacks a description.", v.Name))
		}
		if v.UsageCount > heavyReuse {
			recs = append(recs, fmt.Sprintf("Variable %q is used %d times; check whether the repetition is needed.", v.Name, v.UsageCount))
		}
	}
	if def.Description == "" {
		recs = append(recs, "Template lacks a description.")
	}
	return recs
}
