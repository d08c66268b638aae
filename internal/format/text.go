package format

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const heredocMarker = "PROMPT_EOF"

var envUnsafe = regexp.MustCompile(`[^A-Z0-9_]`)

func formatMarkdown(r *Result) (string, error) {
	def := r.Definition
	lines := []string{
		"# " + def.Name,
		"",
		"**Version:** " + def.Version,
	}
	if def.Description != "" {
		lines = append(lines, "**Description:** "+def.Description)
	}
	lines = append(lines, "**Generated:** "+r.RenderedAt.UTC().Format(time.RFC3339), "")

	vars := r.Output.Variables
	if len(vars) > 0 {
		lines = append(lines, "## Variables", "", "| Variable | Value |", "|----------|-------|")
		for _, key := range sortedKeys(vars) {
			value := []rune(displayValue(vars[key]))
			if len(value) > 50 {
				value = append(value[:47], []rune("...")...)
			}
			cell := strings.ReplaceAll(string(value), "|", `\|`)
			cell = strings.ReplaceAll(cell, "\n", " ")
			lines = append(lines, fmt.Sprintf("| %s | %s |", key, cell))
		}
		lines = append(lines, "")
	}

	out := r.Output
	if out.Chat {
		if out.System != "" {
			lines = append(lines, "## System Prompt", "", out.System, "")
		}
		if out.User != "" {
			lines = append(lines, "## User Prompt", "", out.User, "")
		}
	} else {
		lines = append(lines, "## Rendered Output", "", out.Text)
	}
	return strings.Join(lines, "\n"), nil
}

func formatEnv(r *Result) (string, error) {
	def := r.Definition
	lines := []string{
		"#!/bin/bash",
		fmt.Sprintf("# Template: %s v%s", def.Name, def.Version),
		"# Generated: " + r.RenderedAt.UTC().Format(time.RFC3339),
		"",
		"export PROMPT_TEMPLATE_NAME=" + shellQuote(def.Name),
		"export PROMPT_TEMPLATE_VERSION=" + shellQuote(def.Version),
		"",
	}

	vars := r.Output.Variables
	for _, key := range sortedKeys(vars) {
		name := envUnsafe.ReplaceAllString(strings.ToUpper(key), "_")
		lines = append(lines, fmt.Sprintf("export PROMPT_VAR_%s=%s", name, shellQuote(displayValue(vars[key]))))
	}
	lines = append(lines, "")

	out := r.Output
	lines = append(lines, heredoc("PROMPT_CONTENT", out.Combined())...)
	if out.Chat {
		lines = append(lines, "")
		lines = append(lines, heredoc("PROMPT_SYSTEM", out.System)...)
		lines = append(lines, "")
		lines = append(lines, heredoc("PROMPT_USER", out.User)...)
	}
	return strings.Join(lines, "\n"), nil
}

func heredoc(name, body string) []string {
	return []string{
		fmt.Sprintf("read -r -d '' %s << '%s'", name, heredocMarker),
		body,
		heredocMarker,
		"export " + name,
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// displayValue renders lists and objects as JSON and everything else as text.
func displayValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case []any, map[string]any:
		data, err := json.Marshal(val)
		if err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(v)
}
