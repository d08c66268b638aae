package format

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/promptctl/internal/prompt"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func singleResult() *Result {
	return &Result{
		Definition: &prompt.Definition{Name: "greet", Version: "1.2.0", Description: "Greets"},
		Output: &prompt.Output{
			Text:      "Hello, World!",
			Variables: prompt.RenderContext{"name": "World", "note": "it's | fine"},
		},
		RenderID:   "render-1",
		RenderedAt: fixedTime,
	}
}

func chatResult() *Result {
	return &Result{
		Definition: &prompt.Definition{Name: "review", Version: "1.0.0"},
		Output: &prompt.Output{
			Chat:      true,
			System:    "You are a reviewer.",
			User:      "Check this.",
			Variables: prompt.RenderContext{"items": []any{"a", "b"}},
		},
		RenderID:   "render-2",
		RenderedAt: fixedTime,
	}
}

func TestRaw(t *testing.T) {
	got, err := Render(Raw, singleResult())
	require.NoError(t, err)
	require.Equal(t, "Hello, World!", got)

	got, err = Render(Raw, chatResult())
	require.NoError(t, err)
	require.Equal(t, "You are a reviewer.\n\nCheck this.", got)
}

func TestJSON(t *testing.T) {
	got, err := Render(JSON, chatResult())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(got), &doc))
	require.Equal(t, "You are a reviewer.\n\nCheck this.", doc["rendered"])
	require.Equal(t, map[string]any{"name": "review", "version": "1.0.0"}, doc["template"])
	require.Equal(t, map[string]any{"system": "You are a reviewer.", "user": "Check this."}, doc["prompts"])
	require.Equal(t, map[string]any{"render_id": "render-2", "timestamp": "2026-03-01T12:00:00Z"}, doc["metadata"])
	require.Equal(t, map[string]any{"items": []any{"a", "b"}}, doc["variables"])

	got, err = Render(JSON, singleResult())
	require.NoError(t, err)
	require.NotContains(t, got, `"prompts"`)
	require.True(t, strings.HasPrefix(got, "{\n  \"template\""))
}

func TestMarkdown(t *testing.T) {
	r := singleResult()
	r.Output.Variables["long"] = strings.Repeat("x", 60)

	got, err := Render(Markdown, r)
	require.NoError(t, err)
	require.Contains(t, got, "# greet\n\n**Version:** 1.2.0\n**Description:** Greets\n**Generated:** 2026-03-01T12:00:00Z")
	require.Contains(t, got, "| note | it's \\| fine |")
	require.Contains(t, got, "| long | "+strings.Repeat("x", 47)+"... |")
	require.True(t, strings.HasSuffix(got, "## Rendered Output\n\nHello, World!"))

	got, err = Render(Markdown, chatResult())
	require.NoError(t, err)
	require.Contains(t, got, "## System Prompt\n\nYou are a reviewer.\n")
	require.Contains(t, got, "## User Prompt\n\nCheck this.\n")
	require.Contains(t, got, `| items | ["a","b"] |`)
}

func TestChatAPI(t *testing.T) {
	type payload struct {
		System   string        `json:"system"`
		Messages []chatMessage `json:"messages"`
		Metadata chatMetadata  `json:"metadata"`
	}

	got, err := Render(ChatAPI, chatResult())
	require.NoError(t, err)
	var openai payload
	require.NoError(t, json.Unmarshal([]byte(got), &openai))
	require.Empty(t, openai.System)
	require.Equal(t, []chatMessage{
		{Role: "system", Content: "You are a reviewer."},
		{Role: "user", Content: "Check this."},
	}, openai.Messages)
	require.Equal(t, "openai", openai.Metadata.ProviderHint)

	got, err = Render(ChatAPI, chatResult(), WithProvider("Anthropic"))
	require.NoError(t, err)
	var anthropic payload
	require.NoError(t, json.Unmarshal([]byte(got), &anthropic))
	require.Equal(t, "You are a reviewer.", anthropic.System)
	require.Equal(t, []chatMessage{{Role: "user", Content: "Check this."}}, anthropic.Messages)

	got, err = Render(ChatAPI, singleResult())
	require.NoError(t, err)
	var single payload
	require.NoError(t, json.Unmarshal([]byte(got), &single))
	require.Equal(t, []chatMessage{{Role: "user", Content: "Hello, World!"}}, single.Messages)
}

func TestEnv(t *testing.T) {
	got, err := Render(Env, singleResult())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got, "#!/bin/bash\n# Template: greet v1.2.0\n"))
	require.Contains(t, got, "export PROMPT_TEMPLATE_NAME='greet'")
	require.Contains(t, got, `export PROMPT_VAR_NOTE='it'\''s | fine'`)
	require.Contains(t, got, "read -r -d '' PROMPT_CONTENT << 'PROMPT_EOF'\nHello, World!\nPROMPT_EOF\nexport PROMPT_CONTENT")
	require.NotContains(t, got, "PROMPT_SYSTEM")

	got, err = Render(Env, chatResult())
	require.NoError(t, err)
	require.Contains(t, got, "read -r -d '' PROMPT_SYSTEM << 'PROMPT_EOF'\nYou are a reviewer.\nPROMPT_EOF")
	require.Contains(t, got, "read -r -d '' PROMPT_USER << 'PROMPT_EOF'\nCheck this.\nPROMPT_EOF")
	require.Contains(t, got, `export PROMPT_VAR_ITEMS='["a","b"]'`)
}

func TestUnknownFormat(t *testing.T) {
	_, err := Get("yaml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "chat-api, env, json, markdown, raw")
}

func TestNewResult(t *testing.T) {
	r := NewResult(&prompt.Definition{Name: "x"}, &prompt.Output{})
	require.Len(t, r.RenderID, 36)
	require.False(t, r.RenderedAt.IsZero())
}
