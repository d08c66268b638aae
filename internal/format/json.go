package format

import (
	"bytes"
	"encoding/json"
	"time"
)

type jsonFormatter struct {
	indent string
}

type jsonTemplate struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}

type jsonPrompts struct {
	System string `json:"system"`
	User   string `json:"user"`
}

type jsonMetadata struct {
	RenderID  string `json:"render_id"`
	Timestamp string `json:"timestamp"`
}

type jsonDocument struct {
	Template  jsonTemplate   `json:"template"`
	Rendered  string         `json:"rendered"`
	Variables map[string]any `json:"variables"`
	Prompts   *jsonPrompts   `json:"prompts,omitempty"`
	Ignored   []string       `json:"ignored,omitempty"`
	Metadata  jsonMetadata   `json:"metadata"`
}

func (f jsonFormatter) Format(r *Result) (string, error) {
	doc := jsonDocument{
		Template: jsonTemplate{
			Name:        r.Definition.Name,
			Version:     r.Definition.Version,
			Description: r.Definition.Description,
			Source:      r.Definition.Source,
		},
		Rendered:  r.Output.Combined(),
		Variables: map[string]any(r.Output.Variables),
		Ignored:   r.Output.Ignored,
		Metadata: jsonMetadata{
			RenderID:  r.RenderID,
			Timestamp: r.RenderedAt.UTC().Format(time.RFC3339),
		},
	}
	if doc.Variables == nil {
		doc.Variables = map[string]any{}
	}
	if r.Output.Chat {
		doc.Prompts = &jsonPrompts{System: r.Output.System, User: r.Output.User}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", f.indent)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
