package format

import (
	"bytes"
	"encoding/json"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatMetadata struct {
	Template     string `json:"template"`
	Version      string `json:"version"`
	ProviderHint string `json:"provider_hint"`
}

type chatDocument struct {
	System   string        `json:"system,omitempty"`
	Messages []chatMessage `json:"messages"`
	Metadata chatMetadata  `json:"metadata"`
}

type chatFormatter struct {
	provider string
}

// Format emits a chat completion payload. Anthropic takes the system prompt
// as a top-level field rather than a message.
func (f chatFormatter) Format(r *Result) (string, error) {
	doc := chatDocument{
		Messages: make([]chatMessage, 0, 2),
		Metadata: chatMetadata{
			Template:     r.Definition.Name,
			Version:      r.Definition.Version,
			ProviderHint: f.provider,
		},
	}

	out := r.Output
	if out.Chat {
		if out.System != "" {
			if f.provider == "anthropic" {
				doc.System = out.System
			} else {
				doc.Messages = append(doc.Messages, chatMessage{Role: "system", Content: out.System})
			}
		}
		if out.User != "" {
			doc.Messages = append(doc.Messages, chatMessage{Role: "user", Content: out.User})
		}
	} else {
		doc.Messages = append(doc.Messages, chatMessage{Role: "user", Content: out.Text})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
