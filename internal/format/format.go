// Package format serializes rendered prompts for output.
package format

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opencode-ai/promptctl/internal/prompt"
)

// Format names.
const (
	Raw      = "raw"
	JSON     = "json"
	Markdown = "markdown"
	ChatAPI  = "chat-api"
	Env      = "env"
)

// Result is one render ready for serialization.
type Result struct {
	Definition *prompt.Definition
	Output     *prompt.Output
	RenderID   string
	RenderedAt time.Time
}

// NewResult stamps a render with a fresh ID and the current time.
func NewResult(def *prompt.Definition, out *prompt.Output) *Result {
	return &Result{
		Definition: def,
		Output:     out,
		RenderID:   uuid.New().String(),
		RenderedAt: time.Now().UTC(),
	}
}

// Formatter turns a Result into text.
type Formatter interface {
	Format(r *Result) (string, error)
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(r *Result) (string, error)

// Format calls f.
func (f FormatterFunc) Format(r *Result) (string, error) {
	return f(r)
}

// Option configures formatters that accept settings.
type Option func(*options)

type options struct {
	provider string
	indent   string
}

// WithProvider sets the chat-api provider hint ("openai" or "anthropic").
func WithProvider(provider string) Option {
	return func(o *options) {
		if provider != "" {
			o.provider = strings.ToLower(provider)
		}
	}
}

// WithIndent sets the JSON indent string.
func WithIndent(indent string) Option {
	return func(o *options) {
		o.indent = indent
	}
}

var registry = map[string]func(options) Formatter{
	Raw:      func(options) Formatter { return FormatterFunc(formatRaw) },
	JSON:     func(o options) Formatter { return jsonFormatter{indent: o.indent} },
	Markdown: func(options) Formatter { return FormatterFunc(formatMarkdown) },
	ChatAPI:  func(o options) Formatter { return chatFormatter{provider: o.provider} },
	Env:      func(options) Formatter { return FormatterFunc(formatEnv) },
}

// Names returns the supported format names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the formatter registered under name.
func Get(name string, opts ...Option) (Formatter, error) {
	o := options{provider: "openai", indent: "  "}
	for _, opt := range opts {
		opt(&o)
	}
	build, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (valid formats: %s)", name, strings.Join(Names(), ", "))
	}
	return build(o), nil
}

// Render is a shorthand for Get followed by Format.
func Render(name string, r *Result, opts ...Option) (string, error) {
	f, err := Get(name, opts...)
	if err != nil {
		return "", err
	}
	return f.Format(r)
}

func formatRaw(r *Result) (string, error) {
	return r.Output.Combined(), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
