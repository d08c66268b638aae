package models

import (
	"fmt"
	"strings"
	"time"
)

// RenderRecord is one successful render kept in history.
type RenderRecord struct {
	ID              string         `json:"id"`
	Template        string         `json:"template"`
	Version         string         `json:"version"`
	Source          string         `json:"source,omitempty"`
	Format          string         `json:"format"`
	Variables       map[string]any `json:"variables,omitempty"`
	Output          string         `json:"output"`
	Chars           int            `json:"chars"`
	EstimatedTokens int            `json:"estimated_tokens"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Validate checks required fields.
func (r *RenderRecord) Validate() error {
	if strings.TrimSpace(r.Template) == "" {
		return fmt.Errorf("render template is required")
	}
	return nil
}

// RenderQuery filters history listings.
type RenderQuery struct {
	Template string     // exact template name
	Since    *time.Time // inclusive
	Until    *time.Time // exclusive
	Limit    int
}

// TemplateUsage aggregates history for one template.
type TemplateUsage struct {
	Template        string    `json:"template"`
	Renders         int64     `json:"renders"`
	TotalChars      int64     `json:"total_chars"`
	EstimatedTokens int64     `json:"estimated_tokens"`
	FirstRenderedAt time.Time `json:"first_rendered_at"`
	LastRenderedAt  time.Time `json:"last_rendered_at"`
}
