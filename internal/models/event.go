// Package models defines the records persisted by promptctl.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventType categorizes events in the system.
type EventType string

const (
	// Template events
	EventTypeTemplateRendered  EventType = "template.rendered"
	EventTypeTemplateFailed    EventType = "template.render_failed"
	EventTypeTemplateValidated EventType = "template.validated"

	// System events
	EventTypeError EventType = "error"
)

// EntityType identifies the type of entity an event relates to.
type EntityType string

const (
	EntityTypeTemplate EntityType = "template"
	EntityTypeRender   EntityType = "render"
	EntityTypeSystem   EntityType = "system"
)

// Event represents an append-only log entry.
type Event struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Type       EventType         `json:"type"`
	EntityType EntityType        `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Payload    json.RawMessage   `json:"payload,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Validate checks if the event is valid.
func (e *Event) Validate() error {
	var missing []string
	if strings.TrimSpace(string(e.Type)) == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(string(e.EntityType)) == "" {
		missing = append(missing, "entity_type")
	}
	if strings.TrimSpace(e.EntityID) == "" {
		missing = append(missing, "entity_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("event %s required", strings.Join(missing, ", "))
	}
	return nil
}

// RenderedPayload is the payload for template.rendered events.
type RenderedPayload struct {
	RenderID string `json:"render_id"`
	Version  string `json:"version"`
	Format   string `json:"format"`
	Chars    int    `json:"chars"`
}

// RenderFailedPayload is the payload for template.render_failed events.
type RenderFailedPayload struct {
	Version string `json:"version"`
	Error   string `json:"error"`
}

// ValidatedPayload is the payload for template.validated events.
type ValidatedPayload struct {
	Valid    bool `json:"valid"`
	Errors   int  `json:"errors"`
	Warnings int  `json:"warnings"`
}
