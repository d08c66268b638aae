// Package events provides helper functions for recording template events.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opencode-ai/promptctl/internal/models"
)

// Repository is the minimal interface needed to write events.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
}

// LogRendered records a successful render of a template.
func LogRendered(ctx context.Context, repo Repository, record *models.RenderRecord) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if record == nil || record.Template == "" {
		return fmt.Errorf("render record with a template is required")
	}

	return create(ctx, repo, models.EventTypeTemplateRendered, record.Template, models.RenderedPayload{
		RenderID: record.ID,
		Version:  record.Version,
		Format:   record.Format,
		Chars:    record.Chars,
	})
}

// LogRenderFailed records a render that returned an error.
func LogRenderFailed(ctx context.Context, repo Repository, template, version string, renderErr error) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if template == "" {
		return fmt.Errorf("template name is required")
	}
	msg := ""
	if renderErr != nil {
		msg = renderErr.Error()
	}

	return create(ctx, repo, models.EventTypeTemplateFailed, template, models.RenderFailedPayload{
		Version: version,
		Error:   msg,
	})
}

// LogValidated records the outcome of validating a template.
func LogValidated(ctx context.Context, repo Repository, template string, valid bool, errs, warnings int) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if template == "" {
		return fmt.Errorf("template name is required")
	}

	return create(ctx, repo, models.EventTypeTemplateValidated, template, models.ValidatedPayload{
		Valid:    valid,
		Errors:   errs,
		Warnings: warnings,
	})
}

func create(ctx context.Context, repo Repository, eventType models.EventType, template string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return repo.Create(ctx, &models.Event{
		Type:       eventType,
		EntityType: models.EntityTypeTemplate,
		EntityID:   template,
		Payload:    data,
	})
}
