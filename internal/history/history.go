// Package history records renders in the local SQLite database.
package history

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/opencode-ai/promptctl/internal/analyzer"
	"github.com/opencode-ai/promptctl/internal/db"
	"github.com/opencode-ai/promptctl/internal/events"
	"github.com/opencode-ai/promptctl/internal/format"
	"github.com/opencode-ai/promptctl/internal/logging"
	"github.com/opencode-ai/promptctl/internal/models"
)

// Recorder writes render records and their events.
type Recorder struct {
	db      *db.DB
	renders *db.RenderRepository
	events  *db.EventRepository
	usage   *db.UsageRepository
	logger  zerolog.Logger
}

// Open opens and migrates the history database at path.
func Open(ctx context.Context, path string) (*Recorder, error) {
	database, err := db.OpenAndMigrate(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return New(database), nil
}

// New wraps an already migrated database.
func New(database *db.DB) *Recorder {
	return &Recorder{
		db:      database,
		renders: db.NewRenderRepository(database),
		events:  db.NewEventRepository(database),
		usage:   db.NewUsageRepository(database),
		logger:  logging.Component("history"),
	}
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// Record stores a successful render. The render's ID and timestamp become
// the record's.
func (r *Recorder) Record(ctx context.Context, res *format.Result, formatName string) (*models.RenderRecord, error) {
	text := res.Output.Combined()
	record := &models.RenderRecord{
		ID:              res.RenderID,
		Template:        res.Definition.Name,
		Version:         res.Definition.Version,
		Source:          res.Definition.Source,
		Format:          formatName,
		Variables:       map[string]any(res.Output.Variables),
		Output:          text,
		EstimatedTokens: analyzer.CountTokens(text),
		CreatedAt:       res.RenderedAt,
	}
	if err := r.renders.Create(ctx, record); err != nil {
		return nil, err
	}
	if err := events.LogRendered(ctx, r.events, record); err != nil {
		r.logger.Warn().Err(err).Str("render_id", record.ID).Msg("failed to log render event")
	}
	r.logger.Debug().Str("template", record.Template).Str("render_id", record.ID).Msg("render recorded")
	return record, nil
}

// RecordFailure logs a failed render as an event.
func (r *Recorder) RecordFailure(ctx context.Context, template, version string, renderErr error) error {
	return events.LogRenderFailed(ctx, r.events, template, version, renderErr)
}

// RecordValidation logs a validation outcome as an event.
func (r *Recorder) RecordValidation(ctx context.Context, template string, valid bool, errs, warnings int) error {
	return events.LogValidated(ctx, r.events, template, valid, errs, warnings)
}

// List returns recorded renders, newest first.
func (r *Recorder) List(ctx context.Context, q models.RenderQuery) ([]*models.RenderRecord, error) {
	return r.renders.List(ctx, q)
}

// Get returns one render by ID or unique ID prefix.
func (r *Recorder) Get(ctx context.Context, id string) (*models.RenderRecord, error) {
	return r.renders.Get(ctx, id)
}

// Events returns up to limit events for a template, oldest first.
func (r *Recorder) Events(ctx context.Context, template string, limit int) ([]*models.Event, error) {
	return r.events.ListByTemplate(ctx, template, limit)
}

// Usage summarizes recorded renders of one template.
func (r *Recorder) Usage(ctx context.Context, template string) (*models.TemplateUsage, error) {
	return r.usage.SummarizeTemplate(ctx, template, nil, nil)
}

// TopTemplates returns the most rendered templates.
func (r *Recorder) TopTemplates(ctx context.Context, limit int) ([]*models.TemplateUsage, error) {
	return r.usage.TopTemplates(ctx, nil, nil, limit)
}
