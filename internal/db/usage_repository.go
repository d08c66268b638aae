package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/opencode-ai/promptctl/internal/models"
)

// UsageRepository aggregates render history per template.
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// SummarizeTemplate returns aggregated usage for one template. A template
// with no renders yields a zero summary.
func (r *UsageRepository) SummarizeTemplate(ctx context.Context, template string, since, until *time.Time) (*models.TemplateUsage, error) {
	query := `SELECT
		COUNT(*),
		COALESCE(SUM(chars), 0),
		COALESCE(SUM(estimated_tokens), 0),
		MIN(created_at),
		MAX(created_at)
		FROM renders WHERE template = ?`
	args := []any{template}
	query, args = appendRange(query, args, since, until)

	usage := &models.TemplateUsage{Template: template}
	var first, last sql.NullString
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&usage.Renders,
		&usage.TotalChars,
		&usage.EstimatedTokens,
		&first,
		&last,
	); err != nil {
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}
	setRenderedRange(usage, first, last)
	return usage, nil
}

// TopTemplates returns the most rendered templates, most renders first.
func (r *UsageRepository) TopTemplates(ctx context.Context, since, until *time.Time, limit int) ([]*models.TemplateUsage, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT
		template,
		COUNT(*) AS renders,
		COALESCE(SUM(chars), 0),
		COALESCE(SUM(estimated_tokens), 0),
		MIN(created_at),
		MAX(created_at)
		FROM renders WHERE 1=1`
	args := []any{}
	query, args = appendRange(query, args, since, until)
	query += ` GROUP BY template ORDER BY renders DESC, template LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	results := make([]*models.TemplateUsage, 0)
	for rows.Next() {
		usage := &models.TemplateUsage{}
		var first, last sql.NullString
		if err := rows.Scan(
			&usage.Template,
			&usage.Renders,
			&usage.TotalChars,
			&usage.EstimatedTokens,
			&first,
			&last,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		setRenderedRange(usage, first, last)
		results = append(results, usage)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage: %w", err)
	}
	return results, nil
}

// DeleteOlderThan removes renders created before the given time.
func (r *UsageRepository) DeleteOlderThan(ctx context.Context, before time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 1000
	}

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM renders WHERE id IN (
			SELECT id FROM renders WHERE created_at < ? ORDER BY created_at LIMIT ?
		)
	`, before.UTC().Format(timeLayout), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old renders: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted count: %w", err)
	}
	return count, nil
}

func appendRange(query string, args []any, since, until *time.Time) (string, []any) {
	if since != nil {
		query += ` AND created_at >= ?`
		args = append(args, since.UTC().Format(timeLayout))
	}
	if until != nil {
		query += ` AND created_at < ?`
		args = append(args, until.UTC().Format(timeLayout))
	}
	return query, args
}

func setRenderedRange(usage *models.TemplateUsage, first, last sql.NullString) {
	if t, err := time.Parse(timeLayout, first.String); first.Valid && err == nil {
		usage.FirstRenderedAt = t
	}
	if t, err := time.Parse(timeLayout, last.String); last.Valid && err == nil {
		usage.LastRenderedAt = t
	}
}
