package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opencode-ai/promptctl/internal/models"
)

// Render repository errors.
var (
	ErrRenderNotFound = errors.New("render not found")
	ErrInvalidRender  = errors.New("invalid render")
)

// timeLayout is fixed-width so stored timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const renderColumns = `id, template, version, source, format, variables_json, output, chars, estimated_tokens, created_at`

// RenderRepository handles render history persistence.
type RenderRepository struct {
	db *DB
}

// NewRenderRepository creates a new RenderRepository.
func NewRenderRepository(db *DB) *RenderRepository {
	return &RenderRepository{db: db}
}

// Create inserts a render record, assigning an ID and timestamp when unset.
func (r *RenderRepository) Create(ctx context.Context, record *models.RenderRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRender, err)
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	} else {
		record.CreatedAt = record.CreatedAt.UTC()
	}
	if record.Chars == 0 {
		record.Chars = len([]rune(record.Output))
	}

	var variablesJSON *string
	if len(record.Variables) > 0 {
		data, err := json.Marshal(record.Variables)
		if err != nil {
			return fmt.Errorf("failed to marshal variables: %w", err)
		}
		s := string(data)
		variablesJSON = &s
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO renders (`+renderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.Template,
		record.Version,
		nullString(record.Source),
		record.Format,
		variablesJSON,
		record.Output,
		record.Chars,
		record.EstimatedTokens,
		record.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert render: %w", err)
	}
	return nil
}

// Get retrieves a render by ID or unique ID prefix.
func (r *RenderRepository) Get(ctx context.Context, id string) (*models.RenderRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRenderNotFound
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+renderColumns+` FROM renders
		WHERE substr(id, 1, length(?)) = ?
		ORDER BY id LIMIT 2
	`, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query render: %w", err)
	}
	defer rows.Close()

	var matches []*models.RenderRecord
	for rows.Next() {
		record, err := r.scanRender(rows)
		if err != nil {
			return nil, err
		}
		if record.ID == id {
			return record, nil
		}
		matches = append(matches, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating renders: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, ErrRenderNotFound
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("render id prefix %q is ambiguous", id)
}

// List returns renders matching q, newest first.
func (r *RenderRepository) List(ctx context.Context, q models.RenderQuery) ([]*models.RenderRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + renderColumns + ` FROM renders WHERE 1=1`
	args := []any{}
	if q.Template != "" {
		query += ` AND template = ?`
		args = append(args, q.Template)
	}
	if q.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, q.Since.UTC().Format(timeLayout))
	}
	if q.Until != nil {
		query += ` AND created_at < ?`
		args = append(args, q.Until.UTC().Format(timeLayout))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query renders: %w", err)
	}
	defer rows.Close()

	records := make([]*models.RenderRecord, 0)
	for rows.Next() {
		record, err := r.scanRender(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating renders: %w", err)
	}
	return records, nil
}

// Delete removes a render by ID.
func (r *RenderRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM renders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete render: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get deleted count: %w", err)
	}
	if n == 0 {
		return ErrRenderNotFound
	}
	return nil
}

func (r *RenderRepository) scanRender(rows *sql.Rows) (*models.RenderRecord, error) {
	var record models.RenderRecord
	var source, variablesJSON sql.NullString
	var createdAt string

	if err := rows.Scan(
		&record.ID,
		&record.Template,
		&record.Version,
		&source,
		&record.Format,
		&variablesJSON,
		&record.Output,
		&record.Chars,
		&record.EstimatedTokens,
		&createdAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan render: %w", err)
	}

	record.Source = source.String
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		record.CreatedAt = t
	}
	if variablesJSON.Valid {
		if err := json.Unmarshal([]byte(variablesJSON.String), &record.Variables); err != nil {
			r.db.logger.Warn().Err(err).Str("render_id", record.ID).Msg("failed to parse render variables")
		}
	}
	return &record, nil
}

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
