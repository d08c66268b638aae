package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/promptctl/internal/db"
	"github.com/opencode-ai/promptctl/internal/format"
	"github.com/opencode-ai/promptctl/internal/models"
	"github.com/opencode-ai/promptctl/internal/prompt"
)

func newRecorder(t *testing.T) *Recorder {
	t.Helper()
	database, err := db.OpenInMemory()
	require.NoError(t, err)
	_, err = database.MigrateUp(context.Background())
	require.NoError(t, err)
	rec := New(database)
	t.Cleanup(func() { rec.Close() })
	return rec
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	rec := newRecorder(t)

	def := &prompt.Definition{Name: "greet", Version: "1.0.0", Source: "builtin", Template: "Hello, {{.name}}!"}
	out, err := prompt.Render(def, map[string]any{"name": "World"})
	require.NoError(t, err)

	res := format.NewResult(def, out)
	record, err := rec.Record(ctx, res, format.Raw)
	require.NoError(t, err)
	require.Equal(t, res.RenderID, record.ID)
	require.Equal(t, 13, record.Chars)
	require.Positive(t, record.EstimatedTokens)

	stored, err := rec.Get(ctx, record.ID[:8])
	require.NoError(t, err)
	require.Equal(t, "Hello, World!", stored.Output)
	require.Equal(t, "builtin", stored.Source)
	require.Equal(t, map[string]any{"name": "World"}, stored.Variables)
	require.WithinDuration(t, res.RenderedAt, stored.CreatedAt, time.Microsecond)

	list, err := rec.List(ctx, models.RenderQuery{Template: "greet"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, rec.RecordFailure(ctx, "greet", "1.0.0", errors.New("boom")))
	require.NoError(t, rec.RecordValidation(ctx, "greet", true, 0, 1))

	evts, err := rec.Events(ctx, "greet", 10)
	require.NoError(t, err)
	require.Len(t, evts, 3)
	require.Equal(t, models.EventTypeTemplateRendered, evts[0].Type)
	require.Equal(t, models.EventTypeTemplateFailed, evts[1].Type)
	require.Equal(t, models.EventTypeTemplateValidated, evts[2].Type)

	usage, err := rec.Usage(ctx, "greet")
	require.NoError(t, err)
	require.EqualValues(t, 1, usage.Renders)
	require.EqualValues(t, 13, usage.TotalChars)

	top, err := rec.TopTemplates(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
}

func TestRecordRequiresTemplate(t *testing.T) {
	rec := newRecorder(t)
	res := &format.Result{Definition: &prompt.Definition{}, Output: &prompt.Output{}}
	_, err := rec.Record(context.Background(), res, format.Raw)
	require.ErrorIs(t, err, db.ErrInvalidRender)
}
