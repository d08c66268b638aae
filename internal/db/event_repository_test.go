package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/opencode-ai/promptctl/internal/models"
)

func TestEventRepository_CreateAndGet(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()
	repo := NewEventRepository(database)
	ctx := context.Background()

	event := &models.Event{
		Type:       models.EventTypeTemplateRendered,
		EntityType: models.EntityTypeTemplate,
		EntityID:   "greet",
		Payload:    json.RawMessage(`{"render_id":"r1"}`),
		Metadata:   map[string]string{"format": "raw"},
	}
	if err := repo.Create(ctx, event); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Get(ctx, event.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Type != models.EventTypeTemplateRendered || got.Metadata["format"] != "raw" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if string(got.Payload) != `{"render_id":"r1"}` {
		t.Fatalf("unexpected payload: %s", got.Payload)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	if err := repo.Create(ctx, &models.Event{Type: models.EventTypeError}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestEventRepository_QueryPagination(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()
	repo := NewEventRepository(database)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entity := "greet"
		if i%2 == 1 {
			entity = "other"
		}
		if err := repo.Create(ctx, &models.Event{
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			Type:       models.EventTypeTemplateRendered,
			EntityType: models.EntityTypeTemplate,
			EntityID:   entity,
		}); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	page, err := repo.Query(ctx, EventQuery{Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page.Events) != 2 || page.NextCursor == "" {
		t.Fatalf("unexpected first page: %+v", page)
	}

	next, err := repo.Query(ctx, EventQuery{Limit: 10, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("Query next: %v", err)
	}
	if len(next.Events) != 3 || next.NextCursor != "" {
		t.Fatalf("unexpected second page: %d events, cursor %q", len(next.Events), next.NextCursor)
	}

	greet, err := repo.ListByTemplate(ctx, "greet", 0)
	if err != nil || len(greet) != 3 {
		t.Fatalf("expected 3 greet events, got %d (%v)", len(greet), err)
	}
}

func TestEventRepository_QueryFilters(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()
	repo := NewEventRepository(database)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	types := []models.EventType{
		models.EventTypeTemplateRendered,
		models.EventTypeTemplateFailed,
		models.EventTypeTemplateValidated,
		models.EventTypeTemplateRendered,
	}
	for i, eventType := range types {
		if err := repo.Create(ctx, &models.Event{
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Type:       eventType,
			EntityType: models.EntityTypeTemplate,
			EntityID:   "greet",
		}); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	page, err := repo.Query(ctx, EventQuery{
		Template: "greet",
		Types:    []models.EventType{models.EventTypeTemplateRendered, models.EventTypeTemplateFailed},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page.Events) != 3 {
		t.Fatalf("expected 3 render events, got %d", len(page.Events))
	}

	since := base.Add(2 * time.Minute)
	page, err = repo.Query(ctx, EventQuery{Template: "greet", Since: &since})
	if err != nil {
		t.Fatalf("Query since: %v", err)
	}
	if len(page.Events) != 2 || page.Events[0].Type != models.EventTypeTemplateValidated {
		t.Fatalf("unexpected events since %v: %+v", since, page.Events)
	}

	page, err = repo.Query(ctx, EventQuery{Template: "other"})
	if err != nil || len(page.Events) != 0 {
		t.Fatalf("expected no events for other template, got %d (%v)", len(page.Events), err)
	}
}
