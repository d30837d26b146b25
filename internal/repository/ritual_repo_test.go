package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psa-server/internal/model"
)

func TestRitualUpsertOverwrites(t *testing.T) {
	repo := NewRitualRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.Ritual{
		ID:      "evening_review",
		Name:    "Evening review",
		Webhook: "https://example.com/hook",
		Trigger: model.RitualTrigger{Type: model.TriggerTypeSchedule, Time: "21:00"},
		Active:  true,
	}))

	require.NoError(t, repo.Upsert(ctx, &model.Ritual{
		ID:      "evening_review",
		Name:    "Evening review v2",
		Trigger: model.RitualTrigger{Type: model.TriggerTypeSchedule, Time: "21:30"},
		Active:  false,
	}))

	got, err := repo.GetByID(ctx, "evening_review")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Evening review v2", got.Name)
	assert.Equal(t, "21:30", got.Trigger.Time)
	assert.False(t, got.Active)
}

func TestRitualCreateIfAbsentKeepsExisting(t *testing.T) {
	repo := NewRitualRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.Ritual{
		ID:      "plans",
		Name:    "My plans",
		Trigger: model.RitualTrigger{Type: model.TriggerTypeChat, ChatKeyword: "/plans"},
		Active:  true,
	}))

	require.NoError(t, repo.CreateIfAbsent(ctx, &model.Ritual{
		ID:      "plans",
		Name:    "Plans",
		Trigger: model.RitualTrigger{Type: model.TriggerTypeChat, ChatKeyword: "/plans"},
		Active:  true,
	}))

	got, err := repo.GetByID(ctx, "plans")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "My plans", got.Name)
}

func TestRitualListActiveFilters(t *testing.T) {
	repo := NewRitualRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.Ritual{
		ID: "on", Name: "On",
		Trigger: model.RitualTrigger{Type: model.TriggerTypeSchedule, Time: "08:00"},
		Active:  true,
	}))
	require.NoError(t, repo.Upsert(ctx, &model.Ritual{
		ID: "off", Name: "Off",
		Trigger: model.RitualTrigger{Type: model.TriggerTypeSchedule, Time: "09:00"},
		Active:  false,
	}))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "on", active[0].ID)
}

func TestRitualUpsertDeactivates(t *testing.T) {
	repo := NewRitualRepository(newTestDB(t))
	ctx := context.Background()

	ritual := &model.Ritual{
		ID:      "morning_pages",
		Name:    "Morning pages",
		Trigger: model.RitualTrigger{Type: model.TriggerTypeSchedule, Time: "07:30"},
		Active:  true,
	}
	require.NoError(t, repo.Upsert(ctx, ritual))

	// 停用后调度器不能再看到它
	ritual.Active = false
	require.NoError(t, repo.Upsert(ctx, ritual))

	got, err := repo.GetByID(ctx, "morning_pages")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Active)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRitualGetByIDMissing(t *testing.T) {
	repo := NewRitualRepository(newTestDB(t))

	got, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}
