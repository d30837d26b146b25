package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psa-server/internal/model"
)

func TestWinddownAnswerIdempotent(t *testing.T) {
	repo := NewWinddownRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateSession(ctx, &model.WinddownSession{
		ID:        "wd_1",
		StartedAt: time.Now(),
	}))

	answer := &model.WinddownAnswer{
		ID:        "wa_1",
		SessionID: "wd_1",
		Question:  model.QuestionWhatWentWell,
		Answer:    "shipped the thing",
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.CreateAnswerIfAbsent(ctx, answer))

	// 重试同一答案：无操作
	retry := *answer
	retry.Answer = "different text"
	require.NoError(t, repo.CreateAnswerIfAbsent(ctx, &retry))

	answers, err := repo.ListAnswers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "shipped the thing", answers[0].Answer)
}

func TestWinddownDeleteSessionRemovesAnswers(t *testing.T) {
	repo := NewWinddownRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateSession(ctx, &model.WinddownSession{ID: "wd_del", StartedAt: time.Now()}))
	require.NoError(t, repo.CreateAnswerIfAbsent(ctx, &model.WinddownAnswer{
		ID: "wa_a", SessionID: "wd_del", Question: model.QuestionWhatWentWell, Answer: "a", CreatedAt: time.Now(),
	}))
	require.NoError(t, repo.CreateAnswerIfAbsent(ctx, &model.WinddownAnswer{
		ID: "wa_b", SessionID: "wd_del", Question: model.QuestionOneThingLearned, Answer: "b", CreatedAt: time.Now(),
	}))

	require.NoError(t, repo.DeleteSession(ctx, "wd_del"))

	sessions, err := repo.ListSessions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	answers, err := repo.ListAnswers(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestWinddownThoughts(t *testing.T) {
	repo := NewWinddownRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateThoughtIfAbsent(ctx, &model.WinddownThought{
		ID: "th_1", Text: "tomorrow's standup", CreatedAt: time.Now(),
	}))
	require.NoError(t, repo.CreateThoughtIfAbsent(ctx, &model.WinddownThought{
		ID: "th_1", Text: "duplicate", CreatedAt: time.Now(),
	}))

	thoughts, err := repo.ListThoughts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, thoughts, 1)
	assert.Equal(t, "tomorrow's standup", thoughts[0].Text)

	require.NoError(t, repo.DeleteThought(ctx, "th_1"))
	thoughts, err = repo.ListThoughts(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, thoughts)
}
