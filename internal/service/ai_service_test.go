package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psa-server/internal/config"
	"psa-server/internal/model"
)

func TestAIServiceUnconfigured(t *testing.T) {
	svc := NewAIService(&config.Config{})
	assert.False(t, svc.Available())
}

func TestGenerateWakeGreetingFallback(t *testing.T) {
	svc := NewAIService(&config.Config{})

	greeting := svc.GenerateWakeGreeting(context.Background())
	assert.Contains(t, fallbackWelcomes, greeting.Welcome)
	assert.Contains(t, fallbackQuotes, greeting.Quote)
}

func TestAdviseImpulseFallbackSections(t *testing.T) {
	svc := NewAIService(&config.Config{})

	meta := svc.AdviseImpulse(context.Background(), "late-night snacking")
	assert.Equal(t, model.DemoListSection, meta.String("demo"))
	assert.Equal(t, "Impulse Control", meta.String("title"))
	assert.Equal(t, "late-night snacking", meta.String("currentImpulse"))

	sections, ok := meta["sections"].([]model.JSONMap)
	require.True(t, ok)
	require.Len(t, sections, 3)
	assert.Equal(t, "Reaction", sections[0].String("header"))
	assert.Equal(t, "Consequences", sections[1].String("header"))
	assert.Equal(t, "Better alternatives", sections[2].String("header"))

	items, ok := sections[1]["items"].([]string)
	require.True(t, ok)
	assert.Len(t, items, 3)
}

func TestParseAdviceSections(t *testing.T) {
	sections := parseAdviceSections("Impulse noted: skipping gym.\nPossible consequences:\n- lost streak\nBetter alternatives:\n- short workout\n- stretch at home")
	require.Len(t, sections, 3)
	assert.Equal(t, []string{"Impulse noted: skipping gym."}, sections[0]["items"])
	assert.Equal(t, []string{"lost streak"}, sections[1]["items"])
	assert.Equal(t, []string{"short workout", "stretch at home"}, sections[2]["items"])
}
