package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerWinddownEndToEnd(t *testing.T) {
	router := newTestRouter(t)

	// 开场
	code, body := doJSON(t, router, http.MethodPost, "/api/v1/rituals/trigger", map[string]interface{}{
		"ritualId": "winddown",
	})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["ok"])
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 1)
	intro := messages[0].(map[string]interface{})
	meta := intro["metadata"].(map[string]interface{})
	assert.Equal(t, "winddownIntro", meta["demo"])

	// 开始复盘
	code, body = doJSON(t, router, http.MethodPost, "/api/v1/rituals/trigger", map[string]interface{}{
		"ritualId": "winddown",
		"action":   "Start winddown",
	})
	require.Equal(t, http.StatusOK, code)
	messages = body["messages"].([]interface{})
	require.Len(t, messages, 2)
	q1 := messages[1].(map[string]interface{})
	q1meta := q1["metadata"].(map[string]interface{})
	sessionID := q1meta["sessionId"].(string)
	require.NotEmpty(t, sessionID)

	// 答完整条链
	answers := []struct{ id, question, text string }{
		{"wa_1", "what_went_well", "focus"},
		{"wa_2", "unstable_or_impulsive", "snacking"},
		{"wa_3", "one_thing_learned", "breaks help"},
	}
	for i, a := range answers {
		code, body = doJSON(t, router, http.MethodPost, "/api/v1/winddown/answer", map[string]interface{}{
			"id":        a.id,
			"sessionId": sessionID,
			"question":  a.question,
			"text":      a.text,
		})
		require.Equal(t, http.StatusOK, code)
		if i < 2 {
			assert.Equal(t, false, body["goodnight"])
		} else {
			assert.Equal(t, true, body["goodnight"])
			require.NotNil(t, body["message"])
		}
	}

	// 历史里有 1 个会话 3 条答案
	code, body = doJSON(t, router, http.MethodGet, "/api/v1/winddown", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["sessions"].([]interface{}), 1)
	assert.Len(t, body["answers"].([]interface{}), 3)
}

func TestTriggerUnknownRitualReturnsMock(t *testing.T) {
	router := newTestRouter(t)

	code, body := doJSON(t, router, http.MethodPost, "/api/v1/rituals/trigger", map[string]interface{}{
		"ritualId": "mystery",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Started ritual 'mystery' (mock).", body["text"])
}

func TestTriggerRequiresRitualID(t *testing.T) {
	router := newTestRouter(t)

	code, body := doJSON(t, router, http.MethodPost, "/api/v1/rituals/trigger", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["ok"])
}

func TestRitualCRUD(t *testing.T) {
	router := newTestRouter(t)

	code, _ := doJSON(t, router, http.MethodPost, "/api/v1/rituals", map[string]interface{}{
		"id":   "evening_review",
		"name": "Evening review",
		"trigger": map[string]interface{}{
			"type": "schedule",
			"time": "21:00",
		},
		"active": true,
	})
	require.Equal(t, http.StatusOK, code)

	code, body := doJSON(t, router, http.MethodGet, "/api/v1/rituals", nil)
	require.Equal(t, http.StatusOK, code)
	rituals := body["rituals"].([]interface{})
	require.Len(t, rituals, 1)

	code, _ = doJSON(t, router, http.MethodDelete, "/api/v1/rituals/evening_review", nil)
	require.Equal(t, http.StatusOK, code)

	code, body = doJSON(t, router, http.MethodGet, "/api/v1/rituals", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["rituals"])
}

func TestAdvanceEndpointIdempotent(t *testing.T) {
	router := newTestRouter(t)

	// 起一条带 next 的卡片
	code, _ := doJSON(t, router, http.MethodPost, "/api/v1/messages", map[string]interface{}{
		"id":   "m_card",
		"role": "assistant",
		"echo": false,
		"metadata": map[string]interface{}{
			"demo":   "questionSave",
			"prompt": "first?",
			"next": map[string]interface{}{
				"type":   "questionSave",
				"prompt": "second?",
			},
		},
	})
	require.Equal(t, http.StatusOK, code)

	code, body := doJSON(t, router, http.MethodPost, "/api/v1/rituals/advance", map[string]interface{}{
		"messageId": "m_card",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["advanced"])
	require.Len(t, body["messages"].([]interface{}), 1)

	code, body = doJSON(t, router, http.MethodPost, "/api/v1/rituals/advance", map[string]interface{}{
		"messageId": "m_card",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["advanced"])
}

func TestImpulseAnswerEndpoint(t *testing.T) {
	router := newTestRouter(t)

	code, body := doJSON(t, router, http.MethodPost, "/api/v1/impulse/answer", map[string]interface{}{
		"text": "buying gadgets",
	})
	require.Equal(t, http.StatusOK, code)
	message := body["message"].(map[string]interface{})
	meta := message["metadata"].(map[string]interface{})
	assert.Equal(t, "listSection", meta["demo"])
	assert.Equal(t, "buying gadgets", meta["currentImpulse"])
}
