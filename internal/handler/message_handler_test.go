package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageLifecycle(t *testing.T) {
	router := newTestRouter(t)

	// 追加一条用户消息，echo 默认开启
	code, body := doJSON(t, router, http.MethodPost, "/api/v1/messages", map[string]interface{}{
		"id":   "m_hello",
		"role": "user",
		"text": "hello",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "Echo: hello", body["text"])

	// 时间线里有用户消息和回显
	code, body = doJSON(t, router, http.MethodGet, "/api/v1/messages", nil)
	require.Equal(t, http.StatusOK, code)
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 2)

	// 重复追加同 id：无副本
	code, _ = doJSON(t, router, http.MethodPost, "/api/v1/messages", map[string]interface{}{
		"id":   "m_hello",
		"role": "user",
		"text": "hello again",
		"echo": false,
	})
	require.Equal(t, http.StatusOK, code)

	code, body = doJSON(t, router, http.MethodGet, "/api/v1/messages", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["messages"].([]interface{}), 2)

	// 补丁
	code, _ = doJSON(t, router, http.MethodPatch, "/api/v1/messages/m_hello", map[string]interface{}{
		"saved": true,
	})
	require.Equal(t, http.StatusOK, code)

	code, body = doJSON(t, router, http.MethodGet, "/api/v1/messages/m_hello", nil)
	require.Equal(t, http.StatusOK, code)
	message := body["message"].(map[string]interface{})
	assert.Equal(t, true, message["saved"])

	// 清空
	code, _ = doJSON(t, router, http.MethodDelete, "/api/v1/messages", nil)
	require.Equal(t, http.StatusOK, code)

	code, body = doJSON(t, router, http.MethodGet, "/api/v1/messages", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["messages"])
}

func TestUpdateMessageWithBodyID(t *testing.T) {
	router := newTestRouter(t)

	code, _ := doJSON(t, router, http.MethodPost, "/api/v1/messages", map[string]interface{}{
		"id":   "m_put",
		"role": "user",
		"text": "before",
		"echo": false,
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = doJSON(t, router, http.MethodPut, "/api/v1/messages", map[string]interface{}{
		"id":    "m_put",
		"text":  "after",
		"saved": true,
	})
	require.Equal(t, http.StatusOK, code)

	code, body := doJSON(t, router, http.MethodGet, "/api/v1/messages/m_put", nil)
	require.Equal(t, http.StatusOK, code)
	message := body["message"].(map[string]interface{})
	assert.Equal(t, "after", message["text"])
	assert.Equal(t, true, message["saved"])

	// 请求体里没有 id 时拒绝
	code, body = doJSON(t, router, http.MethodPut, "/api/v1/messages", map[string]interface{}{
		"text": "orphan",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["ok"])
}

func TestAppendRejectsMissingRole(t *testing.T) {
	router := newTestRouter(t)

	code, body := doJSON(t, router, http.MethodPost, "/api/v1/messages", map[string]interface{}{
		"text": "no role here",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["ok"])
	assert.NotEmpty(t, body["error"])
}

func TestGetMissingMessageReturns404(t *testing.T) {
	router := newTestRouter(t)

	code, body := doJSON(t, router, http.MethodGet, "/api/v1/messages/m_nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["ok"])
}

func TestSubmitSleepHours(t *testing.T) {
	router := newTestRouter(t)

	code, body := doJSON(t, router, http.MethodPost, "/api/v1/sleep/hours", map[string]interface{}{
		"text": "7.5",
	})
	require.Equal(t, http.StatusOK, code)
	message := body["message"].(map[string]interface{})
	assert.Contains(t, message["text"], "7.5")
}
