package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsDefaults(t *testing.T) {
	router := newTestRouter(t)

	code, body := doJSON(t, router, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, code)

	settings := body["settings"].(map[string]interface{})
	assert.Equal(t, "Gentle", settings["tone"])
	assert.Equal(t, "dark", settings["theme"])
	assert.Equal(t, float64(22), settings["sleepStartHour"])
	assert.Equal(t, true, settings["autoRefreshEnabled"])
}

func TestSettingsPatchIsPartial(t *testing.T) {
	router := newTestRouter(t)

	code, body := doJSON(t, router, http.MethodPatch, "/api/v1/settings", map[string]interface{}{
		"tone":           "Strict",
		"sleepStartHour": 23,
		"bogusField":     "ignored",
	})
	require.Equal(t, http.StatusOK, code)

	settings := body["settings"].(map[string]interface{})
	assert.Equal(t, "Strict", settings["tone"])
	assert.Equal(t, float64(23), settings["sleepStartHour"])
	// 未提及的字段保持默认
	assert.Equal(t, "dark", settings["theme"])
}
