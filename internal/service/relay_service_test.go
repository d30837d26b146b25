package service

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psa-server/internal/config"
)

func TestValidateFallbackURL(t *testing.T) {
	relay := NewRelayService(&config.Config{})

	assert.ErrorIs(t, relay.ValidateFallbackURL(""), ErrNoWebhookURL)
	assert.ErrorIs(t, relay.ValidateFallbackURL("http://example.com/hook"), ErrNotHTTPS)
	assert.NoError(t, relay.ValidateFallbackURL("https://example.com/hook"))
	assert.NoError(t, relay.ValidateFallbackURL("HTTPS://example.com/hook"))
}

func TestPostStripsEmbeddedCredentials(t *testing.T) {
	var gotAuth string
	var gotURL *url.URL
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotURL = r.URL
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hi"}`))
	}))
	defer server.Close()

	relay := NewRelayService(&config.Config{})

	// 把 user:pass 嵌进目标地址
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	u.User = url.UserPassword("alice", "secret")

	result := relay.Post(context.Background(), u.String(), map[string]interface{}{"q": 1})
	require.True(t, result.OK)

	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:secret"))
	assert.Equal(t, expected, gotAuth)
	// 凭据不出现在请求地址和回显的 target 里
	assert.Empty(t, gotURL.User)
	assert.NotContains(t, result.Target, "alice")
	assert.Equal(t, "hi", result.Data["text"])
}

func TestPostUsesConfiguredBasicPair(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Webhook.BasicUser = "bob"
	cfg.Webhook.BasicPass = "hunter2"
	cfg.Webhook.BearerToken = "should-be-ignored"

	relay := NewRelayService(cfg)
	result := relay.Post(context.Background(), server.URL, nil)
	require.True(t, result.OK)

	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("bob:hunter2"))
	assert.Equal(t, expected, gotAuth)
}

func TestPostUsesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Webhook.BearerToken = "tok123"

	relay := NewRelayService(cfg)
	result := relay.Post(context.Background(), server.URL, nil)
	require.True(t, result.OK)
	assert.Equal(t, "Bearer tok123", gotAuth)
}

func TestPostSendsExtraHeaders(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Webhook.ExtraHeaders = `{"X-Api-Key":"k-42"}`

	relay := NewRelayService(cfg)
	result := relay.Post(context.Background(), server.URL, nil)
	require.True(t, result.OK)
	assert.Equal(t, "k-42", gotHeader)
}

func TestPostNon2xxReportsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	relay := NewRelayService(&config.Config{})
	result := relay.Post(context.Background(), server.URL, nil)

	assert.False(t, result.OK)
	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Equal(t, "boom", result.Error)
}

func TestPostNon2xxWithoutErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	relay := NewRelayService(&config.Config{})
	result := relay.Post(context.Background(), server.URL, nil)

	assert.False(t, result.OK)
	assert.Equal(t, "webhook error", result.Error)
	assert.Equal(t, "not json at all", result.Data["text"])
}

func TestPostNetworkFailure(t *testing.T) {
	relay := NewRelayService(&config.Config{})

	// 端口未监听，连接拒绝
	result := relay.Post(context.Background(), "http://127.0.0.1:1/hook", nil)

	assert.False(t, result.OK)
	assert.Equal(t, 0, result.Status)
	assert.True(t, strings.HasPrefix(result.Error, "Fetch to webhook failed:"))
}

func TestPostWrapsNonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`plain text reply`))
	}))
	defer server.Close()

	relay := NewRelayService(&config.Config{})
	result := relay.Post(context.Background(), server.URL, nil)

	require.True(t, result.OK)
	assert.Equal(t, "plain text reply", result.Data["text"])
}
