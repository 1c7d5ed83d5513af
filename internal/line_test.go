package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineBroadcastSkipsPlaceholderToken(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	b := NewLineBroadcaster("請在這裡填入 LINE Channel Access Token", server.Client(), testLogger()).WithEndpoint(server.URL)
	b.Broadcast(context.Background(), "hello")
	assert.False(t, called)
}

func TestLineBroadcastRequest(t *testing.T) {
	var got lineBroadcast
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	b := NewLineBroadcaster("token-123", server.Client(), testLogger()).WithEndpoint(server.URL)
	b.Broadcast(context.Background(), FormatBroadcast("標題", "https://example.com/a", "摘要內容"))

	require.Len(t, got.Messages, 1)
	assert.Equal(t, "text", got.Messages[0].Type)
	assert.Equal(t, "【新內容廣播】\n\n標題：標題\n網址：https://example.com/a\n\n摘要：\n摘要內容", got.Messages[0].Text)
}

func TestLineBroadcastTruncatesLongMessages(t *testing.T) {
	var got lineBroadcast
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	b := NewLineBroadcaster("token", server.Client(), testLogger()).WithEndpoint(server.URL)
	b.Broadcast(context.Background(), strings.Repeat("字", lineTextLimit+10))

	require.Len(t, got.Messages, 1)
	assert.Equal(t, lineTextLimit, utf8.RuneCountInString(got.Messages[0].Text))
	assert.True(t, strings.HasSuffix(got.Messages[0].Text, "…"))
}

func TestLineBroadcastLogsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Authentication failed"}`)
	}))
	defer server.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	b := NewLineBroadcaster("bad-token", server.Client(), logger).WithEndpoint(server.URL)
	b.Broadcast(context.Background(), "hello")

	assert.Contains(t, logs.String(), "status=401")
	assert.Contains(t, logs.String(), "Authentication failed")
}
