package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// LineBroadcastEndpoint is the LINE Messaging API broadcast URL
const LineBroadcastEndpoint = "https://api.line.me/v2/bot/message/broadcast"

// LINE rejects text messages above this many characters
const lineTextLimit = 5000

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type lineBroadcast struct {
	Messages []lineMessage `json:"messages"`
}

// LineBroadcaster sends text to every follower of the LINE bot. Delivery
// problems are logged, never returned.
type LineBroadcaster struct {
	token    string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewLineBroadcaster(token string, client *http.Client, logger *slog.Logger) *LineBroadcaster {
	if client == nil {
		client = http.DefaultClient
	}
	return &LineBroadcaster{
		token:    token,
		endpoint: LineBroadcastEndpoint,
		client:   client,
		logger:   logger.With("component", "line"),
	}
}

// WithEndpoint points the broadcaster at another URL
func (b *LineBroadcaster) WithEndpoint(endpoint string) *LineBroadcaster {
	b.endpoint = endpoint
	return b
}

// FormatBroadcast renders the announcement for one item
func FormatBroadcast(title, url, summary string) string {
	return fmt.Sprintf("【新內容廣播】\n\n標題：%s\n網址：%s\n\n摘要：\n%s", title, url, summary)
}

// Broadcast posts message to all followers
func (b *LineBroadcaster) Broadcast(ctx context.Context, message string) {
	if IsPlaceholder(b.token) {
		b.logger.Warn("LINE channel access token not configured, skipping broadcast")
		return
	}

	if runes := []rune(message); len(runes) > lineTextLimit {
		message = string(runes[:lineTextLimit-1]) + "…"
	}

	body, err := json.Marshal(lineBroadcast{Messages: []lineMessage{{Type: "text", Text: message}}})
	if err != nil {
		b.logger.Error("encoding broadcast failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		b.logger.Error("creating broadcast request failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.token)

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Error("broadcast request failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		b.logger.Info("broadcast sent")
		return
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	b.logger.Error("broadcast rejected", "status", resp.StatusCode, "body", strings.TrimSpace(string(respBody)))
}
