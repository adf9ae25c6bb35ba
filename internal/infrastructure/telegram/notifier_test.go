package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"NewsAlerts/internal/domain"
)

func TestNotifierSend(t *testing.T) {
	t.Parallel()

	var gotPath, gotChatID, gotText, gotMode string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotChatID = r.PostFormValue("chat_id")
		gotText = r.PostFormValue("text")
		gotMode = r.PostFormValue("parse_mode")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewNotifier("bot-token", server.URL)
	err := n.Send(context.Background(), "4242", domain.NewsItem{
		Title: "X corp profit warning",
		URL:   "https://x/1",
		Score: -7,
	})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if gotPath != "/botbot-token/sendMessage" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotChatID != "4242" {
		t.Fatalf("unexpected chat id: %s", gotChatID)
	}
	if gotMode != "Markdown" {
		t.Fatalf("unexpected parse mode: %s", gotMode)
	}
	if !strings.Contains(gotText, "📉") || !strings.Contains(gotText, "X corp profit warning") {
		t.Fatalf("unexpected message: %q", gotText)
	}
	if !strings.Contains(gotText, "Score: -7") {
		t.Fatalf("message missing score: %q", gotText)
	}
}

func TestNotifierSendErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	n := NewNotifier("bot-token", server.URL)
	if err := n.Send(context.Background(), "4242", domain.NewsItem{Title: "t"}); err == nil {
		t.Fatalf("expected error on 403 response")
	}
}

func TestNotifierMisconfigured(t *testing.T) {
	t.Parallel()

	n := NewNotifier("", "")
	if err := n.Send(context.Background(), "4242", domain.NewsItem{Title: "t"}); err == nil {
		t.Fatalf("expected error without bot token")
	}
}

func TestFormatAlertPositive(t *testing.T) {
	t.Parallel()

	msg := formatAlert(domain.NewsItem{Title: "Record quarter", URL: "https://x/2", Score: 8})
	if !strings.Contains(msg, "📈") {
		t.Fatalf("positive score should use the up emoji: %q", msg)
	}
	if !strings.Contains(msg, "[Read More](https://x/2)") {
		t.Fatalf("message missing link: %q", msg)
	}
}
