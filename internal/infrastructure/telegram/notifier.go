package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsAlerts/internal/domain"
	"NewsAlerts/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends alert messages to subscriber chats via the bot API.
type Notifier struct {
	botToken string
	apiBase  string
	client   *http.Client
}

var _ ports.AlertChannel = (*Notifier)(nil)

// NewNotifier registers the bot token; apiBase is overridable for tests.
func NewNotifier(botToken, apiBase string) *Notifier {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Notifier{
		botToken: botToken,
		apiBase:  strings.TrimSuffix(apiBase, "/"),
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Send posts one Markdown alert to one chat.
func (n *Notifier) Send(ctx context.Context, chatID string, item domain.NewsItem) error {
	if n.botToken == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", formatAlert(item))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func formatAlert(item domain.NewsItem) string {
	emoji := "📈"
	if item.Score < 0 {
		emoji = "📉"
	}

	return fmt.Sprintf("%s *%s*\n\n📊 Score: %d\n\n[Read More](%s)",
		emoji, item.Title, item.Score, item.URL)
}
