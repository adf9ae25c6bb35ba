package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const startReply = `🚀 Welcome to the Stock News Alert Bot!

Your Chat ID: %s

Use this Chat ID on the subscription page to receive news alerts.

Commands:
/start - Get your Chat ID
/help - Show help`

const helpReply = `Commands:
/start - Get your Chat ID
/help - Show help

Subscribe with your Chat ID on the subscription page to receive alerts for high-impact market news.`

// CommandHandler produces the reply text for one inbound command.
type CommandHandler func(ctx context.Context, chatID string) string

// Bot runs the inbound long-poll loop and dispatches slash commands.
// It is constructed and started explicitly by the composition root; there
// is no shared lazily-initialized client handle.
type Bot struct {
	botToken string
	apiBase  string
	client   *http.Client
	handlers map[string]CommandHandler
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	offset int64
}

// NewBot registers the default command handlers.
func NewBot(botToken, apiBase string, logger *slog.Logger) *Bot {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bot{
		botToken: botToken,
		apiBase:  strings.TrimSuffix(apiBase, "/"),
		client:   &http.Client{Timeout: 40 * time.Second},
		handlers: map[string]CommandHandler{},
		logger:   logger,
	}

	b.Handle("/start", func(_ context.Context, chatID string) string {
		return fmt.Sprintf(startReply, chatID)
	})
	b.Handle("/help", func(context.Context, string) string {
		return helpReply
	})

	return b
}

// Handle adds or replaces the handler for a command string.
func (b *Bot) Handle(command string, handler CommandHandler) {
	b.handlers[command] = handler
}

// Start launches the polling loop. It fails fast when no token is set so
// a misconfigured deployment is visible at startup, not on first use.
func (b *Bot) Start(ctx context.Context) error {
	if b.botToken == "" {
		return fmt.Errorf("telegram bot token is empty")
	}
	if b.done != nil {
		return nil
	}

	pollCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})

	go b.pollLoop(pollCtx)
	return nil
}

// Stop halts polling and waits for the loop to exit, bounded by ctx.
func (b *Bot) Stop(ctx context.Context) error {
	if b.done == nil {
		return nil
	}

	b.cancel()
	select {
	case <-b.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.done = nil
	return nil
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

func (b *Bot) pollLoop(ctx context.Context) {
	defer close(b.done)

	for {
		updates, err := b.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Warn("poll updates failed", "error", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= b.offset {
				b.offset = upd.UpdateID + 1
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) getUpdates(ctx context.Context) ([]update, error) {
	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?timeout=30&offset=%d", b.apiBase, b.botToken, b.offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram error: %s", resp.Status)
	}

	var payload struct {
		OK     bool     `json:"ok"`
		Result []update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	if !payload.OK {
		return nil, fmt.Errorf("telegram replied not ok")
	}

	return payload.Result, nil
}

func (b *Bot) handleUpdate(ctx context.Context, upd update) {
	if upd.Message == nil {
		return
	}

	command := strings.Fields(upd.Message.Text)
	if len(command) == 0 {
		return
	}

	handler, ok := b.handlers[command[0]]
	if !ok {
		return
	}

	chatID := strconv.FormatInt(upd.Message.Chat.ID, 10)
	reply := handler(ctx, chatID)
	if reply == "" {
		return
	}

	if err := b.sendReply(ctx, chatID, reply); err != nil {
		b.logger.Warn("command reply failed", "command", command[0], "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendReply(ctx context.Context, chatID, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", b.apiBase, b.botToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}
