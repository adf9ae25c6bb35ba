package ports

import (
	"context"
	"time"

	"NewsAlerts/internal/domain"
)

// NewsSource pulls candidate items from one upstream provider.
type NewsSource interface {
	Name() string
	Fetch(ctx context.Context, limit int) ([]domain.NewsItem, error)
}

// SentimentScorer maps one item to a directional score in [-10, 10].
type SentimentScorer interface {
	Score(ctx context.Context, item domain.NewsItem) (int, error)
}

// SubscriptionStore holds subscriber records and their alert thresholds.
type SubscriptionStore interface {
	ListActive(ctx context.Context) ([]domain.Subscriber, error)
	Upsert(ctx context.Context, chatID string, threshold int) error
	Deactivate(ctx context.Context, chatID string) error
}

// SentLedger is the time-bounded record of items already alerted.
// Insert is atomic across concurrent callers: exactly one wins, the loser
// gets (false, nil) and must not treat that as an error.
type SentLedger interface {
	Exists(ctx context.Context, key string) (bool, error)
	Insert(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
}

// AlertChannel delivers one formatted alert to one subscriber destination.
type AlertChannel interface {
	Send(ctx context.Context, chatID string, item domain.NewsItem) error
}

// Driver controls when pipeline passes execute.
type Driver interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
