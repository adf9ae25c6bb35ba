package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"NewsAlerts/internal/domain"
	"NewsAlerts/internal/ports"
)

// DispatcherDeps wires the fan-out stage.
type DispatcherDeps struct {
	Subscriptions ports.SubscriptionStore
	Ledger        ports.SentLedger
	Channel       ports.AlertChannel
	Floor         int
	Logger        *slog.Logger
}

// Dispatcher fans scored items out to subscribers: filter by the global
// high-impact floor, consult the sent-item ledger, deliver to every
// subscriber whose threshold is met, then record the item as sent.
type Dispatcher struct {
	subscriptions ports.SubscriptionStore
	ledger        ports.SentLedger
	channel       ports.AlertChannel
	floor         int
	logger        *slog.Logger
}

// NewDispatcher constructs the fan-out stage.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		subscriptions: deps.Subscriptions,
		ledger:        deps.Ledger,
		channel:       deps.Channel,
		floor:         deps.Floor,
		logger:        logger,
	}
}

// Dispatch processes the scored batch in order. Per-subscriber delivery
// failures and ledger insert conflicts never abort the batch; only a
// failure to list subscribers does.
func (d *Dispatcher) Dispatch(ctx context.Context, batch []domain.NewsItem) error {
	subscribers, err := d.subscriptions.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		d.logger.Info("no active subscriptions, skipping fan-out")
		return nil
	}

	for _, item := range batch {
		// below the floor the item is discarded without touching the ledger
		if domain.Abs(item.Score) < d.floor {
			continue
		}
		d.dispatchItem(ctx, item, subscribers)
	}

	return nil
}

func (d *Dispatcher) dispatchItem(ctx context.Context, item domain.NewsItem, subscribers []domain.Subscriber) {
	key := item.IdentityKey()

	sent, err := d.ledger.Exists(ctx, key)
	if err != nil {
		// skipping on a read failure errs on the side of not double-sending
		d.logger.Error("ledger read failed, skipping item", "title", item.Title, "error", err)
		return
	}
	if sent {
		d.logger.Debug("already alerted within window", "title", item.Title)
		return
	}

	attempted := false
	for _, sub := range subscribers {
		if !sub.Matches(item.Score) {
			continue
		}
		attempted = true
		if err := d.channel.Send(ctx, sub.ChatID, item); err != nil {
			d.logger.Warn("delivery failed",
				"chat_id", sub.ChatID, "title", item.Title, "error", err)
			continue
		}
		d.logger.Info("alert delivered",
			"chat_id", sub.ChatID, "title", item.Title, "score", item.Score)
	}

	// no qualifying subscriber: leave the item eligible for future runs
	if !attempted {
		return
	}

	won, err := d.ledger.Insert(ctx, key)
	if err != nil {
		d.logger.Error("ledger insert failed", "title", item.Title, "error", err)
		return
	}
	if !won {
		// lost the race to a concurrent run; the other run owns the record
		d.logger.Debug("sent record already present", "title", item.Title)
	}
}
