package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"NewsAlerts/internal/domain"
	"NewsAlerts/internal/ports"
)

const subscriptionsTable = "telegram_subscriptions"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// SubscriptionRepository persists Telegram subscriptions in Postgres.
type SubscriptionRepository struct {
	db *sql.DB
}

var _ ports.SubscriptionStore = (*SubscriptionRepository)(nil)

// NewSubscriptionRepository wires a sql.DB implementation.
func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// EnsureSchema creates the subscriptions table when missing.
func (r *SubscriptionRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}

	query := `CREATE TABLE IF NOT EXISTS telegram_subscriptions (
                  chat_id    TEXT PRIMARY KEY,
                  threshold  INTEGER NOT NULL DEFAULT 8,
                  is_active  BOOLEAN NOT NULL DEFAULT TRUE,
                  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
                  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
              )`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure subscriptions schema: %w", err)
	}

	return nil
}

// ListActive returns active subscribers in registration order.
func (r *SubscriptionRepository) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := psql.
		Select("chat_id", "threshold").
		From(subscriptionsTable).
		Where(sq.Eq{"is_active": true}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active subscriptions: %w", err)
	}
	defer rows.Close()

	var subscribers []domain.Subscriber
	for rows.Next() {
		sub := domain.Subscriber{IsActive: true}
		if err := rows.Scan(&sub.ChatID, &sub.Threshold); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subscribers = append(subscribers, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return subscribers, nil
}

// Upsert registers or updates a subscription and reactivates it.
func (r *SubscriptionRepository) Upsert(ctx context.Context, chatID string, threshold int) error {
	if r.db == nil {
		return nil
	}

	query, args, err := psql.
		Insert(subscriptionsTable).
		Columns("chat_id", "threshold", "is_active").
		Values(chatID, threshold, true).
		Suffix(`ON CONFLICT (chat_id) DO UPDATE
                SET threshold = EXCLUDED.threshold,
                    is_active = TRUE,
                    updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert subscription %s: %w", chatID, err)
	}

	return nil
}

// Deactivate turns alerts off for a chat without deleting its record.
func (r *SubscriptionRepository) Deactivate(ctx context.Context, chatID string) error {
	if r.db == nil {
		return nil
	}

	query, args, err := psql.
		Update(subscriptionsTable).
		Set("is_active", false).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"chat_id": chatID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deactivate subscription %s: %w", chatID, err)
	}

	return nil
}
