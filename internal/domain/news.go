package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// NewsItem is a single story fetched from a provider. Items are immutable
// after ingestion except for Score, which scoring attaches exactly once.
type NewsItem struct {
	Title       string
	Summary     string
	URL         string
	Category    string
	PublishedAt time.Time
	Score       int
}

// IdentityKey recognizes the same story across fetch batches and runs.
// Two items agreeing on both title and URL are the same story.
func (n NewsItem) IdentityKey() string {
	h := sha1.New()
	h.Write([]byte(n.Title))
	h.Write([]byte{0})
	h.Write([]byte(n.URL))
	return hex.EncodeToString(h.Sum(nil))
}

// Subscriber is one Telegram chat receiving alerts. Created and updated by
// the subscription API; read-only to the pipeline.
type Subscriber struct {
	ChatID    string
	IsActive  bool
	Threshold int
}

// Matches reports whether a sentiment score is strong enough for this
// subscriber. Comparison is by absolute value, boundary inclusive.
func (s Subscriber) Matches(score int) bool {
	return Abs(score) >= s.Threshold
}

// SentRecord marks a story as already alerted. At most one live record
// exists per identity key; the record expires 24h after SentAt.
type SentRecord struct {
	Key       string
	SentAt    time.Time
	ExpiresAt time.Time
}

// Abs for sentiment scores.
func Abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
