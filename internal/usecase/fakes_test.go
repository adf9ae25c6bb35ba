package usecase

import (
	"context"
	"fmt"
	"sync"

	"NewsAlerts/internal/domain"
)

type fakeSource struct {
	name  string
	items []domain.NewsItem
	err   error

	mu      sync.Mutex
	fetches int

	entered chan struct{}
	release chan struct{}
}

func (f *fakeSource) Name() string {
	return f.name
}

func (f *fakeSource) Fetch(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()

	if f.entered != nil {
		close(f.entered)
		f.entered = nil
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type fakeScorer struct {
	fn func(item domain.NewsItem) (int, error)
}

func (f *fakeScorer) Score(_ context.Context, item domain.NewsItem) (int, error) {
	return f.fn(item)
}

// memLedger emulates the redis ledger and counts operations so tests can
// assert that below-floor items never touch it.
type memLedger struct {
	mu      sync.Mutex
	records map[string]struct{}
	exists  int
	inserts int
}

func newMemLedger() *memLedger {
	return &memLedger{records: map[string]struct{}{}}
}

func (l *memLedger) Exists(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exists++
	_, ok := l.records[key]
	return ok, nil
}

func (l *memLedger) Insert(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inserts++
	if _, ok := l.records[key]; ok {
		return false, nil
	}
	l.records[key] = struct{}{}
	return true, nil
}

func (l *memLedger) Ping(context.Context) error {
	return nil
}

func (l *memLedger) touches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exists + l.inserts
}

type fakeStore struct {
	subscribers []domain.Subscriber
	err         error
	panics      bool
}

func (s *fakeStore) ListActive(context.Context) ([]domain.Subscriber, error) {
	if s.panics {
		panic("store exploded")
	}
	return s.subscribers, s.err
}

func (s *fakeStore) Upsert(context.Context, string, int) error {
	return nil
}

func (s *fakeStore) Deactivate(context.Context, string) error {
	return nil
}

type delivery struct {
	chatID string
	title  string
}

type fakeChannel struct {
	mu      sync.Mutex
	sent    []delivery
	failFor map[string]struct{}
}

func newFakeChannel(failFor ...string) *fakeChannel {
	fails := map[string]struct{}{}
	for _, chatID := range failFor {
		fails[chatID] = struct{}{}
	}
	return &fakeChannel{failFor: fails}
}

func (c *fakeChannel) Send(_ context.Context, chatID string, item domain.NewsItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.failFor[chatID]; ok {
		return fmt.Errorf("channel down for %s", chatID)
	}
	c.sent = append(c.sent, delivery{chatID: chatID, title: item.Title})
	return nil
}

func (c *fakeChannel) deliveries() []delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]delivery, len(c.sent))
	copy(out, c.sent)
	return out
}
