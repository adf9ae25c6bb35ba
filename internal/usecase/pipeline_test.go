package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"NewsAlerts/internal/domain"
	"NewsAlerts/internal/ports"
)

func item(title, url string, publishedAt time.Time) domain.NewsItem {
	return domain.NewsItem{Title: title, URL: url, PublishedAt: publishedAt}
}

func neutralScorer() *fakeScorer {
	return &fakeScorer{fn: func(domain.NewsItem) (int, error) { return 0, nil }}
}

func TestFetchScoredSortsByRecencyAndTruncates(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{name: "one", items: []domain.NewsItem{
		item("Oldest", "https://n/1", base.Add(-2*time.Hour)),
		item("Newest", "https://n/2", base),
		item("Middle", "https://n/3", base.Add(-time.Hour)),
	}}

	p := NewPipeline(PipelineDeps{Sources: []ports.NewsSource{src}, Scorer: neutralScorer()})
	batch := p.FetchScored(context.Background(), 2)

	if len(batch) != 2 {
		t.Fatalf("expected 2 items after truncation, got %d", len(batch))
	}
	if batch[0].Title != "Newest" || batch[1].Title != "Middle" {
		t.Fatalf("unexpected ordering: %q, %q", batch[0].Title, batch[1].Title)
	}
}

func TestFetchScoredDedupKeepsFirstEncountered(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	first := &fakeSource{name: "first", items: []domain.NewsItem{
		item("X corp profit warning", "https://first/1", base.Add(-time.Hour)),
	}}
	second := &fakeSource{name: "second", items: []domain.NewsItem{
		// same title from a later source, even with a fresher timestamp
		item("X corp profit warning", "https://second/1", base),
		item("Another story", "https://second/2", base),
	}}

	p := NewPipeline(PipelineDeps{Sources: []ports.NewsSource{first, second}, Scorer: neutralScorer()})
	batch := p.FetchScored(context.Background(), 10)

	if len(batch) != 2 {
		t.Fatalf("expected 2 items after dedup, got %d", len(batch))
	}
	for _, got := range batch {
		if got.Title == "X corp profit warning" && got.URL != "https://first/1" {
			t.Fatalf("dedup kept the wrong occurrence: %s", got.URL)
		}
	}
}

func TestFetchScoredSurvivesSourceFailure(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	broken := &fakeSource{name: "broken", err: fmt.Errorf("connection refused")}
	healthy := &fakeSource{name: "healthy", items: []domain.NewsItem{
		item("Survivor one", "https://h/1", base),
		item("Survivor two", "https://h/2", base.Add(-time.Minute)),
	}}

	p := NewPipeline(PipelineDeps{Sources: []ports.NewsSource{broken, healthy}, Scorer: neutralScorer()})
	batch := p.FetchScored(context.Background(), 10)

	if len(batch) != 2 {
		t.Fatalf("expected the healthy source's items, got %d", len(batch))
	}
}

func TestFetchScoredFailOpenScoring(t *testing.T) {
	t.Parallel()

	src := &fakeSource{name: "one", items: []domain.NewsItem{
		item("Unscorable", "https://n/1", time.Now()),
	}}
	scorer := &fakeScorer{fn: func(domain.NewsItem) (int, error) {
		return 0, fmt.Errorf("model timeout")
	}}

	p := NewPipeline(PipelineDeps{Sources: []ports.NewsSource{src}, Scorer: scorer})
	batch := p.FetchScored(context.Background(), 10)

	if len(batch) != 1 {
		t.Fatalf("expected 1 item, got %d", len(batch))
	}
	if batch[0].Score != 0 {
		t.Fatalf("expected neutral score on scorer failure, got %d", batch[0].Score)
	}
}

func TestFetchScoredPreservesOrderUnderSlowScoring(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{name: "one", items: []domain.NewsItem{
		item("A", "https://n/a", base),
		item("B", "https://n/b", base.Add(-time.Minute)),
		item("C", "https://n/c", base.Add(-2*time.Minute)),
	}}

	// the freshest item scores slowest, so completion order inverts batch order
	scores := map[string]int{"A": 9, "B": 5, "C": -7}
	delays := map[string]time.Duration{"A": 30 * time.Millisecond, "B": 15 * time.Millisecond, "C": 0}
	scorer := &fakeScorer{fn: func(it domain.NewsItem) (int, error) {
		time.Sleep(delays[it.Title])
		return scores[it.Title], nil
	}}

	p := NewPipeline(PipelineDeps{Sources: []ports.NewsSource{src}, Scorer: scorer})
	batch := p.FetchScored(context.Background(), 10)

	want := []string{"A", "B", "C"}
	if len(batch) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(batch))
	}
	for i, title := range want {
		if batch[i].Title != title {
			t.Fatalf("position %d: expected %q, got %q", i, title, batch[i].Title)
		}
		if batch[i].Score != scores[title] {
			t.Fatalf("item %q: expected score %d, got %d", title, scores[title], batch[i].Score)
		}
	}
}

func TestFetchScoredRecoversPanickingAdapters(t *testing.T) {
	t.Parallel()

	panicky := &fakeSource{name: "panicky"}
	healthy := &fakeSource{name: "healthy", items: []domain.NewsItem{
		item("Still here", "https://h/1", time.Now()),
	}}

	p := NewPipeline(PipelineDeps{
		Sources: []ports.NewsSource{panicSource{panicky}, healthy},
		Scorer: &fakeScorer{fn: func(domain.NewsItem) (int, error) {
			panic("scorer exploded")
		}},
	})

	batch := p.FetchScored(context.Background(), 10)

	if len(batch) != 1 {
		t.Fatalf("expected 1 item from the healthy source, got %d", len(batch))
	}
	if batch[0].Score != 0 {
		t.Fatalf("expected neutral score after scorer panic, got %d", batch[0].Score)
	}
}

type panicSource struct {
	*fakeSource
}

func (panicSource) Fetch(context.Context, int) ([]domain.NewsItem, error) {
	panic("source exploded")
}
