package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"NewsAlerts/internal/domain"
	"NewsAlerts/internal/ports"
)

// PipelineDeps wires source and scorer adapters into the ingestion stage.
type PipelineDeps struct {
	Sources       []ports.NewsSource
	Scorer        ports.SentimentScorer
	SourceTimeout time.Duration
	ScorerTimeout time.Duration
	Logger        *slog.Logger
}

// Pipeline implements the ingestion & scoring stage: fetch from every
// configured source concurrently, merge, dedup by title, order by recency,
// truncate, then score each surviving item.
type Pipeline struct {
	sources       []ports.NewsSource
	scorer        ports.SentimentScorer
	sourceTimeout time.Duration
	scorerTimeout time.Duration
	logger        *slog.Logger
}

// NewPipeline constructs the ingestion stage.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		sources:       deps.Sources,
		scorer:        deps.Scorer,
		sourceTimeout: deps.SourceTimeout,
		scorerTimeout: deps.ScorerTimeout,
		logger:        logger,
	}
}

// FetchScored produces the scored batch for one pass. Source and scorer
// failures degrade (empty contribution, neutral score) and are logged;
// FetchScored itself never fails the pass.
func (p *Pipeline) FetchScored(ctx context.Context, limit int) []domain.NewsItem {
	fetched := make([][]domain.NewsItem, len(p.sources))

	var wg sync.WaitGroup
	for i, src := range p.sources {
		wg.Add(1)
		go func(i int, src ports.NewsSource) {
			defer wg.Done()
			fetched[i] = p.fetchOne(ctx, src, limit)
		}(i, src)
	}
	wg.Wait()

	merged := mergeByTitle(fetched)

	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].PublishedAt.After(merged[b].PublishedAt)
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	p.scoreBatch(ctx, merged)
	return merged
}

func (p *Pipeline) fetchOne(ctx context.Context, src ports.NewsSource, limit int) (items []domain.NewsItem) {
	defer func() {
		// a panicking adapter degrades like any other source failure
		if rec := recover(); rec != nil {
			p.logger.Warn("source panicked", "source", src.Name(), "panic", rec)
			items = nil
		}
	}()

	fetchCtx := ctx
	if p.sourceTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.sourceTimeout)
		defer cancel()
	}

	items, err := src.Fetch(fetchCtx, limit)
	if err != nil {
		p.logger.Warn("source unavailable", "source", src.Name(), "error", err)
		return nil
	}

	p.logger.Debug("source produced items", "source", src.Name(), "count", len(items))
	return items
}

// mergeByTitle keeps the first occurrence of every title, walking sources
// in configured order and results within a source in returned order.
// Title comparison is exact and case-sensitive.
func mergeByTitle(fetched [][]domain.NewsItem) []domain.NewsItem {
	var merged []domain.NewsItem
	seen := map[string]struct{}{}

	for _, items := range fetched {
		for _, item := range items {
			if _, ok := seen[item.Title]; ok {
				continue
			}
			seen[item.Title] = struct{}{}
			merged = append(merged, item)
		}
	}

	return merged
}

// scoreBatch scores items concurrently. Results land at the item's own
// index, so output order matches batch order regardless of completion order.
func (p *Pipeline) scoreBatch(ctx context.Context, items []domain.NewsItem) {
	if p.scorer == nil || len(items) == 0 {
		return
	}

	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items[i].Score = p.scoreOne(ctx, items[i])
		}(i)
	}
	wg.Wait()
}

func (p *Pipeline) scoreOne(ctx context.Context, item domain.NewsItem) (score int) {
	defer func() {
		// fail-open: a panicking scorer yields the neutral score
		if rec := recover(); rec != nil {
			p.logger.Warn("scorer panicked", "title", item.Title, "panic", rec)
			score = 0
		}
	}()

	scoreCtx := ctx
	if p.scorerTimeout > 0 {
		var cancel context.CancelFunc
		scoreCtx, cancel = context.WithTimeout(ctx, p.scorerTimeout)
		defer cancel()
	}

	score, err := p.scorer.Score(scoreCtx, item)
	if err != nil {
		p.logger.Warn("scorer unavailable, using neutral score", "title", item.Title, "error", err)
		return 0
	}

	return score
}
