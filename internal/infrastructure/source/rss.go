package source

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsAlerts/internal/domain"
	"NewsAlerts/internal/ports"
)

const summaryMaxLength = 200

var tagExpr = regexp.MustCompile(`<[^>]*>`)

// FeedSource reads a market-news RSS/Atom feed.
type FeedSource struct {
	name     string
	feedURL  string
	category string
	parser   *gofeed.Parser
}

var _ ports.NewsSource = (*FeedSource)(nil)

// NewFeedSource wires a gofeed parser for the given feed URL.
func NewFeedSource(name, feedURL, category string, client *http.Client) (*FeedSource, error) {
	if feedURL == "" {
		return nil, fmt.Errorf("feed url is empty")
	}

	parser := gofeed.NewParser()
	parser.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	if client != nil {
		parser.Client = client
	}

	return &FeedSource{
		name:     name,
		feedURL:  feedURL,
		category: category,
		parser:   parser,
	}, nil
}

// Name identifies the source in logs and the registry.
func (s *FeedSource) Name() string {
	return s.name
}

// Fetch parses the feed and returns up to limit items in feed order.
func (s *FeedSource) Fetch(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	feed, err := s.parser.ParseURLWithContext(s.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	count := len(feed.Items)
	if limit > 0 && count > limit {
		count = limit
	}

	items := make([]domain.NewsItem, 0, count)
	for _, entry := range feed.Items[:count] {
		publishedAt := time.Now().UTC()
		if entry.PublishedParsed != nil {
			publishedAt = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			publishedAt = entry.UpdatedParsed.UTC()
		}

		items = append(items, domain.NewsItem{
			Title:       strings.TrimSpace(entry.Title),
			Summary:     cleanSummary(entry.Description),
			URL:         entry.Link,
			Category:    s.category,
			PublishedAt: publishedAt,
		})
	}

	return items, nil
}

// cleanSummary strips markup and truncates feed descriptions.
func cleanSummary(description string) string {
	text := strings.TrimSpace(tagExpr.ReplaceAllString(description, ""))
	runes := []rune(text)
	if len(runes) <= summaryMaxLength {
		return text
	}
	return string(runes[:summaryMaxLength]) + "..."
}
