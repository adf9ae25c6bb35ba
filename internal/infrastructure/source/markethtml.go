package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsAlerts/internal/domain"
	"NewsAlerts/internal/ports"
)

const minTitleLength = 10

// Story-listing markup varies between page revisions, so each field is
// located through a fallback selector chain.
var (
	storySelectors   = []string{".eachStory", ".story-box", ".contentSec"}
	titleSelectors   = []string{"h3 a", "h4 a", "h2 a", ".story-title a", "a[title]"}
	summarySelectors = []string{"p", ".summary", ".story-summary", ".content"}
)

// MarketHTMLSource scrapes a market-news listing page.
type MarketHTMLSource struct {
	name     string
	pageURL  string
	baseURL  string
	category string
	client   *http.Client
}

var _ ports.NewsSource = (*MarketHTMLSource)(nil)

// NewMarketHTMLSource wires the page to scrape; relative story links are
// resolved against the page's own scheme and host.
func NewMarketHTMLSource(name, pageURL, category string, client *http.Client) (*MarketHTMLSource, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid page url %q", pageURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &MarketHTMLSource{
		name:     name,
		pageURL:  pageURL,
		baseURL:  parsed.Scheme + "://" + parsed.Host,
		category: category,
		client:   client,
	}, nil
}

// Name identifies the source in logs and the registry.
func (s *MarketHTMLSource) Name() string {
	return s.name
}

// Fetch downloads the listing page and extracts up to limit stories.
func (s *MarketHTMLSource) Fetch(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	doc, err := s.fetchDocument(ctx)
	if err != nil {
		return nil, err
	}

	return s.extractItems(doc, limit), nil
}

func (s *MarketHTMLSource) fetchDocument(ctx context.Context) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", s.name, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	return doc, nil
}

func (s *MarketHTMLSource) extractItems(doc *goquery.Document, limit int) []domain.NewsItem {
	var items []domain.NewsItem
	seen := map[string]struct{}{}
	now := time.Now().UTC()

	for _, selector := range storySelectors {
		doc.Find(selector).EachWithBreak(func(_ int, block *goquery.Selection) bool {
			title, href := extractTitle(block)
			if len(title) <= minTitleLength {
				return true
			}
			if _, ok := seen[title]; ok {
				return true
			}
			seen[title] = struct{}{}

			summary := extractSummary(block)
			if summary == "" {
				summary = "Click to read full article"
			}

			items = append(items, domain.NewsItem{
				Title:    title,
				Summary:  summary,
				URL:      s.resolveURL(href),
				Category: s.category,
				// listing pages carry no timestamps; stagger by position
				// so page order survives the recency sort downstream
				PublishedAt: now.Add(-time.Duration(len(items)) * time.Minute),
			})

			return limit <= 0 || len(items) < limit
		})

		if limit > 0 && len(items) >= limit {
			break
		}
	}

	return items
}

func extractTitle(block *goquery.Selection) (title, href string) {
	for _, selector := range titleSelectors {
		link := block.Find(selector).First()
		if link.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(link.Text())
		if text == "" {
			continue
		}
		href, _ = link.Attr("href")
		return text, href
	}
	return "", ""
}

func extractSummary(block *goquery.Selection) string {
	for _, selector := range summarySelectors {
		el := block.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(el.Text()); text != "" {
			return text
		}
	}
	return ""
}

func (s *MarketHTMLSource) resolveURL(href string) string {
	if href == "" {
		return s.pageURL
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	return s.baseURL + href
}
