package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"NewsAlerts/internal/config"
	"NewsAlerts/internal/domain"
	"NewsAlerts/internal/ports"
)

const promptTemplate = `You are an expert stock analyst. Analyze the following news and assign a sentiment score between -10 and 10. Where -10 is extremely bad news and 10 is extremely good news.

Scoring rules:
1. If the news headline has the stock by name in the title, assign a score above 5 or below -5.
2. Only assign a score greater than 7 or less than -7 if the news is about a particular stock and is likely to move that particular stock price by more than 6%% up or down within the next trading day.
3. Avoid exaggerating sentiment and speculation, consider actual events that happened, not just positive or negative wording.
4. If the news is neutral or unrelated to a particular stock, assign a score between -2 and 2.

Output format (JSON only):
{"sentiment_score": <number between -10 and 10 following the scoring rules>}

News:
Title: %s
URL: %s
Description: %s

Respond ONLY in valid JSON exactly as shown above. Do not add extra text, explanation, or commentary.`

// SentimentClient scores news items through an OpenAI-compatible
// chat-completions API.
type SentimentClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.SentimentScorer = (*SentimentClient)(nil)

// NewSentimentClient builds a client from configuration. Request
// deadlines come from the caller's context, so the configured scorer
// timeout applies unchanged.
func NewSentimentClient(cfg config.OpenAIConfig) *SentimentClient {
	return &SentimentClient{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{},
	}
}

// Score asks the model for a sentiment score in [-10, 10]. Out-of-range
// replies are clamped. The caller substitutes 0 on any error.
func (c *SentimentClient) Score(ctx context.Context, item domain.NewsItem) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("sentiment client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return 0, fmt.Errorf("sentiment client misconfigured")
	}

	prompt := fmt.Sprintf(promptTemplate, item.Title, item.URL, item.Summary)

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  150,
		"temperature": 0.1,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal scoring payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("score request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("scorer error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return 0, fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return 0, fmt.Errorf("completion has no choices")
	}

	return parseScore(completion.Choices[0].Message.Content)
}

func parseScore(content string) (int, error) {
	var result struct {
		SentimentScore float64 `json:"sentiment_score"`
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &result); err != nil {
		return 0, fmt.Errorf("parse score reply: %w", err)
	}

	return clampScore(int(result.SentimentScore)), nil
}

// stripFences tolerates models wrapping the JSON reply in a code block.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

func clampScore(score int) int {
	if score > 10 {
		return 10
	}
	if score < -10 {
		return -10
	}
	return score
}
