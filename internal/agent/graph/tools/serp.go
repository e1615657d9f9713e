package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/voyago/travel-agent/internal/agent/model"
)

// SearchClient abstracts the hosted search provider so tools can be exercised
// against a fake in tests.
type SearchClient interface {
	Search(ctx context.Context, engine string, params map[string]string) (map[string]any, error)
}

// serpClient talks to the SerpAPI JSON endpoint. Every call is a single GET;
// the api key, locale and currency are attached here so tool code only deals
// with engine-specific parameters.
type serpClient struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// NewSerpClient builds the production SearchClient from config.
func NewSerpClient(cfg model.SearchConfig) SearchClient {
	return &serpClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpc:   &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

func (c *serpClient) Search(ctx context.Context, engine string, params map[string]string) (map[string]any, error) {
	q := url.Values{}
	q.Set("engine", engine)
	q.Set("api_key", c.apiKey)
	q.Set("hl", "en")
	q.Set("gl", "us")
	q.Set("currency", "USD")
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode search response (status %d): %w", resp.StatusCode, err)
	}

	// SerpAPI reports failures as an "error" field in an otherwise 200 body.
	if msg, ok := data["error"].(string); ok && msg != "" {
		return nil, fmt.Errorf("search provider: %s", msg)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search provider returned status %d", resp.StatusCode)
	}

	return data, nil
}

var _ SearchClient = (*serpClient)(nil)
