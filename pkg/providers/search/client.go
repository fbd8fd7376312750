// Package search adapts an external web-search backend for the heuristic
// search-intent injection step (§4.2 step 1).
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

const requestTimeout = 5 * time.Second
const maxResults = 5

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{baseURL: baseURL, apiKey: apiKey, http: &http.Client{Timeout: requestTimeout}}
}

func (c *Client) Search(ctx context.Context, query string) ([]orchestrator.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	reqURL := c.baseURL + "?q=" + url.QueryEscape(query) + "&limit=" + fmt.Sprint(maxResults)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("search: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: upstream returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Results []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			URL     string `json:"url"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}

	results := make([]orchestrator.SearchResult, 0, len(parsed.Results))
	for i, r := range parsed.Results {
		if i >= maxResults {
			break
		}
		results = append(results, orchestrator.SearchResult{Title: r.Title, Snippet: r.Snippet, URL: r.URL})
	}
	return results, nil
}

func (c *Client) Name() string { return "search" }
