// Package search provides DuckDuckGo web search with a persistent cache
// keyed by the exact query string. Cached entries are never invalidated.
package search

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the DuckDuckGo instant-answer API endpoint.
const DefaultBaseURL = "https://api.duckduckgo.com"

// maxResults caps how many results are returned per query.
const maxResults = 3

// CacheStore is the persistence subset needed by the search adapter.
type CacheStore interface {
	GetCachedSearch(query string) (string, bool, error)
	SaveCachedSearch(query, results string) error
}

// ClientInterface is the web-search boundary consumed by the bot.
type ClientInterface interface {
	Search(ctx context.Context, query string) string
}

// Result is a single condensed search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Client performs cached web searches.
type Client struct {
	http  *resty.Client
	cache CacheStore
}

// NewClient creates a search client over the given cache store.
func NewClient(cache CacheStore, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:  resty.New().SetBaseURL(baseURL),
		cache: cache,
	}
}

// ddgResponse mirrors the fields of the instant-answer payload we use.
type ddgResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search returns up to three results serialized as JSON. Identical
// queries are served from the cache and never touch the network again.
// Failures degrade to a JSON error object; the caller never sees an
// exception.
func (c *Client) Search(ctx context.Context, query string) string {
	if cached, found, err := c.cache.GetCachedSearch(query); err == nil && found {
		slog.Debug("Search cache hit", "query", query)
		return cached
	} else if err != nil {
		slog.Error("Search cache read failed", "error", err, "query", query)
	}

	// The instant-answer endpoint labels its JSON application/x-javascript,
	// which resty will not unmarshal unless forced.
	var payload ddgResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("format", "json").
		SetQueryParam("no_html", "1").
		SetResult(&payload).
		ForceContentType("application/json").
		Get("/")
	if err != nil {
		slog.Error("Search request failed", "error", err, "query", query)
		return errorJSON()
	}
	if resp.StatusCode() != 200 {
		slog.Error("Search unexpected status", "status", resp.StatusCode(), "query", query)
		return errorJSON()
	}

	results := condense(payload)
	data, err := json.Marshal(results)
	if err != nil {
		slog.Error("Search marshal failed", "error", err, "query", query)
		return errorJSON()
	}
	serialized := string(data)

	if err := c.cache.SaveCachedSearch(query, serialized); err != nil {
		// A cache write failure only costs a future network call.
		slog.Error("Search cache write failed", "error", err, "query", query)
	}
	slog.Info("Search performed", "query", query, "results", len(results))
	return serialized
}

// condense flattens the instant-answer payload into at most maxResults
// results, abstract first.
func condense(payload ddgResponse) []Result {
	var results []Result
	if payload.AbstractText != "" {
		results = append(results, Result{
			Title:   payload.Heading,
			Snippet: payload.AbstractText,
			URL:     payload.AbstractURL,
		})
	}
	for _, topic := range payload.RelatedTopics {
		if len(results) >= maxResults {
			break
		}
		if topic.Text == "" {
			continue
		}
		results = append(results, Result{Snippet: topic.Text, URL: topic.FirstURL})
	}
	if results == nil {
		results = []Result{}
	}
	return results
}

func errorJSON() string {
	return `{"error": "Не удалось выполнить поиск."}`
}
