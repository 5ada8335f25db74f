package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// memoryCache is an in-memory CacheStore for tests.
type memoryCache struct {
	entries map[string]string
	writes  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]string)}
}

func (m *memoryCache) GetCachedSearch(query string) (string, bool, error) {
	v, ok := m.entries[query]
	return v, ok, nil
}

func (m *memoryCache) SaveCachedSearch(query, results string) error {
	m.entries[query] = results
	m.writes++
	return nil
}

func TestSearchCachesByExactQuery(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"Heading":      "ВСКС",
			"AbstractText": "Всероссийский студенческий корпус спасателей",
			"AbstractURL":  "https://example.org",
		})
	}))
	defer srv.Close()

	cache := newMemoryCache()
	c := NewClient(cache, srv.URL)

	first := c.Search(context.Background(), "что такое ВСКС")
	second := c.Search(context.Background(), "что такое ВСКС")
	if hits != 1 {
		t.Errorf("identical query hit the network %d times, want 1", hits)
	}
	if first != second {
		t.Errorf("cached result differs from original")
	}
	// A different query string is a different cache key.
	c.Search(context.Background(), "что такое вскс")
	if hits != 2 {
		t.Errorf("case-variant query should miss the cache, hits=%d", hits)
	}

	var results []Result
	if err := json.Unmarshal([]byte(first), &results); err != nil {
		t.Fatalf("results are not JSON: %v", err)
	}
	if len(results) != 1 || !strings.Contains(results[0].Snippet, "корпус спасателей") {
		t.Errorf("results = %v", results)
	}
}

func TestSearchLimitsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"AbstractText": "a",
			"RelatedTopics": []map[string]string{
				{"Text": "b", "FirstURL": "u1"},
				{"Text": "c", "FirstURL": "u2"},
				{"Text": "d", "FirstURL": "u3"},
				{"Text": "e", "FirstURL": "u4"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(newMemoryCache(), srv.URL)
	out := c.Search(context.Background(), "q")
	var results []Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want at most 3", len(results))
	}
}

func TestSearchParsesNonJSONContentType(t *testing.T) {
	// The live endpoint labels its JSON responses application/x-javascript.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-javascript")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"Heading":      "ВСКС",
			"AbstractText": "Всероссийский студенческий корпус спасателей",
			"AbstractURL":  "https://example.org",
		})
	}))
	defer srv.Close()

	c := NewClient(newMemoryCache(), srv.URL)
	out := c.Search(context.Background(), "вскс")
	var results []Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(results) != 1 || results[0].Title != "ВСКС" {
		t.Errorf("payload not decoded despite content type, results = %v", results)
	}
}

func TestSearchFailureReturnsErrorJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cache := newMemoryCache()
	c := NewClient(cache, srv.URL)
	out := c.Search(context.Background(), "q")
	if !strings.Contains(out, "error") {
		t.Errorf("failure should return a JSON error object, got %q", out)
	}
	if cache.writes != 0 {
		t.Errorf("failed searches must not be cached")
	}
}
