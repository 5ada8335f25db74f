// Package knowledge holds the curated fact store cache and the
// relevance ranking used to select grounding context for LLM answers.
//
// The score is a deliberately simple bag-of-words heuristic, not a true
// IR ranking.
package knowledge

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
)

// TopK is the maximum number of facts injected into a prompt.
const TopK = 5

// substringBonus dominates token matches so an exact-text query always
// ranks its own fact first.
const substringBonus = 3

// synonyms maps domain keywords to the synonym lists that earn a bonus
// when the key appears in the query.
var synonyms = map[string][]string{
	"вскс":         {"корпус", "спасател", "студенческ"},
	"руководитель": {"директор", "начальник", "глава", "зам"},
	"основана":     {"создана", "образована", "учреждена", "2001"},
	"контакты":     {"телефон", "почта", "адрес", "сайт"},
	"регион":       {"отделение", "округ", "область", "республика"},
}

// aboutTriggers marks "about this organization" queries that fall back
// to recency-based facts when nothing ranks.
var aboutTriggers = []string{
	"вскс", "корпус", "организац", "спасател", "студенческ",
}

// Rank scores facts against a free-text query and returns at most TopK
// fact texts in descending relevance order. Ties keep the original fact
// order. Facts scoring zero are excluded.
func Rank(query string, facts []models.Fact) []string {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" || len(facts) == 0 {
		return nil
	}
	tokens := strings.Fields(queryLower)

	type scored struct {
		text  string
		score int
	}
	var candidates []scored
	for _, fact := range facts {
		factLower := strings.ToLower(fact.Text)
		score := 0
		if strings.Contains(factLower, queryLower) {
			score += substringBonus
		}
		for _, token := range tokens {
			if strings.Contains(factLower, token) {
				score++
			}
		}
		for key, syns := range synonyms {
			if !strings.Contains(queryLower, key) {
				continue
			}
			for _, syn := range syns {
				if strings.Contains(factLower, syn) {
					score++
				}
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{text: fact.Text, score: score})
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	// Stable: equal scores preserve insertion order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > TopK {
		candidates = candidates[:TopK]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.text
	}
	return out
}

// HasAboutTrigger reports whether the query mentions the organization,
// enabling the recency-based fact fallback.
func HasAboutTrigger(query string) bool {
	queryLower := strings.ToLower(query)
	for _, trigger := range aboutTriggers {
		if strings.Contains(queryLower, trigger) {
			return true
		}
	}
	return false
}

// FactStore is the persistence subset the cache depends on.
type FactStore interface {
	ListFacts() ([]models.Fact, error)
}

// Cache is an explicitly owned snapshot of the fact store, refreshed via
// Reload rather than read ambiently on every message.
type Cache struct {
	store FactStore

	mu    sync.RWMutex
	facts []models.Fact
}

// NewCache creates a fact cache over the given store. Call Reload before
// first use.
func NewCache(store FactStore) *Cache {
	return &Cache{store: store}
}

// Reload refreshes the snapshot from the store.
func (c *Cache) Reload() error {
	facts, err := c.store.ListFacts()
	if err != nil {
		slog.Error("Knowledge cache reload failed", "error", err)
		return err
	}
	c.mu.Lock()
	c.facts = facts
	c.mu.Unlock()
	slog.Debug("Knowledge cache reloaded", "facts", len(facts))
	return nil
}

// Facts returns the current snapshot.
func (c *Cache) Facts() []models.Fact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Fact, len(c.facts))
	copy(out, c.facts)
	return out
}

// Recent returns the n most recently added facts, newest first.
func (c *Cache) Recent(n int) []models.Fact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n <= 0 || len(c.facts) == 0 {
		return nil
	}
	if n > len(c.facts) {
		n = len(c.facts)
	}
	out := make([]models.Fact, 0, n)
	for i := len(c.facts) - 1; i >= len(c.facts)-n; i-- {
		out = append(out, c.facts[i])
	}
	return out
}
