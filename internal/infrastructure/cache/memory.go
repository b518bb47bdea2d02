package cache

import (
	"context"
	"sync"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
)

// MemoryCache is the in-process answer cache. Exact normalized-key lookups
// are O(1); a miss falls back to a linear word-overlap scan, which stays
// cheap at FAQ-corpus scale.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*domain.AnswerEnvelope
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*domain.AnswerEnvelope)}
}

func (c *MemoryCache) Get(_ context.Context, query string) (*domain.AnswerEnvelope, bool) {
	key := NormalizeKey(query)
	if key == "" {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if envelope, ok := c.entries[key]; ok {
		return envelope, true
	}
	// Map iteration order is random, so pick the best-overlapping stored key
	// rather than the first equivalent one the range happens to visit.
	bestKey, bestScore := "", -1.0
	for storedKey := range c.entries {
		if !equivalentKeys(key, storedKey) {
			continue
		}
		score := wordOverlap(key, storedKey)
		if score > bestScore || (score == bestScore && storedKey < bestKey) {
			bestKey, bestScore = storedKey, score
		}
	}
	if bestKey != "" {
		return c.entries[bestKey], true
	}
	return nil, false
}

func (c *MemoryCache) Put(_ context.Context, query string, envelope *domain.AnswerEnvelope) error {
	key := NormalizeKey(query)
	if key == "" || envelope == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// First answer wins; repeated questions must replay the original reply.
	if _, exists := c.entries[key]; !exists {
		c.entries[key] = envelope
	}
	return nil
}

// Len reports the number of distinct cached questions.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
