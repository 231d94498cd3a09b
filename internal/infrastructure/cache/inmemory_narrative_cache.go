package cache

import (
	"context"
	"sync"
	"time"
)

// memEntry is a stored narrative with its expiration.
type memEntry struct {
	contentHash string
	narrative   string
	expiresAt   time.Time
}

// InMemoryNarrativeCache implements NarrativeCache with an in-process map.
// Suitable for single-instance deployments and testing; entries are not
// shared across processes.
type InMemoryNarrativeCache struct {
	mu        sync.RWMutex
	entries   map[string]memEntry
	ttl       time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryNarrativeCache creates an in-memory narrative cache. A
// background goroutine sweeps expired entries until Close is called.
func NewInMemoryNarrativeCache(ttl time.Duration) *InMemoryNarrativeCache {
	if ttl <= 0 {
		ttl = DefaultNarrativeTTL
	}
	cache := &InMemoryNarrativeCache{
		entries:  make(map[string]memEntry),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}

	cache.wg.Add(1)
	go cache.cleanupLoop()

	return cache
}

// Get returns the cached narrative when present, unexpired, and matching the
// content hash.
func (c *InMemoryNarrativeCache) Get(ctx context.Context, projectID string, contentHash string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[projectID]
	if !exists || time.Now().After(e.expiresAt) {
		return "", false, nil
	}
	if e.contentHash != contentHash {
		return "", false, nil
	}
	return e.narrative, true, nil
}

// Set stores the narrative, replacing any previous entry for the project.
func (c *InMemoryNarrativeCache) Set(ctx context.Context, projectID string, contentHash string, narrative string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[projectID] = memEntry{
		contentHash: contentHash,
		narrative:   narrative,
		expiresAt:   time.Now().Add(c.ttl),
	}
	return nil
}

// Invalidate drops the entry for the project.
func (c *InMemoryNarrativeCache) Invalidate(ctx context.Context, projectID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, projectID)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryNarrativeCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries.
func (c *InMemoryNarrativeCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

// removeExpired deletes all entries past their expiration.
func (c *InMemoryNarrativeCache) removeExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, id)
		}
	}
}

var _ NarrativeCache = (*InMemoryNarrativeCache)(nil)
