// Package cache provides the side-cache for generated project narratives.
// Narratives are expensive to rebuild and change only when the underlying
// project data changes, so entries are keyed by project ID and validated
// against a hash of the content that produced them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// NarrativeCache stores rendered narrative texts per project. A cached entry
// is only served when the caller's content hash matches the one stored with
// it, so stale narratives are never returned after the project changes.
type NarrativeCache interface {
	// Get returns the cached narrative for the project when one exists and
	// its content hash matches. The second return value reports a hit.
	Get(ctx context.Context, projectID string, contentHash string) (string, bool, error)

	// Set stores the narrative for the project together with the content
	// hash it was rendered from, replacing any previous entry.
	Set(ctx context.Context, projectID string, contentHash string, narrative string) error

	// Invalidate drops the cached narrative for the project.
	Invalidate(ctx context.Context, projectID string) error

	// Close releases resources held by the cache.
	Close() error
}

// narrativeEntry is the stored envelope: the hash of the source content and
// the rendered text.
type narrativeEntry struct {
	ContentHash string `json:"content_hash"`
	Narrative   string `json:"narrative"`
}

// ContentHash derives the cache validation hash from the fields a narrative
// is rendered from. Order matters; callers pass fields in a fixed order.
func ContentHash(fields ...string) string {
	h := sha256.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(h[:])
}

// DefaultNarrativeTTL is used when configuration does not set one.
const DefaultNarrativeTTL = 6 * time.Hour
