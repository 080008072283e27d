package store

import (
	"context"
	"sync"
	"time"

	"blogsmith/internal/core"
	"blogsmith/internal/dedup"
)

// Memory is an in-memory fingerprint store with the same contract as Store.
// Used by tests and dry runs.
type Memory struct {
	mu           sync.RWMutex
	fingerprints []core.ContentFingerprint
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Record persists a fingerprint, replacing any existing entry with the same
// content hash.
func (m *Memory) Record(ctx context.Context, fp core.ContentFingerprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.fingerprints {
		if m.fingerprints[i].ContentHash == fp.ContentHash {
			m.fingerprints[i] = fp
			return nil
		}
	}
	m.fingerprints = append(m.fingerprints, fp)
	return nil
}

// QuerySimilar returns the best-scoring fingerprint inside the window, or
// nil when there is none.
func (m *Memory) QuerySimilar(ctx context.Context, q dedup.SimilarityQuery) (*dedup.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *dedup.Match
	for _, fp := range m.fingerprints {
		if fp.CreatedAt.Before(q.Since) {
			continue
		}
		match := dedup.ScoreMatch(q, fp)
		if best == nil || match.Score() > best.Score() {
			best = &match
		}
	}
	return best, nil
}

// PruneOlderThan drops fingerprints past the retention horizon.
func (m *Memory) PruneOlderThan(ctx context.Context, horizon time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-horizon)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.fingerprints[:0]
	removed := 0
	for _, fp := range m.fingerprints {
		if fp.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, fp)
	}
	m.fingerprints = kept
	return removed, nil
}

// Len reports how many fingerprints are held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.fingerprints)
}
