// Package dedupe guards the one-report-per-run rule across ingestion replicas.
package dedupe

import (
	"context"
	"sync"
	"time"
)

// Guard records which runs already reported.
type Guard interface {
	// Claim returns true the first time runID is seen within the guard's TTL.
	Claim(ctx context.Context, runID string) (bool, error)
	// Release forgets runID so a report that failed downstream can be retried.
	Release(ctx context.Context, runID string) error
}

// MemoryGuard is a single-process Guard. Expired entries are swept at most once per TTL,
// so Claim stays O(1) between sweeps.
type MemoryGuard struct {
	mu        sync.Mutex
	ttl       time.Duration
	expires   map[string]time.Time
	nextSweep time.Time
	now       func() time.Time
}

// NewMemoryGuard returns a guard that keeps claims for ttl.
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{ttl: ttl, expires: make(map[string]time.Time), now: time.Now}
}

// Claim returns true unless runID holds an unexpired claim.
func (g *MemoryGuard) Claim(_ context.Context, runID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if !now.Before(g.nextSweep) {
		for id, exp := range g.expires {
			if !now.Before(exp) {
				delete(g.expires, id)
			}
		}
		g.nextSweep = now.Add(g.ttl)
	}
	if exp, ok := g.expires[runID]; ok && now.Before(exp) {
		return false, nil
	}
	g.expires[runID] = now.Add(g.ttl)
	return true, nil
}

// Release drops the claim on runID.
func (g *MemoryGuard) Release(_ context.Context, runID string) error {
	g.mu.Lock()
	delete(g.expires, runID)
	g.mu.Unlock()
	return nil
}

// Len returns the number of stored claims, including expired ones awaiting the next sweep.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.expires)
}
