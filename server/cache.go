package main

import (
	"context"
	"sync"
	"time"

	"github.com/ctolnik/work-eye/server/reporting"
)

type statsSource interface {
	Stats(ctx context.Context) (reporting.Stats, error)
}

// StatsCache holds the dashboard statistics for ttl
type StatsCache struct {
	mu       sync.RWMutex
	source   statsSource
	stats    *reporting.Stats
	cachedAt time.Time
	ttl      time.Duration
}

func NewStatsCache(source statsSource, ttl time.Duration) *StatsCache {
	return &StatsCache{
		source: source,
		ttl:    ttl,
	}
}

// Get returns cached stats if available and not expired, otherwise fetches fresh data
func (sc *StatsCache) Get(ctx context.Context) (reporting.Stats, error) {
	sc.mu.RLock()
	if sc.stats != nil && time.Since(sc.cachedAt) < sc.ttl {
		stats := *sc.stats
		sc.mu.RUnlock()
		return stats, nil
	}
	sc.mu.RUnlock()

	sc.mu.Lock()
	defer sc.mu.Unlock()

	// Another request may have refreshed while we waited for the write lock.
	if sc.stats != nil && time.Since(sc.cachedAt) < sc.ttl {
		return *sc.stats, nil
	}

	stats, err := sc.source.Stats(ctx)
	if err != nil {
		return reporting.Stats{}, err
	}

	sc.stats = &stats
	sc.cachedAt = time.Now()

	return stats, nil
}
