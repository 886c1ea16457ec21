package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often the sweeper runs when no interval is given.
const DefaultSweepInterval = 5 * time.Minute

// EvictCallback is called for every session removed by the sweeper.
type EvictCallback func(key string)

// StartSweeper runs a background goroutine that periodically removes idle
// sessions from store until ctx is done.
func StartSweeper(ctx context.Context, store *Store, interval time.Duration, onEvict EvictCallback) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "ttl", store.TTL())

		for {
			select {
			case <-ticker.C:
				sweepOnce(store, onEvict)
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepOnce(store *Store, onEvict EvictCallback) int {
	evicted := store.Sweep()
	if len(evicted) == 0 {
		return 0
	}

	for _, key := range evicted {
		if onEvict != nil {
			onEvict(key)
		}
	}
	slog.Info("Session sweeper evicted idle sessions", "count", len(evicted), "remaining", store.Len())
	return len(evicted)
}
