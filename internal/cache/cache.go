// Package cache provides a small in-process TTL cache used for hot lookups
// such as family membership checks.
package cache

import (
	"log/slog"
	"time"
)

// Cache is the read-through surface callers depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	DeletePrefix(prefix string) int
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans registered caches until stopped.
type Janitor struct {
	caches []Cleaner
	stop   chan struct{}
	done   chan struct{}
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{
		caches: caches,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the cleanup loop.
func (j *Janitor) Start(interval time.Duration) {
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed := 0
				for _, c := range j.caches {
					removed += c.CleanExpired()
				}
				if removed > 0 {
					slog.Debug("Cache cleanup", "component", "cache", "removed", removed)
				}
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop ends the cleanup loop and waits for it to exit. Stop must follow Start.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}
