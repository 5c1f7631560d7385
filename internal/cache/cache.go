// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

// Package cache provides a thread-safe in-memory TTL cache for analytics
// query results. The cache is cleared whenever the dataset is reloaded.
package cache

import (
	"sync"
	"time"

	"github.com/velodash/velodash/internal/metrics"
)

// cleanupInterval is how often the background sweep removes expired entries
const cleanupInterval = 5 * time.Minute

// Entry represents a cached item with expiration
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Cache provides a thread-safe in-memory cache with TTL support
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	stats   Stats
}

// Stats tracks cache performance metrics
type Stats struct {
	mu          sync.RWMutex
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// New creates a cache with the given default TTL and starts a background
// cleanup goroutine that sweeps expired entries.
//
//	c := cache.New(5 * time.Minute)
//	c.Set("key", value)
//	if data, ok := c.Get("key"); ok {
//	    // use cached data
//	}
func New(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		stats: Stats{
			LastCleanup: time.Now(),
		},
	}

	go c.cleanupLoop()

	return c
}

// Get retrieves a value by key. Expired entries are removed on access and
// count as misses.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		metrics.CacheEntries.Set(float64(len(c.entries)))
		c.mu.Unlock()
		c.recordMiss()
		c.recordEviction()
		return nil, false
	}

	c.recordHit()
	return entry.Data, true
}

// Set stores a value with the default TTL
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value in the cache with a custom TTL
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{
		Data:      value,
		ExpiresAt: time.Now().Add(ttl),
	}
	metrics.CacheEntries.Set(float64(len(c.entries)))

	c.stats.mu.Lock()
	c.stats.TotalKeys = int64(len(c.entries))
	c.stats.mu.Unlock()
}

// Delete removes a specific cache entry by key
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	metrics.CacheEntries.Set(float64(len(c.entries)))
	c.mu.Unlock()

	c.recordEviction()
}

// Clear removes all entries. Called after every dataset reload so clients
// never see chart data computed from the previous dataset.
func (c *Cache) Clear() {
	c.mu.Lock()
	evictions := int64(len(c.entries))
	c.entries = make(map[string]Entry)
	metrics.CacheEntries.Set(0)
	c.mu.Unlock()

	c.stats.mu.Lock()
	c.stats.Evictions += evictions
	c.stats.TotalKeys = 0
	c.stats.mu.Unlock()
}

// GetStats returns a snapshot of current cache performance statistics
func (c *Cache) GetStats() Stats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()

	return Stats{
		Hits:        c.stats.Hits,
		Misses:      c.stats.Misses,
		Evictions:   c.stats.Evictions,
		TotalKeys:   c.stats.TotalKeys,
		LastCleanup: c.stats.LastCleanup,
	}
}

// HitRate returns the cache hit rate as a percentage
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// cleanupLoop periodically removes expired entries
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

// cleanup removes all expired entries
func (c *Cache) cleanup() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	evictions := int64(0)
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			evictions++
		}
	}
	metrics.CacheEntries.Set(float64(len(c.entries)))

	c.stats.mu.Lock()
	c.stats.Evictions += evictions
	c.stats.TotalKeys = int64(len(c.entries))
	c.stats.LastCleanup = now
	c.stats.mu.Unlock()
}

func (c *Cache) recordHit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
}

func (c *Cache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}

func (c *Cache) recordEviction() {
	c.stats.mu.Lock()
	c.stats.Evictions++
	c.stats.mu.Unlock()
}
