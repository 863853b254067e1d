/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cache provides the in-memory implementation of types.Cache used by
// the caching aspect, plus a namespace wrapper isolating aspects that share
// one cache.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/rulego/weave/api/types"
)

// DefaultGCInterval is the interval between expired-entry sweeps.
const DefaultGCInterval = time.Minute

type entry struct {
	value interface{}
	// expiration is a Unix nano timestamp, 0 never expires.
	expiration int64
}

func (e entry) expired(now int64) bool {
	return e.expiration > 0 && now > e.expiration
}

// MemoryCache is a map-backed cache with per-entry expiration.
// Expired entries are hidden immediately and removed by a background
// sweep once StartGC has been called.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	gcInterval time.Duration
	stop       chan struct{}
	done       chan struct{}
}

// NewMemoryCache creates an empty cache. gcInterval <= 0 uses DefaultGCInterval.
func NewMemoryCache(gcInterval time.Duration) *MemoryCache {
	if gcInterval <= 0 {
		gcInterval = DefaultGCInterval
	}
	return &MemoryCache{
		entries:    make(map[string]entry),
		gcInterval: gcInterval,
	}
}

func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) error {
	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiration: expiration}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.expired(time.Now().UnixNano()) {
		return nil
	}
	return e.value
}

func (c *MemoryCache) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return ok && !e.expired(time.Now().UnixNano())
}

func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) DeleteByPrefix(prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartGC starts the background sweep. Calling it twice is a no-op.
func (c *MemoryCache) StartGC() {
	c.mu.Lock()
	if c.stop != nil {
		c.mu.Unlock()
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stop, c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.gcInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.deleteExpired()
			case <-stop:
				return
			}
		}
	}()
}

// StopGC stops the background sweep and waits for it to exit.
func (c *MemoryCache) StopGC() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Close stops the background sweep.
func (c *MemoryCache) Close() error {
	c.StopGC()
	return nil
}

func (c *MemoryCache) deleteExpired() {
	now := time.Now().UnixNano()
	c.mu.RLock()
	var expired []string
	for k, e := range c.entries {
		if e.expired(now) {
			expired = append(expired, k)
		}
	}
	c.mu.RUnlock()
	if len(expired) == 0 {
		return
	}
	c.mu.Lock()
	for _, k := range expired {
		// the entry may have been refreshed since the read pass
		if e, ok := c.entries[k]; ok && e.expired(now) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// NamespaceCache prefixes every key of the underlying cache with a namespace.
type NamespaceCache struct {
	Cache     types.Cache
	Namespace string
}

// NewNamespaceCache wraps cache. namespace is used as is, callers add their separator.
func NewNamespaceCache(cache types.Cache, namespace string) *NamespaceCache {
	return &NamespaceCache{Cache: cache, Namespace: namespace}
}

func (c *NamespaceCache) Set(key string, value interface{}, ttl time.Duration) error {
	return c.Cache.Set(c.Namespace+key, value, ttl)
}

func (c *NamespaceCache) Get(key string) interface{} {
	return c.Cache.Get(c.Namespace + key)
}

func (c *NamespaceCache) Has(key string) bool {
	return c.Cache.Has(c.Namespace + key)
}

func (c *NamespaceCache) Delete(key string) error {
	return c.Cache.Delete(c.Namespace + key)
}

func (c *NamespaceCache) DeleteByPrefix(prefix string) error {
	return c.Cache.DeleteByPrefix(c.Namespace + prefix)
}

// Len returns the size of the underlying cache.
func (c *NamespaceCache) Len() int {
	return c.Cache.Len()
}

var (
	_ types.Cache = (*MemoryCache)(nil)
	_ types.Cache = (*NamespaceCache)(nil)
)
