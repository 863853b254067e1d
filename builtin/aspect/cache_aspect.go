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

package aspect

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rulego/weave/aop"
	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/cache"
	"github.com/rulego/weave/utils/maps"
	"github.com/zeebo/xxh3"
	"go.uber.org/atomic"
)

// CacheOrder is the default order of Cache.
const CacheOrder = 30

var (
	_ types.AspectComponent = (*Cache)(nil)
	_ types.AroundAdvice    = (*Cache)(nil)
	_ types.Configurable    = (*Cache)(nil)
	_ types.NameAware       = (*Cache)(nil)
	_ types.Destroyable     = (*Cache)(nil)
)

// CacheConfig is decoded from the definition properties of Cache.
type CacheConfig struct {
	// TTL of the cached results, 0 keeps them until evicted.
	TTL time.Duration
	// Namespace isolates the keys of the aspect in a shared cache.
	// It defaults to the component name.
	Namespace string
	// Pointcut restricts the cached operations. Empty caches every operation returning a value.
	Pointcut string
	// EvictSchedule is a cron spec, with seconds, on which every result
	// cached by the aspect is evicted. Example: "0 */5 * * * *".
	EvictSchedule string
	// Order overrides CacheOrder.
	Order int
}

// Cache returns the cached result of a previous successful call with the same
// operation and arguments, without reaching the target. Operations that
// return no value, failed calls and nil results are never cached.
//
// The backing store is Config.Cache when set, otherwise a memory cache owned
// by the aspect and released by Destroy. With an evict schedule, the aspect
// also empties its results periodically until destroyed.
type Cache struct {
	base
	TTL    time.Duration
	name   string
	store  types.Cache
	owned  *cache.MemoryCache
	cron   *cron.Cron
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a caching aspect storing results in store for ttl.
// A nil store gets a memory cache.
func NewCache(store types.Cache, ttl time.Duration) *Cache {
	a := &Cache{TTL: ttl}
	if store == nil {
		a.owned = cache.NewMemoryCache(0)
		store = a.owned
	}
	a.store = store
	return a
}

func (a *Cache) AspectMetadata() types.AspectMetadata {
	return types.AspectMetadata{
		Order:  CacheOrder,
		Advice: []types.AdviceMethod{{Method: "Around", Kind: types.Around}},
	}
}

func (a *Cache) Order() int {
	return a.orderOr(CacheOrder)
}

func (a *Cache) SetName(name string) {
	a.name = name
}

func (a *Cache) Init(config types.Config, configuration types.Configuration) error {
	c := CacheConfig{TTL: a.TTL, Namespace: a.name}
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return err
	}
	if c.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative, got %s", c.TTL)
	}
	a.TTL = c.TTL
	store := config.Cache
	if store == nil {
		a.owned = cache.NewMemoryCache(0)
		a.owned.StartGC()
		store = a.owned
	}
	if c.Namespace != "" {
		store = cache.NewNamespaceCache(store, c.Namespace+types.NamespaceSeparator)
	}
	a.store = store
	if err := a.init(config, c.Pointcut, c.Order); err != nil {
		return err
	}
	if c.EvictSchedule != "" {
		return a.scheduleEviction(c.EvictSchedule)
	}
	return nil
}

func (a *Cache) scheduleEviction(spec string) error {
	a.cron = cron.New(cron.WithSeconds())
	if _, err := a.cron.AddFunc(spec, func() {
		if err := a.Evict(); err != nil {
			a.log().Warnf("evict cache %s error: %v", a.name, err)
		}
	}); err != nil {
		a.cron = nil
		return fmt.Errorf("invalid evict schedule %q: %w", spec, err)
	}
	a.cron.Start()
	return nil
}

func (a *Cache) Around(ctx context.Context, inv types.Invocation) (interface{}, error) {
	if !a.PointCut(inv) || !inv.Operation().ReturnsValue() {
		return inv.Proceed(ctx)
	}
	key := a.key(inv)
	if v := a.store.Get(key); v != nil {
		a.hits.Inc()
		return v, nil
	}
	a.misses.Inc()
	result, err := inv.Proceed(ctx)
	if err != nil || result == nil {
		return result, err
	}
	if setErr := a.store.Set(key, result, a.TTL); setErr != nil {
		a.log().Warnf("cache result of %s error: %v", inv.Operation().Key(), setErr)
	}
	return result, nil
}

// key identifies the call of jp by its target, its operation and a hash of
// its arguments.
func (a *Cache) key(jp types.JoinPoint) string {
	args := xxh3.HashString(fmt.Sprintf("%#v", jp.Args()))
	return aop.IdentityOf(jp.Target()) + types.NamespaceSeparator +
		jp.Operation().Key() + types.NamespaceSeparator + strconv.FormatUint(args, 16)
}

// Evict removes every result cached by the aspect. Without namespace, it
// empties the whole store.
func (a *Cache) Evict() error {
	return a.store.DeleteByPrefix("")
}

// Stats returns the number of cache hits and misses.
func (a *Cache) Stats() (hits, misses int64) {
	return a.hits.Load(), a.misses.Load()
}

func (a *Cache) Destroy() error {
	if a.cron != nil {
		<-a.cron.Stop().Done()
		a.cron = nil
	}
	if a.owned != nil {
		return a.owned.Close()
	}
	return nil
}
