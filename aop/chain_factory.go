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

package aop

import (
	"reflect"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rulego/weave/api/types"
	"go.uber.org/atomic"
)

// ChainFactory computes the interceptor chain of an operation from the
// advisors of a configuration and caches it per operation and target type.
// The cache is bounded; least recently used chains are evicted.
type ChainFactory struct {
	cache  *lru.Cache[string, []types.MethodInterceptor]
	misses atomic.Int64
}

// NewChainFactory creates a factory caching up to size chains.
// A size <= 0 uses types.DefaultChainCacheSize.
func NewChainFactory(size int) *ChainFactory {
	if size <= 0 {
		size = types.DefaultChainCacheSize
	}
	cache, _ := lru.New[string, []types.MethodInterceptor](size)
	return &ChainFactory{cache: cache}
}

// Interceptors returns the interceptors of the advisors matching op on
// targetType, in advisor order. An empty chain is returned as nil.
// Callers serialize Interceptors with Invalidate, see AdvisedConfig.
func (f *ChainFactory) Interceptors(entries []advisorEntry, op types.Operation, targetType reflect.Type) []types.MethodInterceptor {
	key := op.Key() + "@" + types.TypeName(targetType)
	if chain, ok := f.cache.Get(key); ok {
		return chain
	}
	f.misses.Inc()
	var chain []types.MethodInterceptor
	for _, entry := range entries {
		if entry.advisor.Pointcut().Matches(op, targetType) {
			chain = append(chain, entry.interceptors...)
		}
	}
	f.cache.Add(key, chain)
	return chain
}

// Invalidate drops every cached chain.
func (f *ChainFactory) Invalidate() {
	f.cache.Purge()
}

// Len returns the number of cached chains.
func (f *ChainFactory) Len() int {
	return f.cache.Len()
}

// Misses returns the number of chains computed instead of read from the cache.
func (f *ChainFactory) Misses() int64 {
	return f.misses.Load()
}
