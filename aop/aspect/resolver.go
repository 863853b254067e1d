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

// Package aspect discovers the aspects registered in a container, turns
// their advice methods into advisors and proxies the components they apply to.
package aspect

import (
	"sync"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/engine"
	"go.uber.org/atomic"
)

// Eligibility decides whether a component name is considered by the aspect scan.
type Eligibility func(name string) bool

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEligibility restricts the aspect scan to the names accepted by eligible.
func WithEligibility(eligible Eligibility) ResolverOption {
	return func(r *Resolver) {
		r.eligible = eligible
	}
}

// WithAdvisorFactory replaces the advisor factory.
func WithAdvisorFactory(advisorFactory *AdvisorFactory) ResolverOption {
	return func(r *Resolver) {
		r.advisorFactory = advisorFactory
	}
}

// Resolver finds the aspect components of a factory and its ancestors and
// returns their advisors. The factory is scanned once; later calls are served
// from caches without locking.
type Resolver struct {
	factory        types.ListableFactory
	advisorFactory *AdvisorFactory
	eligible       Eligibility
	logger         types.Logger

	mu sync.Mutex
	// aspectNames is published once the scan completed. The caches are
	// written before publication and only read afterwards.
	aspectNames   atomic.Pointer[[]string]
	advisorsCache map[string][]types.Advisor
	factoryCache  map[string]cachedFactory
	scans         atomic.Int64
}

// cachedFactory is the instance factory of an aspect whose advisors are
// derived again on every resolution.
type cachedFactory struct {
	factory types.AspectInstanceFactory
	// lazy factories are wrapped in a new LazySingletonInstanceFactory per
	// resolution, so each resolution gets its own aspect instance.
	lazy bool
}

func (c cachedFactory) instanceFactory() types.AspectInstanceFactory {
	if c.lazy {
		return NewLazySingletonInstanceFactory(c.factory)
	}
	return c.factory
}

// NewResolver creates a resolver scanning factory.
func NewResolver(factory types.ListableFactory, config types.Config, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		factory:        factory,
		advisorFactory: NewAdvisorFactory(config),
		eligible:       func(string) bool { return true },
		logger:         config.Logger,
		advisorsCache:  make(map[string][]types.Advisor),
		factoryCache:   make(map[string]cachedFactory),
	}
	if r.logger == nil {
		r.logger = types.DiscardLogger()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveAdvisors returns the advisors of every aspect, in scan order. The
// first successful call scans the factory; a failed scan is retried by the next call.
func (r *Resolver) ResolveAdvisors() ([]types.Advisor, error) {
	names := r.aspectNames.Load()
	if names == nil {
		r.mu.Lock()
		names = r.aspectNames.Load()
		if names == nil {
			advisors, scanned, err := r.scan()
			if err == nil {
				r.aspectNames.Store(&scanned)
			}
			r.mu.Unlock()
			return advisors, err
		}
		r.mu.Unlock()
	}
	if len(*names) == 0 {
		return nil, nil
	}
	var advisors []types.Advisor
	for _, name := range *names {
		if cached, ok := r.advisorsCache[name]; ok {
			advisors = append(advisors, cached...)
			continue
		}
		derived, err := r.advisorFactory.Advisors(r.factoryCache[name].instanceFactory())
		if err != nil {
			return nil, err
		}
		advisors = append(advisors, derived...)
	}
	return advisors, nil
}

func (r *Resolver) scan() ([]types.Advisor, []string, error) {
	r.scans.Inc()
	var advisors []types.Advisor
	names := make([]string, 0)
	advisorsCache := make(map[string][]types.Advisor)
	factoryCache := make(map[string]cachedFactory)

	for _, name := range engine.ComponentNamesIncludingAncestors(r.factory) {
		if !r.eligible(name) {
			continue
		}
		t := r.factory.Type(name)
		if t == nil || !r.advisorFactory.IsAspect(t) {
			continue
		}
		metadata, err := r.advisorFactory.Metadata(t)
		if err != nil {
			return nil, nil, types.NewConfigurationError(name, "aspect resolution", err.Error())
		}
		names = append(names, name)

		var instanceFactory types.AspectInstanceFactory
		switch metadata.Model {
		case types.PerCallModel:
			if r.factory.IsSingleton(name) {
				return nil, nil, types.NewConfigurationError(name, "aspect resolution",
					"component is a singleton, but aspect instantiation model is "+metadata.Model.String())
			}
			instanceFactory, err = NewPrototypeInstanceFactory(r.factory, name, t, metadata)
			if err != nil {
				return nil, nil, err
			}
			factoryCache[name] = cachedFactory{factory: instanceFactory}
		default:
			componentFactory := NewComponentInstanceFactory(r.factory, name, t, metadata)
			instanceFactory = NewLazySingletonInstanceFactory(componentFactory)
			if !r.factory.IsSingleton(name) {
				factoryCache[name] = cachedFactory{factory: componentFactory, lazy: true}
			}
		}

		aspectAdvisors, err := r.advisorFactory.Advisors(instanceFactory)
		if err != nil {
			return nil, nil, err
		}
		if metadata.Model != types.PerCallModel && r.factory.IsSingleton(name) {
			advisorsCache[name] = aspectAdvisors
		}
		r.logger.Debugf("aspect %s (%s) declares %d advisors", name, metadata.Model, len(aspectAdvisors))
		advisors = append(advisors, aspectAdvisors...)
	}

	r.advisorsCache = advisorsCache
	r.factoryCache = factoryCache
	return advisors, names, nil
}

// AspectNames returns the names of the aspects found by the scan, nil before the first scan.
func (r *Resolver) AspectNames() []string {
	names := r.aspectNames.Load()
	if names == nil {
		return nil
	}
	result := make([]string, len(*names))
	copy(result, *names)
	return result
}

// Scans returns the number of full scans performed.
func (r *Resolver) Scans() int64 {
	return r.scans.Load()
}

// AdvisorFactory returns the advisor factory of the resolver.
func (r *Resolver) AdvisorFactory() *AdvisorFactory {
	return r.advisorFactory
}
