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

package engine

import (
	"fmt"
	"sync"

	"github.com/rulego/weave/api/types"
	"go.uber.org/multierr"
)

// singletonInstance holds a singleton and ensures it is created only once.
type singletonInstance struct {
	once sync.Once
	// component is the exposed object, raw the instance before processors ran.
	component interface{}
	raw       interface{}
	err       error
	done      bool
}

// singletonCache manages singleton instances with lazy, once-only creation.
// A failed creation is forgotten so that a later lookup retries it.
type singletonCache struct {
	mu        sync.RWMutex
	instances map[string]*singletonInstance
	order     []string
}

func newSingletonCache() *singletonCache {
	return &singletonCache{
		instances: make(map[string]*singletonInstance),
	}
}

// getOrCreate returns the singleton of name, calling create exactly once
// under concurrent access. create must not request the singleton of name itself.
func (sc *singletonCache) getOrCreate(name string, create func() (interface{}, interface{}, error)) (interface{}, error) {
	sc.mu.RLock()
	instance, exists := sc.instances[name]
	sc.mu.RUnlock()

	if !exists {
		sc.mu.Lock()
		instance, exists = sc.instances[name]
		if !exists {
			instance = &singletonInstance{}
			sc.instances[name] = instance
		}
		sc.mu.Unlock()
	}

	instance.once.Do(func() {
		instance.component, instance.raw, instance.err = create()
		sc.mu.Lock()
		defer sc.mu.Unlock()
		if instance.err != nil {
			if sc.instances[name] == instance {
				delete(sc.instances, name)
			}
			return
		}
		instance.done = true
		sc.order = append(sc.order, name)
	})

	return instance.component, instance.err
}

// get returns a created singleton.
func (sc *singletonCache) get(name string) (interface{}, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	instance, ok := sc.instances[name]
	if !ok || !instance.done {
		return nil, false
	}
	return instance.component, true
}

func (sc *singletonCache) contains(name string) bool {
	_, ok := sc.get(name)
	return ok
}

// remove forgets the singleton of name without destroying it.
func (sc *singletonCache) remove(name string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if _, ok := sc.instances[name]; !ok {
		return
	}
	delete(sc.instances, name)
	for i, item := range sc.order {
		if item == name {
			sc.order = append(sc.order[:i:i], sc.order[i+1:]...)
			break
		}
	}
}

func (sc *singletonCache) createdNames() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	names := make([]string, len(sc.order))
	copy(names, sc.order)
	return names
}

// destroyAll destroys the singletons in reverse creation order and empties the cache.
func (sc *singletonCache) destroyAll(logger types.Logger) error {
	sc.mu.Lock()
	order := sc.order
	instances := sc.instances
	sc.order = nil
	sc.instances = make(map[string]*singletonInstance)
	sc.mu.Unlock()

	var err error
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		instance := instances[name]
		if instance == nil {
			continue
		}
		if destroyable, ok := instance.raw.(types.Destroyable); ok {
			if destroyErr := destroyable.Destroy(); destroyErr != nil {
				logger.Warnf("destroy component %s error: %v", name, destroyErr)
				err = multierr.Append(err, fmt.Errorf("destroy component %q: %w", name, destroyErr))
			}
		}
	}
	return err
}
