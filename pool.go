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

package weave

import (
	"sync"

	"github.com/rulego/weave/api/types"
	"go.uber.org/multierr"
)

// DefaultPool is the default container pool.
var DefaultPool = &Pool{}

// Pool keeps refreshed containers by ID.
type Pool struct {
	containers sync.Map
}

// New creates a container from defs, refreshes it and stores it under id.
// An existing container of id is returned as is. An empty id gets a generated one.
func (p *Pool) New(id string, defs []*types.Definition, opts ...types.Option) (*Container, error) {
	if id != "" {
		if v, ok := p.containers.Load(id); ok {
			return v.(*Container), nil
		}
	}
	c := NewWithID(id, opts...)
	if err := c.Register(defs...); err != nil {
		return nil, err
	}
	if err := c.Refresh(); err != nil {
		return nil, err
	}
	if actual, loaded := p.containers.LoadOrStore(c.ID(), c); loaded {
		_ = c.Close()
		return actual.(*Container), nil
	}
	return c, nil
}

// Get returns the container of id.
func (p *Pool) Get(id string) (*Container, bool) {
	if v, ok := p.containers.Load(id); ok {
		return v.(*Container), true
	}
	return nil, false
}

// Del closes and removes the container of id.
func (p *Pool) Del(id string) error {
	if v, ok := p.containers.LoadAndDelete(id); ok {
		return v.(*Container).Close()
	}
	return nil
}

// Range calls f for every container until f returns false.
func (p *Pool) Range(f func(c *Container) bool) {
	p.containers.Range(func(_, value any) bool {
		return f(value.(*Container))
	})
}

// Stop closes and removes every container.
func (p *Pool) Stop() error {
	var err error
	p.containers.Range(func(key, value any) bool {
		err = multierr.Append(err, value.(*Container).Close())
		p.containers.Delete(key)
		return true
	})
	return err
}

// Get returns the container of id from DefaultPool.
func Get(id string) (*Container, bool) {
	return DefaultPool.Get(id)
}

// Del closes and removes the container of id from DefaultPool.
func Del(id string) error {
	return DefaultPool.Del(id)
}

// Stop closes every container of DefaultPool.
func Stop() error {
	return DefaultPool.Stop()
}
