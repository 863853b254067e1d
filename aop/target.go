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
	"fmt"
	"reflect"
	"sync"

	"github.com/rulego/weave/api/types"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

var (
	_ types.TargetProvider = (*SingletonTarget)(nil)
	_ types.TargetProvider = (*PrototypeTarget)(nil)
	_ types.TargetProvider = (*PooledTarget)(nil)
	_ types.TargetProvider = (*emptyTarget)(nil)
)

// SingletonTarget always returns the same target. It is static.
type SingletonTarget struct {
	target interface{}
}

// NewSingletonTarget creates a provider of target.
func NewSingletonTarget(target interface{}) *SingletonTarget {
	return &SingletonTarget{target: target}
}

func (t *SingletonTarget) TargetType() reflect.Type {
	return reflect.TypeOf(t.target)
}

func (t *SingletonTarget) Get() (interface{}, error) {
	return t.target, nil
}

func (t *SingletonTarget) Release(interface{}) error {
	return nil
}

func (t *SingletonTarget) IsStatic() bool {
	return true
}

func (t *SingletonTarget) Identity() string {
	return "singleton:" + IdentityOf(t.target)
}

// PrototypeTarget gets a new component from the factory for every call and
// destroys it on release when it is Destroyable.
type PrototypeTarget struct {
	factory types.ListableFactory
	name    string
}

// NewPrototypeTarget creates a provider of the prototype component name.
func NewPrototypeTarget(factory types.ListableFactory, name string) (*PrototypeTarget, error) {
	if !factory.IsPrototype(name) {
		return nil, types.NewConfigurationError(name, "prototype target", "component is not a prototype")
	}
	return &PrototypeTarget{factory: factory, name: name}, nil
}

func (t *PrototypeTarget) TargetType() reflect.Type {
	return t.factory.Type(t.name)
}

func (t *PrototypeTarget) Get() (interface{}, error) {
	return t.factory.GetComponent(t.name)
}

func (t *PrototypeTarget) Release(target interface{}) error {
	if d, ok := target.(types.Destroyable); ok {
		return d.Destroy()
	}
	return nil
}

func (t *PrototypeTarget) IsStatic() bool {
	return false
}

func (t *PrototypeTarget) Identity() string {
	return "prototype:" + t.name
}

// PooledTarget lends prototype components from a bounded pool. At most Max
// targets exist at a time; Get fails with types.ErrPoolExhausted when all are lent.
type PooledTarget struct {
	factory types.ListableFactory
	name    string
	max     int
	idle    chan interface{}
	created atomic.Int64
	mu      sync.Mutex
	closed  bool
}

// NewPooledTarget creates a pool of at most max components of the prototype name.
func NewPooledTarget(factory types.ListableFactory, name string, max int) (*PooledTarget, error) {
	if max <= 0 {
		return nil, types.NewConfigurationError(name, "pooled target", fmt.Sprintf("invalid pool size %d", max))
	}
	if !factory.IsPrototype(name) {
		return nil, types.NewConfigurationError(name, "pooled target", "component is not a prototype")
	}
	return &PooledTarget{
		factory: factory,
		name:    name,
		max:     max,
		idle:    make(chan interface{}, max),
	}, nil
}

func (t *PooledTarget) TargetType() reflect.Type {
	return t.factory.Type(t.name)
}

func (t *PooledTarget) Get() (interface{}, error) {
	select {
	case target := <-t.idle:
		return target, nil
	default:
	}
	if n := t.created.Inc(); n > int64(t.max) {
		t.created.Dec()
		return nil, fmt.Errorf("%s: %w", t.name, types.ErrPoolExhausted)
	}
	target, err := t.factory.GetComponent(t.name)
	if err != nil {
		t.created.Dec()
		return nil, err
	}
	return target, nil
}

// Release returns target to the pool. Targets released after Close are destroyed.
func (t *PooledTarget) Release(target interface{}) error {
	// held across the send so that Close drains every target pooled before it
	t.mu.Lock()
	if !t.closed {
		select {
		case t.idle <- target:
			t.mu.Unlock()
			return nil
		default:
		}
	}
	t.mu.Unlock()
	t.created.Dec()
	if d, ok := target.(types.Destroyable); ok {
		return d.Destroy()
	}
	return nil
}

func (t *PooledTarget) IsStatic() bool {
	return false
}

func (t *PooledTarget) Identity() string {
	return fmt.Sprintf("pooled:%s/%d", t.name, t.max)
}

// Created returns the number of live targets, idle or lent.
func (t *PooledTarget) Created() int {
	return int(t.created.Load())
}

// Idle returns the number of targets waiting in the pool.
func (t *PooledTarget) Idle() int {
	return len(t.idle)
}

// Close destroys the idle targets. Lent targets are destroyed on release.
func (t *PooledTarget) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	var err error
	for {
		select {
		case target := <-t.idle:
			t.created.Dec()
			if d, ok := target.(types.Destroyable); ok {
				err = multierr.Append(err, d.Destroy())
			}
		default:
			return err
		}
	}
}

// EmptyTarget is the provider of proxies without target. Such proxies answer
// every operation through their advice.
var EmptyTarget types.TargetProvider = &emptyTarget{}

// NewEmptyTarget returns an empty provider reporting targetType.
func NewEmptyTarget(targetType reflect.Type) types.TargetProvider {
	return &emptyTarget{targetType: targetType}
}

type emptyTarget struct {
	targetType reflect.Type
}

func (t *emptyTarget) TargetType() reflect.Type {
	return t.targetType
}

func (t *emptyTarget) Get() (interface{}, error) {
	return nil, nil
}

func (t *emptyTarget) Release(interface{}) error {
	return nil
}

func (t *emptyTarget) IsStatic() bool {
	return true
}

func (t *emptyTarget) Identity() string {
	return "empty:" + types.TypeName(t.targetType)
}

// IsEmptyTarget reports whether provider is an empty provider.
func IsEmptyTarget(provider types.TargetProvider) bool {
	_, ok := provider.(*emptyTarget)
	return ok
}
