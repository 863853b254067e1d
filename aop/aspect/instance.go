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
	"fmt"
	"reflect"
	"sync"

	"github.com/rulego/weave/api/types"
)

var (
	_ types.AspectInstanceFactory = (*ComponentInstanceFactory)(nil)
	_ types.AspectInstanceFactory = (*LazySingletonInstanceFactory)(nil)
	_ types.AspectInstanceFactory = (*SingletonInstanceFactory)(nil)
)

// ComponentInstanceFactory gets the aspect instance from the container on
// every call. For a singleton component this is always the same instance.
type ComponentInstanceFactory struct {
	factory    types.ListableFactory
	name       string
	aspectType reflect.Type
	order      int
}

// NewComponentInstanceFactory creates a factory of the aspect component name.
func NewComponentInstanceFactory(factory types.ListableFactory, name string, aspectType reflect.Type, metadata types.AspectMetadata) *ComponentInstanceFactory {
	return &ComponentInstanceFactory{factory: factory, name: name, aspectType: aspectType, order: metadata.Order}
}

func (f *ComponentInstanceFactory) AspectInstance() (interface{}, error) {
	return f.factory.GetComponent(f.name)
}

func (f *ComponentInstanceFactory) AspectName() string {
	return f.name
}

func (f *ComponentInstanceFactory) AspectType() reflect.Type {
	return f.aspectType
}

// Order returns the order of the aspect when its type is Ordered, the order
// of the aspect metadata otherwise. Only a singleton component is asked for
// its order; other components are not created, their zero value is asked.
func (f *ComponentInstanceFactory) Order() int {
	if f.aspectType == nil || !f.aspectType.Implements(types.OrderedType) {
		return f.order
	}
	if f.factory.IsSingleton(f.name) {
		if instance, err := f.AspectInstance(); err == nil {
			return types.OrderOf(instance)
		}
		return f.order
	}
	if zero := zeroValue(f.aspectType); zero != nil {
		return types.OrderOf(zero)
	}
	return f.order
}

// zeroValue returns a zero instance of t, nil when t has none usable.
func zeroValue(t reflect.Type) interface{} {
	switch {
	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct:
		return reflect.New(t.Elem()).Interface()
	case t.Kind() != reflect.Ptr && t.Kind() != reflect.Interface:
		return reflect.Zero(t).Interface()
	default:
		return nil
	}
}

// NewPrototypeInstanceFactory creates a factory returning a new instance of
// the prototype aspect component name on every call.
func NewPrototypeInstanceFactory(factory types.ListableFactory, name string, aspectType reflect.Type, metadata types.AspectMetadata) (*ComponentInstanceFactory, error) {
	if !factory.IsPrototype(name) {
		return nil, types.NewConfigurationError(name, "aspect resolution",
			"cannot use a per-call aspect instance factory with a component that is not a prototype")
	}
	return NewComponentInstanceFactory(factory, name, aspectType, metadata), nil
}

// LazySingletonInstanceFactory gets the aspect instance from its delegate
// on first use and keeps it. A failed attempt is retried on the next call.
type LazySingletonInstanceFactory struct {
	delegate types.AspectInstanceFactory
	mu       sync.Mutex
	instance interface{}
}

// NewLazySingletonInstanceFactory wraps delegate.
func NewLazySingletonInstanceFactory(delegate types.AspectInstanceFactory) *LazySingletonInstanceFactory {
	return &LazySingletonInstanceFactory{delegate: delegate}
}

func (f *LazySingletonInstanceFactory) AspectInstance() (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.instance == nil {
		instance, err := f.delegate.AspectInstance()
		if err != nil {
			return nil, err
		}
		f.instance = instance
	}
	return f.instance, nil
}

func (f *LazySingletonInstanceFactory) AspectName() string {
	return f.delegate.AspectName()
}

func (f *LazySingletonInstanceFactory) AspectType() reflect.Type {
	return f.delegate.AspectType()
}

func (f *LazySingletonInstanceFactory) Order() int {
	return f.delegate.Order()
}

// IsMaterialized reports whether the instance has been obtained.
func (f *LazySingletonInstanceFactory) IsMaterialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.instance != nil
}

// SingletonInstanceFactory serves an aspect instance that is not a container component.
type SingletonInstanceFactory struct {
	name     string
	instance interface{}
}

// NewSingletonInstanceFactory creates a factory of instance. An empty name
// defaults to the type name of instance.
func NewSingletonInstanceFactory(name string, instance interface{}) *SingletonInstanceFactory {
	if name == "" {
		name = fmt.Sprintf("%T", instance)
	}
	return &SingletonInstanceFactory{name: name, instance: instance}
}

func (f *SingletonInstanceFactory) AspectInstance() (interface{}, error) {
	return f.instance, nil
}

func (f *SingletonInstanceFactory) AspectName() string {
	return f.name
}

func (f *SingletonInstanceFactory) AspectType() reflect.Type {
	return reflect.TypeOf(f.instance)
}

// Order returns the order of the instance when it is Ordered, the order of its metadata otherwise.
func (f *SingletonInstanceFactory) Order() int {
	if _, ok := f.instance.(types.Ordered); ok {
		return types.OrderOf(f.instance)
	}
	if aspect, ok := f.instance.(types.AspectComponent); ok {
		return aspect.AspectMetadata().Order
	}
	return types.LowestPrecedence
}
