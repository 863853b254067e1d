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

// Package weave is a component container with aspect-oriented interception.
//
// Components are registered as definitions. Refresh runs the factory
// extensions, registers the component processors and creates the singletons.
// With Config.AutoProxy, every component matched by an aspect or an advisor
// is replaced by a proxy applying the advice to its operations.
//
// Register components and aspects
//
//	c := weave.New(types.WithAutoProxy(true))
//	_ = c.Register(
//		types.NewDefinition("users", &UserService{}),
//		types.NewDefinition("limiter", &aspect.Limiter{}).WithProperties(types.Configuration{
//			"max":      100,
//			"pointcut": `owner == "UserService"`,
//		}),
//	)
//	if err := c.Refresh(); err != nil {
//		...
//	}
//	defer c.Close()
//
// Call an operation through the proxy
//
//	users, err := weave.GetAs[types.Invoker](c, "users")
//	name, err := users.Invoke(ctx, QueryOp, 1)
package weave

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/weave/aop/aspect"
	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/builtin/extension"
	"github.com/rulego/weave/engine"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

const (
	stateNew int32 = iota
	stateRefreshing
	stateRefreshed
	stateClosed
)

// Container owns a factory and drives its lifecycle.
type Container struct {
	id      string
	config  types.Config
	factory *engine.DefaultFactory

	mu         sync.Mutex
	extensions []types.FactoryExtension
	state      atomic.Int32
}

// New creates a container with a generated ID.
func New(opts ...types.Option) *Container {
	return NewWithID("", opts...)
}

// NewWithID creates a container. An empty id gets a generated one.
func NewWithID(id string, opts ...types.Option) *Container {
	if id == "" {
		id = uuid.Must(uuid.NewV4()).String()
	}
	config := types.NewConfig(opts...)
	return &Container{
		id:      id,
		config:  config,
		factory: engine.NewDefaultFactory(config),
	}
}

func (c *Container) ID() string {
	return c.id
}

func (c *Container) Config() types.Config {
	return c.config
}

// Factory returns the underlying factory.
func (c *Container) Factory() *engine.DefaultFactory {
	return c.factory
}

// Register registers definitions. Prototype definitions may still be
// registered after Refresh; singletons registered then are created lazily.
func (c *Container) Register(defs ...*types.Definition) error {
	if c.state.Load() == stateClosed {
		return types.ErrContainerClosed
	}
	for _, def := range defs {
		if err := c.factory.RegisterDefinition(def); err != nil {
			return err
		}
	}
	return nil
}

// AddExtension supplies an extension invoked at Refresh before the
// registered ones.
func (c *Container) AddExtension(extensions ...types.FactoryExtension) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state := c.state.Load(); state != stateNew {
		return fmt.Errorf("add extension: container %s is already refreshed or closed", c.id)
	}
	c.extensions = append(c.extensions, extensions...)
	return nil
}

// UseBuiltin supplies the builtin extensions of names, see extension.Builtins.
func (c *Container) UseBuiltin(names ...string) error {
	for _, name := range names {
		ext, err := extension.Builtins.New(name)
		if err != nil {
			return err
		}
		if err := c.AddExtension(ext); err != nil {
			return err
		}
	}
	return nil
}

// Refresh runs the factory extensions, registers the component processors
// and creates the non-lazy singletons. On failure the singletons created so
// far are destroyed and the container cannot be refreshed again.
func (c *Container) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state.Load() {
	case stateClosed:
		return types.ErrContainerClosed
	case stateRefreshed:
		return fmt.Errorf("container %s is already refreshed", c.id)
	}
	c.state.Store(stateRefreshing)
	logger := c.config.Logger

	if err := c.refresh(); err != nil {
		logger.Errorf("refresh container %s error: %v", c.id, err)
		if destroyErr := c.factory.DestroySingletons(); destroyErr != nil {
			err = multierr.Append(err, destroyErr)
		}
		c.state.Store(stateClosed)
		return err
	}
	c.state.Store(stateRefreshed)
	logger.Infof("container %s refreshed: %d definitions, %d component processors",
		c.id, c.factory.DefinitionCount(), c.factory.ComponentProcessorCount())
	return nil
}

func (c *Container) refresh() error {
	logger := c.config.Logger
	if c.config.AutoProxy {
		if err := aspect.RegisterAutoProxyCreatorIfNecessary(c.factory, c.config.ExposeProxy); err != nil {
			return err
		}
	}
	if err := engine.InvokeFactoryExtensions(c.factory, c.extensions, logger); err != nil {
		return err
	}
	if err := engine.RegisterComponentProcessors(c.factory, logger); err != nil {
		return err
	}
	return c.factory.PreInstantiateSingletons()
}

// Get returns the component of name, a proxy when advice applies to it.
func (c *Container) Get(name string) (interface{}, error) {
	switch c.state.Load() {
	case stateClosed:
		return nil, types.ErrContainerClosed
	case stateNew:
		return nil, types.ErrContainerNotRefreshed
	}
	return c.factory.GetComponent(name)
}

// GetAs returns the component of name as a T.
func GetAs[T any](c *Container, name string) (T, error) {
	var zero T
	component, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	t, ok := component.(T)
	if !ok {
		return zero, fmt.Errorf("component %q of type %T is not a %v", name, component, reflect.TypeOf((*T)(nil)).Elem())
	}
	return t, nil
}

// Invoke calls op on the component of name, which must be a types.Invoker.
func (c *Container) Invoke(ctx context.Context, name string, op types.Operation, args ...interface{}) (interface{}, error) {
	invoker, err := GetAs[types.Invoker](c, name)
	if err != nil {
		return nil, err
	}
	return invoker.Invoke(ctx, op, args...)
}

// Refreshed reports whether Refresh succeeded and Close was not called.
func (c *Container) Refreshed() bool {
	return c.state.Load() == stateRefreshed
}

// Close destroys the singletons in reverse creation order. Every
// Destroyable is called and the errors are combined.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Swap(stateClosed) == stateClosed {
		return nil
	}
	err := c.factory.DestroySingletons()
	c.config.Logger.Infof("container %s closed", c.id)
	return err
}
