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

package extension

import (
	"github.com/rulego/weave/api/types"
)

// FactoryFunc adapts a function to types.FactoryExtension.
type FactoryFunc func(factory types.ConfigurableFactory) error

func (f FactoryFunc) PostProcessFactory(factory types.ConfigurableFactory) error {
	return f(factory)
}

// RegistryFunc adapts a function to types.RegistryExtension. Its factory hook does nothing.
type RegistryFunc func(registry types.DefinitionRegistry) error

func (f RegistryFunc) PostProcessRegistry(registry types.DefinitionRegistry) error {
	return f(registry)
}

func (f RegistryFunc) PostProcessFactory(types.ConfigurableFactory) error {
	return nil
}

type ordered struct {
	types.FactoryExtension
	order int
}

func (o *ordered) Order() int {
	return o.order
}

type orderedRegistry struct {
	types.RegistryExtension
	order int
}

func (o *orderedRegistry) Order() int {
	return o.order
}

type priority struct {
	ordered
}

func (p *priority) PriorityOrdered() {}

type priorityRegistry struct {
	orderedRegistry
}

func (p *priorityRegistry) PriorityOrdered() {}

// Ordered returns ext as an Ordered extension of the given order.
// A RegistryExtension stays one.
func Ordered(ext types.FactoryExtension, order int) types.FactoryExtension {
	if r, ok := ext.(types.RegistryExtension); ok {
		return &orderedRegistry{RegistryExtension: r, order: order}
	}
	return &ordered{FactoryExtension: ext, order: order}
}

// Priority returns ext as a PriorityOrdered extension of the given order.
// A RegistryExtension stays one.
func Priority(ext types.FactoryExtension, order int) types.FactoryExtension {
	if r, ok := ext.(types.RegistryExtension); ok {
		return &priorityRegistry{orderedRegistry{RegistryExtension: r, order: order}}
	}
	return &priority{ordered{FactoryExtension: ext, order: order}}
}
