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

package test

import (
	"github.com/rulego/weave/api/types"
)

// Extension is a FactoryExtension recording "<Name>.factory" in its journal.
type Extension struct {
	Name    string
	Journal *Journal
	// Err is returned by every hook.
	Err error
	// Panic, when set, is the value every hook panics with.
	Panic interface{}
	// OnFactory runs after the factory hook is recorded.
	OnFactory func(factory types.ConfigurableFactory) error
}

func (e *Extension) PostProcessFactory(factory types.ConfigurableFactory) error {
	e.Journal.Record(e.Name + ".factory")
	if e.Panic != nil {
		panic(e.Panic)
	}
	if e.OnFactory != nil {
		if err := e.OnFactory(factory); err != nil {
			return err
		}
	}
	return e.Err
}

// OrderedExtension is an Ordered Extension.
type OrderedExtension struct {
	Extension
	Ord int
}

func (e *OrderedExtension) Order() int {
	return e.Ord
}

// ConfigurableExtension is an OrderedExtension keeping the configuration it
// was initialized with.
type ConfigurableExtension struct {
	OrderedExtension
	Configuration types.Configuration
}

func (e *ConfigurableExtension) Init(config types.Config, configuration types.Configuration) error {
	e.Configuration = configuration
	return nil
}

// PriorityExtension is a PriorityOrdered Extension.
type PriorityExtension struct {
	OrderedExtension
}

func (e *PriorityExtension) PriorityOrdered() {}

// RegistryExtension is a RegistryExtension recording "<Name>.registry" and "<Name>.factory".
type RegistryExtension struct {
	Extension
	// OnRegistry runs after the registry hook is recorded, typically to register definitions.
	OnRegistry func(registry types.DefinitionRegistry) error
}

func (e *RegistryExtension) PostProcessRegistry(registry types.DefinitionRegistry) error {
	e.Journal.Record(e.Name + ".registry")
	if e.Panic != nil {
		panic(e.Panic)
	}
	if e.OnRegistry != nil {
		if err := e.OnRegistry(registry); err != nil {
			return err
		}
	}
	return e.Err
}

// OrderedRegistryExtension is an Ordered RegistryExtension.
type OrderedRegistryExtension struct {
	RegistryExtension
	Ord int
}

func (e *OrderedRegistryExtension) Order() int {
	return e.Ord
}

// PriorityRegistryExtension is a PriorityOrdered RegistryExtension.
type PriorityRegistryExtension struct {
	OrderedRegistryExtension
}

func (e *PriorityRegistryExtension) PriorityOrdered() {}

// Processor is a ComponentProcessor recording "<Name>.after:<component>".
type Processor struct {
	Name    string
	Journal *Journal
	// Replace, when set, substitutes the component after init.
	Replace func(component interface{}, name string) interface{}
}

func (p *Processor) PostProcessBeforeInit(component interface{}, name string) (interface{}, error) {
	return component, nil
}

func (p *Processor) PostProcessAfterInit(component interface{}, name string) (interface{}, error) {
	p.Journal.Record(p.Name + ".after:" + name)
	if p.Replace != nil {
		return p.Replace(component, name), nil
	}
	return component, nil
}

// OrderedProcessor is an Ordered Processor.
type OrderedProcessor struct {
	Processor
	Ord int
}

func (p *OrderedProcessor) Order() int {
	return p.Ord
}

// PriorityProcessor is a PriorityOrdered Processor.
type PriorityProcessor struct {
	OrderedProcessor
}

func (p *PriorityProcessor) PriorityOrdered() {}

// MergedProcessor is an Ordered MergedDefinitionProcessor.
type MergedProcessor struct {
	OrderedProcessor
}

func (p *MergedProcessor) PostProcessMergedDefinition(def *types.Definition, name string) {
	p.Journal.Record(p.Name + ".merged:" + name)
}
