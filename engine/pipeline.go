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
	"errors"
	"reflect"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/runtime"
)

const (
	phaseRegistryHook = "registry extension"
	phaseFactoryHook  = "factory extension"
	phaseLookup       = "extension lookup"
)

// InvokeFactoryExtensions runs the directly supplied extensions and every
// extension registered in factory, in this order:
//
//  1. registry hooks of the supplied RegistryExtensions, in supplied order;
//  2. registry hooks of the registered RegistryExtensions: PriorityOrdered
//     ones, then Ordered ones, then the rest, rescanning until no new
//     registry extension appears;
//  3. factory hooks of the registry extensions of steps 1 and 2, in the same
//     order, then of the supplied plain extensions;
//  4. factory hooks of the remaining registered FactoryExtensions by tier,
//     each tier being created after the hooks of the previous one ran.
//
// Steps 1 and 2 are skipped when factory is not a DefinitionRegistry, the
// supplied extensions then only get their factory hook. Within a tier,
// extensions run by ascending order, ties keeping discovery order. The
// first failing hook aborts the pipeline with a *types.ConfigurationError.
// The metadata cache of factory is cleared at the end.
func InvokeFactoryExtensions(factory types.ConfigurableFactory, extensions []types.FactoryExtension, logger types.Logger) error {
	if logger == nil {
		logger = factory.Config().Logger
	}
	p := &pipeline{
		factory:   factory,
		logger:    logger,
		processed: mapset.NewThreadUnsafeSet[string](),
	}
	return p.run(extensions)
}

type pipeline struct {
	factory types.ConfigurableFactory
	logger  types.Logger
	// processed holds the names of the registry extensions already invoked.
	processed mapset.Set[string]
	seq       int
}

func (p *pipeline) run(extensions []types.FactoryExtension) error {
	if registry, ok := p.factory.(types.DefinitionRegistry); ok {
		var registryExtensions []extensionRecord
		var regular []extensionRecord
		for _, ext := range extensions {
			record := p.record("", ext)
			if re, ok := ext.(types.RegistryExtension); ok {
				if err := p.invokeRegistryHook(record, re, registry); err != nil {
					return err
				}
				registryExtensions = append(registryExtensions, record)
			} else {
				regular = append(regular, record)
			}
		}

		// PriorityOrdered first, then Ordered, then every other registry extension.
		current, err := p.scanRegistryExtensions(func(name string) bool {
			return p.factory.IsTypeMatch(name, types.PriorityOrderedType)
		})
		if err != nil {
			return err
		}
		if err := p.invokeRegistryHooks(current, registry); err != nil {
			return err
		}
		registryExtensions = append(registryExtensions, current...)

		current, err = p.scanRegistryExtensions(func(name string) bool {
			return p.factory.IsTypeMatch(name, types.OrderedType)
		})
		if err != nil {
			return err
		}
		if err := p.invokeRegistryHooks(current, registry); err != nil {
			return err
		}
		registryExtensions = append(registryExtensions, current...)

		// registry extensions may register further registry extensions
		for {
			current, err = p.scanRegistryExtensions(func(string) bool { return true })
			if err != nil {
				return err
			}
			if len(current) == 0 {
				break
			}
			if err := p.invokeRegistryHooks(current, registry); err != nil {
				return err
			}
			registryExtensions = append(registryExtensions, current...)
		}

		if err := p.invokeFactoryHooks(registryExtensions); err != nil {
			return err
		}
		if err := p.invokeFactoryHooks(regular); err != nil {
			return err
		}
	} else {
		records := make([]extensionRecord, 0, len(extensions))
		for _, ext := range extensions {
			records = append(records, p.record("", ext))
		}
		if err := p.invokeFactoryHooks(records); err != nil {
			return err
		}
	}

	// classified by definition type so a tier is only created once the
	// hooks of the previous tiers have run
	var priorityNames, orderedNames, unorderedNames []string
	for _, name := range p.factory.NamesForType(types.FactoryExtensionType, true) {
		if p.processed.Contains(name) {
			continue
		}
		switch {
		case p.factory.IsTypeMatch(name, types.PriorityOrderedType):
			priorityNames = append(priorityNames, name)
		case p.factory.IsTypeMatch(name, types.OrderedType):
			orderedNames = append(orderedNames, name)
		default:
			unorderedNames = append(unorderedNames, name)
		}
	}
	for _, names := range [][]string{priorityNames, orderedNames, unorderedNames} {
		p.factory.ClearMetadataCache()
		records := make([]extensionRecord, 0, len(names))
		for _, name := range names {
			record, err := p.lookup(name)
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		sortRecords(records)
		if err := p.invokeFactoryHooks(records); err != nil {
			return err
		}
	}

	p.factory.ClearMetadataCache()
	return nil
}

// scanRegistryExtensions looks up the registered registry extensions not
// processed yet that satisfy accept, marks them processed and returns them sorted.
func (p *pipeline) scanRegistryExtensions(accept func(name string) bool) ([]extensionRecord, error) {
	var current []extensionRecord
	for _, name := range p.factory.NamesForType(types.RegistryExtensionType, true) {
		if p.processed.Contains(name) || !accept(name) {
			continue
		}
		record, err := p.lookup(name)
		if err != nil {
			return nil, err
		}
		p.processed.Add(name)
		current = append(current, record)
	}
	sortRecords(current)
	return current, nil
}

func (p *pipeline) record(name string, instance interface{}) extensionRecord {
	r := newRecord(name, instance, p.seq)
	p.seq++
	return r
}

func (p *pipeline) lookup(name string) (extensionRecord, error) {
	instance, err := p.factory.GetComponent(name)
	if err != nil {
		return extensionRecord{}, &types.ConfigurationError{
			Component: name,
			Phase:     phaseLookup,
			Reason:    "cannot create extension",
			Cause:     err,
		}
	}
	return p.record(name, instance), nil
}

func (p *pipeline) invokeRegistryHooks(records []extensionRecord, registry types.DefinitionRegistry) error {
	for _, record := range records {
		re, ok := record.instance.(types.RegistryExtension)
		if !ok {
			return &types.ConfigurationError{
				Component: record.label(),
				Phase:     phaseRegistryHook,
				Reason:    "component is not a registry extension: " + reflect.TypeOf(record.instance).String(),
			}
		}
		if err := p.invokeRegistryHook(record, re, registry); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipeline) invokeRegistryHook(record extensionRecord, re types.RegistryExtension, registry types.DefinitionRegistry) error {
	p.logger.Debugf("invoking %s %s (tier=%s, order=%d)", phaseRegistryHook, record.label(), record.tier, record.order)
	if err := runtime.Recover(func() error { return re.PostProcessRegistry(registry) }); err != nil {
		return p.hookError(record, phaseRegistryHook, err)
	}
	return nil
}

func (p *pipeline) invokeFactoryHooks(records []extensionRecord) error {
	for _, record := range records {
		fe, ok := record.instance.(types.FactoryExtension)
		if !ok {
			return &types.ConfigurationError{
				Component: record.label(),
				Phase:     phaseFactoryHook,
				Reason:    "component is not a factory extension: " + reflect.TypeOf(record.instance).String(),
			}
		}
		p.logger.Debugf("invoking %s %s (tier=%s, order=%d)", phaseFactoryHook, record.label(), record.tier, record.order)
		if err := runtime.Recover(func() error { return fe.PostProcessFactory(p.factory) }); err != nil {
			return p.hookError(record, phaseFactoryHook, err)
		}
	}
	return nil
}

func (p *pipeline) hookError(record extensionRecord, phase string, err error) error {
	reason := "hook failed"
	var pe *runtime.PanicError
	if errors.As(err, &pe) {
		reason = "hook panicked"
		p.logger.Errorf("%s %s panicked: %v\n%s", phase, record.label(), pe.Value, pe.Stack)
	}
	return &types.ConfigurationError{
		Component: record.label(),
		Phase:     phase,
		Reason:    reason,
		Cause:     err,
	}
}
