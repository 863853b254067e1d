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
	"github.com/rulego/weave/api/types"
)

// RegisterComponentProcessors creates the registered ComponentProcessors and
// adds them to factory: PriorityOrdered ones, then Ordered ones, then the
// rest, each tier sorted by order. MergedDefinitionProcessors are registered
// once more at the end so that they run last. A checker processor added first
// logs the components created before every processor was registered.
func RegisterComponentProcessors(factory types.ConfigurableFactory, logger types.Logger) error {
	if logger == nil {
		logger = factory.Config().Logger
	}
	names := factory.NamesForType(types.ComponentProcessorType, true)

	// the checker itself counts as one processor
	target := factory.ComponentProcessorCount() + 1 + len(names)
	factory.AddComponentProcessor(&processorChecker{factory: factory, logger: logger, target: target})

	var priority, ordered, unordered, internal []extensionRecord
	seq := 0
	create := func(name string) (extensionRecord, error) {
		instance, err := factory.GetComponent(name)
		if err != nil {
			return extensionRecord{}, &types.ConfigurationError{
				Component: name,
				Phase:     "processor registration",
				Reason:    "cannot create component processor",
				Cause:     err,
			}
		}
		r := newRecord(name, instance, seq)
		seq++
		if _, ok := instance.(types.MergedDefinitionProcessor); ok {
			internal = append(internal, r)
		}
		return r, nil
	}

	var orderedNames, unorderedNames []string
	for _, name := range names {
		switch {
		case factory.IsTypeMatch(name, types.PriorityOrderedType):
			r, err := create(name)
			if err != nil {
				return err
			}
			priority = append(priority, r)
		case factory.IsTypeMatch(name, types.OrderedType):
			orderedNames = append(orderedNames, name)
		default:
			unorderedNames = append(unorderedNames, name)
		}
	}
	sortRecords(priority)
	if err := register(factory, logger, priority); err != nil {
		return err
	}

	for _, name := range orderedNames {
		r, err := create(name)
		if err != nil {
			return err
		}
		ordered = append(ordered, r)
	}
	sortRecords(ordered)
	if err := register(factory, logger, ordered); err != nil {
		return err
	}

	for _, name := range unorderedNames {
		r, err := create(name)
		if err != nil {
			return err
		}
		unordered = append(unordered, r)
	}
	if err := register(factory, logger, unordered); err != nil {
		return err
	}

	sortRecords(internal)
	return register(factory, logger, internal)
}

func register(factory types.ConfigurableFactory, logger types.Logger, records []extensionRecord) error {
	for _, r := range records {
		p, ok := r.instance.(types.ComponentProcessor)
		if !ok {
			return types.NewConfigurationError(r.label(), "processor registration", "component is not a component processor")
		}
		logger.Debugf("registering component processor %s (tier=%s, order=%d)", r.label(), r.tier, r.order)
		factory.AddComponentProcessor(p)
	}
	return nil
}

// processorChecker logs components created while the processors are still
// being registered. Such components, usually the processors' own
// dependencies, miss the processors registered after them, auto-proxying included.
type processorChecker struct {
	factory types.ConfigurableFactory
	logger  types.Logger
	target  int
}

func (c *processorChecker) PostProcessBeforeInit(component interface{}, name string) (interface{}, error) {
	return component, nil
}

func (c *processorChecker) PostProcessAfterInit(component interface{}, name string) (interface{}, error) {
	if _, ok := component.(types.ComponentProcessor); ok {
		return component, nil
	}
	if c.factory.ComponentProcessorCount() >= c.target {
		return component, nil
	}
	if def, err := c.factory.MergedDefinition(name); err == nil && def.Role == types.RoleInfrastructure {
		return component, nil
	}
	c.logger.Infof("[%s] component %s of type %T is not eligible for getting processed by all component processors",
		types.ProcessorCheckerName, name, component)
	return component, nil
}
