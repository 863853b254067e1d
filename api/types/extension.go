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

package types

import (
	"math"
	"reflect"
)

const (
	// HighestPrecedence is the smallest order value.
	HighestPrecedence = math.MinInt
	// LowestPrecedence is the order value of unordered objects.
	LowestPrecedence = math.MaxInt
)

// Ordered objects are sorted by ascending order value.
type Ordered interface {
	// Order returns the execution order, the smaller the value, the higher the priority.
	Order() int
}

// PriorityOrdered marks ordered objects that run before every plain Ordered one.
type PriorityOrdered interface {
	Ordered
	PriorityOrdered()
}

// FactoryExtension mutates the assembled factory before any application
// component is created.
type FactoryExtension interface {
	PostProcessFactory(factory ConfigurableFactory) error
}

// RegistryExtension is a FactoryExtension that also mutates the registry.
// Its registry hook runs before every factory hook, and it may register
// further extensions.
type RegistryExtension interface {
	FactoryExtension
	PostProcessRegistry(registry DefinitionRegistry) error
}

var (
	// FactoryExtensionType is the reflect.Type of FactoryExtension.
	FactoryExtensionType = reflect.TypeOf((*FactoryExtension)(nil)).Elem()
	// RegistryExtensionType is the reflect.Type of RegistryExtension.
	RegistryExtensionType = reflect.TypeOf((*RegistryExtension)(nil)).Elem()
	// ComponentProcessorType is the reflect.Type of ComponentProcessor.
	ComponentProcessorType = reflect.TypeOf((*ComponentProcessor)(nil)).Elem()
	// MergedDefinitionProcessorType is the reflect.Type of MergedDefinitionProcessor.
	MergedDefinitionProcessorType = reflect.TypeOf((*MergedDefinitionProcessor)(nil)).Elem()
	// OrderedType is the reflect.Type of Ordered.
	OrderedType = reflect.TypeOf((*Ordered)(nil)).Elem()
	// PriorityOrderedType is the reflect.Type of PriorityOrdered.
	PriorityOrderedType = reflect.TypeOf((*PriorityOrdered)(nil)).Elem()
)

// OrderOf returns the order value of v, LowestPrecedence when v is not Ordered.
func OrderOf(v interface{}) int {
	if o, ok := v.(Ordered); ok {
		return o.Order()
	}
	return LowestPrecedence
}
