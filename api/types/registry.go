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

import "reflect"

// DefinitionRegistry stores component definitions.
type DefinitionRegistry interface {
	// RegisterDefinition registers def under def.Name, replacing an existing
	// definition when overriding is allowed.
	RegisterDefinition(def *Definition) error
	// RemoveDefinition removes the definition of name.
	RemoveDefinition(name string) error
	// Definition returns the raw definition of name.
	Definition(name string) (*Definition, error)
	// ContainsDefinition reports whether name is registered.
	ContainsDefinition(name string) bool
	// DefinitionNames returns all names in registration order.
	DefinitionNames() []string
	// DefinitionCount returns the number of definitions.
	DefinitionCount() int
}

// ListableFactory looks up components by name and type.
type ListableFactory interface {
	// GetComponent returns the component of name, creating it if needed.
	GetComponent(name string) (interface{}, error)
	// Type returns the type of the component of name, nil if unknown.
	Type(name string) reflect.Type
	// IsSingleton reports whether name is a singleton component.
	IsSingleton(name string) bool
	// IsPrototype reports whether name is a prototype component.
	IsPrototype(name string) bool
	// IsTypeMatch reports whether the component of name can be used as t.
	IsTypeMatch(name string, t reflect.Type) bool
	// NamesForType returns the names of components matching t, in registration order.
	NamesForType(t reflect.Type, includeNonSingletons bool) []string
	// ContainsComponent reports whether name is known as a definition or a registered singleton.
	ContainsComponent(name string) bool
}

// HierarchicalFactory is implemented by factories with a parent.
type HierarchicalFactory interface {
	ParentFactory() ListableFactory
}

// ConfigurableFactory is the fully assembled factory handed to factory extensions.
type ConfigurableFactory interface {
	ListableFactory
	// AddComponentProcessor appends p to the processors applied to new components.
	// A processor already registered is moved to the end.
	AddComponentProcessor(p ComponentProcessor)
	// ComponentProcessorCount returns the number of registered processors.
	ComponentProcessorCount() int
	// MergedDefinition returns the definition of name as used for creation.
	// Merged definitions are cached until ClearMetadataCache.
	MergedDefinition(name string) (*Definition, error)
	// ClearMetadataCache drops merged definitions derived before extensions ran.
	ClearMetadataCache()
	// RegisterSingleton registers a ready-made singleton instance.
	RegisterSingleton(name string, instance interface{}) error
	// PreInstantiateSingletons creates every non-lazy singleton.
	PreInstantiateSingletons() error
	// DestroySingletons destroys the created singletons in reverse creation order.
	DestroySingletons() error
	// Config returns the container configuration.
	Config() Config
}

// ComponentProcessor intercepts component creation. It may return a
// different object, for example a proxy, to be used instead of the component.
type ComponentProcessor interface {
	PostProcessBeforeInit(component interface{}, name string) (interface{}, error)
	PostProcessAfterInit(component interface{}, name string) (interface{}, error)
}

// MergedDefinitionProcessor processors see every merged definition before creation.
// They are registered after all other processors.
type MergedDefinitionProcessor interface {
	ComponentProcessor
	PostProcessMergedDefinition(def *Definition, name string)
}
