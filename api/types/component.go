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
	"fmt"
	"reflect"
)

// Scope of a component definition.
type Scope string

const (
	// ScopeSingleton components are created once and cached by the factory.
	ScopeSingleton Scope = "singleton"
	// ScopePrototype components are created on every lookup.
	ScopePrototype Scope = "prototype"
)

// Role of a component definition.
type Role int

const (
	// RoleApplication is a component written by the user of the container.
	RoleApplication Role = iota
	// RoleInfrastructure is a component supporting the container itself.
	// Infrastructure components are never auto-proxied.
	RoleInfrastructure
)

// FactoryFunc creates a component instance.
type FactoryFunc func() (interface{}, error)

// Definition describes how a component is created.
type Definition struct {
	// Name is the unique component name. An empty name gets a generated one.
	Name string
	// Type is the type of the instances created by the definition.
	// It is used for type lookups before any instance exists.
	Type reflect.Type
	// Scope defaults to ScopeSingleton.
	Scope Scope
	// Role defaults to RoleApplication.
	Role Role
	// Factory creates the instance. When nil, a zero value of Type is allocated,
	// Type must then be a pointer to a struct.
	Factory FactoryFunc
	// Properties are passed to Configurable.Init.
	Properties Configuration
	// Lazy singletons are not created by PreInstantiateSingletons.
	Lazy bool
}

// NewDefinition creates a singleton definition for the type of prototype.
// prototype is only used for its type, instances are allocated per definition scope.
func NewDefinition(name string, prototype interface{}) *Definition {
	return &Definition{
		Name:  name,
		Type:  reflect.TypeOf(prototype),
		Scope: ScopeSingleton,
	}
}

// NewInstanceDefinition creates a singleton definition that always returns instance.
func NewInstanceDefinition(name string, instance interface{}) *Definition {
	return &Definition{
		Name:  name,
		Type:  reflect.TypeOf(instance),
		Scope: ScopeSingleton,
		Factory: func() (interface{}, error) {
			return instance, nil
		},
	}
}

// WithScope sets the scope and returns the definition.
func (d *Definition) WithScope(scope Scope) *Definition {
	d.Scope = scope
	return d
}

// WithRole sets the role and returns the definition.
func (d *Definition) WithRole(role Role) *Definition {
	d.Role = role
	return d
}

// WithProperties sets the properties and returns the definition.
func (d *Definition) WithProperties(properties Configuration) *Definition {
	d.Properties = properties
	return d
}

// WithFactory sets the factory function and returns the definition.
func (d *Definition) WithFactory(factory FactoryFunc) *Definition {
	d.Factory = factory
	return d
}

// IsSingleton reports whether the definition has singleton scope.
func (d *Definition) IsSingleton() bool {
	return d.Scope == "" || d.Scope == ScopeSingleton
}

// IsPrototype reports whether the definition has prototype scope.
func (d *Definition) IsPrototype() bool {
	return d.Scope == ScopePrototype
}

// Validate checks that the definition can create instances.
func (d *Definition) Validate() error {
	if d.Type == nil {
		return fmt.Errorf("definition %q has no type", d.Name)
	}
	if d.Scope != "" && d.Scope != ScopeSingleton && d.Scope != ScopePrototype {
		return fmt.Errorf("definition %q has unknown scope %q", d.Name, d.Scope)
	}
	if d.Factory == nil && (d.Type.Kind() != reflect.Ptr || d.Type.Elem().Kind() != reflect.Struct) {
		return fmt.Errorf("definition %q needs a factory, type %v is not a pointer to struct", d.Name, d.Type)
	}
	return nil
}

// Copy returns a copy of the definition with its own properties map.
func (d *Definition) Copy() *Definition {
	c := *d
	if d.Properties != nil {
		c.Properties = make(Configuration, len(d.Properties))
		for k, v := range d.Properties {
			c.Properties[k] = v
		}
	}
	return &c
}

// Matches reports whether instances of the definition can be used as t.
func (d *Definition) Matches(t reflect.Type) bool {
	if d.Type == nil || t == nil {
		return false
	}
	if t == AnyType {
		return true
	}
	if t.Kind() == reflect.Interface {
		return d.Type.Implements(t)
	}
	return d.Type.AssignableTo(t)
}
