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

// Package engine provides the default in-memory component factory and the
// bootstrap pipeline that runs factory extensions and registers component
// processors before any application component is created.
package engine

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/runtime"
)

var (
	_ types.DefinitionRegistry  = (*DefaultFactory)(nil)
	_ types.ConfigurableFactory = (*DefaultFactory)(nil)
	_ types.HierarchicalFactory = (*DefaultFactory)(nil)
)

// DefaultFactory is a DefinitionRegistry and ConfigurableFactory keeping
// definitions in memory, in registration order.
type DefaultFactory struct {
	config types.Config
	parent types.ListableFactory

	mu          sync.RWMutex
	definitions map[string]*types.Definition
	names       []string
	// merged definitions derived so far, dropped by ClearMetadataCache
	merged map[string]*types.Definition
	// instances registered with RegisterSingleton
	manual      map[string]interface{}
	manualNames []string
	processors  []types.ComponentProcessor

	singletons *singletonCache
}

// NewDefaultFactory creates an empty factory.
func NewDefaultFactory(config types.Config) *DefaultFactory {
	if config.Logger == nil {
		config.Logger = types.DefaultLogger()
	}
	return &DefaultFactory{
		config:      config,
		definitions: make(map[string]*types.Definition),
		merged:      make(map[string]*types.Definition),
		manual:      make(map[string]interface{}),
		singletons:  newSingletonCache(),
	}
}

// SetParentFactory sets the factory consulted for names unknown to this one.
func (f *DefaultFactory) SetParentFactory(parent types.ListableFactory) {
	f.parent = parent
}

func (f *DefaultFactory) ParentFactory() types.ListableFactory {
	return f.parent
}

func (f *DefaultFactory) Config() types.Config {
	return f.config
}

// RegisterDefinition registers def. A definition without name gets a
// generated one, written back into def.Name.
func (f *DefaultFactory) RegisterDefinition(def *types.Definition) error {
	if def == nil {
		return errors.New("definition is nil")
	}
	if def.Name == "" {
		def.Name = GenerateName(def)
	}
	if err := def.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.manual[def.Name]; ok {
		return fmt.Errorf("register definition %q: %w", def.Name, types.ErrAlreadyExists)
	}
	if _, ok := f.definitions[def.Name]; ok {
		if !f.config.AllowDefinitionOverriding {
			return fmt.Errorf("register definition %q: %w", def.Name, types.ErrAlreadyExists)
		}
		f.config.Logger.Debugf("overriding definition %s", def.Name)
		f.singletons.remove(def.Name)
	} else {
		f.names = append(f.names, def.Name)
	}
	f.definitions[def.Name] = def
	delete(f.merged, def.Name)
	return nil
}

func (f *DefaultFactory) RemoveDefinition(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.definitions[name]; !ok {
		return fmt.Errorf("remove definition %q: %w", name, types.ErrNotFound)
	}
	delete(f.definitions, name)
	delete(f.merged, name)
	for i, item := range f.names {
		if item == name {
			f.names = append(f.names[:i:i], f.names[i+1:]...)
			break
		}
	}
	f.singletons.remove(name)
	return nil
}

func (f *DefaultFactory) Definition(name string) (*types.Definition, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if def, ok := f.definitions[name]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("definition %q: %w", name, types.ErrNotFound)
}

func (f *DefaultFactory) ContainsDefinition(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.definitions[name]
	return ok
}

func (f *DefaultFactory) DefinitionNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, len(f.names))
	copy(names, f.names)
	return names
}

func (f *DefaultFactory) DefinitionCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.names)
}

// MergedDefinition returns a copy of the definition of name with defaults
// applied. The copy is cached until ClearMetadataCache.
func (f *DefaultFactory) MergedDefinition(name string) (*types.Definition, error) {
	f.mu.RLock()
	if def, ok := f.merged[name]; ok {
		f.mu.RUnlock()
		return def, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if def, ok := f.merged[name]; ok {
		return def, nil
	}
	raw, ok := f.definitions[name]
	if !ok {
		return nil, fmt.Errorf("definition %q: %w", name, types.ErrNotFound)
	}
	def := raw.Copy()
	if def.Scope == "" {
		def.Scope = types.ScopeSingleton
	}
	f.merged[name] = def
	return def, nil
}

func (f *DefaultFactory) ClearMetadataCache() {
	f.mu.Lock()
	f.merged = make(map[string]*types.Definition)
	f.mu.Unlock()
}

// RegisterSingleton registers a ready-made instance. Component processors are
// not applied to it and it is not destroyed by DestroySingletons.
func (f *DefaultFactory) RegisterSingleton(name string, instance interface{}) error {
	if instance == nil {
		return fmt.Errorf("register singleton %q: instance is nil", name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.manual[name]; ok {
		return fmt.Errorf("register singleton %q: %w", name, types.ErrAlreadyExists)
	}
	if f.singletons.contains(name) {
		return fmt.Errorf("register singleton %q: %w", name, types.ErrAlreadyExists)
	}
	f.manual[name] = instance
	f.manualNames = append(f.manualNames, name)
	return nil
}

func (f *DefaultFactory) AddComponentProcessor(p types.ComponentProcessor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reflect.TypeOf(p).Comparable() {
		for i, item := range f.processors {
			if reflect.TypeOf(item).Comparable() && item == p {
				f.processors = append(f.processors[:i:i], f.processors[i+1:]...)
				break
			}
		}
	}
	f.processors = append(f.processors, p)
}

func (f *DefaultFactory) ComponentProcessorCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.processors)
}

// ComponentProcessors returns the registered processors in application order.
func (f *DefaultFactory) ComponentProcessors() []types.ComponentProcessor {
	f.mu.RLock()
	defer f.mu.RUnlock()
	processors := make([]types.ComponentProcessor, len(f.processors))
	copy(processors, f.processors)
	return processors
}

// GetComponent returns the component of name. Singletons are created once;
// prototypes on every call. Unknown names are looked up in the parent factory.
func (f *DefaultFactory) GetComponent(name string) (interface{}, error) {
	f.mu.RLock()
	instance, isManual := f.manual[name]
	f.mu.RUnlock()
	if isManual {
		return instance, nil
	}
	def, err := f.MergedDefinition(name)
	if err != nil {
		if f.parent != nil && errors.Is(err, types.ErrNotFound) {
			return f.parent.GetComponent(name)
		}
		return nil, err
	}
	if def.IsSingleton() {
		return f.singletons.getOrCreate(name, func() (interface{}, interface{}, error) {
			return f.createComponent(name, def)
		})
	}
	component, _, err := f.createComponent(name, def)
	return component, err
}

// createComponent returns the exposed component and the raw instance.
// They differ when a processor substituted the component, for example with a proxy.
func (f *DefaultFactory) createComponent(name string, def *types.Definition) (interface{}, interface{}, error) {
	processors := f.ComponentProcessors()
	for _, p := range processors {
		if mp, ok := p.(types.MergedDefinitionProcessor); ok {
			mp.PostProcessMergedDefinition(def, name)
		}
	}

	var raw interface{}
	err := runtime.Recover(func() error {
		var err error
		if def.Factory != nil {
			raw, err = def.Factory()
		} else {
			raw = reflect.New(def.Type.Elem()).Interface()
		}
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create component %q: %w", name, err)
	}
	if raw == nil {
		return nil, nil, fmt.Errorf("create component %q: factory returned nil", name)
	}

	if aware, ok := raw.(types.NameAware); ok {
		aware.SetName(name)
	}
	if aware, ok := raw.(types.FactoryAware); ok {
		aware.SetFactory(f)
	}

	component := raw
	for _, p := range processors {
		next, err := p.PostProcessBeforeInit(component, name)
		if err != nil {
			return nil, nil, fmt.Errorf("process component %q before init: %w", name, err)
		}
		if next == nil {
			break
		}
		component = next
	}
	if configurable, ok := raw.(types.Configurable); ok {
		if err := configurable.Init(f.config, def.Properties); err != nil {
			return nil, nil, fmt.Errorf("init component %q: %w", name, err)
		}
	}
	for _, p := range processors {
		next, err := p.PostProcessAfterInit(component, name)
		if err != nil {
			return nil, nil, fmt.Errorf("process component %q after init: %w", name, err)
		}
		if next == nil {
			break
		}
		component = next
	}
	return component, raw, nil
}

// Type returns the type of the created singleton of name, or the definition
// type when it does not exist yet.
func (f *DefaultFactory) Type(name string) reflect.Type {
	f.mu.RLock()
	instance, isManual := f.manual[name]
	def, isDefined := f.definitions[name]
	f.mu.RUnlock()
	if isManual {
		return reflect.TypeOf(instance)
	}
	if isDefined {
		if instance, ok := f.singletons.get(name); ok {
			return reflect.TypeOf(instance)
		}
		return def.Type
	}
	if f.parent != nil {
		return f.parent.Type(name)
	}
	return nil
}

func (f *DefaultFactory) IsSingleton(name string) bool {
	f.mu.RLock()
	_, isManual := f.manual[name]
	def, isDefined := f.definitions[name]
	f.mu.RUnlock()
	if isManual {
		return true
	}
	if isDefined {
		return def.IsSingleton()
	}
	return f.parent != nil && f.parent.IsSingleton(name)
}

func (f *DefaultFactory) IsPrototype(name string) bool {
	f.mu.RLock()
	def, isDefined := f.definitions[name]
	f.mu.RUnlock()
	if isDefined {
		return def.IsPrototype()
	}
	return f.parent != nil && f.parent.IsPrototype(name)
}

func (f *DefaultFactory) IsTypeMatch(name string, t reflect.Type) bool {
	return TypeMatches(f.Type(name), t)
}

// NamesForType returns the local names matching t: definitions in
// registration order, then registered singletons.
func (f *DefaultFactory) NamesForType(t reflect.Type, includeNonSingletons bool) []string {
	f.mu.RLock()
	candidates := make([]string, 0, len(f.names)+len(f.manualNames))
	candidates = append(candidates, f.names...)
	for _, name := range f.manualNames {
		if _, ok := f.definitions[name]; !ok {
			candidates = append(candidates, name)
		}
	}
	f.mu.RUnlock()

	var result []string
	for _, name := range candidates {
		if !includeNonSingletons && !f.IsSingleton(name) {
			continue
		}
		if f.IsTypeMatch(name, t) {
			result = append(result, name)
		}
	}
	return result
}

func (f *DefaultFactory) ContainsComponent(name string) bool {
	f.mu.RLock()
	_, isManual := f.manual[name]
	_, isDefined := f.definitions[name]
	f.mu.RUnlock()
	if isManual || isDefined {
		return true
	}
	return f.parent != nil && f.parent.ContainsComponent(name)
}

// PreInstantiateSingletons creates every non-lazy singleton definition, in registration order.
func (f *DefaultFactory) PreInstantiateSingletons() error {
	for _, name := range f.DefinitionNames() {
		def, err := f.MergedDefinition(name)
		if err != nil {
			return err
		}
		if !def.IsSingleton() || def.Lazy {
			continue
		}
		if _, err := f.GetComponent(name); err != nil {
			return err
		}
	}
	return nil
}

// DestroySingletons destroys the created singletons in reverse creation order.
// Every Destroyable is called; the errors are combined.
func (f *DefaultFactory) DestroySingletons() error {
	return f.singletons.destroyAll(f.config.Logger)
}

// CreatedSingletons returns the names of the created singletons in creation order.
func (f *DefaultFactory) CreatedSingletons() []string {
	return f.singletons.createdNames()
}

// TypeMatches reports whether a component of type actual can be used as t.
func TypeMatches(actual, t reflect.Type) bool {
	if actual == nil || t == nil {
		return false
	}
	if t == types.AnyType {
		return true
	}
	if t.Kind() == reflect.Interface {
		return actual.Implements(t)
	}
	return actual.AssignableTo(t)
}

// GenerateName returns a unique name for an anonymous definition.
func GenerateName(def *types.Definition) string {
	prefix := "component"
	if def.Type != nil {
		t := def.Type
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if t.Name() != "" {
			prefix = t.Name()
		}
	}
	return prefix + types.GeneratedNameSeparator + uuid.Must(uuid.NewV4()).String()
}
