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

// Package extension provides ready-made factory extensions: placeholder
// resolution in definition properties, definition validation, function
// adapters and order wrappers.
package extension

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rulego/weave/api/types"
)

// Builtins holds the builtin extensions by name, see Container.UseBuiltin.
var Builtins = builtins{}

const (
	// PlaceholderName is the builtin name of Placeholder.
	PlaceholderName = "placeholder"
	// ValidatorName is the builtin name of Validator.
	ValidatorName = "validator"
)

func init() {
	Builtins.Register(PlaceholderName, func() types.FactoryExtension {
		return &Placeholder{}
	})
	Builtins.Register(ValidatorName, func() types.FactoryExtension {
		return &Validator{}
	})
}

// Constructor creates a new instance of a builtin extension.
type Constructor func() types.FactoryExtension

type builtins struct {
	constructors map[string]Constructor
	lock         sync.RWMutex
}

// Register registers a builtin extension under name, replacing a previous one.
func (b *builtins) Register(name string, constructor Constructor) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.constructors == nil {
		b.constructors = make(map[string]Constructor)
	}
	b.constructors[name] = constructor
}

// Unregister removes builtin extensions.
func (b *builtins) Unregister(names ...string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, name := range names {
		delete(b.constructors, name)
	}
}

// New creates the builtin extension of name.
func (b *builtins) New(name string) (types.FactoryExtension, error) {
	b.lock.RLock()
	constructor, ok := b.constructors[name]
	b.lock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("builtin extension %q: %w", name, types.ErrNotFound)
	}
	return constructor(), nil
}

// Names returns the sorted names of the builtin extensions.
func (b *builtins) Names() []string {
	b.lock.RLock()
	defer b.lock.RUnlock()
	names := make([]string, 0, len(b.constructors))
	for name := range b.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
