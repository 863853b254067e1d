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
	"fmt"
	"strings"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/str"
)

var (
	_ types.PriorityOrdered  = (*Placeholder)(nil)
	_ types.FactoryExtension = (*Placeholder)(nil)
)

// Placeholder replaces the placeholders of definition properties before any
// component is created. ${key} resolves from Properties, then from the global
// properties of the container; ${global.key} only from the global properties.
// Placeholders are resolved in string values, nested maps and slices included.
//
// Placeholder needs a factory that is also a types.DefinitionRegistry.
type Placeholder struct {
	// Properties take precedence over the global properties for ${key}.
	Properties map[string]string
	// Strict fails on unresolvable placeholders instead of keeping them.
	Strict bool
	// Ord is the order within the priority tier.
	Ord int
}

func (p *Placeholder) Order() int {
	return p.Ord
}

func (p *Placeholder) PriorityOrdered() {}

func (p *Placeholder) PostProcessFactory(factory types.ConfigurableFactory) error {
	registry, ok := factory.(types.DefinitionRegistry)
	if !ok {
		return fmt.Errorf("placeholder resolution needs a definition registry, got %T", factory)
	}
	global := factory.Config().Properties
	lookup := func(key string) (string, bool) {
		if k := strings.TrimPrefix(key, types.Global+"."); k != key {
			v, ok := global[k]
			return v, ok
		}
		if v, ok := p.Properties[key]; ok {
			return v, true
		}
		v, ok := global[key]
		return v, ok
	}
	for _, name := range registry.DefinitionNames() {
		def, err := registry.Definition(name)
		if err != nil {
			return err
		}
		if len(def.Properties) == 0 {
			continue
		}
		r := resolver{lookup: lookup, strict: p.Strict}
		resolved := r.resolveMap(def.Properties)
		if len(r.unresolved) > 0 {
			return types.NewConfigurationError(name, "placeholder resolution",
				"unresolvable placeholders in "+strings.Join(r.unresolved, ", "))
		}
		def.Properties = resolved
	}
	return nil
}

type resolver struct {
	lookup     func(key string) (string, bool)
	strict     bool
	unresolved []string
}

func (r *resolver) resolveMap(m map[string]interface{}) map[string]interface{} {
	resolved := make(map[string]interface{}, len(m))
	for k, v := range m {
		resolved[k] = r.resolve(v)
	}
	return resolved
}

func (r *resolver) resolve(v interface{}) interface{} {
	switch value := v.(type) {
	case string:
		out := str.ResolvePlaceholders(value, r.lookup)
		if r.strict && str.CheckHasVar(out) {
			r.unresolved = append(r.unresolved, fmt.Sprintf("%q", value))
		}
		return out
	case types.Configuration:
		return types.Configuration(r.resolveMap(value))
	case map[string]interface{}:
		return r.resolveMap(value)
	case []interface{}:
		resolved := make([]interface{}, len(value))
		for i, item := range value {
			resolved[i] = r.resolve(item)
		}
		return resolved
	case []string:
		resolved := make([]string, len(value))
		for i, item := range value {
			resolved[i] = r.resolve(item).(string)
		}
		return resolved
	default:
		return v
	}
}
