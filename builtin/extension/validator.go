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
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/rulego/weave/aop/pointcut"
	"github.com/rulego/weave/api/types"
)

// ValidatorOrder is the default order of Validator, after Placeholder.
const ValidatorOrder = 100

var (
	_ types.PriorityOrdered  = (*Validator)(nil)
	_ types.FactoryExtension = (*Validator)(nil)
)

// ErrInvalidPointcut is reported for aspect definitions whose pointcut property does not compile.
var ErrInvalidPointcut = errors.New("invalid pointcut")

// Rule checks one definition.
type Rule func(config types.Config, name string, def *types.Definition) error

// Rules are the rules applied by every Validator.
var Rules = NewRules()

var aspectComponentType = reflect.TypeOf((*types.AspectComponent)(nil)).Elem()

// Validator checks every registered definition against Rules before any
// component is created, failing the refresh on the first violation.
type Validator struct {
	// Ord overrides ValidatorOrder.
	Ord int
}

func (v *Validator) Order() int {
	if v.Ord == 0 {
		return ValidatorOrder
	}
	return v.Ord
}

func (v *Validator) PriorityOrdered() {}

func (v *Validator) PostProcessFactory(factory types.ConfigurableFactory) error {
	registry, ok := factory.(types.DefinitionRegistry)
	if !ok {
		return fmt.Errorf("validation needs a definition registry, got %T", factory)
	}
	config := factory.Config()
	rules := Rules.Rules()
	for _, name := range registry.DefinitionNames() {
		def, err := registry.Definition(name)
		if err != nil {
			return err
		}
		for _, rule := range rules {
			if err := rule(config, name, def); err != nil {
				return &types.ConfigurationError{Component: name, Phase: "validation", Cause: err}
			}
		}
	}
	return nil
}

type rules struct {
	rules []Rule
	sync.RWMutex
}

// NewRules creates a rule set with the default rules. Definitions changed by
// earlier extensions must still be valid, and aspect pointcuts must compile.
func NewRules() *rules {
	r := &rules{}
	r.AddRule(func(config types.Config, name string, def *types.Definition) error {
		return def.Validate()
	})
	r.AddRule(func(config types.Config, name string, def *types.Definition) error {
		if def.Type == nil || !def.Type.Implements(aspectComponentType) {
			return nil
		}
		expression, _ := def.Properties["pointcut"].(string)
		if expression == "" {
			return nil
		}
		if _, err := pointcut.Parse(expression, config); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidPointcut, expression, err)
		}
		return nil
	})
	return r
}

// AddRule appends rules.
func (r *rules) AddRule(fn ...Rule) {
	r.Lock()
	defer r.Unlock()
	r.rules = append(r.rules, fn...)
}

// Rules returns a copy of the rules.
func (r *rules) Rules() []Rule {
	r.RLock()
	defer r.RUnlock()
	return append([]Rule(nil), r.rules...)
}
