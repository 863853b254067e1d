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
	"strings"
	"testing"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// settings is a Configurable component.
type settings struct {
	Name    string
	initErr error
	config  types.Configuration
	destroy func() error
}

func (s *settings) Init(config types.Config, configuration types.Configuration) error {
	s.config = configuration
	if name, ok := configuration["name"].(string); ok {
		s.Name = name
	}
	return s.initErr
}

func (s *settings) Destroy() error {
	if s.destroy != nil {
		return s.destroy()
	}
	return nil
}

func TestRegisterDefinition(t *testing.T) {
	factory := newFactory(t)
	require.NoError(t, factory.RegisterDefinition(types.NewDefinition("users", &test.UserService{})))
	assert.True(t, factory.ContainsDefinition("users"))
	assert.Equal(t, 1, factory.DefinitionCount())

	// overriding keeps the registration position
	require.NoError(t, factory.RegisterDefinition(types.NewDefinition("other", &test.Calculator{})))
	require.NoError(t, factory.RegisterDefinition(types.NewDefinition("users", &test.UserService{}).WithScope(types.ScopePrototype)))
	assert.Equal(t, []string{"users", "other"}, factory.DefinitionNames())
	assert.True(t, factory.IsPrototype("users"))

	anonymous := types.NewDefinition("", &test.UserService{})
	require.NoError(t, factory.RegisterDefinition(anonymous))
	assert.True(t, strings.HasPrefix(anonymous.Name, "UserService"+types.GeneratedNameSeparator))

	assert.Error(t, factory.RegisterDefinition(&types.Definition{Name: "typeless"}))
	assert.Error(t, factory.RegisterDefinition(nil))

	require.NoError(t, factory.RemoveDefinition("other"))
	assert.True(t, errors.Is(factory.RemoveDefinition("other"), types.ErrNotFound))
	_, err := factory.Definition("other")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestRegisterDefinitionWithoutOverriding(t *testing.T) {
	factory := NewDefaultFactory(test.NewConfig(types.WithAllowDefinitionOverriding(false)))
	require.NoError(t, factory.RegisterDefinition(types.NewDefinition("users", &test.UserService{})))
	err := factory.RegisterDefinition(types.NewDefinition("users", &test.UserService{}))
	assert.True(t, errors.Is(err, types.ErrAlreadyExists))
}

func TestGetComponentScopes(t *testing.T) {
	factory := newFactory(t,
		types.NewDefinition("single", &test.UserService{}),
		types.NewDefinition("proto", &test.UserService{}).WithScope(types.ScopePrototype),
	)
	first, err := factory.GetComponent("single")
	require.NoError(t, err)
	second, err := factory.GetComponent("single")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "single", first.(*test.UserService).Name())

	p1, err := factory.GetComponent("proto")
	require.NoError(t, err)
	p2, err := factory.GetComponent("proto")
	require.NoError(t, err)
	assert.NotSame(t, p1, p2)

	_, err = factory.GetComponent("missing")
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.Equal(t, []string{"single"}, factory.CreatedSingletons())
}

func TestGetComponentConcurrent(t *testing.T) {
	var created atomic.Int64
	factory := newFactory(t, types.NewDefinition("users", &test.UserService{}).WithFactory(func() (interface{}, error) {
		created.Inc()
		return test.NewUserService(), nil
	}))

	var g errgroup.Group
	results := make([]interface{}, 16)
	for i := range results {
		i := i
		g.Go(func() error {
			component, err := factory.GetComponent("users")
			results[i] = component
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(1), created.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestGetComponentFailures(t *testing.T) {
	attempts := 0
	factory := newFactory(t,
		types.NewDefinition("panicking", &test.UserService{}).WithFactory(func() (interface{}, error) {
			panic("boom")
		}),
		types.NewDefinition("flaky", &test.UserService{}).WithFactory(func() (interface{}, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("not yet")
			}
			return test.NewUserService(), nil
		}),
		types.NewDefinition("nil", &test.UserService{}).WithFactory(func() (interface{}, error) {
			return nil, nil
		}),
		types.NewDefinition("badInit", &settings{}).WithFactory(func() (interface{}, error) {
			return &settings{initErr: errors.New("bad settings")}, nil
		}),
	)
	_, err := factory.GetComponent("panicking")
	assert.Contains(t, err.Error(), "panic: boom")

	_, err = factory.GetComponent("flaky")
	assert.Error(t, err)
	_, err = factory.GetComponent("flaky")
	assert.NoError(t, err)

	_, err = factory.GetComponent("nil")
	assert.Error(t, err)

	_, err = factory.GetComponent("badInit")
	assert.Contains(t, err.Error(), "bad settings")
}

func TestConfigurableComponent(t *testing.T) {
	factory := newFactory(t, types.NewDefinition("settings", &settings{}).
		WithProperties(types.Configuration{"name": "weave"}))
	component, err := factory.GetComponent("settings")
	require.NoError(t, err)
	assert.Equal(t, "weave", component.(*settings).Name)

	// the merged definition is a copy: instances cannot change the registered properties
	component.(*settings).config["name"] = "changed"
	def, err := factory.Definition("settings")
	require.NoError(t, err)
	assert.Equal(t, "weave", def.Properties["name"])
}

func TestComponentProcessors(t *testing.T) {
	journal := test.NewJournal()
	factory := newFactory(t, types.NewInstanceDefinition("users", test.NewUserService()))
	replacement := test.NewUserService("replaced")
	factory.AddComponentProcessor(&test.Processor{Name: "first", Journal: journal})
	factory.AddComponentProcessor(&test.Processor{Name: "replacer", Journal: journal,
		Replace: func(component interface{}, name string) interface{} { return replacement }})
	assert.Equal(t, 2, factory.ComponentProcessorCount())

	component, err := factory.GetComponent("users")
	require.NoError(t, err)
	assert.Same(t, replacement, component)
	assert.Equal(t, []string{"first.after:users", "replacer.after:users"}, journal.Entries())
	assert.Equal(t, reflect.TypeOf(replacement), factory.Type("users"))
}

func TestAddComponentProcessorMovesDuplicate(t *testing.T) {
	factory := newFactory(t)
	first := &test.Processor{Name: "first"}
	second := &test.Processor{Name: "second"}
	factory.AddComponentProcessor(first)
	factory.AddComponentProcessor(second)
	factory.AddComponentProcessor(first)
	assert.Equal(t, []types.ComponentProcessor{second, first}, factory.ComponentProcessors())
}

func TestTypeLookups(t *testing.T) {
	factory := newFactory(t,
		types.NewDefinition("users", &test.UserService{}),
		types.NewDefinition("calculator", &test.Calculator{}).WithScope(types.ScopePrototype),
		types.NewInstanceDefinition("extension", &test.Extension{}),
	)
	require.NoError(t, factory.RegisterSingleton("manual", test.NewUserService()))

	invokers := factory.NamesForType(test.InvokerType, true)
	assert.Equal(t, []string{"calculator"}, invokers)
	assert.Empty(t, factory.NamesForType(test.InvokerType, false))
	assert.Equal(t, []string{"users", "manual"}, factory.NamesForType(test.UserServiceType, true))
	assert.Equal(t, []string{"extension"}, factory.NamesForType(types.FactoryExtensionType, true))
	assert.Len(t, factory.NamesForType(types.AnyType, true), 4)

	assert.True(t, factory.IsTypeMatch("users", reflect.TypeOf((*types.Operable)(nil)).Elem()))
	assert.True(t, factory.IsSingleton("manual"))
	assert.True(t, factory.ContainsComponent("manual"))
	assert.False(t, factory.ContainsComponent("missing"))
	assert.Nil(t, factory.Type("missing"))

	manual, err := factory.GetComponent("manual")
	require.NoError(t, err)
	assert.Equal(t, test.UserServiceType, reflect.TypeOf(manual))
	assert.Error(t, factory.RegisterSingleton("manual", test.NewUserService()))
}

func TestParentFactory(t *testing.T) {
	parent := newFactory(t, types.NewInstanceDefinition("shared", test.NewUserService("parent")))
	child := newFactory(t, types.NewInstanceDefinition("local", test.NewUserService("child")))
	child.SetParentFactory(parent)

	shared, err := child.GetComponent("shared")
	require.NoError(t, err)
	assert.Equal(t, []string{"parent"}, shared.(*test.UserService).Names())
	assert.True(t, child.ContainsComponent("shared"))
	assert.True(t, child.IsSingleton("shared"))
	assert.Equal(t, test.UserServiceType, child.Type("shared"))
	assert.Same(t, parent, child.ParentFactory())

	// local names hide the names of the ancestors
	require.NoError(t, child.RegisterDefinition(types.NewInstanceDefinition("shared", test.NewUserService("override"))))
	assert.Equal(t, []string{"local", "shared"}, NamesForTypeIncludingAncestors(child, test.UserServiceType, true))
	require.NoError(t, parent.RegisterDefinition(types.NewDefinition("parentOnly", &test.Calculator{})))
	assert.Equal(t, []string{"local", "shared", "parentOnly"}, ComponentNamesIncludingAncestors(child))
}

func TestPreInstantiateAndDestroy(t *testing.T) {
	journal := test.NewJournal()
	destroyer := func(name string, err error) types.FactoryFunc {
		return func() (interface{}, error) {
			return &settings{Name: name, destroy: func() error {
				journal.Record("destroy:" + name)
				return err
			}}, nil
		}
	}
	factory := newFactory(t,
		types.NewDefinition("first", &settings{}).WithFactory(destroyer("first", nil)),
		types.NewDefinition("second", &settings{}).WithFactory(destroyer("second", errors.New("second failed"))),
		types.NewDefinition("proto", &settings{}).WithFactory(destroyer("proto", nil)).WithScope(types.ScopePrototype),
		&types.Definition{Name: "lazy", Type: reflect.TypeOf(&settings{}), Lazy: true, Factory: destroyer("lazy", nil)},
		types.NewDefinition("third", &settings{}).WithFactory(destroyer("third", errors.New("third failed"))),
	)
	require.NoError(t, factory.PreInstantiateSingletons())
	assert.Equal(t, []string{"first", "second", "third"}, factory.CreatedSingletons())

	err := factory.DestroySingletons()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second failed")
	assert.Contains(t, err.Error(), "third failed")
	assert.Equal(t, []string{"destroy:third", "destroy:second", "destroy:first"}, journal.Entries())
	assert.Empty(t, factory.CreatedSingletons())
}

func TestSortOrdered(t *testing.T) {
	items := []interface{}{
		&test.OrderedExtension{Ord: 3},
		&test.Extension{Name: "unordered"},
		&test.OrderedExtension{Ord: 1},
	}
	SortOrdered(items)
	assert.Equal(t, 1, types.OrderOf(items[0]))
	assert.Equal(t, 3, types.OrderOf(items[1]))
	assert.Equal(t, types.LowestPrecedence, types.OrderOf(items[2]))
}
