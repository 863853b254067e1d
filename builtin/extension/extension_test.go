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
	"testing"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/builtin/aspect"
	"github.com/rulego/weave/engine"
	"github.com/rulego/weave/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFactory(t *testing.T, defs ...*types.Definition) *engine.DefaultFactory {
	t.Helper()
	factory := engine.NewDefaultFactory(test.NewConfig(types.WithProperties(map[string]string{
		"host": "global-host",
		"port": "8080",
	})))
	for _, def := range defs {
		require.NoError(t, factory.RegisterDefinition(def))
	}
	return factory
}

func TestPlaceholder(t *testing.T) {
	factory := newFactory(t, types.NewDefinition("server", &test.UserService{}).WithProperties(types.Configuration{
		"addr":   "${host}:${global.port}",
		"global": "${global.host}",
		"nested": map[string]interface{}{"user": "${user}"},
		"list":   []interface{}{"${host}", 3},
		"tags":   []string{"${env}"},
		"count":  3,
	}))
	before, err := factory.MergedDefinition("server")
	require.NoError(t, err)

	placeholder := &Placeholder{Properties: map[string]string{"host": "local-host", "user": "admin"}}
	require.NoError(t, engine.InvokeFactoryExtensions(factory, []types.FactoryExtension{placeholder}, nil))

	def, err := factory.Definition("server")
	require.NoError(t, err)
	assert.Equal(t, "local-host:8080", def.Properties["addr"])
	assert.Equal(t, "global-host", def.Properties["global"])
	assert.Equal(t, map[string]interface{}{"user": "admin"}, def.Properties["nested"])
	assert.Equal(t, []interface{}{"local-host", 3}, def.Properties["list"])
	assert.Equal(t, []string{"${env}"}, def.Properties["tags"])
	assert.Equal(t, 3, def.Properties["count"])

	// merged definitions derived before the extension ran are dropped
	assert.Equal(t, "${host}:${global.port}", before.Properties["addr"])
	merged, err := factory.MergedDefinition("server")
	require.NoError(t, err)
	assert.Equal(t, "local-host:8080", merged.Properties["addr"])
}

func TestPlaceholderResolvesLowerTierExtensions(t *testing.T) {
	configured := &test.ConfigurableExtension{OrderedExtension: test.OrderedExtension{
		Extension: test.Extension{Name: "O", Journal: test.NewJournal()},
		Ord:       1,
	}}
	factory := newFactory(t,
		types.NewInstanceDefinition("placeholder", &Placeholder{}),
		types.NewDefinition("configured", &test.ConfigurableExtension{}).
			WithFactory(func() (interface{}, error) { return configured, nil }).
			WithProperties(types.Configuration{"host": "${host}"}),
	)
	require.NoError(t, engine.InvokeFactoryExtensions(factory, nil, nil))
	assert.Equal(t, "global-host", configured.Configuration["host"])
	assert.Equal(t, []string{"O.factory"}, configured.Journal.Entries())
}

func TestPlaceholderStrict(t *testing.T) {
	factory := newFactory(t, types.NewDefinition("server", &test.UserService{}).WithProperties(types.Configuration{
		"addr": "${missing}",
	}))
	err := engine.InvokeFactoryExtensions(factory, []types.FactoryExtension{&Placeholder{Strict: true}}, nil)
	var ce *types.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, err.Error(), "${missing}")
}

// factoryOnly hides the registry methods of a factory.
type factoryOnly struct {
	types.ConfigurableFactory
}

func TestPlaceholderWithoutRegistry(t *testing.T) {
	err := (&Placeholder{}).PostProcessFactory(factoryOnly{newFactory(t)})
	assert.Error(t, err)
}

func TestValidator(t *testing.T) {
	factory := newFactory(t,
		types.NewDefinition("users", &test.UserService{}),
		types.NewDefinition("limiter", &aspect.Limiter{}).WithProperties(types.Configuration{"max": 1, "pointcut": `name == "Query"`}),
	)
	validator := &Validator{}
	assert.Equal(t, ValidatorOrder, validator.Order())
	require.NoError(t, validator.PostProcessFactory(factory))

	def, err := factory.Definition("limiter")
	require.NoError(t, err)
	def.Properties["pointcut"] = "name =="
	err = validator.PostProcessFactory(factory)
	var ce *types.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "limiter", ce.Component)
	assert.True(t, errors.Is(err, ErrInvalidPointcut))

	// the pipeline reports the failing extension and keeps the cause
	err = engine.InvokeFactoryExtensions(factory, []types.FactoryExtension{validator}, nil)
	assert.True(t, errors.Is(err, ErrInvalidPointcut))

	def.Properties["pointcut"] = `name == "Query"`
	users, err := factory.Definition("users")
	require.NoError(t, err)
	users.Scope = "request"
	err = validator.PostProcessFactory(factory)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "users", ce.Component)
	assert.Contains(t, err.Error(), "unknown scope")

	assert.Error(t, validator.PostProcessFactory(factoryOnly{factory}))
}

func TestValidatorRunsAfterPlaceholder(t *testing.T) {
	factory := newFactory(t,
		types.NewInstanceDefinition("validator", &Validator{}),
		types.NewInstanceDefinition("placeholder", &Placeholder{Properties: map[string]string{"pc": `owner == "UserService"`}}),
		types.NewDefinition("limiter", &aspect.Limiter{}).WithProperties(types.Configuration{"max": 1, "pointcut": "${pc}"}),
	)
	require.NoError(t, engine.InvokeFactoryExtensions(factory, nil, nil))
	def, err := factory.Definition("limiter")
	require.NoError(t, err)
	assert.Equal(t, `owner == "UserService"`, def.Properties["pointcut"])
}

func TestBuiltins(t *testing.T) {
	assert.Contains(t, Builtins.Names(), PlaceholderName)
	assert.Contains(t, Builtins.Names(), ValidatorName)
	ext, err := Builtins.New(PlaceholderName)
	require.NoError(t, err)
	assert.IsType(t, &Placeholder{}, ext)

	_, err = Builtins.New("missing")
	assert.True(t, errors.Is(err, types.ErrNotFound))

	Builtins.Register("custom", func() types.FactoryExtension { return &test.Extension{} })
	defer Builtins.Unregister("custom")
	assert.Contains(t, Builtins.Names(), "custom")
}

func TestFuncAdaptersAndOrder(t *testing.T) {
	journal := test.NewJournal()
	record := func(name string) FactoryFunc {
		return func(types.ConfigurableFactory) error {
			journal.Record(name)
			return nil
		}
	}
	registrar := RegistryFunc(func(registry types.DefinitionRegistry) error {
		journal.Record("registrar")
		return registry.RegisterDefinition(types.NewInstanceDefinition("late", record("late")))
	})
	factory := newFactory(t,
		types.NewInstanceDefinition("registrar", Priority(registrar, 0)),
		types.NewInstanceDefinition("o5", Ordered(record("o5"), 5)),
		types.NewInstanceDefinition("plain", record("plain")),
		types.NewInstanceDefinition("p", Priority(record("p"), 100)),
		types.NewInstanceDefinition("o1", Ordered(record("o1"), 1)),
	)
	require.NoError(t, engine.InvokeFactoryExtensions(factory, nil, nil))
	assert.Equal(t, []string{"registrar", "p", "o1", "o5", "plain", "late"}, journal.Entries())
}

func TestWrappersKeepRegistryExtensions(t *testing.T) {
	registrar := RegistryFunc(func(types.DefinitionRegistry) error { return nil })
	_, ok := Ordered(registrar, 1).(types.RegistryExtension)
	assert.True(t, ok)
	_, ok = Priority(registrar, 1).(types.RegistryExtension)
	assert.True(t, ok)
	_, ok = Ordered(FactoryFunc(nil), 1).(types.RegistryExtension)
	assert.False(t, ok)

	assert.Equal(t, 7, types.OrderOf(Priority(registrar, 7)))
	_, ok = Priority(FactoryFunc(nil), 1).(types.PriorityOrdered)
	assert.True(t, ok)
	_, ok = Ordered(FactoryFunc(nil), 1).(types.PriorityOrdered)
	assert.False(t, ok)
}
