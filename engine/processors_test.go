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
	"testing"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterComponentProcessorsTiers(t *testing.T) {
	journal := test.NewJournal()
	processor := func(name string) test.Processor {
		return test.Processor{Name: name, Journal: journal}
	}
	factory := newFactory(t,
		types.NewInstanceDefinition("u", &test.Processor{Name: "U", Journal: journal}),
		types.NewInstanceDefinition("o2", &test.OrderedProcessor{Processor: processor("O2"), Ord: 2}),
		types.NewInstanceDefinition("m", &test.MergedProcessor{OrderedProcessor: test.OrderedProcessor{Processor: processor("M")}}),
		types.NewInstanceDefinition("o1", &test.OrderedProcessor{Processor: processor("O1"), Ord: 1}),
		types.NewInstanceDefinition("p", &test.PriorityProcessor{OrderedProcessor: test.OrderedProcessor{Processor: processor("P"), Ord: 5}}),
		types.NewDefinition("svc", &test.UserService{}),
	)
	require.NoError(t, RegisterComponentProcessors(factory, nil))
	// checker, P, O1, O2, U, then the merged definition processor moved last
	assert.Equal(t, 6, factory.ComponentProcessorCount())

	_, err := factory.GetComponent("svc")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"M.merged:svc",
		"P.after:svc",
		"O1.after:svc",
		"O2.after:svc",
		"U.after:svc",
		"M.after:svc",
	}, journal.Filter(":svc"))
}

func TestRegisterComponentProcessorsAppliesEarlierTiers(t *testing.T) {
	journal := test.NewJournal()
	factory := newFactory(t,
		types.NewInstanceDefinition("u", &test.Processor{Name: "U", Journal: journal}),
		types.NewInstanceDefinition("p", &test.PriorityProcessor{OrderedProcessor: test.OrderedProcessor{
			Processor: test.Processor{Name: "P", Journal: journal}}}),
	)
	require.NoError(t, RegisterComponentProcessors(factory, nil))
	// the unordered processor is created after the priority one is registered
	assert.Equal(t, []string{"P.after:u"}, journal.Entries())
}

func TestProcessorChecker(t *testing.T) {
	logger := test.NewLogger()
	factory := newFactory(t,
		types.NewDefinition("dep", &test.UserService{}),
		types.NewDefinition("infra", &test.Calculator{}).WithRole(types.RoleInfrastructure),
	)
	require.NoError(t, factory.RegisterDefinition(types.NewDefinition("needy", &test.Processor{}).WithFactory(func() (interface{}, error) {
		if _, err := factory.GetComponent("dep"); err != nil {
			return nil, err
		}
		if _, err := factory.GetComponent("infra"); err != nil {
			return nil, err
		}
		return &test.Processor{Name: "needy", Journal: test.NewJournal()}, nil
	})))
	require.NoError(t, factory.RegisterDefinition(types.NewDefinition("late", &test.UserService{})))

	require.NoError(t, RegisterComponentProcessors(factory, logger))
	assert.True(t, logger.Contains("component dep of type *test.UserService is not eligible"))
	assert.False(t, logger.Contains("component infra"))

	_, err := factory.GetComponent("late")
	require.NoError(t, err)
	assert.False(t, logger.Contains("component late"))
}

func TestRegisterComponentProcessorsFailure(t *testing.T) {
	factory := newFactory(t, types.NewDefinition("broken", &test.Processor{}).WithFactory(func() (interface{}, error) {
		return nil, errors.New("cannot build")
	}))
	err := RegisterComponentProcessors(factory, nil)
	var ce *types.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "broken", ce.Component)
	assert.Equal(t, "processor registration", ce.Phase)
	assert.Contains(t, err.Error(), "cannot build")
}
