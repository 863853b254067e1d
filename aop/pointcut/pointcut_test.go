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

package pointcut

import (
	"reflect"
	"testing"
	"time"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmpty(t *testing.T) {
	p, err := Parse("  ", test.NewConfig())
	require.NoError(t, err)
	assert.True(t, p.Matches(test.QueryOp, nil))
	assert.Equal(t, True, p)
}

func TestExprPointcut(t *testing.T) {
	tests := []struct {
		expression string
		op         types.Operation
		target     reflect.Type
		want       bool
	}{
		{`name == "Query"`, test.QueryOp, nil, true},
		{`name == "Query"`, test.CountOp, nil, false},
		{`name startsWith "Q" && returns == "string"`, test.QueryOp, nil, true},
		{`owner == "UserService" && len(params) == 1 && params[0] == "int"`, test.QueryOp, nil, true},
		{`returns == "void"`, test.SaveOp, nil, true},
		{`signature == "UserService.Query(int) string"`, test.QueryOp, nil, true},
		{`target contains "UserService"`, test.CountOp, test.UserServiceType, true},
		{`target == ""`, test.CountOp, nil, true},
		{`execution("* UserService.*(..)")`, test.AddOp, nil, false},
		{`execution("* UserService.*(..)")`, test.SaveOp, nil, true},
		{`execution("int Calculator.Add(int,int)") || name == "Save"`, test.AddOp, nil, true},
		{`within("test.UserService")`, test.QueryOp, test.UserServiceType, true},
		{`within("*Calculator")`, test.QueryOp, test.UserServiceType, false},
		{`execution("bad pattern")`, test.QueryOp, nil, false},
		{`wildcard("Q*y", name)`, test.QueryOp, nil, true},
		{`includes(target, "Calculator")`, test.QueryOp, test.UserServiceType, false},
	}
	for _, tt := range tests {
		p, err := Parse(tt.expression, test.NewConfig())
		require.NoError(t, err, tt.expression)
		assert.Equal(t, tt.want, p.Matches(tt.op, tt.target), "%s on %s", tt.expression, tt.op.Signature())
	}
}

func TestExprPointcutCompileError(t *testing.T) {
	_, err := Parse(`name ==`, test.NewConfig())
	assert.Error(t, err)
	// not a boolean expression
	_, err = Parse(`name`, test.NewConfig())
	assert.Error(t, err)
	// unknown variable
	_, err = Parse(`undefinedVar == 1`, test.NewConfig())
	assert.Error(t, err)
}

func TestNamedPointcuts(t *testing.T) {
	named := map[string]types.Pointcut{
		"queries": NameMatch("Query*"),
	}
	parser := Parser{
		Config: test.NewConfig(),
		Names:  []string{"queries"},
		Lookup: func(name string) (types.Pointcut, bool) {
			p, ok := named[name]
			return p, ok
		},
	}

	p, err := parser.Parse(`queries() || name == "Count"`)
	require.NoError(t, err)
	assert.True(t, p.Matches(test.QueryOp, nil))
	assert.True(t, p.Matches(test.CountOp, nil))
	assert.False(t, p.Matches(test.SaveOp, nil))

	script, err := parser.Parse(`js: queries()`)
	require.NoError(t, err)
	assert.True(t, script.Matches(test.QueryOp, nil))
	assert.False(t, script.Matches(test.SaveOp, nil))
}

func TestScriptPointcut(t *testing.T) {
	config := test.NewConfig(types.WithProperty("service", "UserService"))
	p, err := Parse(`js: op.owner === global.service && op.params.length === 1`, config)
	require.NoError(t, err)
	assert.True(t, p.Matches(test.QueryOp, nil))
	assert.False(t, p.Matches(test.CountOp, nil))
	assert.False(t, p.Matches(test.AddOp, nil))
	assert.Equal(t, "js:op.owner === global.service && op.params.length === 1", p.(*ScriptPointcut).String())

	_, err = Parse(`js: op.name ===`, config)
	assert.Error(t, err)
}

func TestScriptPointcutFuncs(t *testing.T) {
	p, err := Parse(`js: wildcard("*Service", op.owner) && includes(op.name, "ue")`, test.NewConfig())
	require.NoError(t, err)
	assert.True(t, p.Matches(test.QueryOp, nil))
	assert.False(t, p.Matches(test.CountOp, nil))
}

func TestScriptPointcutTimeout(t *testing.T) {
	config := test.NewConfig(types.WithScriptMaxExecutionTime(20 * time.Millisecond))
	p, err := Parse(`js: (function(){ while(true){} })()`, config)
	require.NoError(t, err)
	assert.False(t, p.Matches(test.QueryOp, nil))
}

func TestExecution(t *testing.T) {
	tests := []struct {
		pattern string
		op      types.Operation
		want    bool
	}{
		{"* *(..)", test.QueryOp, true},
		{"* Query(..)", test.QueryOp, true},
		{"string UserService.Query(int)", test.QueryOp, true},
		{"int UserService.Query(int)", test.QueryOp, false},
		{"* UserService.Query()", test.QueryOp, false},
		{"* UserService.Query(*)", test.QueryOp, true},
		{"* UserService.Query(*,*)", test.QueryOp, false},
		{"int Calculator.Add(int,..)", test.AddOp, true},
		{"int Calculator.Add(string,..)", test.AddOp, false},
		{"void *.Save(string)", test.SaveOp, true},
		{"* *.C*()", test.CountOp, true},
		{"any UserService.RawSelf()", test.RawSelfOp, true},
		{"[]string *.Names()", test.NamesOp, true},
	}
	for _, tt := range tests {
		e, err := NewExecution(tt.pattern)
		require.NoError(t, err, tt.pattern)
		assert.Equal(t, tt.want, e.Matches(tt.op, nil), "%s on %s", tt.pattern, tt.op.Signature())
	}
}

func TestExecutionInvalid(t *testing.T) {
	for _, pattern := range []string{"Query", "* Query", "Query(..)", "* .Query()", "* Query(..,int)", "* Query(int,)"} {
		_, err := NewExecution(pattern)
		assert.Error(t, err, pattern)
	}
}

func TestWithin(t *testing.T) {
	assert.True(t, NewWithin("test.*").Matches(test.QueryOp, test.UserServiceType))
	assert.True(t, NewWithin("*.UserService").Matches(test.QueryOp, test.UserServiceType))
	assert.False(t, NewWithin("*.Calculator").Matches(test.QueryOp, test.UserServiceType))
	// falls back to the owner
	assert.True(t, NewWithin("User*").Matches(test.QueryOp, nil))
}

func TestCombinators(t *testing.T) {
	queries := NameMatch("Query*", "Count")
	assert.True(t, queries.Matches(test.QueryOp, nil))
	assert.True(t, queries.Matches(test.CountOp, nil))
	assert.False(t, queries.Matches(test.SaveOp, nil))

	assert.True(t, Union(False, queries).Matches(test.CountOp, nil))
	assert.False(t, Union().Matches(test.CountOp, nil))
	assert.False(t, Intersection(True, queries, Capability(test.CalculatorName)).Matches(test.CountOp, nil))
	assert.True(t, Intersection().Matches(test.CountOp, nil))
	assert.True(t, Not(queries).Matches(test.SaveOp, nil))
	assert.True(t, Capability(test.CalculatorName).Matches(test.AddOp, nil))
	assert.Equal(t, "true", True.(interface{ String() string }).String())
}

func TestMustParse(t *testing.T) {
	assert.NotPanics(t, func() { MustParse(`name == "Query"`) })
	assert.Panics(t, func() { MustParse(`name ==`) })
}
