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

// Package pointcut provides the pointcut languages of the container and the
// static pointcuts they are combined with.
//
// An expression is parsed as follows:
//
//   - an empty expression matches every operation;
//   - an expression prefixed with "js:" is a JavaScript boolean expression, see ScriptPointcut;
//   - any other expression is an expr-lang boolean expression, see ExprPointcut.
package pointcut

import (
	"reflect"
	"strings"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/str"
)

// Parser parses pointcut expressions.
type Parser struct {
	// Config supplies the script timeout, the global properties and the logger.
	Config types.Config
	// Names are the named pointcuts an expression may call as functions.
	Names []string
	// Lookup resolves named pointcuts at evaluation time.
	Lookup NamedLookup
}

// Parse parses expression.
func (p Parser) Parse(expression string) (types.Pointcut, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return True, nil
	}
	if strings.HasPrefix(expression, ScriptPrefix) {
		return NewScriptPointcut(p.Config, strings.TrimSpace(strings.TrimPrefix(expression, ScriptPrefix)), p.Names, p.Lookup)
	}
	return NewExprPointcut(expression, p.Names, p.Lookup)
}

// Parse parses expression without named pointcuts.
func Parse(expression string, config types.Config) (types.Pointcut, error) {
	return Parser{Config: config}.Parse(expression)
}

// MustParse is like Parse but panics on error. It is meant for tests and package-level variables.
func MustParse(expression string) types.Pointcut {
	p, err := Parse(expression, types.Config{})
	if err != nil {
		panic(err)
	}
	return p
}

type constant bool

func (c constant) Matches(types.Operation, reflect.Type) bool {
	return bool(c)
}

func (c constant) String() string {
	if c {
		return "true"
	}
	return "false"
}

var (
	// True matches every operation.
	True types.Pointcut = constant(true)
	// False matches no operation.
	False types.Pointcut = constant(false)
)

// Union matches when any of pointcuts matches.
func Union(pointcuts ...types.Pointcut) types.Pointcut {
	return types.PointcutFunc(func(op types.Operation, targetType reflect.Type) bool {
		for _, p := range pointcuts {
			if p.Matches(op, targetType) {
				return true
			}
		}
		return false
	})
}

// Intersection matches when every one of pointcuts matches.
func Intersection(pointcuts ...types.Pointcut) types.Pointcut {
	return types.PointcutFunc(func(op types.Operation, targetType reflect.Type) bool {
		for _, p := range pointcuts {
			if !p.Matches(op, targetType) {
				return false
			}
		}
		return true
	})
}

// Not negates pointcut.
func Not(pointcut types.Pointcut) types.Pointcut {
	return types.PointcutFunc(func(op types.Operation, targetType reflect.Type) bool {
		return !pointcut.Matches(op, targetType)
	})
}

// NameMatch matches operations whose name matches one of the wildcard patterns.
func NameMatch(patterns ...string) types.Pointcut {
	return types.PointcutFunc(func(op types.Operation, _ reflect.Type) bool {
		for _, pattern := range patterns {
			if str.MatchWildcard(pattern, op.Name) {
				return true
			}
		}
		return false
	})
}

// Capability matches the operations declared by one of the named capabilities.
func Capability(names ...string) types.Pointcut {
	return types.PointcutFunc(func(op types.Operation, _ reflect.Type) bool {
		return str.Contains(names, op.Owner)
	})
}
