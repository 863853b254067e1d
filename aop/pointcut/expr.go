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
	"fmt"
	"reflect"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/builtin/funcs"
)

// Variables of the expression environment.
const (
	VarOwner     = "owner"
	VarName      = "name"
	VarSignature = "signature"
	VarParams    = "params"
	VarReturns   = "returns"
	VarTarget    = "target"

	FuncExecution = "execution"
	FuncWithin    = "within"
)

// ExprPointcut is a boolean expr-lang expression evaluated per operation.
//
// The environment holds the operation as owner, name, signature, params
// (type names), returns (type name) and target (target type name, empty when
// unknown), the functions execution(pattern) and within(pattern), the
// functions of funcs.PointcutFuncMap, and one function per named pointcut
// returning whether it matches:
//
//	name startsWith "Query" && returns == "string"
//	execution("* UserService.*(..)") && !within("*Mock*")
//	queries() || owner == "Calculator"
type ExprPointcut struct {
	expression string
	program    *vm.Program
	named      NamedLookup
	names      []string
	funcs      map[string]interface{}
	// parsed execution and within patterns
	patterns sync.Map
}

// NamedLookup resolves a named pointcut at evaluation time.
type NamedLookup func(name string) (types.Pointcut, bool)

// NewExprPointcut compiles expression. names are the named pointcuts the
// expression may call, resolved through lookup at evaluation time.
func NewExprPointcut(expression string, names []string, lookup NamedLookup) (*ExprPointcut, error) {
	p := &ExprPointcut{expression: expression, named: lookup, names: names, funcs: funcs.PointcutFuncMap.GetAll()}
	env := p.env(types.Operation{}, nil)
	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("pointcut expression %q: %w", expression, err)
	}
	p.program = program
	return p, nil
}

// Matches evaluates the expression. An evaluation error is a mismatch.
func (p *ExprPointcut) Matches(op types.Operation, targetType reflect.Type) bool {
	out, err := vm.Run(p.program, p.env(op, targetType))
	if err != nil {
		return false
	}
	matched, ok := out.(bool)
	return ok && matched
}

func (p *ExprPointcut) String() string {
	return p.expression
}

func (p *ExprPointcut) env(op types.Operation, targetType reflect.Type) map[string]interface{} {
	params := make([]string, len(op.Params))
	for i, t := range op.Params {
		params[i] = types.TypeName(t)
	}
	target := ""
	if targetType != nil {
		target = targetType.String()
	}
	env := make(map[string]interface{}, len(p.funcs)+8+len(p.names))
	for name, fn := range p.funcs {
		env[name] = fn
	}
	for k, v := range map[string]interface{}{
		VarOwner:     op.Owner,
		VarName:      op.Name,
		VarSignature: op.Signature(),
		VarParams:    params,
		VarReturns:   types.TypeName(op.Returns),
		VarTarget:    target,
		FuncExecution: func(pattern string) bool {
			e, err := p.execution(pattern)
			return err == nil && e.Matches(op, targetType)
		},
		FuncWithin: func(pattern string) bool {
			return NewWithin(pattern).Matches(op, targetType)
		},
	} {
		env[k] = v
	}
	for _, name := range p.names {
		name := name
		env[name] = func() bool {
			if p.named == nil {
				return false
			}
			named, ok := p.named(name)
			return ok && named.Matches(op, targetType)
		}
	}
	return env
}

func (p *ExprPointcut) execution(pattern string) (*Execution, error) {
	if cached, ok := p.patterns.Load(pattern); ok {
		return cached.(*Execution), nil
	}
	e, err := NewExecution(pattern)
	if err != nil {
		return nil, err
	}
	p.patterns.Store(pattern, e)
	return e, nil
}
