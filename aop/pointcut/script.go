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

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/js"
)

// ScriptPrefix selects the JavaScript pointcut language.
const ScriptPrefix = "js:"

// ScriptPointcut is a boolean JavaScript expression evaluated per operation.
//
// The script sees the operation as `op` with the fields owner, name,
// signature, params, returns and target, the global properties of the
// container as `global`, and one function per named pointcut:
//
//	js: op.name.indexOf("Query") === 0 && op.owner === global.service
type ScriptPointcut struct {
	script string
	engine *js.GojaJsEngine
	named  NamedLookup
	names  []string
	logger types.Logger
}

// NewScriptPointcut compiles script. Evaluations longer than
// config.ScriptMaxExecutionTime are interrupted and count as a mismatch.
func NewScriptPointcut(config types.Config, script string, names []string, lookup NamedLookup) (*ScriptPointcut, error) {
	engine, err := js.NewGojaJsEngine(config, script)
	if err != nil {
		return nil, fmt.Errorf("pointcut script %q: %w", script, err)
	}
	return &ScriptPointcut{
		script: script,
		engine: engine,
		named:  lookup,
		names:  names,
		logger: config.Logger,
	}, nil
}

func (p *ScriptPointcut) Matches(op types.Operation, targetType reflect.Type) bool {
	params := make([]string, len(op.Params))
	for i, t := range op.Params {
		params[i] = types.TypeName(t)
	}
	target := ""
	if targetType != nil {
		target = targetType.String()
	}
	vars := map[string]interface{}{
		"op": map[string]interface{}{
			VarOwner:     op.Owner,
			VarName:      op.Name,
			VarSignature: op.Signature(),
			VarParams:    params,
			VarReturns:   types.TypeName(op.Returns),
			VarTarget:    target,
		},
	}
	for _, name := range p.names {
		name := name
		vars[name] = func() bool {
			if p.named == nil {
				return false
			}
			named, ok := p.named(name)
			return ok && named.Matches(op, targetType)
		}
	}
	matched, err := p.engine.ExecuteBool(vars)
	if err != nil {
		if p.logger != nil {
			p.logger.Warnf("pointcut script %q on %s: %v", p.script, op.Signature(), err)
		}
		return false
	}
	return matched
}

func (p *ScriptPointcut) String() string {
	return ScriptPrefix + p.script
}
