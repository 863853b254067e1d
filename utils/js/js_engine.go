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

// Package js evaluates JavaScript expressions with goja.
//
// An Engine compiles its script once and evaluates it on pooled VMs. Each
// evaluation binds the given variables as globals and is interrupted when it
// runs longer than Config.ScriptMaxExecutionTime. Global properties of the
// container are reachable as `global.key`.
package js

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/builtin/funcs"
)

const (
	//GlobalKey  global properties key,call them through the global.xx method
	GlobalKey = "global"
)

// ErrTimeout is returned when an evaluation exceeds the maximum execution time.
var ErrTimeout = errors.New("js execution timeout")

// GojaJsEngine goja js engine
type GojaJsEngine struct {
	vmPool  sync.Pool
	config  types.Config
	program *goja.Program
	// functions of funcs.PointcutFuncMap when the engine was created
	funcs map[string]interface{}
}

// NewGojaJsEngine compiles jsScript as an expression. A syntax error is returned immediately.
func NewGojaJsEngine(config types.Config, jsScript string) (*GojaJsEngine, error) {
	program, err := goja.Compile("", jsScript, true)
	if err != nil {
		return nil, err
	}
	engine := &GojaJsEngine{
		config:  config,
		program: program,
		funcs:   funcs.PointcutFuncMap.GetAll(),
	}
	engine.vmPool = sync.Pool{
		New: func() interface{} {
			return engine.newVm()
		},
	}
	return engine, nil
}

func (g *GojaJsEngine) newVm() *goja.Runtime {
	vm := goja.New()
	for name, fn := range g.funcs {
		if err := vm.Set(name, fn); err != nil && g.config.Logger != nil {
			g.config.Logger.Warnf("set function %s error: %s", name, err.Error())
		}
	}
	if len(g.config.Properties) != 0 {
		if err := vm.Set(GlobalKey, g.config.Properties); err != nil && g.config.Logger != nil {
			g.config.Logger.Warnf("set global properties error: %s", err.Error())
		}
	}
	return vm
}

// Execute runs the script with vars bound as globals and returns its exported value.
func (g *GojaJsEngine) Execute(vars map[string]interface{}) (out interface{}, err error) {
	defer func() {
		if caught := recover(); caught != nil {
			err = fmt.Errorf("%v", caught)
		}
	}()

	vm := g.vmPool.Get().(*goja.Runtime)
	defer g.vmPool.Put(vm)

	for k, v := range vars {
		if err := vm.Set(k, v); err != nil {
			return nil, err
		}
	}
	defer func() {
		for k := range vars {
			_ = vm.GlobalObject().Delete(k)
		}
	}()

	timer := g.startTimeout(vm)
	res, err := vm.RunProgram(g.program)
	g.stopTimeout(timer)
	// the timer may have fired after the program returned
	vm.ClearInterrupt()
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	return res.Export(), nil
}

// ExecuteBool runs the script and requires a boolean result.
func (g *GojaJsEngine) ExecuteBool(vars map[string]interface{}) (bool, error) {
	out, err := g.Execute(vars)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("js expression returned %T, want bool", out)
	}
	return b, nil
}

// startTimeout starts a timeout for JS script execution using time.AfterFunc
// Returns nil if timeout is not configured
func (g *GojaJsEngine) startTimeout(vm *goja.Runtime) *time.Timer {
	if g.config.ScriptMaxExecutionTime <= 0 {
		return nil
	}
	return time.AfterFunc(g.config.ScriptMaxExecutionTime, func() {
		vm.Interrupt("execution timeout")
	})
}

// stopTimeout stops the timeout timer
func (g *GojaJsEngine) stopTimeout(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
