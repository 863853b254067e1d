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

// Package funcs holds the functions callable from pointcut expressions,
// in both the expr and the JavaScript languages:
//
//	wildcard("Query*", name) && !includes(target, "Mock")
//	js: wildcard("*Service", op.owner)
//
// Functions registered after a pointcut has been parsed are not visible to it.
package funcs

import (
	"sort"
	"strings"
	"sync"

	"github.com/rulego/weave/utils/str"
)

// PointcutFuncMap holds the builtin and user pointcut functions.
var PointcutFuncMap funcMap

func init() {
	PointcutFuncMap.RegisterAll(map[string]any{
		// wildcard matches s against a pattern where * matches any run of characters.
		"wildcard": func(pattern, s string) bool {
			return str.MatchWildcard(pattern, s)
		},
		"includes": strings.Contains,
	})
}

type funcMap struct {
	v map[string]any
	sync.RWMutex
}

func (x *funcMap) Register(name string, value any) {
	x.Lock()
	defer x.Unlock()
	if x.v == nil {
		x.v = make(map[string]any)
	}
	x.v[name] = value
}

func (x *funcMap) RegisterAll(values map[string]any) {
	x.Lock()
	defer x.Unlock()
	if x.v == nil {
		x.v = make(map[string]any)
	}
	for k, v := range values {
		x.v[k] = v
	}
}

func (x *funcMap) UnRegister(name string) {
	x.Lock()
	defer x.Unlock()
	if x.v != nil {
		delete(x.v, name)
	}
}

func (x *funcMap) Get(name string) (any, bool) {
	x.RLock()
	defer x.RUnlock()
	if x.v != nil {
		f, ok := x.v[name]
		return f, ok
	}
	return nil, false
}

// GetAll returns a copy of the registered functions.
func (x *funcMap) GetAll() map[string]any {
	x.RLock()
	defer x.RUnlock()
	cp := make(map[string]any, len(x.v))
	for k, v := range x.v {
		cp[k] = v
	}
	return cp
}

// Names returns the sorted function names.
func (x *funcMap) Names() []string {
	x.RLock()
	defer x.RUnlock()
	keys := make([]string, 0, len(x.v))
	for k := range x.v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
