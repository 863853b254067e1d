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
	"strings"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/str"
)

// Execution matches operations against a signature pattern:
//
//	<returns> [<owner>.]<name>(<params>)
//
// Every part is a wildcard pattern where '*' matches any sequence. A missing
// owner matches any owner. In the parameter list, ".." matches any number of
// parameters and "*" matches exactly one. Type names are rendered as in
// Operation.Signature: "void" for no value, "any" for the top type.
//
//	* UserService.Query*(..)
//	string *.Query(int)
//	void Save(*)
type Execution struct {
	pattern string
	returns string
	owner   string
	name    string
	params  []string
	// anyParams is set when the parameter list ends with "..".
	anyParams bool
}

// NewExecution parses an execution pattern.
func NewExecution(pattern string) (*Execution, error) {
	p := strings.TrimSpace(pattern)
	open := strings.IndexByte(p, '(')
	if open < 0 || !strings.HasSuffix(p, ")") {
		return nil, fmt.Errorf("execution pattern %q: missing parameter list", pattern)
	}
	head := strings.Fields(p[:open])
	if len(head) != 2 {
		return nil, fmt.Errorf("execution pattern %q: want \"<returns> <name>(<params>)\"", pattern)
	}
	e := &Execution{pattern: pattern, returns: head[0], owner: "*", name: head[1]}
	if dot := strings.LastIndexByte(head[1], '.'); dot >= 0 {
		e.owner, e.name = head[1][:dot], head[1][dot+1:]
		if e.owner == "" || e.name == "" {
			return nil, fmt.Errorf("execution pattern %q: invalid name", pattern)
		}
	}
	params := strings.TrimSpace(p[open+1 : len(p)-1])
	if params == "" {
		return e, nil
	}
	parts := strings.Split(params, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == ".." {
			if i != len(parts)-1 {
				return nil, fmt.Errorf("execution pattern %q: \"..\" must be the last parameter", pattern)
			}
			e.anyParams = true
			break
		}
		if part == "" {
			return nil, fmt.Errorf("execution pattern %q: empty parameter", pattern)
		}
		e.params = append(e.params, part)
	}
	return e, nil
}

// Matches reports whether op matches the pattern. The target type is not used.
func (e *Execution) Matches(op types.Operation, _ reflect.Type) bool {
	if !str.MatchWildcard(e.returns, types.TypeName(op.Returns)) {
		return false
	}
	if !str.MatchWildcard(e.owner, op.Owner) || !str.MatchWildcard(e.name, op.Name) {
		return false
	}
	if len(op.Params) < len(e.params) || (!e.anyParams && len(op.Params) != len(e.params)) {
		return false
	}
	for i, p := range e.params {
		if !str.MatchWildcard(p, types.TypeName(op.Params[i])) {
			return false
		}
	}
	return true
}

func (e *Execution) String() string {
	return "execution(" + e.pattern + ")"
}

// Within matches targets whose type name matches a wildcard pattern. Pointer
// indirections are removed before matching: *test.UserService matches
// "test.UserService" and "*.UserService". When the target type is unknown the
// operation owner is matched instead.
type Within struct {
	pattern string
}

// NewWithin creates a Within pointcut.
func NewWithin(pattern string) *Within {
	return &Within{pattern: strings.TrimSpace(pattern)}
}

func (w *Within) Matches(op types.Operation, targetType reflect.Type) bool {
	if targetType == nil {
		return str.MatchWildcard(w.pattern, op.Owner)
	}
	for targetType.Kind() == reflect.Ptr {
		targetType = targetType.Elem()
	}
	return str.MatchWildcard(w.pattern, targetType.String())
}

func (w *Within) String() string {
	return "within(" + w.pattern + ")"
}
