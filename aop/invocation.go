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

package aop

import (
	"context"
	"reflect"

	"github.com/rulego/weave/api/types"
)

var _ types.Invocation = (*MethodInvocation)(nil)

// MethodInvocation is one call travelling through an interceptor chain.
// Each Proceed advances to the next interceptor; the last link calls the
// target. An invocation is not safe for concurrent use and an interceptor
// must not call Proceed more than once.
type MethodInvocation struct {
	proxy        interface{}
	target       interface{}
	targetType   reflect.Type
	op           types.Operation
	args         []interface{}
	interceptors []types.MethodInterceptor
	index        int
}

// NewMethodInvocation creates an invocation of op on target through interceptors.
func NewMethodInvocation(proxy, target interface{}, targetType reflect.Type, op types.Operation, args []interface{},
	interceptors []types.MethodInterceptor) *MethodInvocation {
	return &MethodInvocation{
		proxy:        proxy,
		target:       target,
		targetType:   targetType,
		op:           op,
		args:         args,
		interceptors: interceptors,
	}
}

func (m *MethodInvocation) Proceed(ctx context.Context) (interface{}, error) {
	if m.index == len(m.interceptors) {
		return InvokeJoinpoint(ctx, m.target, m.op, m.args)
	}
	interceptor := m.interceptors[m.index]
	m.index++
	return interceptor.Invoke(ctx, m)
}

func (m *MethodInvocation) SetArgs(args ...interface{}) {
	m.args = args
}

func (m *MethodInvocation) Operation() types.Operation {
	return m.op
}

func (m *MethodInvocation) Args() []interface{} {
	return m.args
}

func (m *MethodInvocation) Target() interface{} {
	return m.target
}

func (m *MethodInvocation) This() interface{} {
	return m.proxy
}

func (m *MethodInvocation) TargetType() reflect.Type {
	return m.targetType
}

// Position returns the index of the next interceptor to run.
func (m *MethodInvocation) Position() int {
	return m.index
}
