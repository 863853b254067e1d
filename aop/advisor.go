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
	"fmt"
	"reflect"
	"strings"

	"github.com/rulego/weave/api/types"
)

var _ types.Advisor = (*DefaultAdvisor)(nil)

// DefaultAdvisor pairs a pointcut with an advice.
type DefaultAdvisor struct {
	pointcut   types.Pointcut
	advice     interface{}
	order      int
	aspectName string
	identity   string
}

// AdvisorOption configures a DefaultAdvisor.
type AdvisorOption func(*DefaultAdvisor)

// WithOrder sets the advisor order, LowestPrecedence by default.
func WithOrder(order int) AdvisorOption {
	return func(a *DefaultAdvisor) {
		a.order = order
	}
}

// WithAspectName sets the name of the declaring aspect.
func WithAspectName(name string) AdvisorOption {
	return func(a *DefaultAdvisor) {
		a.aspectName = name
	}
}

// WithIdentity sets the identity used by proxy equality.
func WithIdentity(identity string) AdvisorOption {
	return func(a *DefaultAdvisor) {
		a.identity = identity
	}
}

// NewAdvisor creates an advisor applying advice where pointcut matches.
// A nil pointcut matches every operation. The order defaults to the order of
// advice when it is Ordered.
func NewAdvisor(pointcut types.Pointcut, advice interface{}, opts ...AdvisorOption) *DefaultAdvisor {
	if pointcut == nil {
		pointcut = types.PointcutFunc(func(types.Operation, reflect.Type) bool { return true })
	}
	a := &DefaultAdvisor{
		pointcut: pointcut,
		advice:   advice,
		order:    types.OrderOf(advice),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.identity == "" {
		a.identity = IdentityOf(advice)
		if a.aspectName != "" {
			a.identity = a.aspectName + types.NamespaceSeparator + a.identity
		}
	}
	return a
}

func (a *DefaultAdvisor) Pointcut() types.Pointcut {
	return a.pointcut
}

func (a *DefaultAdvisor) Advice() interface{} {
	return a.advice
}

func (a *DefaultAdvisor) Order() int {
	return a.order
}

func (a *DefaultAdvisor) AspectName() string {
	return a.aspectName
}

func (a *DefaultAdvisor) Identity() string {
	return a.identity
}

func (a *DefaultAdvisor) String() string {
	var sb strings.Builder
	sb.WriteString("advisor[")
	sb.WriteString(a.identity)
	if s, ok := a.pointcut.(fmt.Stringer); ok {
		sb.WriteString(" pointcut=")
		sb.WriteString(s.String())
	}
	sb.WriteString("]")
	return sb.String()
}

// IdentityOf returns a stable identity for v: its Identity when v is
// Identifiable, its type and address when v is a reference, its type otherwise.
func IdentityOf(v interface{}) string {
	if v == nil {
		return "nil"
	}
	if identifiable, ok := v.(types.Identifiable); ok {
		return identifiable.Identity()
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice, reflect.UnsafePointer:
		return fmt.Sprintf("%T@%p", v, v)
	default:
		return fmt.Sprintf("%T", v)
	}
}
