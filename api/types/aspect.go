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

package types

import (
	"context"
	"reflect"
)

// The interfaces below provide the AOP (Aspect Oriented Programming) mechanism of the container.
//
//   - It allows adding extra behavior to component operations without modifying the components.
//   - It allows separating common behaviors (logging, transactions, security checks, caching) from the business logic.
//
// 以下接口提供 AOP(面向切面编程，Aspect Oriented Programming)机制。
//
//   - 它允许在不修改组件原有逻辑的情况下，对组件的操作添加额外的行为。
//   - 它允许把一些公共的行为（例如：日志、事务、安全检查、缓存）从业务逻辑中分离出来。

// AdviceKind is the behavior of an advice relative to the advised operation.
type AdviceKind int

const (
	// Before advice runs before the operation. An error prevents the call.
	Before AdviceKind = iota
	// After advice runs after the operation, whatever its outcome.
	After
	// AfterReturning advice runs after the operation returned without error.
	AfterReturning
	// AfterThrowing advice runs after the operation returned an error.
	AfterThrowing
	// Around advice decides whether and how the operation proceeds.
	Around
)

func (k AdviceKind) String() string {
	switch k {
	case Before:
		return "before"
	case After:
		return "after"
	case AfterReturning:
		return "afterReturning"
	case AfterThrowing:
		return "afterThrowing"
	case Around:
		return "around"
	default:
		return "unknown"
	}
}

// JoinPoint is the operation call an advice is applied to.
type JoinPoint interface {
	// Operation returns the invoked operation.
	Operation() Operation
	// Args returns the call arguments.
	Args() []interface{}
	// Target returns the target instance, nil when the proxy has no target.
	Target() interface{}
	// This returns the proxy the call came through.
	This() interface{}
	// TargetType returns the runtime type of the target.
	TargetType() reflect.Type
}

// Invocation is a JoinPoint that can proceed to the next link of the chain.
type Invocation interface {
	JoinPoint
	// Proceed calls the next advice, or the target operation after the last advice.
	Proceed(ctx context.Context) (interface{}, error)
	// SetArgs replaces the arguments passed on by Proceed.
	SetArgs(args ...interface{})
}

// MethodInterceptor is the uniform shape every advice is adapted to.
type MethodInterceptor interface {
	Invoke(ctx context.Context, inv Invocation) (interface{}, error)
}

// BeforeAdvice runs before the operation. Returning an error skips the
// operation and the error is returned to the caller.
type BeforeAdvice interface {
	Before(ctx context.Context, jp JoinPoint) error
}

// AfterAdvice runs after the operation on every outcome.
type AfterAdvice interface {
	After(ctx context.Context, jp JoinPoint, result interface{}, err error)
}

// AfterReturningAdvice runs after the operation returned without error.
type AfterReturningAdvice interface {
	AfterReturning(ctx context.Context, jp JoinPoint, result interface{})
}

// AfterThrowingAdvice runs after the operation returned an error.
// The error is returned to the caller unchanged.
type AfterThrowingAdvice interface {
	AfterThrowing(ctx context.Context, jp JoinPoint, err error)
}

// AroundAdvice wraps the operation. Not calling inv.Proceed short-circuits
// the call: the target operation does not run.
type AroundAdvice interface {
	Around(ctx context.Context, inv Invocation) (interface{}, error)
}

// Pointcut selects the operations an advice applies to.
type Pointcut interface {
	// Matches reports whether op invoked on a target of targetType is selected.
	// targetType may be nil when the target is unknown.
	Matches(op Operation, targetType reflect.Type) bool
}

// PointcutFunc adapts a function to Pointcut.
type PointcutFunc func(op Operation, targetType reflect.Type) bool

// Matches calls f.
func (f PointcutFunc) Matches(op Operation, targetType reflect.Type) bool {
	return f(op, targetType)
}

// Advisor pairs a pointcut with an advice. Advisors are immutable.
type Advisor interface {
	Ordered
	Pointcut() Pointcut
	// Advice returns one of the advice interfaces or a MethodInterceptor.
	Advice() interface{}
	// AspectName returns the name of the declaring aspect, empty for programmatic advisors.
	AspectName() string
	// Identity identifies the advisor in proxy equality.
	Identity() string
}

// AdvisorType is the reflect.Type of Advisor.
var AdvisorType = reflect.TypeOf((*Advisor)(nil)).Elem()

// InstantiationModel decides how many aspect instances back the advice of an aspect.
type InstantiationModel int

const (
	// SingletonModel aspects use one instance for all join points.
	SingletonModel InstantiationModel = iota
	// PerCallModel aspects use a new instance for every matched join point.
	// The backing component must not be a container singleton.
	PerCallModel
)

func (m InstantiationModel) String() string {
	if m == PerCallModel {
		return "perCall"
	}
	return "singleton"
}

// AdviceMethod declares one advice of an aspect.
type AdviceMethod struct {
	// Method is the name of the aspect method implementing the advice.
	// Its signature must match the one of the corresponding advice interface method.
	Method string
	// Kind is the advice behavior.
	Kind AdviceKind
	// Pointcut is a pointcut expression or the name of one of AspectMetadata.Pointcuts.
	// An empty pointcut matches every operation.
	Pointcut string
}

// AspectMetadata describes an aspect.
type AspectMetadata struct {
	// Model is the instantiation model.
	Model InstantiationModel
	// Order of the advisors of the aspect.
	Order int
	// Pointcuts are named pointcut expressions referenced by advice methods.
	Pointcuts map[string]string
	// Advice methods in declaration order.
	Advice []AdviceMethod
}

// AspectComponent marks a component type as an aspect.
// AspectMetadata is called on the zero value of the definition type, it must
// not depend on instance state.
type AspectComponent interface {
	AspectMetadata() AspectMetadata
}

// AspectComponentType is the reflect.Type of AspectComponent.
var AspectComponentType = reflect.TypeOf((*AspectComponent)(nil)).Elem()

// AspectInstanceFactory supplies the aspect instance advice methods are bound to.
type AspectInstanceFactory interface {
	AspectInstance() (interface{}, error)
	AspectName() string
	AspectType() reflect.Type
	Ordered
}
