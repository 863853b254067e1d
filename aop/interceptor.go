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
	"fmt"

	"github.com/rulego/weave/api/types"
)

// AdaptAdvice returns the interceptors implementing advice. An advice
// implementing several advice interfaces gets one interceptor per interface,
// in this order: MethodInterceptor, Around, Before, After, AfterReturning,
// AfterThrowing.
func AdaptAdvice(advice interface{}) ([]types.MethodInterceptor, error) {
	var interceptors []types.MethodInterceptor
	if mi, ok := advice.(types.MethodInterceptor); ok {
		interceptors = append(interceptors, mi)
	}
	if a, ok := advice.(types.AroundAdvice); ok {
		interceptors = append(interceptors, &aroundInterceptor{advice: a})
	}
	if a, ok := advice.(types.BeforeAdvice); ok {
		interceptors = append(interceptors, &beforeInterceptor{advice: a})
	}
	if a, ok := advice.(types.AfterAdvice); ok {
		interceptors = append(interceptors, &afterInterceptor{advice: a})
	}
	if a, ok := advice.(types.AfterReturningAdvice); ok {
		interceptors = append(interceptors, &afterReturningInterceptor{advice: a})
	}
	if a, ok := advice.(types.AfterThrowingAdvice); ok {
		interceptors = append(interceptors, &afterThrowingInterceptor{advice: a})
	}
	if len(interceptors) == 0 {
		return nil, fmt.Errorf("advice of type %T implements no advice interface", advice)
	}
	return interceptors, nil
}

// MethodInterceptorFunc adapts a function to types.MethodInterceptor.
type MethodInterceptorFunc func(ctx context.Context, inv types.Invocation) (interface{}, error)

func (f MethodInterceptorFunc) Invoke(ctx context.Context, inv types.Invocation) (interface{}, error) {
	return f(ctx, inv)
}

type aroundInterceptor struct {
	advice types.AroundAdvice
}

func (i *aroundInterceptor) Invoke(ctx context.Context, inv types.Invocation) (interface{}, error) {
	return i.advice.Around(ctx, inv)
}

type beforeInterceptor struct {
	advice types.BeforeAdvice
}

func (i *beforeInterceptor) Invoke(ctx context.Context, inv types.Invocation) (interface{}, error) {
	if err := i.advice.Before(ctx, inv); err != nil {
		return nil, err
	}
	return inv.Proceed(ctx)
}

type afterInterceptor struct {
	advice types.AfterAdvice
}

func (i *afterInterceptor) Invoke(ctx context.Context, inv types.Invocation) (result interface{}, err error) {
	defer func() {
		i.advice.After(ctx, inv, result, err)
	}()
	return inv.Proceed(ctx)
}

type afterReturningInterceptor struct {
	advice types.AfterReturningAdvice
}

func (i *afterReturningInterceptor) Invoke(ctx context.Context, inv types.Invocation) (interface{}, error) {
	result, err := inv.Proceed(ctx)
	if err == nil {
		i.advice.AfterReturning(ctx, inv, result)
	}
	return result, err
}

type afterThrowingInterceptor struct {
	advice types.AfterThrowingAdvice
}

func (i *afterThrowingInterceptor) Invoke(ctx context.Context, inv types.Invocation) (interface{}, error) {
	result, err := inv.Proceed(ctx)
	if err != nil {
		i.advice.AfterThrowing(ctx, inv, err)
	}
	return result, err
}
