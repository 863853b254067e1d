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

package test

import (
	"context"
	"fmt"

	"github.com/rulego/weave/api/types"
	"go.uber.org/atomic"
)

// TraceAspect is a singleton aspect tracing UserService queries and counts.
type TraceAspect struct {
	Journal *Journal
}

func (a *TraceAspect) AspectMetadata() types.AspectMetadata {
	return types.AspectMetadata{
		Order: 1,
		Pointcuts: map[string]string{
			"queries": `name startsWith "Query"`,
			"counts":  `owner == "UserService" && name == "Count"`,
		},
		Advice: []types.AdviceMethod{
			{Method: "Around", Kind: types.Around, Pointcut: "counts()"},
			{Method: "LogBefore", Kind: types.Before, Pointcut: "queries"},
			{Method: "LogAfter", Kind: types.After, Pointcut: `queries() || counts()`},
			{Method: "LogReturning", Kind: types.AfterReturning, Pointcut: "counts"},
			{Method: "LogThrowing", Kind: types.AfterThrowing, Pointcut: "queries"},
		},
	}
}

func (a *TraceAspect) Around(ctx context.Context, inv types.Invocation) (interface{}, error) {
	a.Journal.Record("trace.enter:" + inv.Operation().Name)
	result, err := inv.Proceed(ctx)
	a.Journal.Record("trace.exit:" + inv.Operation().Name)
	return result, err
}

func (a *TraceAspect) LogBefore(ctx context.Context, jp types.JoinPoint) error {
	a.Journal.Record("trace.before:" + jp.Operation().Name)
	return nil
}

func (a *TraceAspect) LogAfter(ctx context.Context, jp types.JoinPoint, result interface{}, err error) {
	a.Journal.Record("trace.after:" + jp.Operation().Name)
}

func (a *TraceAspect) LogReturning(ctx context.Context, jp types.JoinPoint, result interface{}) {
	a.Journal.Record(fmt.Sprintf("trace.returning:%s=%v", jp.Operation().Name, result))
}

func (a *TraceAspect) LogThrowing(ctx context.Context, jp types.JoinPoint, err error) {
	a.Journal.Record("trace.throwing:" + jp.Operation().Name)
}

// PerCallAspect is a per-call aspect recording the id of the instance serving each call.
type PerCallAspect struct {
	Journal *Journal
	ID      int64
}

func (a *PerCallAspect) AspectMetadata() types.AspectMetadata {
	return types.AspectMetadata{
		Model:  types.PerCallModel,
		Order:  2,
		Advice: []types.AdviceMethod{{Method: "Before", Kind: types.Before, Pointcut: `owner == "Calculator"`}},
	}
}

func (a *PerCallAspect) Before(ctx context.Context, jp types.JoinPoint) error {
	a.Journal.Record(fmt.Sprintf("percall#%d:%s", a.ID, jp.Operation().Name))
	return nil
}

// PerCallAspectDefinition returns a definition of PerCallAspect numbering its
// instances from 1. scope must be a prototype for the aspect to be valid.
func PerCallAspectDefinition(name string, journal *Journal, scope types.Scope) *types.Definition {
	var ids atomic.Int64
	return types.NewDefinition(name, &PerCallAspect{}).
		WithScope(scope).
		WithFactory(func() (interface{}, error) {
			return &PerCallAspect{Journal: journal, ID: ids.Inc()}, nil
		})
}

// InstanceAspect is a singleton-model aspect recording the id of the instance
// serving each call.
type InstanceAspect struct {
	Journal *Journal
	ID      int64
}

func (a *InstanceAspect) AspectMetadata() types.AspectMetadata {
	return types.AspectMetadata{
		Order:  3,
		Advice: []types.AdviceMethod{{Method: "Before", Kind: types.Before, Pointcut: `owner == "Calculator"`}},
	}
}

func (a *InstanceAspect) Before(ctx context.Context, jp types.JoinPoint) error {
	a.Journal.Record(fmt.Sprintf("instance#%d:%s", a.ID, jp.Operation().Name))
	return nil
}

// OrderedInstanceAspect is an Ordered InstanceAspect, its zero value has order 7.
type OrderedInstanceAspect struct {
	InstanceAspect
	Ord int
}

func (a *OrderedInstanceAspect) Order() int {
	if a.Ord == 0 {
		return 7
	}
	return a.Ord
}

// InstanceAspectDefinition returns a definition of InstanceAspect numbering
// its instances from 1.
func InstanceAspectDefinition(name string, journal *Journal, scope types.Scope) *types.Definition {
	var ids atomic.Int64
	return types.NewDefinition(name, &InstanceAspect{}).
		WithScope(scope).
		WithFactory(func() (interface{}, error) {
			return &InstanceAspect{Journal: journal, ID: ids.Inc()}, nil
		})
}

// BrokenAspect declares an advice method with the wrong signature.
type BrokenAspect struct{}

func (a *BrokenAspect) AspectMetadata() types.AspectMetadata {
	return types.AspectMetadata{
		Advice: []types.AdviceMethod{{Method: "Wrong", Kind: types.Before}},
	}
}

func (a *BrokenAspect) Wrong(ctx context.Context) error {
	return nil
}
