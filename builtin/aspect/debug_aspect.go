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

package aspect

import (
	"context"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/maps"
)

const (
	// DebugOrder is the default order of Debug.
	DebugOrder = 900
	// FlowIn marks a call entering an operation.
	FlowIn = "In"
	// FlowOut marks a call leaving an operation.
	FlowOut = "Out"
)

var (
	_ types.AspectComponent = (*Debug)(nil)
	_ types.BeforeAdvice    = (*Debug)(nil)
	_ types.AfterAdvice     = (*Debug)(nil)
	_ types.Configurable    = (*Debug)(nil)
)

// DebugConfig is decoded from the definition properties of Debug.
type DebugConfig struct {
	// Pointcut restricts the logged operations. Empty logs every operation.
	Pointcut string
	// Order overrides DebugOrder.
	Order int
}

// Debug logs the operations entering and leaving advised components.
// Debug runs late so that it sees the arguments and results the other
// aspects produced.
type Debug struct {
	base
	// OnDebug receives every event instead of the logger when set.
	OnDebug func(ctx context.Context, flow string, jp types.JoinPoint, result interface{}, err error)
}

func (a *Debug) AspectMetadata() types.AspectMetadata {
	return types.AspectMetadata{
		Order: DebugOrder,
		Advice: []types.AdviceMethod{
			{Method: "Before", Kind: types.Before},
			{Method: "After", Kind: types.After},
		},
	}
}

func (a *Debug) Order() int {
	return a.orderOr(DebugOrder)
}

func (a *Debug) Init(config types.Config, configuration types.Configuration) error {
	var c DebugConfig
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return err
	}
	return a.init(config, c.Pointcut, c.Order)
}

func (a *Debug) Before(ctx context.Context, jp types.JoinPoint) error {
	if a.PointCut(jp) {
		a.onDebug(ctx, FlowIn, jp, nil, nil)
	}
	return nil
}

func (a *Debug) After(ctx context.Context, jp types.JoinPoint, result interface{}, err error) {
	if a.PointCut(jp) {
		a.onDebug(ctx, FlowOut, jp, result, err)
	}
}

func (a *Debug) onDebug(ctx context.Context, flow string, jp types.JoinPoint, result interface{}, err error) {
	if a.OnDebug != nil {
		a.OnDebug(ctx, flow, jp, result, err)
		return
	}
	if flow == FlowIn {
		a.log().Debugf("[%s] %s args=%v", flow, jp.Operation().Key(), jp.Args())
	} else {
		a.log().Debugf("[%s] %s result=%v err=%v", flow, jp.Operation().Key(), result, err)
	}
}
