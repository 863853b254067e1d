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
	"time"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/api/types/metrics"
	"github.com/rulego/weave/utils/maps"
)

// MetricsOrder is the default order of Metrics.
const MetricsOrder = 20

var (
	_ types.AspectComponent = (*Metrics)(nil)
	_ types.AroundAdvice    = (*Metrics)(nil)
	_ types.Configurable    = (*Metrics)(nil)
)

// MetricsConfig is decoded from the definition properties of Metrics.
type MetricsConfig struct {
	// Pointcut restricts the measured operations. Empty measures every operation.
	Pointcut string
	// Order overrides MetricsOrder.
	Order int
}

// Metrics counts the calls of the advised operations: in progress, total,
// succeeded, failed and their cumulated duration.
type Metrics struct {
	base
	metrics *metrics.InvocationMetrics
}

// NewMetrics creates a metrics aspect updating m. A nil m gets fresh counters.
func NewMetrics(m *metrics.InvocationMetrics) *Metrics {
	if m == nil {
		m = metrics.NewInvocationMetrics()
	}
	return &Metrics{metrics: m}
}

func (a *Metrics) AspectMetadata() types.AspectMetadata {
	return types.AspectMetadata{
		Order:  MetricsOrder,
		Advice: []types.AdviceMethod{{Method: "Around", Kind: types.Around}},
	}
}

func (a *Metrics) Order() int {
	return a.orderOr(MetricsOrder)
}

func (a *Metrics) Init(config types.Config, configuration types.Configuration) error {
	var c MetricsConfig
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return err
	}
	if a.metrics == nil {
		a.metrics = metrics.NewInvocationMetrics()
	}
	return a.init(config, c.Pointcut, c.Order)
}

func (a *Metrics) Around(ctx context.Context, inv types.Invocation) (interface{}, error) {
	if !a.PointCut(inv) {
		return inv.Proceed(ctx)
	}
	a.metrics.Begin()
	start := time.Now()
	result, err := inv.Proceed(ctx)
	a.metrics.End(time.Since(start), err)
	return result, err
}

// GetMetrics returns the updated counters.
func (a *Metrics) GetMetrics() *metrics.InvocationMetrics {
	return a.metrics
}
