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
	"fmt"

	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/maps"
	"go.uber.org/atomic"
)

// LimiterOrder is the default order of Limiter.
const LimiterOrder = 10

var (
	_ types.AspectComponent = (*Limiter)(nil)
	_ types.AroundAdvice    = (*Limiter)(nil)
	_ types.Configurable    = (*Limiter)(nil)
)

// LimiterConfig is decoded from the definition properties of Limiter.
type LimiterConfig struct {
	// Max is the maximum number of concurrent calls, it must be positive.
	Max int64
	// Pointcut restricts the limited operations. Empty limits every operation.
	Pointcut string
	// Order overrides LimiterOrder.
	Order int
}

// Limiter bounds the number of concurrent calls of the advised operations.
// A call above the limit fails with types.ErrConcurrencyLimitReached without
// reaching the target. All the operations it applies to share one counter.
type Limiter struct {
	base
	Max     int64
	current atomic.Int64
}

// NewLimiter creates a limiter admitting max concurrent calls.
func NewLimiter(max int) *Limiter {
	return &Limiter{Max: int64(max)}
}

func (a *Limiter) AspectMetadata() types.AspectMetadata {
	return types.AspectMetadata{
		Order:  LimiterOrder,
		Advice: []types.AdviceMethod{{Method: "Around", Kind: types.Around}},
	}
}

func (a *Limiter) Order() int {
	return a.orderOr(LimiterOrder)
}

func (a *Limiter) Init(config types.Config, configuration types.Configuration) error {
	c := LimiterConfig{Max: a.Max}
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return err
	}
	if c.Max <= 0 {
		return fmt.Errorf("limiter max must be positive, got %d", c.Max)
	}
	a.Max = c.Max
	return a.init(config, c.Pointcut, c.Order)
}

func (a *Limiter) Around(ctx context.Context, inv types.Invocation) (interface{}, error) {
	if !a.PointCut(inv) {
		return inv.Proceed(ctx)
	}
	for {
		current := a.current.Load()
		if current >= a.Max {
			return nil, types.ErrConcurrencyLimitReached
		}
		if a.current.CompareAndSwap(current, current+1) {
			break
		}
	}
	defer a.current.Dec()
	return inv.Proceed(ctx)
}

// Current returns the number of calls in progress.
func (a *Limiter) Current() int64 {
	return a.current.Load()
}
