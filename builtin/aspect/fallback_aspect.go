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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rulego/weave/aop"
	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/maps"
	"go.uber.org/atomic"
)

// FallbackOrder is the default order of Fallback.
const FallbackOrder = 15

// ErrFallback is returned for the calls skipped by Fallback.
var ErrFallback = errors.New("skip fallback error")

var (
	_ types.AspectComponent = (*Fallback)(nil)
	_ types.AroundAdvice    = (*Fallback)(nil)
	_ types.Configurable    = (*Fallback)(nil)
)

// FallbackConfig is decoded from the definition properties of Fallback.
type FallbackConfig struct {
	// ErrorCountLimit is the number of consecutive failures that opens the
	// operation. Default 3.
	ErrorCountLimit int64
	// LimitDuration is how long an open operation is skipped. Default 10s.
	LimitDuration time.Duration
	// Pointcut restricts the guarded operations. Empty guards every operation.
	Pointcut string
	// Order overrides FallbackOrder.
	Order int
}

// Fallback skips an operation that failed ErrorCountLimit times in a row.
// Its calls fail with ErrFallback, without reaching the target, until
// LimitDuration has passed since the last failure. A successful call resets
// the count. Failures are counted per target and operation, so a failing
// target does not skip the calls of the other targets sharing the aspect.
type Fallback struct {
	base
	ErrorCountLimit int64
	LimitDuration   time.Duration
	// target identity and operation key -> *operationErrors
	errorCache sync.Map
	now        func() time.Time
}

type operationErrors struct {
	errorCount    atomic.Int64
	lastErrorTime atomic.Int64
}

// NewFallback creates a fallback aspect with the given limits. Zero values
// take the defaults.
func NewFallback(errorCountLimit int64, limitDuration time.Duration) *Fallback {
	a := &Fallback{ErrorCountLimit: errorCountLimit, LimitDuration: limitDuration}
	a.defaults()
	return a
}

func (a *Fallback) defaults() {
	if a.ErrorCountLimit == 0 {
		a.ErrorCountLimit = 3
	}
	if a.LimitDuration == 0 {
		a.LimitDuration = 10 * time.Second
	}
}

func (a *Fallback) AspectMetadata() types.AspectMetadata {
	return types.AspectMetadata{
		Order:  FallbackOrder,
		Advice: []types.AdviceMethod{{Method: "Around", Kind: types.Around}},
	}
}

func (a *Fallback) Order() int {
	return a.orderOr(FallbackOrder)
}

func (a *Fallback) Init(config types.Config, configuration types.Configuration) error {
	c := FallbackConfig{ErrorCountLimit: a.ErrorCountLimit, LimitDuration: a.LimitDuration}
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return err
	}
	if c.ErrorCountLimit < 0 || c.LimitDuration < 0 {
		return fmt.Errorf("fallback limits must not be negative, got %d and %s", c.ErrorCountLimit, c.LimitDuration)
	}
	a.ErrorCountLimit = c.ErrorCountLimit
	a.LimitDuration = c.LimitDuration
	a.defaults()
	return a.init(config, c.Pointcut, c.Order)
}

func (a *Fallback) Around(ctx context.Context, inv types.Invocation) (interface{}, error) {
	if !a.PointCut(inv) {
		return inv.Proceed(ctx)
	}
	key := errorsKey(inv.Target(), inv.Operation())
	if opErrors, ok := a.getErrors(key); ok && opErrors.errorCount.Load() >= a.ErrorCountLimit {
		if opErrors.lastErrorTime.Load()+a.LimitDuration.Milliseconds() < a.clock().UnixMilli() {
			a.errorCache.Delete(key)
		} else {
			return nil, fmt.Errorf("%s: %w", inv.Operation().Key(), ErrFallback)
		}
	}
	result, err := inv.Proceed(ctx)
	if err != nil {
		v, _ := a.errorCache.LoadOrStore(key, &operationErrors{})
		opErrors := v.(*operationErrors)
		opErrors.lastErrorTime.Store(a.clock().UnixMilli())
		if opErrors.errorCount.Inc() == a.ErrorCountLimit {
			a.log().Warnf("%s failed %d times, skipped for %s", key, a.ErrorCountLimit, a.LimitDuration)
		}
	} else {
		a.errorCache.Delete(key)
	}
	return result, err
}

// ErrorCount returns the number of consecutive failures of the operation on
// target.
func (a *Fallback) ErrorCount(target interface{}, op types.Operation) int64 {
	if opErrors, ok := a.getErrors(errorsKey(target, op)); ok {
		return opErrors.errorCount.Load()
	}
	return 0
}

// Reset clears the failures of every operation.
func (a *Fallback) Reset() {
	a.errorCache.Range(func(key, value interface{}) bool {
		a.errorCache.Delete(key)
		return true
	})
}

func errorsKey(target interface{}, op types.Operation) string {
	return aop.IdentityOf(target) + types.NamespaceSeparator + op.Key()
}

func (a *Fallback) getErrors(key string) (*operationErrors, bool) {
	if v, ok := a.errorCache.Load(key); ok {
		return v.(*operationErrors), true
	}
	return nil, false
}

func (a *Fallback) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}
