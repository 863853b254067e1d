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
	"github.com/rulego/weave/aop/pointcut"
	"github.com/rulego/weave/api/types"
)

// base holds what the builtin aspects share. The container applies their
// advice to every operation; base narrows it down to the configured pointcut.
type base struct {
	pointcut types.Pointcut
	order    int
	logger   types.Logger
}

func (b *base) init(config types.Config, expression string, order int) error {
	b.logger = config.Logger
	b.order = order
	b.pointcut = nil
	if expression == "" {
		return nil
	}
	pc, err := pointcut.Parse(expression, config)
	if err != nil {
		return err
	}
	b.pointcut = pc
	return nil
}

// PointCut reports whether the aspect applies to the call of jp.
func (b *base) PointCut(jp types.JoinPoint) bool {
	return b.pointcut == nil || b.pointcut.Matches(jp.Operation(), jp.TargetType())
}

func (b *base) orderOr(defaultOrder int) int {
	if b.order == 0 {
		return defaultOrder
	}
	return b.order
}

func (b *base) log() types.Logger {
	if b.logger == nil {
		return types.DefaultLogger()
	}
	return b.logger
}
