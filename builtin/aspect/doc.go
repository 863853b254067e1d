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

// Package aspect provides the builtin aspects of the container.
//
// Every builtin aspect is an AspectComponent: registered as a definition, it
// is discovered by the advisor resolver and applied by the auto-proxy creator
// to every eligible component. Its "pointcut" property narrows the operations
// it applies to. The aspects also implement the advice interfaces, so they can
// be added to a proxy factory directly:
//
//	factory := aop.NewProxyFactory(service)
//	_ = factory.AddAdvice(aspect.NewLimiter(100))
//
// Available aspects, in execution order:
//
//   - Limiter (order 10): rejects calls above a concurrency limit.
//   - Fallback (order 15): skips operations after repeated failures.
//   - Metrics (order 20): counts calls, failures and durations.
//   - Cache (order 30): returns cached results of successful calls.
//   - Debug (order 900): logs calls and their outcome.
//
// The "order" property overrides the default order of each aspect.
package aspect
