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
	"errors"

	"github.com/rulego/weave/api/types"
)

// ErrNoCurrentProxy is returned by CurrentProxy outside of a call through an exposing proxy.
var ErrNoCurrentProxy = errors.New("cannot find current proxy: set ExposeProxy on the proxy configuration to make it available")

type currentProxyKey struct{}

// WithCurrentProxy returns a context carrying proxy as the current proxy.
func WithCurrentProxy(ctx context.Context, proxy types.Invoker) context.Context {
	return context.WithValue(ctx, currentProxyKey{}, proxy)
}

// CurrentProxy returns the proxy the current call came through. It lets a
// target call its own operations through the proxy, advice included:
//
//	func (s *UserService) Count(ctx context.Context) (int, error) {
//		self, err := aop.CurrentProxy(ctx)
//		...
//		names, err := self.Invoke(ctx, NamesOp)
//	}
func CurrentProxy(ctx context.Context) (types.Invoker, error) {
	if ctx != nil {
		if proxy, ok := ctx.Value(currentProxyKey{}).(types.Invoker); ok {
			return proxy, nil
		}
	}
	return nil, ErrNoCurrentProxy
}
