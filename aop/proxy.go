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
	"reflect"

	"github.com/rulego/weave/api/types"
	"github.com/zeebo/xxh3"
	"go.uber.org/atomic"
)

var (
	_ types.Invoker         = (*Proxy)(nil)
	_ types.Operable        = (*Proxy)(nil)
	_ types.DecoratingProxy = (*Proxy)(nil)
)

// Stats are the call counters of a proxy.
type Stats struct {
	// Direct calls matched no interceptor and went straight to the target.
	Direct int64
	// Chained calls went through an interceptor chain.
	Chained int64
}

// Proxy intercepts the operations of the capabilities of its configuration.
// It is safe for concurrent use.
type Proxy struct {
	config       *AdvisedConfig
	equalDefined bool
	hashDefined  bool
	direct       atomic.Int64
	chained      atomic.Int64
}

// NewProxy creates a proxy for config. A configuration without advisors and
// without target cannot answer any call and is rejected.
func NewProxy(config *AdvisedConfig) (*Proxy, error) {
	if config == nil {
		return nil, types.NewConfigurationError("", "proxy creation", "no configuration")
	}
	if len(config.Advisors()) == 0 && IsEmptyTarget(config.TargetProvider()) {
		return nil, types.NewConfigurationError("", "proxy creation", "no advisors and no target specified")
	}
	return &Proxy{
		config:       config,
		equalDefined: config.declares(types.EqualOp),
		hashDefined:  config.declares(types.HashOp),
	}, nil
}

// Invoke calls op through the interceptors matching it, then on the target.
// Equal and Hash are answered by the proxy unless a proxied capability declares
// them. DecoratingProxy.TargetType and, unless the proxy is opaque, Advised
// operations are answered by the configuration without advice. A nil ctx is
// taken as context.Background().
func (p *Proxy) Invoke(ctx context.Context, op types.Operation, args ...interface{}) (result interface{}, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	switch {
	case !p.equalDefined && op.SameSignature(types.EqualOp):
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: expected 1 argument, got %d", op.Signature(), len(args))
		}
		return p.Equal(args[0]), nil
	case !p.hashDefined && op.SameSignature(types.HashOp):
		return p.Hash(), nil
	case op.Owner == types.DecoratingProxyCapability && op.SameSignature(types.TargetTypeOp):
		return p.config.TargetType(), nil
	case op.Owner == types.AdvisedCapability && !p.config.IsOpaque():
		return invokeReflective(ctx, p.config, op, args)
	}

	if p.config.IsExposeProxy() {
		ctx = WithCurrentProxy(ctx, p)
	}

	provider := p.config.TargetProvider()
	target, err := provider.Get()
	if err != nil {
		return nil, err
	}
	if target != nil && !provider.IsStatic() {
		defer func() {
			if releaseErr := provider.Release(target); releaseErr != nil && err == nil {
				result, err = nil, releaseErr
			}
		}()
	}

	targetType := provider.TargetType()
	if target != nil {
		targetType = reflect.TypeOf(target)
	}

	chain := p.config.Interceptors(op, targetType)
	if len(chain) == 0 {
		p.direct.Inc()
		result, err = InvokeJoinpoint(ctx, target, op, args)
	} else {
		p.chained.Inc()
		result, err = NewMethodInvocation(p, target, targetType, op, args, chain).Proceed(ctx)
	}
	if err != nil {
		return result, err
	}

	if target != nil && p.isSelfReference(op, result, target) {
		return p, nil
	}
	if result == nil && types.IsScalar(op.Returns) {
		return nil, &types.InterceptionError{
			Operation: op,
			Reason:    fmt.Sprintf("null return value does not match scalar return type %s", types.TypeName(op.Returns)),
		}
	}
	return result, nil
}

// isSelfReference reports whether result is the raw target and the proxy can
// stand in for it.
func (p *Proxy) isSelfReference(op types.Operation, result, target interface{}) bool {
	if result == nil || op.Returns == nil || op.Returns == types.AnyType {
		return false
	}
	rt := reflect.TypeOf(result)
	if rt != reflect.TypeOf(target) || !rt.Comparable() || result != target {
		return false
	}
	if !reflect.TypeOf(p).AssignableTo(op.Returns) {
		return false
	}
	return !p.config.rawTargetAccess(op)
}

// Equal reports whether other is a proxy with an equivalent configuration:
// same capabilities, same advisors and same target provider.
func (p *Proxy) Equal(other interface{}) bool {
	o, ok := other.(*Proxy)
	if !ok || o == nil {
		return false
	}
	if o == p {
		return true
	}
	return p.config.Identity() == o.config.Identity()
}

// Hash is consistent with Equal.
func (p *Proxy) Hash() uint64 {
	return xxh3.HashString(p.config.Identity())
}

// Capabilities returns the proxied capabilities, plus DecoratingProxy and,
// unless the proxy is opaque, Advised.
func (p *Proxy) Capabilities() []types.Capability {
	capabilities := append(p.config.Capabilities(), DecoratingProxyCapability)
	if !p.config.IsOpaque() {
		capabilities = append(capabilities, AdvisedCapability)
	}
	return capabilities
}

// DecoratedType returns the type of the proxied targets.
func (p *Proxy) DecoratedType() reflect.Type {
	return p.config.TargetType()
}

// Advised returns the proxy configuration. It reports false for opaque proxies.
func (p *Proxy) Advised() (types.Advised, bool) {
	if p.config.IsOpaque() {
		return nil, false
	}
	return p.config, true
}

// Stats returns the call counters.
func (p *Proxy) Stats() Stats {
	return Stats{Direct: p.direct.Load(), Chained: p.chained.Load()}
}

func (p *Proxy) String() string {
	return fmt.Sprintf("Proxy[%s]", p.config.Identity())
}

// IsProxy reports whether v is a proxy.
func IsProxy(v interface{}) bool {
	_, ok := v.(*Proxy)
	return ok
}
