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

// Package aop implements interception proxies.
//
// A Proxy is built from an AdvisedConfig: the proxied capabilities, a target
// provider and an ordered list of advisors. Every call made through
// Proxy.Invoke runs the interceptors of the advisors whose pointcut matches
// the operation, then the target operation.
//
//	config := aop.NewAdvisedConfig(aop.NewSingletonTarget(service), service.Capabilities()...)
//	_ = config.AddAdvisor(aop.NewAdvisor(pointcut.NameMatch("Query*"), &auditAdvice{}))
//	proxy, err := aop.NewProxy(config)
//	name, err := proxy.Invoke(ctx, QueryOp, 42)
package aop

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/rulego/weave/api/types"
)

var _ types.Advised = (*AdvisedConfig)(nil)

// advisorEntry is an advisor with its advice adapted to interceptors.
type advisorEntry struct {
	advisor      types.Advisor
	interceptors []types.MethodInterceptor
}

// AdvisedConfig is the configuration of a proxy. Advisors can be added and
// removed while the proxy is in use; cached chains are invalidated.
type AdvisedConfig struct {
	mu           sync.RWMutex
	entries      []advisorEntry
	target       types.TargetProvider
	capabilities []types.Capability
	exposeProxy  bool
	opaque       bool
	chains       *ChainFactory
}

// NewAdvisedConfig creates a configuration proxying capabilities of the
// targets of provider. A nil provider is EmptyTarget.
func NewAdvisedConfig(provider types.TargetProvider, capabilities ...types.Capability) *AdvisedConfig {
	if provider == nil {
		provider = EmptyTarget
	}
	return &AdvisedConfig{
		target:       provider,
		capabilities: capabilities,
		chains:       NewChainFactory(types.DefaultChainCacheSize),
	}
}

// SetChainCacheSize replaces the chain cache with one of size entries.
func (c *AdvisedConfig) SetChainCacheSize(size int) {
	c.mu.Lock()
	c.chains = NewChainFactory(size)
	c.mu.Unlock()
}

// SetExposeProxy sets whether calls publish the proxy in their context, see CurrentProxy.
func (c *AdvisedConfig) SetExposeProxy(exposeProxy bool) {
	c.mu.Lock()
	c.exposeProxy = exposeProxy
	c.mu.Unlock()
}

// SetOpaque sets whether the proxy refuses to answer Advised operations.
func (c *AdvisedConfig) SetOpaque(opaque bool) {
	c.mu.Lock()
	c.opaque = opaque
	c.mu.Unlock()
}

// SetTargetProvider replaces the target provider.
func (c *AdvisedConfig) SetTargetProvider(provider types.TargetProvider) {
	if provider == nil {
		provider = EmptyTarget
	}
	c.mu.Lock()
	c.target = provider
	c.chains.Invalidate()
	c.mu.Unlock()
}

// AddCapabilities appends proxied capabilities.
func (c *AdvisedConfig) AddCapabilities(capabilities ...types.Capability) {
	c.mu.Lock()
	c.capabilities = append(c.capabilities, capabilities...)
	c.mu.Unlock()
}

func (c *AdvisedConfig) Advisors() []types.Advisor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	advisors := make([]types.Advisor, len(c.entries))
	for i, e := range c.entries {
		advisors[i] = e.advisor
	}
	return advisors
}

// AddAdvisor appends advisor. Its advice must implement one of the advice interfaces.
func (c *AdvisedConfig) AddAdvisor(advisor types.Advisor) error {
	if advisor == nil {
		return errors.New("advisor is nil")
	}
	interceptors, err := AdaptAdvice(advisor.Advice())
	if err != nil {
		return types.NewConfigurationError(advisor.Identity(), "add advisor", err.Error())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, advisorEntry{advisor: advisor, interceptors: interceptors})
	c.chains.Invalidate()
	return nil
}

// AddAdvisors appends every advisor, stopping at the first invalid one.
func (c *AdvisedConfig) AddAdvisors(advisors ...types.Advisor) error {
	for _, a := range advisors {
		if err := c.AddAdvisor(a); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAdvisor removes the first advisor with the identity of advisor.
func (c *AdvisedConfig) RemoveAdvisor(advisor types.Advisor) bool {
	if advisor == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.entries {
		if e.advisor.Identity() == advisor.Identity() {
			c.entries = append(c.entries[:i:i], c.entries[i+1:]...)
			c.chains.Invalidate()
			return true
		}
	}
	return false
}

func (c *AdvisedConfig) TargetProvider() types.TargetProvider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target
}

func (c *AdvisedConfig) TargetType() reflect.Type {
	return c.TargetProvider().TargetType()
}

func (c *AdvisedConfig) Capabilities() []types.Capability {
	c.mu.RLock()
	defer c.mu.RUnlock()
	capabilities := make([]types.Capability, len(c.capabilities))
	copy(capabilities, c.capabilities)
	return capabilities
}

func (c *AdvisedConfig) IsExposeProxy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exposeProxy
}

func (c *AdvisedConfig) IsOpaque() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opaque
}

// Interceptors returns the cached interceptor chain of op on targetType.
func (c *AdvisedConfig) Interceptors(op types.Operation, targetType reflect.Type) []types.MethodInterceptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chains.Interceptors(c.entries, op, targetType)
}

// ChainFactory returns the chain cache of the configuration.
func (c *AdvisedConfig) ChainFactory() *ChainFactory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chains
}

// Identity identifies the configuration by its capabilities, advisors and
// target provider. Proxies with equal identities are equal.
func (c *AdvisedConfig) Identity() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var sb strings.Builder
	sb.WriteString("capabilities=")
	for i, capability := range c.capabilities {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(capability.Name)
	}
	sb.WriteString(";advisors=")
	for i, e := range c.entries {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(e.advisor.Identity())
	}
	sb.WriteString(";target=")
	sb.WriteString(IdentityOf(c.target))
	return sb.String()
}

// declares reports whether a proxied capability declares an operation with the signature of op.
func (c *AdvisedConfig) declares(op types.Operation) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, capability := range c.capabilities {
		if capability.Declares(op) {
			return true
		}
	}
	return false
}

// rawTargetAccess reports whether the capability owning op opts out of self-reference substitution.
func (c *AdvisedConfig) rawTargetAccess(op types.Operation) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, capability := range c.capabilities {
		if capability.Name == op.Owner && capability.RawTargetAccess {
			return true
		}
	}
	return false
}

func (c *AdvisedConfig) String() string {
	return fmt.Sprintf("AdvisedConfig[%s; exposeProxy=%t; opaque=%t]", c.Identity(), c.IsExposeProxy(), c.IsOpaque())
}

var (
	advisorSliceType   = reflect.TypeOf([]types.Advisor(nil))
	advisorType        = types.AdvisorType
	targetProviderType = reflect.TypeOf((*types.TargetProvider)(nil)).Elem()
	reflectTypeType    = reflect.TypeOf((*reflect.Type)(nil)).Elem()
	boolType           = reflect.TypeOf(false)

	// AdvisorsOp returns the advisors of the proxy configuration.
	AdvisorsOp = types.NewOperation(types.AdvisedCapability, "Advisors", advisorSliceType)
	// AddAdvisorOp adds an advisor to the proxy configuration.
	AddAdvisorOp = types.NewOperation(types.AdvisedCapability, "AddAdvisor", nil, advisorType)
	// RemoveAdvisorOp removes an advisor from the proxy configuration.
	RemoveAdvisorOp = types.NewOperation(types.AdvisedCapability, "RemoveAdvisor", boolType, advisorType)
	// TargetProviderOp returns the target provider of the proxy configuration.
	TargetProviderOp = types.NewOperation(types.AdvisedCapability, "TargetProvider", targetProviderType)
	// AdvisedTargetTypeOp returns the target type of the proxy configuration.
	AdvisedTargetTypeOp = types.NewOperation(types.AdvisedCapability, "TargetType", reflectTypeType)
	// IsExposeProxyOp returns whether the proxy is exposed in call contexts.
	IsExposeProxyOp = types.NewOperation(types.AdvisedCapability, "IsExposeProxy", boolType)
	// IsOpaqueOp returns whether the proxy is opaque.
	IsOpaqueOp = types.NewOperation(types.AdvisedCapability, "IsOpaque", boolType)

	// AdvisedCapability declares the operations answered by the proxy configuration.
	AdvisedCapability = types.Capability{
		Name:       types.AdvisedCapability,
		Operations: []types.Operation{AdvisorsOp, AddAdvisorOp, RemoveAdvisorOp, TargetProviderOp, AdvisedTargetTypeOp, IsExposeProxyOp, IsOpaqueOp},
	}
	// DecoratingProxyCapability declares the self-introspection operation of proxies.
	DecoratingProxyCapability = types.Capability{
		Name:       types.DecoratingProxyCapability,
		Operations: []types.Operation{types.TargetTypeOp},
	}
)
