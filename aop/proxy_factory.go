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
	"github.com/rulego/weave/api/types"
)

// ProxyFactory builds proxies programmatically.
//
//	factory := aop.NewProxyFactory(service)
//	_ = factory.AddAdvice(&auditAdvice{})
//	proxy, err := factory.Proxy()
type ProxyFactory struct {
	config *AdvisedConfig
}

// NewProxyFactory creates a factory proxying target. The capabilities of an
// Operable target are proxied. A nil target makes a proxy without target.
func NewProxyFactory(target interface{}) *ProxyFactory {
	f := &ProxyFactory{config: NewAdvisedConfig(EmptyTarget)}
	if target != nil {
		f.SetTarget(target)
	}
	return f
}

// SetTarget proxies target through a SingletonTarget and adds its capabilities when it is Operable.
func (f *ProxyFactory) SetTarget(target interface{}) *ProxyFactory {
	f.config.SetTargetProvider(NewSingletonTarget(target))
	if operable, ok := target.(types.Operable); ok {
		f.config.AddCapabilities(operable.Capabilities()...)
	}
	return f
}

// SetTargetProvider replaces the target provider.
func (f *ProxyFactory) SetTargetProvider(provider types.TargetProvider) *ProxyFactory {
	f.config.SetTargetProvider(provider)
	return f
}

// AddCapability adds proxied capabilities.
func (f *ProxyFactory) AddCapability(capabilities ...types.Capability) *ProxyFactory {
	f.config.AddCapabilities(capabilities...)
	return f
}

// AddAdvice adds an advisor applying advice to every operation.
func (f *ProxyFactory) AddAdvice(advice interface{}) error {
	return f.config.AddAdvisor(NewAdvisor(nil, advice))
}

// AddAdvisor adds advisor.
func (f *ProxyFactory) AddAdvisor(advisor types.Advisor) error {
	return f.config.AddAdvisor(advisor)
}

func (f *ProxyFactory) SetExposeProxy(exposeProxy bool) *ProxyFactory {
	f.config.SetExposeProxy(exposeProxy)
	return f
}

func (f *ProxyFactory) SetOpaque(opaque bool) *ProxyFactory {
	f.config.SetOpaque(opaque)
	return f
}

func (f *ProxyFactory) SetChainCacheSize(size int) *ProxyFactory {
	f.config.SetChainCacheSize(size)
	return f
}

// Config returns the configuration shared by the proxies of the factory.
func (f *ProxyFactory) Config() *AdvisedConfig {
	return f.config
}

// Proxy creates a proxy over the current configuration.
func (f *ProxyFactory) Proxy() (*Proxy, error) {
	return NewProxy(f.config)
}
