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

package types

import "reflect"

// TargetProvider supplies the instance a proxy delegates to.
type TargetProvider interface {
	// TargetType returns the type of the targets, nil when unknown.
	TargetType() reflect.Type
	// Get returns a target for one call.
	Get() (interface{}, error)
	// Release gives back a target obtained from Get. It is a no-op for static providers.
	Release(target interface{}) error
	// IsStatic reports whether Get always returns the same instance.
	// Targets of static providers are never released.
	IsStatic() bool
}

// Identifiable providers define the identity used by proxy equality.
// Two providers with the same identity make equivalent proxies.
type Identifiable interface {
	Identity() string
}

const (
	// AdvisedCapability is the capability of the proxy configuration.
	// Its operations are answered by the configuration, not by the target.
	AdvisedCapability = "Advised"
	// DecoratingProxyCapability is the self-introspection capability of proxies.
	DecoratingProxyCapability = "DecoratingProxy"
)

// Advised is the configuration of a proxy, reachable through the
// AdvisedCapability operations unless the proxy is opaque.
type Advised interface {
	Advisors() []Advisor
	AddAdvisor(advisor Advisor) error
	RemoveAdvisor(advisor Advisor) bool
	TargetProvider() TargetProvider
	TargetType() reflect.Type
	Capabilities() []Capability
	IsExposeProxy() bool
	IsOpaque() bool
}

// DecoratingProxy is implemented by proxies. TargetType returns the type being decorated.
type DecoratingProxy interface {
	DecoratedType() reflect.Type
}

var (
	// TargetTypeOp is the DecoratingProxy operation answered from the proxy configuration.
	TargetTypeOp = NewOperation(DecoratingProxyCapability, "TargetType", reflect.TypeOf((*reflect.Type)(nil)).Elem())
	// EqualOp is the equality operation answered by the proxy unless a capability declares it.
	EqualOp = NewOperation("", "Equal", reflect.TypeOf(false), AnyType)
	// HashOp is the hash operation answered by the proxy unless a capability declares it.
	HashOp = NewOperation("", "Hash", reflect.TypeOf(uint64(0)))
)
