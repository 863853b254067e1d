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

import "errors"

const (
	// Global is the placeholder prefix of global properties: ${global.key}.
	Global = "global"
	// NamespaceSeparator separates namespaces in cache keys.
	NamespaceSeparator = ":"
	// GeneratedNameSeparator separates the type name and the unique suffix of generated definition names.
	GeneratedNameSeparator = "#"
)

const (
	// AutoProxyCreatorName is the definition name of the auto-proxy creator.
	AutoProxyCreatorName = "weave.internalAutoProxyCreator"
	// ProcessorCheckerName is the name the processor checker is logged under.
	ProcessorCheckerName = "weave.internalProcessorChecker"
)

const (
	// ConfigurationKeyPointcut is the property holding the pointcut expression of builtin aspects.
	ConfigurationKeyPointcut = "pointcut"
	// ConfigurationKeyOrder is the property holding the order of builtin aspects and extensions.
	ConfigurationKeyOrder = "order"
)

var (
	// ErrNotFound is returned when a component or definition does not exist.
	ErrNotFound = errors.New("component not found")
	// ErrAlreadyExists is returned when a definition name is taken and overriding is disabled.
	ErrAlreadyExists = errors.New("component already exists")
	// ErrConcurrencyLimitReached is returned when the concurrency limit has been reached.
	ErrConcurrencyLimitReached = errors.New("concurrency limit reached")
	// ErrNoTarget is returned when an operation reaches the end of a chain without a target.
	ErrNoTarget = errors.New("proxy has no target")
	// ErrContainerClosed is returned when a closed container is used.
	ErrContainerClosed = errors.New("container is closed")
	// ErrContainerNotRefreshed is returned when components are requested before Refresh.
	ErrContainerNotRefreshed = errors.New("container is not refreshed")
	// ErrPoolExhausted is returned when a pooled target provider has no free instance.
	ErrPoolExhausted = errors.New("target pool exhausted")
)
