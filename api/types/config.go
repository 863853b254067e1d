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

import "time"

const (
	// DefaultChainCacheSize is the default number of cached interceptor chains per proxy configuration.
	DefaultChainCacheSize = 1024
	// DefaultScriptMaxExecutionTime is the default timeout of script pointcuts.
	DefaultScriptMaxExecutionTime = time.Millisecond * 2000
)

// Config defines the configuration of the container.
type Config struct {
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// Properties are global properties in key-value format.
	// Definition properties can reference them with ${global.propertyKey}
	// once the placeholder extension is registered.
	Properties map[string]string
	// AllowDefinitionOverriding allows registering a definition under a taken name,
	// replacing the previous one. Defaults to true.
	AllowDefinitionOverriding bool
	// AutoProxy registers the auto-proxy creator at refresh.
	AutoProxy bool
	// ExposeProxy makes auto-created proxies publish themselves in the call
	// context, see aop.CurrentProxy.
	ExposeProxy bool
	// Opaque prevents auto-created proxies from answering Advised operations.
	Opaque bool
	// ChainCacheSize is the maximum number of cached interceptor chains per proxy configuration.
	ChainCacheSize int
	// ScriptMaxExecutionTime is the maximum execution time of script pointcuts, defaulting to 2000 milliseconds.
	ScriptMaxExecutionTime time.Duration
	// Cache is the cache shared by caching aspects. Nil means each aspect uses its own memory cache.
	Cache Cache
}

// GetProperty returns the global property of key.
func (c Config) GetProperty(key string) (string, bool) {
	if c.Properties == nil {
		return "", false
	}
	v, ok := c.Properties[key]
	return v, ok
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		Logger:                    DefaultLogger(),
		Properties:                make(map[string]string),
		AllowDefinitionOverriding: true,
		ChainCacheSize:            DefaultChainCacheSize,
		ScriptMaxExecutionTime:    DefaultScriptMaxExecutionTime,
	}

	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}
