/*
 * Copyright 2024 The RuleGo Authors.
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

import (
	"time"
)

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithProperties is an option that merges global properties into the Config.
func WithProperties(properties map[string]string) Option {
	return func(c *Config) error {
		if c.Properties == nil {
			c.Properties = make(map[string]string, len(properties))
		}
		for k, v := range properties {
			c.Properties[k] = v
		}
		return nil
	}
}

// WithProperty is an option that sets one global property of the Config.
func WithProperty(key, value string) Option {
	return WithProperties(map[string]string{key: value})
}

// WithAllowDefinitionOverriding is an option that sets whether definitions can be replaced.
func WithAllowDefinitionOverriding(allow bool) Option {
	return func(c *Config) error {
		c.AllowDefinitionOverriding = allow
		return nil
	}
}

// WithAutoProxy is an option that enables the auto-proxy creator.
func WithAutoProxy(autoProxy bool) Option {
	return func(c *Config) error {
		c.AutoProxy = autoProxy
		return nil
	}
}

// WithExposeProxy is an option that sets whether auto-created proxies are exposed in the call context.
func WithExposeProxy(exposeProxy bool) Option {
	return func(c *Config) error {
		c.ExposeProxy = exposeProxy
		return nil
	}
}

// WithOpaque is an option that sets whether auto-created proxies hide their configuration.
func WithOpaque(opaque bool) Option {
	return func(c *Config) error {
		c.Opaque = opaque
		return nil
	}
}

// WithChainCacheSize is an option that sets the interceptor chain cache size of the Config.
func WithChainCacheSize(size int) Option {
	return func(c *Config) error {
		c.ChainCacheSize = size
		return nil
	}
}

// WithScriptMaxExecutionTime is an option that sets the js max execution time of the Config.
func WithScriptMaxExecutionTime(scriptMaxExecutionTime time.Duration) Option {
	return func(c *Config) error {
		c.ScriptMaxExecutionTime = scriptMaxExecutionTime
		return nil
	}
}

// WithCache is an option that sets the shared cache of the Config.
func WithCache(cache Cache) Option {
	return func(c *Config) error {
		c.Cache = cache
		return nil
	}
}
