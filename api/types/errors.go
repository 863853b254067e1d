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

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid container or proxy configuration.
// It aborts the bootstrap of the container.
type ConfigurationError struct {
	// Component is the name of the offending component, if any.
	Component string
	// Phase is the bootstrap phase or hook that failed.
	Phase string
	// Reason describes the violated invariant.
	Reason string
	// Cause is the underlying error.
	Cause error
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration error")
	if e.Phase != "" {
		sb.WriteString(" in ")
		sb.WriteString(e.Phase)
	}
	if e.Component != "" {
		sb.WriteString(fmt.Sprintf(" (component=%s)", e.Component))
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a ConfigurationError without cause.
func NewConfigurationError(component, phase, reason string) *ConfigurationError {
	return &ConfigurationError{Component: component, Phase: phase, Reason: reason}
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// InterceptionError reports a call whose advice chain violated the operation contract.
type InterceptionError struct {
	Operation Operation
	Reason    string
}

func (e *InterceptionError) Error() string {
	return fmt.Sprintf("interception error for %s: %s", e.Operation.Signature(), e.Reason)
}

// IsInterceptionError reports whether err is or wraps an InterceptionError.
func IsInterceptionError(err error) bool {
	var target *InterceptionError
	return errors.As(err, &target)
}
