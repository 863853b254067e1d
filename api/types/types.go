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

// Package types defines the contracts shared by the container, the extension
// pipeline and the interception proxy.
//
// Components describe the operations they can be called through with
// Operation descriptors grouped into Capabilities. A proxy is matched against
// those descriptors instead of querying the runtime type of the target, and
// every call goes through the Invoker calling convention:
//
//	var QueryOp = types.NewOperation("UserService", "Query", reflect.TypeOf(""), reflect.TypeOf(0))
//	out, err := proxy.Invoke(ctx, QueryOp, 42)
package types

import (
	"context"
	"reflect"
	"strings"
)

// AnyType is the top type. An operation declared to return AnyType never gets
// its self-reference result replaced by the proxy.
var AnyType = reflect.TypeOf((*interface{})(nil)).Elem()

// ErrorType is the reflect.Type of the error interface.
var ErrorType = reflect.TypeOf((*error)(nil)).Elem()

// ContextType is the reflect.Type of context.Context.
var ContextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// Operation describes one callable operation of a component.
type Operation struct {
	// Owner is the name of the capability declaring the operation.
	Owner string
	// Name is the operation name. For reflective targets it is the method name.
	Name string
	// Params are the declared parameter types, context excluded.
	Params []reflect.Type
	// Returns is the declared result type, nil when the operation returns no value.
	Returns reflect.Type
}

// NewOperation creates an operation descriptor.
func NewOperation(owner, name string, returns reflect.Type, params ...reflect.Type) Operation {
	return Operation{Owner: owner, Name: name, Params: params, Returns: returns}
}

// Signature renders the operation as `Owner.Name(p1,p2) ret`.
func (o Operation) Signature() string {
	var sb strings.Builder
	if o.Owner != "" {
		sb.WriteString(o.Owner)
		sb.WriteByte('.')
	}
	sb.WriteString(o.Name)
	sb.WriteByte('(')
	for i, p := range o.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(TypeName(p))
	}
	sb.WriteByte(')')
	if o.Returns != nil {
		sb.WriteByte(' ')
		sb.WriteString(TypeName(o.Returns))
	}
	return sb.String()
}

// Key returns the identity of the operation, used as a cache key.
func (o Operation) Key() string {
	return o.Signature()
}

// SameSignature reports whether two operations have the same name and parameter types.
// The owner is ignored.
func (o Operation) SameSignature(other Operation) bool {
	if o.Name != other.Name || len(o.Params) != len(other.Params) {
		return false
	}
	for i := range o.Params {
		if o.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}

// ReturnsValue reports whether the operation declares a result.
func (o Operation) ReturnsValue() bool {
	return o.Returns != nil
}

// TypeName renders a type for signatures and pointcut matching.
// A nil type renders as "void".
func TypeName(t reflect.Type) string {
	if t == nil {
		return "void"
	}
	if t == AnyType {
		return "any"
	}
	return t.String()
}

// IsScalar reports whether values of t cannot represent "no value".
// Such operations must always produce a result.
func IsScalar(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

// Capability is a named set of operations, the unit a proxy is built for.
type Capability struct {
	// Name of the capability, matched against Operation.Owner.
	Name string
	// Operations declared by the capability.
	Operations []Operation
	// RawTargetAccess opts the capability out of self-reference substitution:
	// a result that is the raw target is returned as is.
	RawTargetAccess bool
}

// Declares reports whether the capability declares an operation with the same signature.
func (c Capability) Declares(op Operation) bool {
	for _, item := range c.Operations {
		if item.SameSignature(op) {
			return true
		}
	}
	return false
}

// Invoker is the calling convention of proxies and invocable components.
type Invoker interface {
	// Invoke calls op with args. A nil result means "no value".
	Invoke(ctx context.Context, op Operation, args ...interface{}) (interface{}, error)
}

// Operable is implemented by components that describe their own operations.
// Only Operable components are candidates for auto-proxying.
type Operable interface {
	Capabilities() []Capability
}

// Configuration is the raw configuration of a component, taken from its definition.
type Configuration map[string]interface{}

// Configurable components are initialized with their definition properties.
type Configurable interface {
	// Init is called once, after creation and before component processors run.
	Init(config Config, configuration Configuration) error
}

// Destroyable components release resources when the container shuts down
// or when a non-static target provider releases them.
type Destroyable interface {
	Destroy() error
}

// NameAware components receive their definition name after creation.
type NameAware interface {
	SetName(name string)
}

// FactoryAware components receive the owning factory after creation.
type FactoryAware interface {
	SetFactory(factory ListableFactory)
}
