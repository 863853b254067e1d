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
)

// InvokeJoinpoint calls op on target. Invoker targets are called directly.
// Other targets are called reflectively by method name: a leading
// context.Context parameter receives ctx, a trailing error result becomes the
// returned error, and the remaining results are returned as one value, as a
// []interface{} for several, or nil for none.
func InvokeJoinpoint(ctx context.Context, target interface{}, op types.Operation, args []interface{}) (interface{}, error) {
	if target == nil {
		return nil, fmt.Errorf("%s: %w", op.Signature(), types.ErrNoTarget)
	}
	if invoker, ok := target.(types.Invoker); ok {
		return invoker.Invoke(ctx, op, args...)
	}
	return invokeReflective(ctx, target, op, args)
}

func invokeReflective(ctx context.Context, target interface{}, op types.Operation, args []interface{}) (interface{}, error) {
	method := reflect.ValueOf(target).MethodByName(op.Name)
	if !method.IsValid() {
		return nil, fmt.Errorf("%s: target %T has no method %s", op.Signature(), target, op.Name)
	}
	in, err := callArgs(ctx, method.Type(), op, args)
	if err != nil {
		return nil, err
	}
	return callResults(method.Call(in))
}

func callArgs(ctx context.Context, mt reflect.Type, op types.Operation, args []interface{}) ([]reflect.Value, error) {
	offset := 0
	if mt.NumIn() > 0 && mt.In(0) == types.ContextType {
		offset = 1
	}
	numIn := mt.NumIn() - offset
	variadic := mt.IsVariadic()
	if (!variadic && len(args) != numIn) || (variadic && len(args) < numIn-1) {
		return nil, fmt.Errorf("%s: method %s takes %d arguments, got %d", op.Signature(), op.Name, numIn, len(args))
	}
	in := make([]reflect.Value, 0, len(args)+offset)
	if offset == 1 {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, arg := range args {
		var pt reflect.Type
		if variadic && i+offset >= mt.NumIn()-1 {
			pt = mt.In(mt.NumIn() - 1).Elem()
		} else {
			pt = mt.In(i + offset)
		}
		v, err := convertArg(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", op.Signature(), i, err)
		}
		in = append(in, v)
	}
	return in, nil
}

func convertArg(arg interface{}, pt reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch pt.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(pt), nil
		default:
			return reflect.Value{}, fmt.Errorf("nil is not a valid %s", pt)
		}
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(pt) {
		return v, nil
	}
	if isNumber(v.Kind()) && isNumber(pt.Kind()) {
		return v.Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", v.Type(), pt)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func callResults(out []reflect.Value) (interface{}, error) {
	var err error
	if n := len(out); n > 0 && out[n-1].Type() == types.ErrorType {
		if e := out[n-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return valueOf(out[0]), err
	default:
		values := make([]interface{}, len(out))
		for i, v := range out {
			values[i] = valueOf(v)
		}
		return values, err
	}
}

// valueOf returns nil for nil references so that they read as "no value".
func valueOf(v reflect.Value) interface{} {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}
