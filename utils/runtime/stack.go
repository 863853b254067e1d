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

// Package runtime provides stack capture and panic recovery helpers.
//
// Hooks supplied by users (extensions, advice, component factories) run under
// Recover, which turns a panic into an error carrying the panic value and the
// stack of the panicking goroutine:
//
//	err := runtime.Recover(func() error { return ext.PostProcessFactory(f) })
package runtime

import (
	"fmt"
	"runtime"
	"strings"
)

// maxDepth is the maximum number of frames captured.
const maxDepth = 32

// PanicError is a recovered panic.
type PanicError struct {
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Stack 获取堆栈信息
func Stack() string {
	return stack(3)
}

func stack(skip int) string {
	pc := make([]uintptr, maxDepth)
	n := runtime.Callers(skip, pc)
	frames := runtime.CallersFrames(pc[:n])

	var build strings.Builder
	for {
		frame, more := frames.Next()
		build.WriteString(fmt.Sprintf(" %s:%d %s\n", frame.File, frame.Line, frame.Function))
		if !more {
			break
		}
	}
	return build.String()
}

// Recover calls fn and converts a panic into a *PanicError.
func Recover(fn func() error) (err error) {
	defer func() {
		if caught := recover(); caught != nil {
			err = &PanicError{Value: caught, Stack: stack(4)}
		}
	}()
	return fn()
}
