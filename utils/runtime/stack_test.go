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

package runtime

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack(t *testing.T) {
	stackTrace := Stack()
	assert.NotEmpty(t, stackTrace)
	assert.True(t, strings.Contains(stackTrace, "testing.go"), "stack trace should contain the test runner")
	assert.True(t, strings.Contains(stackTrace, ":"), "stack trace should contain line numbers")
}

func TestRecover(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		boom := errors.New("boom")
		assert.Equal(t, boom, Recover(func() error { return boom }))
	})

	t.Run("panic value", func(t *testing.T) {
		err := Recover(func() error { panic("bad extension") })
		var pe *PanicError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "bad extension", pe.Value)
		assert.Equal(t, "panic: bad extension", err.Error())
		assert.Contains(t, pe.Stack, "stack_test.go")
		assert.Nil(t, errors.Unwrap(err))
	})

	t.Run("panic error", func(t *testing.T) {
		boom := errors.New("boom")
		err := Recover(func() error { panic(boom) })
		assert.True(t, errors.Is(err, boom))
	})
}
