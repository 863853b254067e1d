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

package str

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSprintfDict(t *testing.T) {
	dict := map[string]string{
		"name": "Alice",
		"age":  "18",
	}
	s := SprintfDict("Hello, ${name}. You are ${ age } years old. ${missing}", dict)
	assert.Equal(t, "Hello, Alice. You are 18 years old. ${missing}", s)
}

func TestResolvePlaceholders(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "global.host" {
			return "127.0.0.1", true
		}
		return "", false
	}
	assert.Equal(t, "http://127.0.0.1:8080", ResolvePlaceholders("http://${global.host}:8080", lookup))
	assert.Equal(t, "no vars", ResolvePlaceholders("no vars", lookup))
	assert.True(t, CheckHasVar("${a}"))
	assert.False(t, CheckHasVar("$a"))
}

func TestMatchWildcard(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"*", "", true},
		{"*", "anything", true},
		{"User*", "UserService", true},
		{"*Service", "UserService", true},
		{"*Serv*", "UserService", true},
		{"User*Repo", "UserService", false},
		{"exact", "exact", true},
		{"exact", "exactly", false},
		{"a**b", "axxb", true},
		{"", "", true},
		{"", "x", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchWildcard(tt.pattern, tt.s), "%s ~ %s", tt.pattern, tt.s)
	}
}

func TestToString(t *testing.T) {
	assert.Equal(t, "123", ToString(123))
	assert.Equal(t, "this is test", ToString("this is test"))
	assert.Equal(t, "this is test", ToString([]byte("this is test")))
	assert.Equal(t, "1.5", ToString(1.5))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "boom", ToString(errors.New("boom")))
	assert.Equal(t, "[1 2]", ToString([]int{1, 2}))
}

func TestToLowerFirst(t *testing.T) {
	assert.Equal(t, "userService", ToLowerFirst("UserService"))
	assert.Equal(t, "", ToLowerFirst(""))
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains(nil, "b"))
}
