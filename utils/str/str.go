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

// Package str provides the string helpers of the container: placeholder
// substitution for definition properties, wildcard matching for pointcut
// patterns and value formatting.
package str

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const varPatternLeft = "${"
const varPatternRight = "}"

// 正则表达式匹配 ${aa} 或 ${aa.bb}
var tplVarRegex = regexp.MustCompile(`\$\{ *([^}]+?) *\}`)

// SprintfDict 替换字符串模板中的${}变量
// Example: SprintfDict("Hello,${name}",map[string]string{"name":"Alice"}) returns "Hello,Alice".
// 如果没匹配到变量，则保留原样
func SprintfDict(original string, dict map[string]string) string {
	return ResolvePlaceholders(original, func(key string) (string, bool) {
		v, ok := dict[key]
		return v, ok
	})
}

// ResolvePlaceholders replaces every ${key} of original with lookup(key).
// Unresolved placeholders are kept as they are.
func ResolvePlaceholders(original string, lookup func(key string) (string, bool)) string {
	if !CheckHasVar(original) {
		return original
	}
	return tplVarRegex.ReplaceAllStringFunc(original, func(s string) string {
		matches := tplVarRegex.FindStringSubmatch(s)
		if len(matches) < 2 {
			return s
		}
		if v, ok := lookup(strings.TrimSpace(matches[1])); ok {
			return v
		}
		return s
	})
}

// CheckHasVar 检查字符串是否有占位符
func CheckHasVar(str string) bool {
	return strings.Contains(str, varPatternLeft) && strings.Contains(str, varPatternRight)
}

// MatchWildcard reports whether s matches pattern, where '*' matches any
// sequence of characters, including none, and every other character matches itself.
func MatchWildcard(pattern, s string) bool {
	for len(pattern) > 0 {
		if pattern[0] == '*' {
			for len(pattern) > 0 && pattern[0] == '*' {
				pattern = pattern[1:]
			}
			if pattern == "" {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if MatchWildcard(pattern, s[i:]) {
					return true
				}
			}
			return false
		}
		if s == "" || pattern[0] != s[0] {
			return false
		}
		pattern, s = pattern[1:], s[1:]
	}
	return s == ""
}

// ToString input的值转成字符串
func ToString(input interface{}) string {
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToLowerFirst 首字母转小写
func ToLowerFirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// Contains 检查切片中是否包含元素
func Contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
