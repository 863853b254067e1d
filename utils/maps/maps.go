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

// Package maps decodes raw component configuration into typed structs.
package maps

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Map2Struct decodes input into output, which must be a pointer to a map or struct.
// Input is weakly typed: "10" decodes into an int field and "1m" into a time.Duration.
// Keys are matched to field names case-insensitively.
func Map2Struct(input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// Get returns the value at a dotted path of nested maps, nil when absent.
// Example: Get(m, "cache.ttl").
func Get(input map[string]interface{}, fieldName string) interface{} {
	var current interface{} = input
	for _, key := range strings.Split(fieldName, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		if current, ok = m[key]; !ok {
			return nil
		}
	}
	return current
}

// Copy returns a shallow copy of input. Nested maps are copied recursively.
func Copy(input map[string]interface{}) map[string]interface{} {
	if input == nil {
		return nil
	}
	out := make(map[string]interface{}, len(input))
	for k, v := range input {
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = Copy(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// IsEmpty reports whether v is nil or a zero value.
func IsEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}
