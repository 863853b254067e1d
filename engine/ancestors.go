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

package engine

import (
	"reflect"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rulego/weave/api/types"
)

// NamesForTypeIncludingAncestors returns the names matching t in factory and
// its ancestors. Local names come first; an ancestor name hidden by a local
// component of the same name is skipped.
func NamesForTypeIncludingAncestors(factory types.ListableFactory, t reflect.Type, includeNonSingletons bool) []string {
	result := factory.NamesForType(t, includeNonSingletons)
	hierarchical, ok := factory.(types.HierarchicalFactory)
	if !ok || hierarchical.ParentFactory() == nil {
		return result
	}
	// every local name hides the ancestor component of the same name
	seen := mapset.NewThreadUnsafeSet[string](factory.NamesForType(types.AnyType, true)...)
	for _, name := range NamesForTypeIncludingAncestors(hierarchical.ParentFactory(), t, includeNonSingletons) {
		if seen.Contains(name) {
			continue
		}
		seen.Add(name)
		result = append(result, name)
	}
	return result
}

// ComponentNamesIncludingAncestors returns every component name of factory and its ancestors.
func ComponentNamesIncludingAncestors(factory types.ListableFactory) []string {
	return NamesForTypeIncludingAncestors(factory, types.AnyType, true)
}
