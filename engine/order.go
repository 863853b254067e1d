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
	"fmt"
	"sort"

	"github.com/rulego/weave/api/types"
)

// tier is the ordering class of an extension or processor.
type tier int

const (
	tierPriority tier = iota
	tierOrdered
	tierUnordered
)

func (t tier) String() string {
	switch t {
	case tierPriority:
		return "priority"
	case tierOrdered:
		return "ordered"
	default:
		return "unordered"
	}
}

// tierOf classifies an instance by the ordering interfaces it implements.
func tierOf(instance interface{}) tier {
	switch instance.(type) {
	case types.PriorityOrdered:
		return tierPriority
	case types.Ordered:
		return tierOrdered
	default:
		return tierUnordered
	}
}

// extensionRecord is an extension instance with the data it is ordered by.
type extensionRecord struct {
	// name is the definition name, empty for directly supplied instances.
	name     string
	instance interface{}
	tier     tier
	order    int
	// seq is the discovery sequence, the tie-break of equal orders.
	seq int
}

func newRecord(name string, instance interface{}, seq int) extensionRecord {
	return extensionRecord{
		name:     name,
		instance: instance,
		tier:     tierOf(instance),
		order:    types.OrderOf(instance),
		seq:      seq,
	}
}

// label is the name used in logs and errors.
func (r extensionRecord) label() string {
	if r.name != "" {
		return r.name
	}
	return fmt.Sprintf("%T", r.instance)
}

// sortRecords sorts by ascending order, then discovery sequence.
func sortRecords(records []extensionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].order != records[j].order {
			return records[i].order < records[j].order
		}
		return records[i].seq < records[j].seq
	})
}

// SortOrdered stably sorts items by ascending Order(). Items that are not
// Ordered get LowestPrecedence and keep their relative position.
func SortOrdered[T any](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return types.OrderOf(items[i]) < types.OrderOf(items[j])
	})
}
