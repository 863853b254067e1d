/*
 * Copyright 2024 The RuleGo Authors.
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

// Package metrics holds the invocation counters collected by the metrics aspect.
package metrics

import (
	"time"

	"go.uber.org/atomic"
)

// InvocationMetrics counts the calls of advised operations.
type InvocationMetrics struct {
	current   atomic.Int64
	total     atomic.Int64
	failed    atomic.Int64
	success   atomic.Int64
	totalTime atomic.Duration
}

// Snapshot is a point-in-time copy of InvocationMetrics.
type Snapshot struct {
	Current   int64         `json:"current"`
	Total     int64         `json:"total"`
	Failed    int64         `json:"failed"`
	Success   int64         `json:"success"`
	TotalTime time.Duration `json:"totalTime"`
}

// AverageTime returns the mean duration of completed calls.
func (s Snapshot) AverageTime() time.Duration {
	done := s.Failed + s.Success
	if done == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(done)
}

// NewInvocationMetrics creates zeroed counters.
func NewInvocationMetrics() *InvocationMetrics {
	return &InvocationMetrics{}
}

// Begin records the start of a call.
func (m *InvocationMetrics) Begin() {
	m.current.Inc()
	m.total.Inc()
}

// End records the end of a call started with Begin.
func (m *InvocationMetrics) End(elapsed time.Duration, err error) {
	m.current.Dec()
	m.totalTime.Add(elapsed)
	if err != nil {
		m.failed.Inc()
	} else {
		m.success.Inc()
	}
}

// Get returns a copy of the current counters.
func (m *InvocationMetrics) Get() Snapshot {
	return Snapshot{
		Current:   m.current.Load(),
		Total:     m.total.Load(),
		Failed:    m.failed.Load(),
		Success:   m.success.Load(),
		TotalTime: m.totalTime.Load(),
	}
}

// Reset sets every counter to zero.
func (m *InvocationMetrics) Reset() {
	m.current.Store(0)
	m.total.Store(0)
	m.failed.Store(0)
	m.success.Store(0)
	m.totalTime.Store(0)
}
