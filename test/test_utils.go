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

// Package test provides the fixtures shared by the package tests: sample
// services, recording extensions and aspects, and a call journal.
package test

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rulego/weave/api/types"
)

// NewConfig returns a configuration that does not log.
func NewConfig(opts ...types.Option) types.Config {
	opts = append([]types.Option{types.WithLogger(types.DiscardLogger())}, opts...)
	return types.NewConfig(opts...)
}

// Journal records events in call order. It is safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends entry.
func (j *Journal) Record(entry string) {
	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
}

// Entries returns a copy of the recorded entries.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	entries := make([]string, len(j.entries))
	copy(entries, j.entries)
	return entries
}

// Filter returns the entries with the given suffix, in order.
func (j *Journal) Filter(suffix string) []string {
	var result []string
	for _, e := range j.Entries() {
		if strings.HasSuffix(e, suffix) {
			result = append(result, e)
		}
	}
	return result
}

// Reset drops every entry.
func (j *Journal) Reset() {
	j.mu.Lock()
	j.entries = nil
	j.mu.Unlock()
}

// Logger records every formatted message as "<LEVEL> <message>".
type Logger struct {
	Journal *Journal
}

// NewLogger creates a logger recording into a new journal.
func NewLogger() *Logger {
	return &Logger{Journal: NewJournal()}
}

func (l *Logger) Printf(format string, v ...interface{}) {
	l.Journal.Record("INFO " + fmt.Sprintf(format, v...))
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.Journal.Record("DEBUG " + fmt.Sprintf(format, v...))
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.Journal.Record("INFO " + fmt.Sprintf(format, v...))
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.Journal.Record("WARN " + fmt.Sprintf(format, v...))
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.Journal.Record("ERROR " + fmt.Sprintf(format, v...))
}

// Contains reports whether a recorded message contains s.
func (l *Logger) Contains(s string) bool {
	for _, e := range l.Journal.Entries() {
		if strings.Contains(e, s) {
			return true
		}
	}
	return false
}
