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

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZapLevels(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewZap(WarningLevel, buf)

	logger.Debugf("debug %d", 1)
	logger.Infof("info %d", 2)
	logger.Warnf("warn %d", 3)
	logger.Errorf("error %d", 4)
	require.NoError(t, logger.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "warn 3", entry["msg"])
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "error", entry["level"])
}

func TestZapPrintfIsInfo(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewZap(InfoLevel, buf)
	logger.Printf("hello %s", "weave")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "hello weave", entry["msg"])
	assert.Equal(t, InfoLevel, logger.LogLevel())
}

func TestZapWith(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewZap(DebugLevel, buf).With("component", "userService")
	logger.Debugf("created")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "userService", entry["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarningLevel, ParseLevel("warn"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLevel("unknown"))
	assert.Equal(t, "warning", WarningLevel.String())
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard.Printf("x")
		Discard.Errorf("y %d", 1)
	})
}
