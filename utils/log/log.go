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

// Package log provides the leveled loggers used by the container.
//
// Zap is the default implementation, a sugared go.uber.org/zap logger writing
// JSON lines. Discard drops everything and is meant for tests.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a logging level.
type Level int

const (
	// DebugLevel logs everything.
	DebugLevel Level = iota
	// InfoLevel is the default level.
	InfoLevel
	// WarningLevel logs warnings and errors.
	WarningLevel
	// ErrorLevel logs errors only.
	ErrorLevel
)

var levelNames = map[Level]string{
	DebugLevel:   "debug",
	InfoLevel:    "info",
	WarningLevel: "warning",
	ErrorLevel:   "error",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel parses a level name, case-insensitive. Unknown names give InfoLevel.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarningLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Zap is a leveled logger backed by zap.
type Zap struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	level  Level
}

// NewZap creates a logger writing at level and above to writers.
// Without writers it writes to os.Stdout.
func NewZap(level Level, writers ...io.Writer) *Zap {
	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}
	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, w := range writers {
		syncers = append(syncers, zapcore.AddSync(w))
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(newEncoderConfig()),
		zap.CombineWriteSyncers(syncers...),
		toZapLevel(level),
	)
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.PanicLevel))
	return &Zap{
		logger: logger,
		sugar:  logger.Sugar(),
		level:  level,
	}
}

// Printf logs at info level.
func (z *Zap) Printf(format string, v ...interface{}) {
	z.sugar.Infof(format, v...)
}

// Debugf logs at debug level.
func (z *Zap) Debugf(format string, v ...interface{}) {
	z.sugar.Debugf(format, v...)
}

// Infof logs at info level.
func (z *Zap) Infof(format string, v ...interface{}) {
	z.sugar.Infof(format, v...)
}

// Warnf logs at warning level.
func (z *Zap) Warnf(format string, v ...interface{}) {
	z.sugar.Warnf(format, v...)
}

// Errorf logs at error level.
func (z *Zap) Errorf(format string, v ...interface{}) {
	z.sugar.Errorf(format, v...)
}

// LogLevel returns the minimum enabled level.
func (z *Zap) LogLevel() Level {
	return z.level
}

// With returns a child logger carrying the key-value pairs on every entry.
func (z *Zap) With(keyValues ...interface{}) *Zap {
	sugar := z.sugar.With(keyValues...)
	return &Zap{logger: sugar.Desugar(), sugar: sugar, level: z.level}
}

// Flush writes buffered entries.
func (z *Zap) Flush() error {
	return z.logger.Sync()
}

func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02T15:04:05.000000Z0700"))
		},
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarningLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Discard is a logger that drops every entry.
var Discard = discard{}

type discard struct{}

func (discard) Printf(string, ...interface{}) {}
func (discard) Debugf(string, ...interface{}) {}
func (discard) Infof(string, ...interface{})  {}
func (discard) Warnf(string, ...interface{})  {}
func (discard) Errorf(string, ...interface{}) {}
