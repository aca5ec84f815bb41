// Licensed to LinDB under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. LinDB licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package logging is a small structured logger used throughout the
// concurrent engine: one component-scoped Logger per collaborator, plain
// fmt/time underneath, no external sink.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a log severity.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name, defaulting to InfoLevel on failure.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// Config configures a Logger.
type Config struct {
	Level  Level
	Output io.Writer
}

// DefaultConfig logs at Info to stderr.
func DefaultConfig() *Config {
	return &Config{Level: InfoLevel, Output: os.Stderr}
}

// Logger is a component-scoped, field-friendly logger.
type Logger struct {
	mu        sync.RWMutex
	level     Level
	output    io.Writer
	component string
}

// New creates a Logger from cfg, or DefaultConfig if cfg is nil.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Logger{level: cfg.Level, output: cfg.Output}
}

// WithComponent returns a child logger tagged with component, sharing its
// parent's output and starting at the parent's current level; a later
// SetLevel on either logger does not affect the other.
func (l *Logger) WithComponent(component string) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Logger{level: l.level, output: l.output, component: component}
}

// SetLevel adjusts the minimum level this logger emits.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) enabled(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

// Fields is a set of structured key/value pairs attached to a log line.
type Fields map[string]any

func (l *Logger) log(level Level, msg string, fields Fields) {
	if !l.enabled(level) {
		return
	}
	l.mu.RLock()
	component, out := l.component, l.output
	l.mu.RUnlock()

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(&b, " [%s]", level)
	if component != "" {
		fmt.Fprintf(&b, " (%s)", component)
	}
	b.WriteByte(' ')
	b.WriteString(msg)
	for k, v := range fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	b.WriteByte('\n')
	_, _ = out.Write([]byte(b.String()))
}

func (l *Logger) Debug(msg string, fields ...Fields) { l.log(DebugLevel, msg, merge(fields)) }
func (l *Logger) Info(msg string, fields ...Fields)  { l.log(InfoLevel, msg, merge(fields)) }
func (l *Logger) Warn(msg string, fields ...Fields)  { l.log(WarnLevel, msg, merge(fields)) }
func (l *Logger) Error(msg string, fields ...Fields) { l.log(ErrorLevel, msg, merge(fields)) }

func merge(fields []Fields) Fields {
	if len(fields) == 0 {
		return nil
	}
	return fields[0]
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// Init installs cfg as the process-wide default logger.
func Init(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = New(cfg)
}

// Global returns the process-wide default logger, lazily creating one from
// DefaultConfig the first time it's needed.
func Global() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = New(DefaultConfig())
	}
	return globalLogger
}

// Component is shorthand for Global().WithComponent(name).
func Component(name string) *Logger {
	return Global().WithComponent(name)
}
