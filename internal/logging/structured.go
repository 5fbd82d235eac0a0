// Package logging provides structured JSON logging for copilot components.
package logging

import (
	"context"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Options configures the process-wide log sink.
type Options struct {
	Level  Level
	Output io.Writer
	JSON   bool
}

var (
	mu   sync.RWMutex
	base = newBase(Options{Level: LevelWarn, Output: os.Stderr, JSON: true})
)

func newBase(opts Options) hclog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	level := hclog.LevelFromString(string(opts.Level))
	if level == hclog.NoLevel {
		level = hclog.Warn
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "copilot",
		Level:      level,
		Output:     opts.Output,
		JSONFormat: opts.JSON,
	})
}

// Configure replaces the log sink for every logger, including ones already created.
func Configure(opts Options) {
	mu.Lock()
	defer mu.Unlock()
	base = newBase(opts)
}

func sink() hclog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Logger provides structured logging
type Logger struct {
	component string
	document  string
	operation string
}

// New creates a new logger for a component
func New(component string) *Logger {
	return &Logger{component: component}
}

// WithDocument sets the document context
func (l *Logger) WithDocument(path string) *Logger {
	c := *l
	c.document = path
	return &c
}

// WithOperation sets the operation id context
func (l *Logger) WithOperation(id string) *Logger {
	c := *l
	c.operation = id
	return &c
}

// FromContext returns a copy carrying the context's operation id, if any.
func (l *Logger) FromContext(ctx context.Context) *Logger {
	if id := OperationID(ctx); id != "" {
		return l.WithOperation(id)
	}
	return l
}

func (l *Logger) args(extra map[string]interface{}, err error) []interface{} {
	var args []interface{}
	if l.document != "" {
		args = append(args, "document", l.document)
	}
	if l.operation != "" {
		args = append(args, "operation", l.operation)
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, k, extra[k])
	}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	return args
}

// log emits a structured log event
func (l *Logger) log(level Level, event string, extra map[string]interface{}, err error) {
	hc := sink().Named(l.component)
	args := l.args(extra, err)
	switch level {
	case LevelDebug:
		hc.Debug(event, args...)
	case LevelInfo:
		hc.Info(event, args...)
	case LevelWarn:
		hc.Warn(event, args...)
	default:
		hc.Error(event, args...)
	}
}

// Debug logs a debug event
func (l *Logger) Debug(event string, extra map[string]interface{}) {
	l.log(LevelDebug, event, extra, nil)
}

// Info logs an info event
func (l *Logger) Info(event string, extra map[string]interface{}) {
	l.log(LevelInfo, event, extra, nil)
}

// Warn logs a warning event
func (l *Logger) Warn(event string, extra map[string]interface{}, err error) {
	l.log(LevelWarn, event, extra, err)
}

// Error logs an error event
func (l *Logger) Error(event string, extra map[string]interface{}, err error) {
	l.log(LevelError, event, extra, err)
}

// TimedEvent logs an event with duration
func (l *Logger) TimedEvent(event string, start time.Time, extra map[string]interface{}) {
	merged := make(map[string]interface{}, len(extra)+1)
	for k, v := range extra {
		merged[k] = v
	}
	merged["duration_ms"] = time.Since(start).Milliseconds()
	l.log(LevelInfo, event, merged, nil)
}
