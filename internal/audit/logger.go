package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger provides audit logging capabilities.
type Logger struct {
	mu        sync.Mutex
	sessionID string
	document  string
	output    io.Writer
}

// LoggerOption configures the logger.
type LoggerOption func(*Logger)

// WithSession sets the session ID.
func WithSession(id string) LoggerOption {
	return func(l *Logger) {
		l.sessionID = id
	}
}

// WithDocument sets the document every event refers to by default.
func WithDocument(path string) LoggerOption {
	return func(l *Logger) {
		l.document = path
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) LoggerOption {
	return func(l *Logger) {
		l.output = w
	}
}

// NewLogger creates a new audit logger. Without WithOutput events are
// discarded.
func NewLogger(opts ...LoggerOption) *Logger {
	l := &Logger{output: io.Discard}

	for _, opt := range opts {
		opt(l)
	}

	if l.sessionID == "" {
		l.sessionID = fmt.Sprintf("sess-%d", time.Now().UnixNano())
	}

	return l
}

// OpenJournal opens path for appending, creating its directory.
func OpenJournal(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return f, nil
}

// Start begins tracking an operation.
func (l *Logger) Start(category Category, operation string) *AuditEvent {
	return &AuditEvent{
		EventID:   uuid.New().String(),
		Category:  category,
		Operation: operation,
		StartedAt: time.Now(),
		SessionID: l.sessionID,
		Document:  l.document,
	}
}

// Log writes a completed event to the output.
func (l *Logger) Log(event *AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Ensure timing is set
	if event.CompletedAt.IsZero() {
		event.CompletedAt = time.Now()
		event.Duration = event.CompletedAt.Sub(event.StartedAt)
		event.DurationMs = event.Duration.Milliseconds()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = fmt.Fprintf(l.output, "%s\n", data)
	return err
}

// LogSuccess logs a successful operation.
func (l *Logger) LogSuccess(event *AuditEvent) error {
	event.Complete(StatusSuccess, nil)
	return l.Log(event)
}

// LogError logs a failed operation.
func (l *Logger) LogError(event *AuditEvent, err error) error {
	event.Complete(StatusError, err)
	return l.Log(event)
}

// LogWarning logs a warning.
func (l *Logger) LogWarning(event *AuditEvent, msg string) error {
	event.Complete(StatusWarning, nil)
	event.ErrorMessage = msg
	return l.Log(event)
}

// Finish logs event as a success when err is nil and as an error otherwise.
func (l *Logger) Finish(event *AuditEvent, err error) error {
	if err != nil {
		return l.LogError(event, err)
	}
	return l.LogSuccess(event)
}
