// Package audit keeps a journal of document operations, one JSON line per
// operation.
package audit

import (
	"errors"
	"time"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
)

// Category represents the type of operation being audited.
type Category string

const (
	CategoryTool     Category = "tool"
	CategorySnapshot Category = "snapshot"
	CategorySystem   Category = "system"
)

// Status represents the outcome of an operation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusWarning Status = "warning"
	StatusDryRun  Status = "dry_run"
)

// AuditEvent represents a single auditable operation.
type AuditEvent struct {
	EventID string `json:"event_id"`

	// Operation details
	Category  Category `json:"category"`
	Operation string   `json:"operation"`

	// Result
	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`

	// Timing
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	DurationMs  int64         `json:"duration_ms,omitempty"`
	Duration    time.Duration `json:"-"`

	// Document context
	Document string `json:"document,omitempty"`
	AgentID  string `json:"agent_id,omitempty"`
	ToolID   string `json:"tool_id,omitempty"`
	ToolName string `json:"tool_name,omitempty"`
	Snapshot string `json:"snapshot,omitempty"`

	Details map[string]interface{} `json:"details,omitempty"`

	SessionID string `json:"session_id,omitempty"`
}

// errorKinds maps domain errors to the kind recorded in the journal.
var errorKinds = []struct {
	err  error
	kind string
}{
	{domain.ErrInvalidMethod, "invalid_method"},
	{domain.ErrDuplicateTool, "duplicate_tool"},
	{domain.ErrUnknownVariable, "unknown_variable"},
	{domain.ErrInvalidGeneratorOutput, "invalid_generator_output"},
	{domain.ErrAgentNotFound, "agent_not_found"},
	{domain.ErrIDCollision, "id_collision"},
	{domain.ErrInvalidTool, "invalid_tool"},
	{domain.ErrGeneratorUnavailable, "generator_unavailable"},
}

// ErrorKind classifies err for the journal.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "other"
}

// Complete finalizes the event with timing and status.
func (e *AuditEvent) Complete(status Status, err error) {
	e.CompletedAt = time.Now()
	e.Duration = e.CompletedAt.Sub(e.StartedAt)
	e.DurationMs = e.Duration.Milliseconds()
	e.Status = status

	if err != nil {
		e.ErrorMessage = err.Error()
		e.ErrorKind = ErrorKind(err)
		if status == "" {
			e.Status = StatusError
		}
	}
}

// Set records a detail on the event.
func (e *AuditEvent) Set(key string, value interface{}) {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
}
