package render

import (
	"io"
	"sort"
	"time"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/audit"
	strutil "github.com/voiceflow-community/voiceflow-agent-copilot/internal/strings"
)

// Audit renders audit-specific output.
type Audit struct {
	*Writer
}

// NewAudit creates an Audit renderer writing to w.
func NewAudit(w io.Writer) *Audit {
	return &Audit{Writer: NewWriter(w)}
}

// Events renders a list of audit events.
func (a *Audit) Events(events []audit.AuditEvent) {
	if len(events) == 0 {
		a.Empty("No audit events found")
		return
	}

	a.Header("AUDIT LOG (%d events)", len(events))

	for _, e := range events {
		icon := StatusIcon(string(e.Status))
		a.Println("%s [%s] %s/%s %s (%s)",
			icon,
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Category,
			e.Operation,
			subject(&e),
			FormatDuration(time.Duration(e.DurationMs)*time.Millisecond),
		)

		if e.ErrorMessage != "" && e.Status == audit.StatusError {
			a.Nested("%s", strutil.Truncate(e.ErrorMessage, 70))
		}
	}
}

// Errors renders error events.
func (a *Audit) Errors(events []audit.AuditEvent) {
	if len(events) == 0 {
		a.Empty("No errors found")
		return
	}

	a.Header("RECENT ERRORS (%d)", len(events))

	for _, e := range events {
		a.Println("✗ [%s] %s/%s %s",
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Category,
			e.Operation,
			e.ErrorKind,
		)
		if e.ErrorMessage != "" {
			a.Item("Error: %s", e.ErrorMessage)
		}
		if e.Document != "" {
			a.Item("Document: %s", e.Document)
		}
		a.Line()
	}
}

// Stats renders audit statistics.
func (a *Audit) Stats(stats *audit.Stats) {
	a.Header("AUDIT STATISTICS")

	a.Item("Total events:   %d", stats.Total)
	a.Item("Success:        %d", stats.Success)
	a.Item("Errors:         %d", stats.Errors)
	a.Item("Warnings:       %d", stats.Warnings)
	a.Item("Dry runs:       %d", stats.DryRuns)
	a.Line()

	if stats.AvgDurationMs > 0 {
		a.Item("Avg duration:   %.0fms", stats.AvgDurationMs)
	}
	if stats.MaxDurationMs > 0 {
		a.Item("Max duration:   %dms", stats.MaxDurationMs)
	}

	if len(stats.ByOperation) > 0 {
		a.Section("BY OPERATION")
		for _, op := range sortedKeys(stats.ByOperation) {
			a.Item("%-18s %d", op+":", stats.ByOperation[op])
		}
	}
	if len(stats.ByErrorKind) > 0 {
		a.Section("BY ERROR KIND")
		for _, kind := range sortedKeys(stats.ByErrorKind) {
			a.Item("%-26s %d", kind+":", stats.ByErrorKind[kind])
		}
	}
}

func subject(e *audit.AuditEvent) string {
	switch {
	case e.ToolName != "":
		return e.ToolName
	case e.Snapshot != "":
		return e.Snapshot
	}
	return ""
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
