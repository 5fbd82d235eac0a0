package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// ReadJournal returns the last limit events of the journal at path, oldest
// first. limit <= 0 returns all events. Malformed lines are skipped.
func ReadJournal(path string, limit int) ([]AuditEvent, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		events = append(events, e)
		if limit > 0 && len(events) > limit {
			events = events[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	return events, nil
}

// Errors keeps the failed events.
func Errors(events []AuditEvent) []AuditEvent {
	var out []AuditEvent
	for _, e := range events {
		if e.Status == StatusError {
			out = append(out, e)
		}
	}
	return out
}

// Stats aggregates a set of events.
type Stats struct {
	Total         int
	Success       int
	Errors        int
	Warnings      int
	DryRuns       int
	AvgDurationMs float64
	MaxDurationMs int64
	ByOperation   map[string]int
	ByErrorKind   map[string]int
}

// Summarize computes Stats over events.
func Summarize(events []AuditEvent) *Stats {
	s := &Stats{
		ByOperation: make(map[string]int),
		ByErrorKind: make(map[string]int),
	}
	var totalMs int64
	for _, e := range events {
		s.Total++
		switch e.Status {
		case StatusSuccess:
			s.Success++
		case StatusError:
			s.Errors++
		case StatusWarning:
			s.Warnings++
		case StatusDryRun:
			s.DryRuns++
		}
		s.ByOperation[string(e.Category)+"/"+e.Operation]++
		if e.ErrorKind != "" {
			s.ByErrorKind[e.ErrorKind]++
		}
		totalMs += e.DurationMs
		if e.DurationMs > s.MaxDurationMs {
			s.MaxDurationMs = e.DurationMs
		}
	}
	if s.Total > 0 {
		s.AvgDurationMs = float64(totalMs) / float64(s.Total)
	}
	return s
}
