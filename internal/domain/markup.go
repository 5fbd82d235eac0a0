// Package domain defines the records of an agent document: tools, variables,
// agent links and the markup sequences that interleave literal text with
// variable references.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Segment is one element of a markup sequence: either literal text or a
// reference to a variable by id.
type Segment struct {
	Text       string
	VariableID string
}

// Text returns a literal segment.
func Text(s string) Segment {
	return Segment{Text: s}
}

// Ref returns a variable reference segment.
func Ref(variableID string) Segment {
	return Segment{VariableID: variableID}
}

// IsVariable reports whether the segment references a variable.
func (s Segment) IsVariable() bool {
	return s.VariableID != ""
}

type variableRef struct {
	VariableID string `json:"variableID"`
}

// MarshalJSON encodes literals as JSON strings and references as
// {"variableID": "..."}.
func (s Segment) MarshalJSON() ([]byte, error) {
	if s.IsVariable() {
		return json.Marshal(variableRef{VariableID: s.VariableID})
	}
	return json.Marshal(s.Text)
}

// UnmarshalJSON accepts either encoding produced by MarshalJSON.
func (s *Segment) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = Text(text)
		return nil
	}
	var ref variableRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return fmt.Errorf("segment: %w", err)
	}
	if ref.VariableID == "" {
		return fmt.Errorf("segment: expected string or variable reference, got %s", data)
	}
	*s = Ref(ref.VariableID)
	return nil
}

// Markup is an ordered segment sequence.
type Markup []Segment

// MarshalJSON keeps an empty markup as [] rather than null.
func (m Markup) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Segment(m))
}

// Literal concatenates the literal segments, skipping references.
func (m Markup) Literal() string {
	var sb strings.Builder
	for _, s := range m {
		if !s.IsVariable() {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

// Render concatenates the sequence, substituting each reference with its
// value from values. Missing values render as the empty string.
func (m Markup) Render(values map[string]string) string {
	var sb strings.Builder
	for _, s := range m {
		if s.IsVariable() {
			sb.WriteString(values[s.VariableID])
			continue
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// VariableIDs returns referenced variable ids in order, without duplicates.
func (m Markup) VariableIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range m {
		if s.IsVariable() && !seen[s.VariableID] {
			seen[s.VariableID] = true
			ids = append(ids, s.VariableID)
		}
	}
	return ids
}

// HasVariables reports whether any segment is a reference.
func (m Markup) HasVariables() bool {
	for _, s := range m {
		if s.IsVariable() {
			return true
		}
	}
	return false
}
