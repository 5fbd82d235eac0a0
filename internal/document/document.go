// Package document loads, saves and mutates agent documents. Records already
// present in a document are kept as raw JSON so they round-trip untouched;
// only records appended by the Mutator are produced here.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/template"
)

// Collection keys at the top level of a document.
const (
	KeyAgents    = "agents"
	KeyTools     = "apiTools"
	KeyVariables = "variables"
	KeyLinks     = "agentAPIToolLinks"
)

var collectionKeys = []string{KeyAgents, KeyTools, KeyVariables, KeyLinks}

// Document is the in-memory aggregate of agents, tools, variables and links.
type Document struct {
	fields      map[string]json.RawMessage
	collections map[string][]json.RawMessage
}

// New returns an empty document with all collections present.
func New() *Document {
	d := &Document{
		fields:      make(map[string]json.RawMessage),
		collections: make(map[string][]json.RawMessage),
	}
	for _, key := range collectionKeys {
		d.collections[key] = []json.RawMessage{}
	}
	return d
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a document. Unknown top-level keys are preserved verbatim.
func Parse(data []byte) (*Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if fields == nil {
		return nil, errors.New("parsing document: top level must be an object")
	}

	d := &Document{fields: fields, collections: make(map[string][]json.RawMessage)}
	for _, key := range collectionKeys {
		raw, ok := fields[key]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("parsing document: %q must be an array: %w", key, err)
		}
		if items == nil {
			items = []json.RawMessage{}
		}
		d.collections[key] = items
		delete(d.fields, key)
	}
	return d, nil
}

// Marshal encodes the document as two-space indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.fields)+len(d.collections))
	for k, v := range d.fields {
		out[k] = v
	}
	for k, items := range d.collections {
		if items == nil {
			items = []json.RawMessage{}
		}
		raw, err := encode(items, false)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", k, err)
		}
		out[k] = raw
	}
	data, err := encode(out, true)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes the document to path atomically through a temp file in the
// same directory. An existing file keeps its permissions.
func (d *Document) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating document directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing document: %w", err)
	}
	return nil
}

// Len returns the number of records in a collection.
func (d *Document) Len(key string) int {
	return len(d.collections[key])
}

// Agents decodes the agent collection.
func (d *Document) Agents() ([]domain.Agent, error) {
	return decodeAll[domain.Agent](d.collections[KeyAgents], KeyAgents)
}

// Tools decodes the tool collection.
func (d *Document) Tools() ([]domain.APITool, error) {
	return decodeAll[domain.APITool](d.collections[KeyTools], KeyTools)
}

// Variables decodes the variable collection.
func (d *Document) Variables() ([]domain.Variable, error) {
	return decodeAll[domain.Variable](d.collections[KeyVariables], KeyVariables)
}

// Links decodes the agent-tool link collection.
func (d *Document) Links() ([]domain.AgentAPIToolLink, error) {
	return decodeAll[domain.AgentAPIToolLink](d.collections[KeyLinks], KeyLinks)
}

// ToolVariables returns the variables owned by toolID.
func (d *Document) ToolVariables(toolID string) ([]domain.Variable, error) {
	vars, err := d.Variables()
	if err != nil {
		return nil, err
	}
	var out []domain.Variable
	for _, v := range vars {
		if v.APIToolID == toolID {
			out = append(out, v)
		}
	}
	return out, nil
}

// Agent returns the agent with the given id.
func (d *Document) Agent(id string) (domain.Agent, bool) {
	for _, raw := range d.collections[KeyAgents] {
		var a domain.Agent
		if err := json.Unmarshal(raw, &a); err == nil && a.ID == id {
			return a, true
		}
	}
	return domain.Agent{}, false
}

// ToolSummary is the part of a tool record duplicate detection looks at.
type ToolSummary struct {
	ID       string
	Name     string
	Wildcard string
}

// ToolSummaries reads id, name and wildcard URL from every tool record,
// tolerating records whose other fields this program does not understand.
func (d *Document) ToolSummaries() []ToolSummary {
	out := make([]ToolSummary, 0, len(d.collections[KeyTools]))
	for _, raw := range d.collections[KeyTools] {
		var rec struct {
			ID   string          `json:"id"`
			Name string          `json:"name"`
			URL  json.RawMessage `json:"url"`
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		out = append(out, ToolSummary{ID: rec.ID, Name: rec.Name, Wildcard: wildcardRaw(rec.URL)})
	}
	return out
}

// IDs returns every identifier in the document, including the ids of query
// parameters and headers nested in tools.
func (d *Document) IDs() map[string]bool {
	ids := make(map[string]bool)
	for _, key := range collectionKeys {
		for _, raw := range d.collections[key] {
			var rec struct {
				ID              string          `json:"id"`
				QueryParameters json.RawMessage `json:"queryParameters"`
				Headers         json.RawMessage `json:"headers"`
			}
			if err := json.Unmarshal(raw, &rec); err != nil {
				continue
			}
			if rec.ID != "" {
				ids[rec.ID] = true
			}
			for _, nested := range []json.RawMessage{rec.QueryParameters, rec.Headers} {
				var items []struct {
					ID string `json:"id"`
				}
				if json.Unmarshal(nested, &items) == nil {
					for _, it := range items {
						if it.ID != "" {
							ids[it.ID] = true
						}
					}
				}
			}
		}
	}
	return ids
}

// WildcardURL is the literal form of a URL with every variable reference
// and every placeholder replaced by "*".
func WildcardURL(url domain.Markup) string {
	var sb strings.Builder
	for _, seg := range url {
		if seg.IsVariable() {
			sb.WriteString("*")
			continue
		}
		sb.WriteString(template.Wildcard(seg.Text))
	}
	return sb.String()
}

// wildcardRaw accepts a URL stored as markup or as a plain string.
func wildcardRaw(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return template.Wildcard(s)
	}
	var items []interface{}
	if json.Unmarshal(raw, &items) != nil {
		return ""
	}
	var sb strings.Builder
	for _, item := range items {
		switch v := item.(type) {
		case string:
			sb.WriteString(template.Wildcard(v))
		case map[string]interface{}:
			sb.WriteString("*")
		}
	}
	return sb.String()
}

func (d *Document) push(key string, records ...json.RawMessage) {
	d.collections[key] = append(d.collections[key], records...)
}

func decodeAll[T any](items []json.RawMessage, key string) ([]T, error) {
	out := make([]T, 0, len(items))
	for i, raw := range items {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decoding %s[%d]: %w", key, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// encode marshals v without HTML escaping so URLs keep their '&'.
func encode(v interface{}, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
