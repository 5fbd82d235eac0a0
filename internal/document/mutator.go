package document

import (
	"encoding/json"
	"fmt"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/compiler"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/ident"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/logging"
)

// Mutator merges built tools into a document. Every check runs before the
// first append, so a rejected build leaves the document unchanged.
type Mutator struct {
	ids ident.Generator
	log *logging.Logger
}

// NewMutator creates a mutator that allocates link ids from ids.
func NewMutator(ids ident.Generator) *Mutator {
	return &Mutator{ids: ids, log: logging.New("mutator")}
}

// Apply checks build against doc and appends its variables, its tool and one
// link to agentID. The returned link is the one appended.
func (m *Mutator) Apply(doc *Document, build *compiler.Build, agentID string) (*domain.AgentAPIToolLink, error) {
	link := m.link(build, agentID)
	if err := m.check(doc, build, link); err != nil {
		m.log.Warn("tool_rejected", map[string]interface{}{"agent": agentID}, err)
		return nil, err
	}

	vars := make([]json.RawMessage, 0, len(build.Variables))
	for _, v := range build.Variables {
		raw, err := encode(v, false)
		if err != nil {
			return nil, fmt.Errorf("encoding variable %s: %w", v.Name, err)
		}
		vars = append(vars, raw)
	}
	tool, err := encode(build.Tool, false)
	if err != nil {
		return nil, fmt.Errorf("encoding tool: %w", err)
	}
	rawLink, err := encode(link, false)
	if err != nil {
		return nil, fmt.Errorf("encoding link: %w", err)
	}

	doc.push(KeyVariables, vars...)
	doc.push(KeyTools, tool)
	doc.push(KeyLinks, rawLink)

	m.log.Info("tool_added", map[string]interface{}{
		"tool":      build.Tool.Name,
		"tool_id":   build.Tool.ID,
		"agent":     agentID,
		"variables": len(build.Variables),
	})
	return link, nil
}

// Check reports whether build could be applied to doc without appending.
func (m *Mutator) Check(doc *Document, build *compiler.Build, agentID string) error {
	return m.check(doc, build, m.link(build, agentID))
}

func (m *Mutator) link(build *compiler.Build, agentID string) *domain.AgentAPIToolLink {
	link := &domain.AgentAPIToolLink{
		ID:             m.ids.NewID(),
		AgentID:        agentID,
		InputVariables: make(map[string]domain.LinkInputVariable),
	}
	if build == nil || build.Tool == nil {
		return link
	}
	link.APIToolID = build.Tool.ID
	for _, v := range build.Variables {
		link.InputVariables[v.ID] = domain.LinkInputVariable{Description: v.Description}
	}
	return link
}

func (m *Mutator) check(doc *Document, build *compiler.Build, link *domain.AgentAPIToolLink) error {
	if build == nil || build.Tool == nil {
		return fmt.Errorf("%w: empty build", domain.ErrInvalidTool)
	}
	tool := build.Tool

	if _, ok := doc.Agent(link.AgentID); !ok {
		return fmt.Errorf("%w: %s", domain.ErrAgentNotFound, link.AgentID)
	}

	wildcard := WildcardURL(tool.URL)
	for _, existing := range doc.ToolSummaries() {
		if existing.Name == tool.Name {
			return &domain.DuplicateToolError{Field: "name", Value: tool.Name, Existing: existing.ID}
		}
		if wildcard != "" && existing.Wildcard == wildcard {
			return &domain.DuplicateToolError{Field: "url", Value: wildcard, Existing: existing.ID}
		}
	}

	if err := checkReferences(build); err != nil {
		return err
	}

	taken := doc.IDs()
	for _, id := range buildIDs(build, link) {
		if taken[id] {
			return fmt.Errorf("%w: %s", domain.ErrIDCollision, id)
		}
		taken[id] = true
	}

	if err := ValidateTool(tool); err != nil {
		return err
	}
	for i := range build.Variables {
		if err := ValidateVariable(&build.Variables[i]); err != nil {
			return err
		}
	}
	return nil
}

// checkReferences verifies that variables belong to the tool, that names are
// unique, and that every reference resolves.
func checkReferences(build *compiler.Build) error {
	declared := make(map[string]bool, len(build.Variables))
	names := make(map[string]bool, len(build.Variables))
	for _, v := range build.Variables {
		if v.APIToolID != build.Tool.ID {
			return fmt.Errorf("%w: variable %s belongs to tool %s", domain.ErrInvalidTool, v.Name, v.APIToolID)
		}
		if names[v.Name] {
			return fmt.Errorf("%w: variable name %s declared twice", domain.ErrInvalidTool, v.Name)
		}
		names[v.Name] = true
		declared[v.ID] = true
	}
	for _, id := range build.Tool.VariableIDs() {
		if !declared[id] {
			return &domain.UnknownVariableError{Name: id}
		}
	}
	return nil
}

// buildIDs lists every id the build and its link would add, in order.
func buildIDs(build *compiler.Build, link *domain.AgentAPIToolLink) []string {
	tool := build.Tool
	ids := []string{tool.ID}
	for _, q := range tool.QueryParameters {
		ids = append(ids, q.ID)
	}
	for _, h := range tool.Headers {
		ids = append(ids, h.ID)
	}
	for _, v := range build.Variables {
		ids = append(ids, v.ID)
	}
	return append(ids, link.ID)
}
