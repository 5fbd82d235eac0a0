package compiler

import (
	"fmt"
	"strings"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/ident"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/logging"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/template"
)

// OperatorInput holds the raw strings collected from an operator.
// Query is "k=v,k=v" and Headers is "k:v,k:v".
type OperatorInput struct {
	Name        string
	Description string
	URL         string
	Method      string
	Query       string
	Headers     string
	Body        string
	ContentType string

	// VariableDescriptions maps placeholder names to descriptions.
	VariableDescriptions map[string]string
}

// Build is a tool ready to be merged into a document.
type Build struct {
	Tool      *domain.APITool
	Variables []domain.Variable

	// Dropped lists declared variables that nothing referenced (generator path).
	Dropped []string
	// Synthetic lists fallback names given to unresolved references (generator path).
	Synthetic []string
}

// Pair is a raw key/value pair from operator input.
type Pair struct {
	Key   string
	Value string
}

// Compiler runs the operator path: registry, tokenizer, assembler.
type Compiler struct {
	ids ident.Generator
	asm *Assembler
	log *logging.Logger
}

// New creates a compiler. ids is used for variable ids; asm allocates tool ids.
func New(ids ident.Generator, asm *Assembler) *Compiler {
	return &Compiler{
		ids: ids,
		asm: asm,
		log: logging.New("compiler"),
	}
}

// IDs returns the compiler's identifier generator.
func (c *Compiler) IDs() ident.Generator {
	return c.ids
}

// Assembler returns the compiler's assembler.
func (c *Compiler) Assembler() *Assembler {
	return c.asm
}

// Compile builds a tool and its variables from operator input.
func (c *Compiler) Compile(in OperatorInput) (*Build, error) {
	method, err := ParseMethod(defaultMethod(in.Method))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if strings.TrimSpace(in.URL) == "" {
		return nil, fmt.Errorf("tool url is required")
	}

	query := ParsePairs(in.Query, "=")
	headers := ParsePairs(in.Headers, ":")
	body := ""
	if method.AllowsBody() {
		body = in.Body
	} else if strings.TrimSpace(in.Body) != "" {
		c.log.Debug("body_ignored", map[string]interface{}{"method": string(method), "tool": in.Name})
	}

	reg := NewRegistry(c.ids)
	reg.Collect(strings.TrimSpace(in.URL), pairValues(query), body)
	reg.DescribeAll(in.VariableDescriptions)
	lookup := reg.Lookup()

	spec := ToolSpec{
		Name:        in.Name,
		Description: in.Description,
		Method:      string(method),
		ContentType: in.ContentType,
	}
	if spec.URL, err = template.Tokenize(strings.TrimSpace(in.URL), lookup); err != nil {
		return nil, fmt.Errorf("tokenizing url: %w", err)
	}
	for _, q := range query {
		value, err := template.Tokenize(q.Value, lookup)
		if err != nil {
			return nil, fmt.Errorf("tokenizing query %q: %w", q.Key, err)
		}
		spec.Query = append(spec.Query, Param{Key: q.Key, Value: value})
	}
	for _, h := range headers {
		spec.Headers = append(spec.Headers, Param{Key: h.Key, Value: template.Literal(h.Value)})
	}
	if strings.TrimSpace(body) != "" {
		if spec.Body, err = template.Tokenize(body, lookup); err != nil {
			return nil, fmt.Errorf("tokenizing body: %w", err)
		}
	}

	build, err := c.Finish(reg, spec)
	if err != nil {
		return nil, err
	}
	c.log.Info("tool_compiled", map[string]interface{}{
		"tool":      build.Tool.Name,
		"variables": len(build.Variables),
		"query":     len(build.Tool.QueryParameters),
	})
	return build, nil
}

// Finish assembles spec, binds the registry's variables to the new tool and
// keeps only variables the tool references.
func (c *Compiler) Finish(reg *Registry, spec ToolSpec) (*Build, error) {
	tool, err := c.asm.Assemble(spec)
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]bool)
	for _, id := range tool.VariableIDs() {
		referenced[id] = true
	}

	vars := reg.Bind(tool.ID, c.asm.CreatorID(), c.asm.Now())
	kept := make([]domain.Variable, 0, len(vars))
	declared := make(map[string]bool, len(vars))
	for _, v := range vars {
		if referenced[v.ID] {
			kept = append(kept, v)
			declared[v.ID] = true
		}
	}
	for id := range referenced {
		if !declared[id] {
			return nil, &domain.UnknownVariableError{Name: id}
		}
	}
	return &Build{Tool: tool, Variables: kept}, nil
}

// ParsePairs splits "k<sep>v,k<sep>v" into pairs. Each entry splits on the
// first sep; surrounding spaces are trimmed and empty entries skipped.
func ParsePairs(input, sep string) []Pair {
	var pairs []Pair
	for _, item := range strings.Split(input, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, value, _ := strings.Cut(item, sep)
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		pairs = append(pairs, Pair{Key: key, Value: strings.TrimSpace(value)})
	}
	return pairs
}

// DiscoverVariables lists the placeholder names the operator input
// references, in registry order. Used to prompt for descriptions.
func DiscoverVariables(in OperatorInput) []string {
	body := ""
	if m, err := ParseMethod(defaultMethod(in.Method)); err == nil && m.AllowsBody() {
		body = in.Body
	}
	tpls := []string{in.URL}
	tpls = append(tpls, pairValues(ParsePairs(in.Query, "="))...)
	tpls = append(tpls, body)
	return template.NamesIn(tpls...)
}

func pairValues(pairs []Pair) []string {
	values := make([]string, 0, len(pairs))
	for _, p := range pairs {
		values = append(values, p.Value)
	}
	return values
}

func defaultMethod(m string) string {
	if strings.TrimSpace(m) == "" {
		return string(domain.MethodGet)
	}
	return m
}
