package document

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
)

//go:embed records.schema.json
var recordsSchema []byte

const schemaResource = "records.schema.json"

type recordSchemas struct {
	tool     *jsonschema.Schema
	variable *jsonschema.Schema
}

var schemas = sync.OnceValues(func() (*recordSchemas, error) {
	var schemaDoc any
	if err := json.Unmarshal(recordsSchema, &schemaDoc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaResource, schemaDoc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	tool, err := c.Compile(schemaResource + "#/$defs/tool")
	if err != nil {
		return nil, fmt.Errorf("compile tool schema: %w", err)
	}
	variable, err := c.Compile(schemaResource + "#/$defs/variable")
	if err != nil {
		return nil, fmt.Errorf("compile variable schema: %w", err)
	}
	return &recordSchemas{tool: tool, variable: variable}, nil
})

// ValidateTool checks a tool record against the document record schema.
func ValidateTool(tool *domain.APITool) error {
	s, err := schemas()
	if err != nil {
		return err
	}
	return validate(s.tool, "tool "+tool.Name, tool)
}

// ValidateVariable checks a variable record against the document record schema.
func ValidateVariable(v *domain.Variable) error {
	s, err := schemas()
	if err != nil {
		return err
	}
	return validate(s.variable, "variable "+v.Name, v)
}

func validate(schema *jsonschema.Schema, what string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidTool, what, err)
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidTool, what, err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidTool, what, err)
	}
	return nil
}
