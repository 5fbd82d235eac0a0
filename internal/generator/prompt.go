package generator

import (
	"fmt"
	"strings"
)

const systemPrompt = `You design HTTP API tools for a conversational agent.
Reply with a single JSON object and nothing else, shaped like:

{
  "tool": {
    "name": "Short tool name",
    "description": "What the tool does and when the agent should call it",
    "httpMethod": "get | post | put | patch | delete",
    "url": "https://api.example.com/path/{pathParam}",
    "queryParameters": [{"key": "q", "value": "{searchTerm}"}],
    "headers": [{"key": "Accept", "value": "application/json"}],
    "body": {"type": "raw-input", "contentType": "json", "content": "{\"field\": \"{value}\"}"}
  },
  "variables": [
    {"name": "searchTerm", "description": "What the user is looking for"}
  ]
}

Rules:
- Write every variable as {name} where name matches [a-zA-Z0-9_]+.
- Declare each variable you use exactly once in "variables".
- Hardcoded values stay literal; only user-provided values become variables.
- Omit "body" for get and delete.
- Never invent API keys; use a variable for secrets.`

func userPrompt(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a tool for this request:\n%s\n", strings.TrimSpace(req.Description))
	if req.AgentName != "" {
		fmt.Fprintf(&sb, "\nThe tool is attached to the agent %q.\n", req.AgentName)
	}
	if len(req.ExistingTools) > 0 {
		fmt.Fprintf(&sb, "\nThese tool names already exist and must not be reused: %s\n", strings.Join(req.ExistingTools, ", "))
	}
	return sb.String()
}
