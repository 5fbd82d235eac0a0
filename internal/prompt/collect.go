package prompt

import (
	"fmt"
	"io"
	"strings"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/compiler"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
)

const methodAttempts = 3

// Collector asks for the fields of an operator-defined tool.
type Collector struct {
	ask Asker
	out io.Writer
}

// NewCollector creates a collector. Notices are written to out.
func NewCollector(ask Asker, out io.Writer) *Collector {
	return &Collector{ask: ask, out: out}
}

// Collect asks for every field in that is still empty, then for a
// description of each placeholder the tool references. The body is only
// asked for methods that carry one.
func (c *Collector) Collect(in compiler.OperatorInput) (compiler.OperatorInput, error) {
	var err error
	if in.Name, err = c.fill(in.Name, Question{Label: "Name", Placeholder: "Get weather", Required: true}); err != nil {
		return in, err
	}
	if in.Description, err = c.fill(in.Description, Question{Label: "Description", Placeholder: "What the tool does"}); err != nil {
		return in, err
	}
	if in.Method, err = c.method(in.Method); err != nil {
		return in, err
	}
	if in.URL, err = c.fill(in.URL, Question{Label: "URL", Placeholder: "https://api.example.com/users/{userId}", Required: true}); err != nil {
		return in, err
	}
	if in.Query, err = c.fill(in.Query, Question{Label: "Query parameters", Placeholder: "key=value,key={variable}"}); err != nil {
		return in, err
	}
	if in.Headers, err = c.fill(in.Headers, Question{Label: "Headers", Placeholder: "Accept:application/json"}); err != nil {
		return in, err
	}

	method := domain.HTTPMethod(in.Method)
	if method.AllowsBody() {
		if in.Body, err = c.fill(in.Body, Question{Label: "Body", Placeholder: `{"field": "{value}"}`}); err != nil {
			return in, err
		}
		if strings.TrimSpace(in.Body) != "" && in.ContentType == "" {
			in.ContentType = domain.ContentTypeJSON
		}
	} else if strings.TrimSpace(in.Body) != "" {
		fmt.Fprintf(c.out, "note: %s requests carry no body, ignoring it\n", strings.ToUpper(in.Method))
		in.Body = ""
	}

	return c.Describe(in)
}

// Describe asks for a description of each referenced placeholder that has
// none yet.
func (c *Collector) Describe(in compiler.OperatorInput) (compiler.OperatorInput, error) {
	names := compiler.DiscoverVariables(in)
	if len(names) == 0 {
		return in, nil
	}
	descriptions := make(map[string]string, len(names))
	for k, v := range in.VariableDescriptions {
		descriptions[k] = v
	}
	for _, name := range names {
		if descriptions[name] != "" {
			continue
		}
		d, err := c.ask.Ask(Question{Label: fmt.Sprintf("Description for {%s}", name)})
		if err != nil {
			return in, err
		}
		if d != "" {
			descriptions[name] = d
		}
	}
	in.VariableDescriptions = descriptions
	return in, nil
}

func (c *Collector) fill(current string, q Question) (string, error) {
	if strings.TrimSpace(current) != "" {
		return current, nil
	}
	return c.ask.Ask(q)
}

func (c *Collector) method(current string) (string, error) {
	if strings.TrimSpace(current) != "" {
		m, err := compiler.ParseMethod(current)
		if err != nil {
			return "", err
		}
		return string(m), nil
	}

	q := Question{Label: "Method", Default: string(domain.MethodGet)}
	var lastErr error
	for i := 0; i < methodAttempts; i++ {
		answer, err := c.ask.Ask(q)
		if err != nil {
			return "", err
		}
		m, err := compiler.ParseMethod(answer)
		if err == nil {
			return string(m), nil
		}
		lastErr = err
		fmt.Fprintf(c.out, "  %v\n", err)
	}
	return "", lastErr
}
