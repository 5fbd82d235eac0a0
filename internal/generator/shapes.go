package generator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
)

// Envelope keys the generator has been seen to wrap the tool and its
// variables under.
var (
	toolKeys     = []string{"tool", "apiTool", "api_tool", "definition"}
	toolListKeys = []string{"tools", "apiTools"}
	variableKeys = []string{"variables", "vars", "toolVariables"}
)

// fieldAliases maps alternative spellings to the candidate's field names.
var fieldAliases = map[string]string{
	"query_parameters": "queryParameters",
	"queryParams":      "queryParameters",
	"query":            "queryParameters",
	"http_method":      "httpMethod",
	"endpoint":         "url",
}

// toolCandidate is the loosely typed tool the generator proposed.
type toolCandidate struct {
	ID              string      `mapstructure:"id"`
	Name            string      `mapstructure:"name"`
	Description     string      `mapstructure:"description"`
	URL             interface{} `mapstructure:"url"`
	HTTPMethod      string      `mapstructure:"httpMethod"`
	Method          string      `mapstructure:"method"`
	QueryParameters interface{} `mapstructure:"queryParameters"`
	Headers         interface{} `mapstructure:"headers"`
	Body            interface{} `mapstructure:"body"`
}

// variableCandidate is one declared variable.
type variableCandidate struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// paramCandidate is one query parameter or header.
type paramCandidate struct {
	Key   string
	Value interface{}
}

func decodeWeak(input, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// looksLikeTool reports whether obj is itself a tool rather than an envelope.
func looksLikeTool(obj map[string]interface{}) bool {
	_, hasURL := obj["url"]
	_, hasEndpoint := obj["endpoint"]
	_, hasName := obj["name"]
	return hasURL || hasEndpoint || hasName
}

// unwrap splits the generator's root object into the tool object and the
// raw variable declarations.
func unwrap(root map[string]interface{}) (map[string]interface{}, interface{}, error) {
	var tool map[string]interface{}
	for _, k := range toolKeys {
		if obj, ok := root[k].(map[string]interface{}); ok {
			tool = obj
			break
		}
	}
	if tool == nil {
		for _, k := range toolListKeys {
			if list, ok := root[k].([]interface{}); ok && len(list) > 0 {
				if obj, ok := list[0].(map[string]interface{}); ok {
					tool = obj
					break
				}
			}
		}
	}
	if tool == nil && looksLikeTool(root) {
		tool = root
	}
	if tool == nil {
		return nil, nil, domain.NewGeneratorOutputError("no tool object found (keys: %s)", strings.Join(sortedKeys(root), ", "))
	}

	for _, scope := range []map[string]interface{}{root, tool} {
		for _, k := range variableKeys {
			if v, ok := scope[k]; ok && v != nil {
				return tool, v, nil
			}
		}
	}
	return tool, nil, nil
}

func decodeTool(obj map[string]interface{}) (*toolCandidate, error) {
	normalized := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		if canonical, ok := fieldAliases[k]; ok {
			if _, taken := obj[canonical]; taken {
				continue
			}
			k = canonical
		}
		normalized[k] = v
	}
	// Structured fields are inspected by shape, never decoded as scalars.
	var c toolCandidate
	if err := decodeWeak(scalarsOnly(normalized), &c); err != nil {
		return nil, domain.NewGeneratorOutputError("decoding tool: %v", err)
	}
	c.URL = normalized["url"]
	c.QueryParameters = normalized["queryParameters"]
	c.Headers = normalized["headers"]
	c.Body = normalized["body"]
	return &c, nil
}

// scalarsOnly keeps the fields decoded as plain strings.
func scalarsOnly(obj map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, k := range []string{"id", "name", "description", "httpMethod", "method"} {
		switch v := obj[k].(type) {
		case string, float64, bool:
			out[k] = v
		}
	}
	return out
}

// decodeVariables accepts an array of objects, an array of names, or a
// name -> description object.
func decodeVariables(raw interface{}) ([]variableCandidate, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		out := make([]variableCandidate, 0, len(v))
		for _, item := range v {
			switch it := item.(type) {
			case string:
				out = append(out, variableCandidate{Name: it})
			case map[string]interface{}:
				var vc variableCandidate
				if err := decodeWeak(it, &vc); err != nil {
					return nil, domain.NewGeneratorOutputError("decoding variable: %v", err)
				}
				out = append(out, vc)
			}
		}
		return out, nil
	case map[string]interface{}:
		out := make([]variableCandidate, 0, len(v))
		for _, name := range sortedKeys(v) {
			vc := variableCandidate{Name: name}
			switch d := v[name].(type) {
			case string:
				vc.Description = d
			case map[string]interface{}:
				_ = decodeWeak(d, &vc)
				vc.Name = name
			}
			out = append(out, vc)
		}
		return out, nil
	default:
		return nil, domain.NewGeneratorOutputError("variables must be an array or object, got %T", raw)
	}
}

// decodeParams accepts [{key, value}], [{name, value}] or {key: value}.
func decodeParams(raw interface{}) []paramCandidate {
	switch v := raw.(type) {
	case []interface{}:
		out := make([]paramCandidate, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			key, _ := obj["key"].(string)
			if key == "" {
				key, _ = obj["name"].(string)
			}
			if strings.TrimSpace(key) == "" {
				continue
			}
			out = append(out, paramCandidate{Key: strings.TrimSpace(key), Value: obj["value"]})
		}
		return out
	case map[string]interface{}:
		out := make([]paramCandidate, 0, len(v))
		for _, k := range sortedKeys(v) {
			out = append(out, paramCandidate{Key: k, Value: v[k]})
		}
		return out
	}
	return nil
}

// referenceIDKeys hold a variable id inside a structured markup element.
var referenceIDKeys = []string{"variableID", "variableId", "variable_id"}

// referenceID returns the id of a structured variable reference. A bare
// "id" only counts on objects shaped like {id} or {type: "variable", id},
// so JSON bodies carrying an id field are left alone.
func referenceID(obj map[string]interface{}) (string, bool) {
	for _, k := range referenceIDKeys {
		if v, ok := obj[k]; ok {
			return idString(v), true
		}
	}
	v, ok := obj["id"]
	if !ok {
		return "", false
	}
	t, _ := obj["type"].(string)
	if len(obj) == 1 || (t == "variable" && len(obj) == 2) {
		return idString(v), true
	}
	return "", false
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return ""
}

// referenceName returns the name of a reference written by name.
func referenceName(obj map[string]interface{}) (string, bool) {
	if s, ok := obj["variable"].(string); ok {
		return s, true
	}
	if t, _ := obj["type"].(string); t == "variable" {
		if s, ok := obj["name"].(string); ok {
			return s, true
		}
	}
	return "", false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
