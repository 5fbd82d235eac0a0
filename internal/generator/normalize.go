// Package generator turns tool definitions proposed by an external LLM into
// the same records the operator path builds, and talks to that LLM.
package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/compiler"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/logging"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/template"
)

// Normalizer converts untrusted generator output into a compiler.Build.
// Generator-proposed ids are never reused.
type Normalizer struct {
	compiler *compiler.Compiler
	log      *logging.Logger
}

// NewNormalizer creates a normalizer that allocates through c.
func NewNormalizer(c *compiler.Compiler) *Normalizer {
	return &Normalizer{compiler: c, log: logging.New("normalizer")}
}

// Normalize parses raw generator JSON and builds the canonical tool.
func (n *Normalizer) Normalize(raw []byte) (*compiler.Build, error) {
	var root interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		return nil, domain.NewGeneratorOutputError("parsing json: %v", err)
	}
	return n.NormalizeValue(plainNumbers(root))
}

// NormalizeValue builds the canonical tool from an already decoded value.
func (n *Normalizer) NormalizeValue(root interface{}) (*compiler.Build, error) {
	obj, ok := root.(map[string]interface{})
	if !ok {
		return nil, domain.NewGeneratorOutputError("top level must be an object, got %s", kindOf(root))
	}

	toolObj, rawVars, err := unwrap(obj)
	if err != nil {
		return nil, err
	}
	cand, err := decodeTool(toolObj)
	if err != nil {
		return nil, err
	}
	declared, err := decodeVariables(rawVars)
	if err != nil {
		return nil, err
	}

	s, err := newSession(declared)
	if err != nil {
		return nil, err
	}
	return n.build(cand, s)
}

// session carries the reference resolution state of one normalization.
type session struct {
	nameByID     map[string]string
	descriptions map[string]string
	declared     []string
	used         map[string]bool
	synthetic    []string
	fallbackByID map[string]string
}

// newSession indexes the declared variables. Names are sanitized to
// placeholder names, so "user-id" is declared as user_id.
func newSession(vars []variableCandidate) (*session, error) {
	s := &session{
		nameByID:     make(map[string]string),
		descriptions: make(map[string]string),
		used:         make(map[string]bool),
		fallbackByID: make(map[string]string),
	}
	for _, v := range vars {
		name := template.SanitizeName(v.Name)
		if name == "" {
			continue
		}
		if v.ID != "" {
			if prev, ok := s.nameByID[v.ID]; ok && prev != name {
				return nil, domain.NewGeneratorOutputError("variable id %q declared for both %q and %q", v.ID, prev, name)
			}
			s.nameByID[v.ID] = name
		}
		if !s.used[name] {
			s.used[name] = true
			s.declared = append(s.declared, name)
		}
		if s.descriptions[name] == "" {
			s.descriptions[name] = v.Description
		}
	}
	return s, nil
}

// fallback names an unresolvable reference, reusing the name for repeats of
// the same id.
func (s *session) fallback(id string) string {
	if id != "" {
		if name, ok := s.fallbackByID[id]; ok {
			return name
		}
	}
	name := ""
	for i := 1; ; i++ {
		name = "variable_" + strconv.Itoa(i)
		if !s.used[name] {
			break
		}
	}
	s.used[name] = true
	s.synthetic = append(s.synthetic, name)
	if id != "" {
		s.fallbackByID[id] = name
	}
	return name
}

// resolve maps a structured reference to a placeholder name.
func (s *session) resolve(obj map[string]interface{}) (string, bool) {
	if id, ok := referenceID(obj); ok {
		if name, ok := s.nameByID[id]; ok {
			return name, true
		}
		return s.fallback(id), true
	}
	if name, ok := referenceName(obj); ok {
		if name = template.SanitizeName(name); name != "" {
			return name, true
		}
		return s.fallback(""), true
	}
	return "", false
}

// templateOf flattens any markup-like value into a placeholder template.
func (s *session) templateOf(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []interface{}:
		var sb strings.Builder
		for _, item := range val {
			sb.WriteString(s.templateOf(item))
		}
		return sb.String()
	case map[string]interface{}:
		if name, ok := s.resolve(val); ok {
			return template.Placeholder(name)
		}
		if text, ok := val["text"]; ok {
			return s.templateOf(text)
		}
		return encodeJSON(val)
	default:
		return fmt.Sprint(val)
	}
}

// bodyOf returns the body template and content type, or ok=false when the
// candidate has no body.
func (s *session) bodyOf(v interface{}) (string, string, bool) {
	contentType := ""
	switch val := v.(type) {
	case nil:
		return "", "", false
	case map[string]interface{}:
		ct, _ := val["contentType"].(string)
		contentType = ct
		content, hasContent := val["content"]
		if !hasContent {
			if _, typed := val["type"]; typed {
				return "", "", false
			}
			return encodeJSON(val), contentType, true
		}
		v = content
	}

	var tpl string
	switch c := v.(type) {
	case map[string]interface{}:
		if _, isRef := referenceID(c); isRef {
			tpl = s.templateOf(c)
		} else {
			tpl = encodeJSON(c)
		}
	default:
		tpl = s.templateOf(c)
	}
	if strings.TrimSpace(tpl) == "" {
		return "", "", false
	}
	return tpl, contentType, true
}

type rawParam struct {
	key string
	tpl string
}

// splitQuery cuts the query string off url and parses it into parameters.
func splitQuery(url string) (string, []rawParam) {
	base, query, found := strings.Cut(url, "?")
	if !found {
		return url, nil
	}
	var params []rawParam
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		if key == "" {
			continue
		}
		params = append(params, rawParam{key: key, tpl: value})
	}
	return base, params
}

func (n *Normalizer) build(cand *toolCandidate, s *session) (*compiler.Build, error) {
	if strings.TrimSpace(cand.Name) == "" {
		return nil, domain.NewGeneratorOutputError("tool has no name")
	}

	methodName := cand.HTTPMethod
	if methodName == "" {
		methodName = cand.Method
	}
	if methodName == "" {
		methodName = string(domain.MethodGet)
	}
	method, err := compiler.ParseMethod(methodName)
	if err != nil {
		return nil, err
	}

	url := strings.TrimSpace(s.templateOf(cand.URL))
	if url == "" {
		return nil, domain.NewGeneratorOutputError("tool %q has no url", cand.Name)
	}
	url, params := splitQuery(url)
	if len(params) == 0 {
		for _, p := range decodeParams(cand.QueryParameters) {
			params = append(params, rawParam{key: p.Key, tpl: s.templateOf(p.Value)})
		}
	}

	var headers []rawParam
	for _, h := range decodeParams(cand.Headers) {
		headers = append(headers, rawParam{key: h.Key, tpl: s.templateOf(h.Value)})
	}

	body, contentType, hasBody := s.bodyOf(cand.Body)
	if hasBody && !method.AllowsBody() {
		n.log.Debug("body_ignored", map[string]interface{}{"tool": cand.Name, "method": string(method)})
		hasBody = false
	}
	if !hasBody {
		body = ""
	}

	queryTpls := make([]string, 0, len(params))
	for _, p := range params {
		queryTpls = append(queryTpls, p.tpl)
	}
	reg := compiler.NewRegistry(n.compiler.IDs())
	reg.Collect(url, queryTpls, body)
	for _, name := range reg.Names() {
		reg.Describe(name, s.descriptions[name])
	}
	lookup := reg.Lookup()

	var dropped []string
	for _, name := range s.declared {
		if _, ok := lookup[name]; !ok {
			dropped = append(dropped, name)
		}
	}
	if len(dropped) > 0 {
		n.log.Info("unreferenced_variables_dropped", map[string]interface{}{"tool": cand.Name, "names": dropped})
	}
	if len(s.synthetic) > 0 {
		n.log.Warn("unresolved_references", map[string]interface{}{"tool": cand.Name, "names": s.synthetic}, domain.ErrUnresolvedReference)
	}

	spec := compiler.ToolSpec{
		Name:        cand.Name,
		Description: cand.Description,
		Method:      string(method),
		URL:         collapseLiterals(template.TokenizeLenient(url, lookup)),
		ContentType: contentType,
	}
	for _, p := range params {
		spec.Query = append(spec.Query, compiler.Param{Key: p.key, Value: template.TokenizeLenient(p.tpl, lookup)})
	}
	for _, h := range headers {
		spec.Headers = append(spec.Headers, compiler.Param{Key: h.key, Value: template.Literal(h.tpl)})
	}
	if hasBody {
		spec.Body = template.TokenizeLenient(body, lookup)
	}

	build, err := n.compiler.Finish(reg, spec)
	if err != nil {
		return nil, err
	}
	build.Dropped = dropped
	build.Synthetic = s.synthetic
	return build, nil
}

// collapseLiterals rewrites leftover double-brace runs in literal URL text.
func collapseLiterals(m domain.Markup) domain.Markup {
	for i, seg := range m {
		if !seg.IsVariable() {
			m[i].Text = template.CollapseBraces(seg.Text)
		}
	}
	return m
}

func encodeJSON(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}

// plainNumbers converts json.Number values to float64, keeping integers
// that do not fit exactly as their original text.
func plainNumbers(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if f, err := val.Float64(); err == nil && strconv.FormatFloat(f, 'f', -1, 64) == val.String() {
			return f
		}
		return val.String()
	case map[string]interface{}:
		for k, item := range val {
			val[k] = plainNumbers(item)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = plainNumbers(item)
		}
		return val
	}
	return v
}

func kindOf(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "bool"
	}
	return fmt.Sprintf("%T", v)
}
