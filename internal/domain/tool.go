package domain

import "time"

// HTTPMethod is a lower-case HTTP verb accepted on an API tool.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "get"
	MethodPost   HTTPMethod = "post"
	MethodPut    HTTPMethod = "put"
	MethodPatch  HTTPMethod = "patch"
	MethodDelete HTTPMethod = "delete"
)

// methodMeta lists accepted verbs and whether they carry a request body.
var methodMeta = map[HTTPMethod]struct {
	AllowsBody bool
}{
	MethodGet:    {false},
	MethodPost:   {true},
	MethodPut:    {true},
	MethodPatch:  {true},
	MethodDelete: {false},
}

// Valid reports whether m is one of the accepted verbs.
func (m HTTPMethod) Valid() bool {
	_, ok := methodMeta[m]
	return ok
}

// AllowsBody reports whether requests with this verb carry a body.
func (m HTTPMethod) AllowsBody() bool {
	return methodMeta[m].AllowsBody
}

// Methods returns the accepted verbs in a stable order.
func Methods() []HTTPMethod {
	return []HTTPMethod{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}
}

// BodyTypeRawInput is the only body type produced by the compiler.
const BodyTypeRawInput = "raw-input"

// ContentTypeJSON is the default body content type.
const ContentTypeJSON = "json"

// Body is the request body of a tool.
type Body struct {
	Type        string `json:"type"`
	Content     Markup `json:"content"`
	ContentType string `json:"contentType"`
}

// QueryParameter is one key/value pair of the tool's query string.
type QueryParameter struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value Markup `json:"value"`
}

// Header is one request header. Same shape as QueryParameter.
type Header struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value Markup `json:"value"`
}

// APITool is a callable HTTP action owned by the document.
type APITool struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	URL             Markup           `json:"url"`
	HTTPMethod      HTTPMethod       `json:"httpMethod"`
	QueryParameters []QueryParameter `json:"queryParameters"`
	Headers         []Header         `json:"headers"`
	Body            *Body            `json:"body"`
	CreatedAt       string           `json:"createdAt"`
	UpdatedAt       string           `json:"updatedAt"`
	CreatedByID     int              `json:"createdByID"`
	UpdatedByID     int              `json:"updatedByID"`
	FolderID        *string          `json:"folderID"`
	Image           *string          `json:"image"`
}

// VariableIDs returns every variable id referenced by the tool's URL, query
// values and body, in that order and without duplicates.
func (t *APITool) VariableIDs() []string {
	all := Markup{}
	all = append(all, t.URL...)
	for _, q := range t.QueryParameters {
		all = append(all, q.Value...)
	}
	if t.Body != nil {
		all = append(all, t.Body.Content...)
	}
	return all.VariableIDs()
}

// DatatypeText is the datatype given to compiled variables.
const DatatypeText = "text"

// Variable is a named placeholder scoped to one tool.
type Variable struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	APIToolID    string  `json:"apiToolID"`
	Description  string  `json:"description"`
	Datatype     string  `json:"datatype"`
	IsArray      bool    `json:"isArray"`
	IsSystem     bool    `json:"isSystem"`
	DefaultValue *string `json:"defaultValue"`
	FolderID     *string `json:"folderID"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
	CreatedByID  int     `json:"createdByID"`
	UpdatedByID  int     `json:"updatedByID"`
}

// Agent is the subset of an agent record the editor reads.
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// LinkInputVariable describes one tool variable as seen by the agent.
type LinkInputVariable struct {
	Description string `json:"description"`
}

// ResponseCapture stores a tool response into a variable.
type ResponseCapture struct {
	VariableID string `json:"variableID"`
	Path       string `json:"path"`
}

// AgentAPIToolLink attaches a tool to an agent.
type AgentAPIToolLink struct {
	ID              string                       `json:"id"`
	AgentID         string                       `json:"agentID"`
	APIToolID       string                       `json:"apiToolID"`
	Description     *string                      `json:"description"`
	InputVariables  map[string]LinkInputVariable `json:"inputVariables"`
	CaptureResponse *ResponseCapture             `json:"captureResponse"`
}

// Timestamp formats t the way document records store times.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
