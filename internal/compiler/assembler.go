package compiler

import (
	"strings"
	"time"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/ident"
)

// Param is a tokenized key/value pair used for query parameters and headers.
type Param struct {
	Key   string
	Value domain.Markup
}

// ToolSpec is the tokenized input of the Assembler.
type ToolSpec struct {
	Name        string
	Description string
	Method      string
	URL         domain.Markup
	Query       []Param
	Headers     []Param
	Body        domain.Markup // nil means no body
	ContentType string
}

// Assembler builds canonical tool records.
type Assembler struct {
	ids       ident.Generator
	now       func() time.Time
	creatorID int
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) { a.now = now }
}

// WithCreator sets the creator id stamped on new records.
func WithCreator(id int) AssemblerOption {
	return func(a *Assembler) { a.creatorID = id }
}

// NewAssembler creates an assembler allocating ids from ids.
func NewAssembler(ids ident.Generator, opts ...AssemblerOption) *Assembler {
	a := &Assembler{ids: ids, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Now returns the assembler's current time.
func (a *Assembler) Now() time.Time {
	return a.now()
}

// CreatorID returns the creator id stamped on new records.
func (a *Assembler) CreatorID() int {
	return a.creatorID
}

// ParseMethod lower-cases m and checks it against the accepted verbs.
func ParseMethod(m string) (domain.HTTPMethod, error) {
	method := domain.HTTPMethod(strings.ToLower(strings.TrimSpace(m)))
	if !method.Valid() {
		return "", &domain.MethodError{Method: m}
	}
	return method, nil
}

// Assemble builds the tool record for spec with a fresh id. A body is kept
// only for methods that carry one and only when it has content.
func (a *Assembler) Assemble(spec ToolSpec) (*domain.APITool, error) {
	method, err := ParseMethod(spec.Method)
	if err != nil {
		return nil, err
	}

	ts := domain.Timestamp(a.now())
	tool := &domain.APITool{
		ID:              a.ids.NewID(),
		Name:            strings.TrimSpace(spec.Name),
		Description:     spec.Description,
		URL:             nonNil(spec.URL),
		HTTPMethod:      method,
		QueryParameters: make([]domain.QueryParameter, 0, len(spec.Query)),
		Headers:         make([]domain.Header, 0, len(spec.Headers)),
		CreatedAt:       ts,
		UpdatedAt:       ts,
		CreatedByID:     a.creatorID,
		UpdatedByID:     a.creatorID,
	}

	for _, q := range spec.Query {
		tool.QueryParameters = append(tool.QueryParameters, domain.QueryParameter{
			ID:    a.ids.NewID(),
			Key:   q.Key,
			Value: nonNil(q.Value),
		})
	}
	for _, h := range spec.Headers {
		tool.Headers = append(tool.Headers, domain.Header{
			ID:    a.ids.NewID(),
			Key:   h.Key,
			Value: nonNil(h.Value),
		})
	}

	if method.AllowsBody() && len(spec.Body) > 0 {
		contentType := spec.ContentType
		if contentType == "" {
			contentType = domain.ContentTypeJSON
		}
		tool.Body = &domain.Body{
			Type:        domain.BodyTypeRawInput,
			Content:     spec.Body,
			ContentType: contentType,
		}
	}

	return tool, nil
}

func nonNil(m domain.Markup) domain.Markup {
	if m == nil {
		return domain.Markup{}
	}
	return m
}
