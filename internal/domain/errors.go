package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds reported by the compiler, the normalizer and the mutator.
var (
	// ErrInvalidMethod indicates an HTTP method outside get/post/put/patch/delete.
	ErrInvalidMethod = errors.New("invalid http method")

	// ErrDuplicateTool indicates a tool with the same name or URL already exists.
	ErrDuplicateTool = errors.New("duplicate tool")

	// ErrUnknownVariable indicates a placeholder with no allocated variable.
	// On the operator path this is a defect, not a user error.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrInvalidGeneratorOutput indicates generator output with no recognizable tool.
	ErrInvalidGeneratorOutput = errors.New("invalid generator output")

	// ErrUnresolvedReference marks a generator variable reference recovered
	// with a fallback name. It is reported, never returned.
	ErrUnresolvedReference = errors.New("unresolved variable reference")

	// ErrAgentNotFound indicates the owning agent is not in the document.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrIDCollision indicates a freshly allocated id already exists in the document.
	ErrIDCollision = errors.New("identifier collision")

	// ErrInvalidTool indicates an assembled tool that fails schema validation.
	ErrInvalidTool = errors.New("invalid tool record")

	// ErrGeneratorUnavailable indicates the generator call itself failed.
	ErrGeneratorUnavailable = errors.New("generator unavailable")
)

// MethodError wraps ErrInvalidMethod with the rejected value.
type MethodError struct {
	Method string
}

func (e *MethodError) Error() string {
	allowed := make([]string, 0, len(Methods()))
	for _, m := range Methods() {
		allowed = append(allowed, string(m))
	}
	return fmt.Sprintf("invalid http method %q (want one of %s)", e.Method, strings.Join(allowed, ", "))
}

func (e *MethodError) Unwrap() error {
	return ErrInvalidMethod
}

// DuplicateToolError wraps ErrDuplicateTool with the clashing tool.
type DuplicateToolError struct {
	Field    string // "name" or "url"
	Value    string
	Existing string // id of the tool already in the document
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("duplicate tool: %s %q already used by tool %s", e.Field, e.Value, e.Existing)
}

func (e *DuplicateToolError) Unwrap() error {
	return ErrDuplicateTool
}

// UnknownVariableError wraps ErrUnknownVariable with the placeholder name.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable %q", e.Name)
}

func (e *UnknownVariableError) Unwrap() error {
	return ErrUnknownVariable
}

// GeneratorOutputError wraps ErrInvalidGeneratorOutput with a reason.
type GeneratorOutputError struct {
	Reason string
}

func (e *GeneratorOutputError) Error() string {
	return "invalid generator output: " + e.Reason
}

func (e *GeneratorOutputError) Unwrap() error {
	return ErrInvalidGeneratorOutput
}

// NewGeneratorOutputError creates a typed invalid-output error.
func NewGeneratorOutputError(format string, args ...any) error {
	return &GeneratorOutputError{Reason: fmt.Sprintf(format, args...)}
}

// IsDuplicate checks if an error is a duplicate tool error.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateTool)
}

// IsDefect reports errors that indicate a bug rather than bad input.
func IsDefect(err error) bool {
	return errors.Is(err, ErrUnknownVariable) || errors.Is(err, ErrInvalidTool)
}
