package logging

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type contextKey string

const operationIDKey contextKey = "operation_id"

// NewOperationID generates a sortable operation id.
func NewOperationID() string {
	return ulid.Make().String()
}

// WithOperationID adds an operation id to context.
// If id is empty, generates a new one.
func WithOperationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = NewOperationID()
	}
	return context.WithValue(ctx, operationIDKey, id)
}

// OperationID extracts the operation id from context.
// Returns empty string if not present.
func OperationID(ctx context.Context) string {
	if v, ok := ctx.Value(operationIDKey).(string); ok {
		return v
	}
	return ""
}
