package logger

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	userIDKey
	loggerKey
)

// WithRequestID stores requestID in ctx, generating a UUID when it is empty
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID stored in ctx, if any
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithUserID stores the authenticated user's ID in ctx.
// Services also read it to resolve per-user settings.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the user ID stored in ctx, if any
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithLogger stores l in ctx
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx, or the default logger
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

func contextFields(ctx context.Context) []Field {
	var fields []Field
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, String("request_id", id))
	}
	if id := UserIDFromContext(ctx); id != "" {
		fields = append(fields, String("user_id", id))
	}
	return fields
}

// Ctx returns the context's logger enriched with its request and user IDs
func Ctx(ctx context.Context) Logger {
	return FromContext(ctx).WithContext(ctx)
}
