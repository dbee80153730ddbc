package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// ContextKey is a custom type used for keys in the context.
type ContextKey string

const (
	// RequestIDKey holds the id of the current request.
	RequestIDKey ContextKey = "requestID"
	// UserKey holds the name of the authenticated user.
	UserKey ContextKey = "user"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// WithRequestID reuses an incoming X-Request-ID or generates a new one.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// User returns the authenticated user stored in ctx.
func User(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(UserKey).(string)
	return user, ok && user != ""
}
