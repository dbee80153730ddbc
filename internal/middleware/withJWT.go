package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/atinyakov/shortlink/internal/app/service"
	"github.com/atinyakov/shortlink/internal/models"
)

// InjectUser adds the user name to the request context.
func InjectUser(req *http.Request, user string) *http.Request {
	ctx := context.WithValue(req.Context(), UserKey, user)
	return req.WithContext(ctx)
}

// BearerToken extracts the token from an "Authorization: Bearer" header,
// falling back to the token query parameter.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// WithJWT rejects requests without a valid access token and stores the
// token's user in the request context.
func WithJWT(auth service.AuthIface) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				unauthorized(w, "token is missing")
				return
			}

			claims, err := auth.ParseRawJWT(token)
			if err != nil {
				unauthorized(w, "token is invalid")
				return
			}

			next.ServeHTTP(w, InjectUser(r, claims.User))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="shortlink"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg})
}
