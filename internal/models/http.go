// Package models defines the stored URL record and the request and response
// data structures exchanged with clients of the shortener.
package models

// Request represents a request to shorten a URL.
type Request struct {
	// URL is the original URL to be shortened.
	URL string `json:"url"`
}

// ShortenResponse is the created record together with its public short URL.
type ShortenResponse struct {
	URL
	ShortURL string `json:"short_url"`
}

// UpdateRequest replaces both the short code and the long URL of a record.
type UpdateRequest struct {
	ShortCode string `json:"short_code"`
	LongURL   string `json:"long_url"`
}

// LoginRequest carries user credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	User string `json:"user"`
}

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatsResponse holds service counters for the internal stats endpoint.
type StatsResponse struct {
	URLs int `json:"urls"`
}
