// Package handler contains the HTTP handlers of the shortener. Handlers
// decode requests, call the URL service and translate its errors into
// status codes and JSON error bodies.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/shortlink/internal/errx"
	"github.com/atinyakov/shortlink/internal/middleware"
	"github.com/atinyakov/shortlink/internal/models"
)

// malformedRequest represents an error with a malformed HTTP request.
type malformedRequest struct {
	status int
	msg    string
}

func (mr *malformedRequest) Error() string {
	return mr.msg
}

// decodeJSONBody decodes a single JSON value from the request body into dst.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	ct := r.Header.Get("Content-Type")
	if ct != "" {
		mediaType := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
		if mediaType != "application/json" {
			msg := "Content-Type header is not application/json"
			return &malformedRequest{status: http.StatusUnsupportedMediaType, msg: msg}
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}

		case errors.Is(err, io.ErrUnexpectedEOF):
			msg := "Request body contains badly-formed JSON"
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}

		case errors.As(err, &unmarshalTypeError):
			msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}

		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			msg := fmt.Sprintf("Request body contains unknown field %s", fieldName)
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}

		case errors.Is(err, io.EOF):
			msg := "Request body must not be empty"
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}

		case errors.As(err, &maxBytesError):
			msg := "Request body must not be larger than 1MB"
			return &malformedRequest{status: http.StatusRequestEntityTooLarge, msg: msg}

		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		msg := "Request body must only contain a single JSON object"
		return &malformedRequest{status: http.StatusBadRequest, msg: msg}
	}

	return nil
}

// decodeOrReject decodes the body into dst and writes the error response
// itself when that fails.
func decodeOrReject(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) bool {
	err := decodeJSONBody(w, r, dst)
	if err == nil {
		return true
	}

	var mr *malformedRequest
	if errors.As(err, &mr) {
		writeJSON(w, mr.status, models.ErrorResponse{Error: mr.msg})
		return false
	}

	logger.Error("cannot decode request body", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to an HTTP status code.
func statusFor(err error) int {
	switch errx.KindOf(err) {
	case errx.Invalid:
		return http.StatusBadRequest
	case errx.NotFound:
		return http.StatusNotFound
	case errx.Conflict, errx.DuplicateCode:
		return http.StatusConflict
	case errx.Unauthorized:
		return http.StatusUnauthorized
	case errx.Exhausted, errx.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage separates "your input was wrong" from "we could not do it"
// without leaking storage details.
func publicMessage(err error) string {
	var e *errx.Error
	if !errors.As(err, &e) {
		return http.StatusText(http.StatusInternalServerError)
	}

	switch e.Kind {
	case errx.Invalid, errx.NotFound:
		return e.Err.Error()
	case errx.Conflict, errx.DuplicateCode:
		return "short code is already in use"
	case errx.Unauthorized:
		return "invalid credentials"
	case errx.Exhausted:
		return "could not allocate a short code, try again later"
	case errx.Unavailable:
		return "service temporarily unavailable, try again later"
	default:
		return http.StatusText(http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("op", errx.OpOf(err)),
			zap.String("kind", errx.KindOf(err).String()),
			zap.String("request_id", middleware.RequestID(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, status, models.ErrorResponse{Error: publicMessage(err)})
}

// urlID parses the {id} route parameter.
func urlID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errx.Errorf("handler.urlID", errx.Invalid, "id must be a positive integer")
	}
	return id, nil
}
