package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/shortlink/internal/app/service"
	"github.com/atinyakov/shortlink/internal/models"
)

type PostHandler struct {
	service service.URLServiceIface
	logger  *zap.Logger
}

func NewPost(s service.URLServiceIface, l *zap.Logger) *PostHandler {
	return &PostHandler{
		service: s,
		logger:  l,
	}
}

// HandlePostPlainBody shortens the URL sent as a plain text body and
// answers with the short link as plain text.
func (h *PostHandler) HandlePostPlainBody(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	body, err := io.ReadAll(http.MaxBytesReader(res, req.Body, 1048576))
	defer req.Body.Close()
	if err != nil {
		http.Error(res, "cannot read request body", http.StatusBadRequest)
		return
	}

	u, err := h.service.Shorten(ctx, strings.TrimSpace(string(body)))
	if err != nil {
		writeError(res, req, err, h.logger)
		return
	}

	res.Header().Set("Content-Type", "text/plain")
	res.WriteHeader(http.StatusCreated)
	if _, err := res.Write([]byte(h.service.ShortURL(u.ShortCode))); err != nil {
		h.logger.Error("cannot write response", zap.Error(err))
	}
}

// HandlePostJSON shortens {"url": "..."} and returns the created record.
func (h *PostHandler) HandlePostJSON(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	var request models.Request
	if !decodeOrReject(res, req, &request, h.logger) {
		return
	}

	u, err := h.service.Shorten(ctx, request.URL)
	if err != nil {
		writeError(res, req, err, h.logger)
		return
	}

	writeJSON(res, http.StatusCreated, models.ShortenResponse{URL: *u, ShortURL: h.service.ShortURL(u.ShortCode)})
}
