package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/shortlink/internal/app/service"
	"github.com/atinyakov/shortlink/internal/middleware"
	"github.com/atinyakov/shortlink/internal/models"
)

type PutHandler struct {
	service service.URLServiceIface
	logger  *zap.Logger
}

func NewPut(s service.URLServiceIface, l *zap.Logger) *PutHandler {
	return &PutHandler{
		service: s,
		logger:  l,
	}
}

// Update replaces the short code and long URL of the record in {id}.
func (h *PutHandler) Update(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	id, err := urlID(req)
	if err != nil {
		writeError(res, req, err, h.logger)
		return
	}

	var request models.UpdateRequest
	if !decodeOrReject(res, req, &request, h.logger) {
		return
	}

	u, err := h.service.Update(ctx, id, request.ShortCode, request.LongURL)
	if err != nil {
		writeError(res, req, err, h.logger)
		return
	}

	user, _ := middleware.User(req.Context())
	h.logger.Info("url updated",
		zap.Int64("id", id),
		zap.String("code", u.ShortCode),
		zap.String("user", user),
	)
	writeJSON(res, http.StatusOK, models.ShortenResponse{URL: *u, ShortURL: h.service.ShortURL(u.ShortCode)})
}
