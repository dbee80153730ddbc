package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/shortlink/internal/app/service"
	"github.com/atinyakov/shortlink/internal/errx"
	"github.com/atinyakov/shortlink/internal/middleware"
)

type DeleteHandler struct {
	service service.URLServiceIface
	logger  *zap.Logger
}

func NewDelete(s service.URLServiceIface, l *zap.Logger) *DeleteHandler {
	return &DeleteHandler{
		service: s,
		logger:  l,
	}
}

// Delete removes the record in {id} synchronously.
func (h *DeleteHandler) Delete(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	id, err := urlID(req)
	if err != nil {
		writeError(res, req, err, h.logger)
		return
	}

	deleted, err := h.service.Delete(ctx, id)
	if err != nil {
		writeError(res, req, err, h.logger)
		return
	}
	if !deleted {
		writeError(res, req, errx.Errorf("handler.Delete", errx.NotFound, "url %d not found", id), h.logger)
		return
	}

	user, _ := middleware.User(req.Context())
	h.logger.Info("url deleted", zap.Int64("id", id), zap.String("user", user))
	res.WriteHeader(http.StatusNoContent)
}

// DeleteBatch accepts a JSON array of ids and queues them for deletion.
func (h *DeleteHandler) DeleteBatch(res http.ResponseWriter, req *http.Request) {
	var ids []int64
	if !decodeOrReject(res, req, &ids, h.logger) {
		return
	}

	if err := h.service.DeleteBatch(req.Context(), ids); err != nil {
		writeError(res, req, err, h.logger)
		return
	}

	res.WriteHeader(http.StatusAccepted)
}
