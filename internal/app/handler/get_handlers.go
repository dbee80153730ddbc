package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/shortlink/internal/app/service"
	"github.com/atinyakov/shortlink/internal/errx"
	"github.com/atinyakov/shortlink/internal/models"
)

type GetHandler struct {
	service service.URLServiceIface
	logger  *zap.Logger
}

func NewGet(s service.URLServiceIface, l *zap.Logger) *GetHandler {
	return &GetHandler{
		service: s,
		logger:  l,
	}
}

// ByShort redirects to the long URL behind the {code} route parameter.
func (h *GetHandler) ByShort(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	code := chi.URLParam(req, "code")

	longURL, ok, err := h.service.Resolve(ctx, code)
	if err != nil {
		writeError(res, req, err, h.logger)
		return
	}
	if !ok {
		http.Error(res, "URL not found", http.StatusNotFound)
		return
	}

	h.logger.Debug("redirecting", zap.String("code", code))
	http.Redirect(res, req, longURL, http.StatusFound)
}

func (h *GetHandler) PingDB(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	if err := h.service.PingContext(ctx); err != nil {
		h.logger.Error("storage ping failed", zap.Error(err))
		http.Error(res, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	res.WriteHeader(http.StatusOK)
}

// List returns every stored URL, newest first.
func (h *GetHandler) List(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	urls, err := h.service.List(ctx)
	if err != nil {
		writeError(res, req, err, h.logger)
		return
	}

	out := make([]models.ShortenResponse, 0, len(urls))
	for _, u := range urls {
		out = append(out, models.ShortenResponse{URL: u, ShortURL: h.service.ShortURL(u.ShortCode)})
	}
	writeJSON(res, http.StatusOK, out)
}

func (h *GetHandler) ByID(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	id, err := urlID(req)
	if err != nil {
		writeError(res, req, err, h.logger)
		return
	}

	u, err := h.service.Get(ctx, id)
	if err != nil {
		writeError(res, req, err, h.logger)
		return
	}
	if u == nil {
		writeError(res, req, errx.Errorf("handler.ByID", errx.NotFound, "url %d not found", id), h.logger)
		return
	}

	writeJSON(res, http.StatusOK, models.ShortenResponse{URL: *u, ShortURL: h.service.ShortURL(u.ShortCode)})
}

// Stats reports the number of stored URLs. It is mounted behind the
// trusted subnet check.
func (h *GetHandler) Stats(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	urls, err := h.service.List(ctx)
	if err != nil {
		writeError(res, req, err, h.logger)
		return
	}

	writeJSON(res, http.StatusOK, models.StatsResponse{URLs: len(urls)})
}
