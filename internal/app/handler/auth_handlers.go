package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/shortlink/internal/app/service"
	"github.com/atinyakov/shortlink/internal/middleware"
	"github.com/atinyakov/shortlink/internal/models"
)

type AuthHandler struct {
	auth   service.AuthIface
	logger *zap.Logger
}

func NewAuth(a service.AuthIface, l *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   a,
		logger: l,
	}
}

// Login exchanges a username and password for a bearer token.
func (h *AuthHandler) Login(res http.ResponseWriter, req *http.Request) {
	var request models.LoginRequest
	if !decodeOrReject(res, req, &request, h.logger) {
		return
	}

	token, err := h.auth.Authenticate(request.Username, request.Password)
	if err != nil {
		h.logger.Info("login rejected", zap.String("user", request.Username))
		writeError(res, req, err, h.logger)
		return
	}

	writeJSON(res, http.StatusOK, models.LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.auth.TokenTTL().Seconds()),
	})
}

// Me returns the user the request was authenticated as.
func (h *AuthHandler) Me(res http.ResponseWriter, req *http.Request) {
	user, ok := middleware.User(req.Context())
	if !ok {
		writeJSON(res, http.StatusUnauthorized, models.ErrorResponse{Error: http.StatusText(http.StatusUnauthorized)})
		return
	}

	writeJSON(res, http.StatusOK, models.MeResponse{User: user})
}
