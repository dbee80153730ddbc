// Package server assembles the HTTP router of the shortener.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/shortlink/internal/app/handler"
	"github.com/atinyakov/shortlink/internal/app/service"
	"github.com/atinyakov/shortlink/internal/middleware"
	"github.com/atinyakov/shortlink/internal/models"
)

// Init builds the chi router with every public, authenticated and internal
// route mounted.
func Init(svc service.URLServiceIface, auth service.AuthIface, trustedSubnet string, logger *zap.Logger) *chi.Mux {
	get := handler.NewGet(svc, logger)
	post := handler.NewPost(svc, logger)
	put := handler.NewPut(svc, logger)
	del := handler.NewDelete(svc, logger)
	login := handler.NewAuth(auth, logger)

	r := chi.NewRouter()
	r.Use(middleware.WithRequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.WithGzip)

	r.Get("/ping", get.PingDB)
	r.Post("/", post.HandlePostPlainBody)
	r.Get("/{code}", get.ByShort)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", login.Login)

		r.Route("/links", func(r chi.Router) {
			r.Post("/", post.HandlePostJSON)
			r.Get("/", get.List)
			r.Get("/{id}", get.ByID)

			r.Group(func(r chi.Router) {
				r.Use(middleware.WithJWT(auth))
				r.Put("/{id}", put.Update)
				r.Delete("/{id}", del.Delete)
				r.Delete("/", del.DeleteBatch)
			})
		})

		r.With(middleware.WithJWT(auth)).Get("/me", login.Me)
		r.With(middleware.WithSubnet(trustedSubnet)).Get("/internal/stats", get.Stats)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Short URL is required", http.StatusBadRequest)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusNotFound, "Route not found")
	})

	return r
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg})
}
