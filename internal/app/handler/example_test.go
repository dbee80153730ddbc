package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/shortlink/internal/app/handler"
	"github.com/atinyakov/shortlink/internal/app/service"
	"github.com/atinyakov/shortlink/internal/storage"
)

func ExamplePostHandler_HandlePostPlainBody() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := service.NewURL(ctx, storage.CreateMemoryStorage(), nil, zap.NewNop(), service.Options{BaseURL: "http://localhost:8080"})
	h := handler.NewPost(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("https://example.com"))
	w := httptest.NewRecorder()
	h.HandlePostPlainBody(w, req)

	fmt.Println(w.Code)
	fmt.Println(strings.HasPrefix(w.Body.String(), "http://localhost:8080/"))
	fmt.Println(len(strings.TrimPrefix(w.Body.String(), "http://localhost:8080/")))

	// Output:
	// 201
	// true
	// 6
}

func ExampleGetHandler_ByShort() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storage.CreateMemoryStorage()
	if _, err := store.Create(ctx, "https://example.com/docs", "docs01"); err != nil {
		fmt.Println(err)
		return
	}

	svc := service.NewURL(ctx, store, nil, zap.NewNop(), service.Options{BaseURL: "http://localhost:8080"})
	h := handler.NewGet(svc, zap.NewNop())

	r := chi.NewRouter()
	r.Get("/{code}", h.ByShort)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs01", nil))

	fmt.Println(w.Code)
	fmt.Println(w.Header().Get("Location"))

	// Output:
	// 302
	// https://example.com/docs
}
