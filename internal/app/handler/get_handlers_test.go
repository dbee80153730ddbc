package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/atinyakov/shortlink/internal/errx"
	"github.com/atinyakov/shortlink/internal/mocks"
	"github.com/atinyakov/shortlink/internal/models"
)

func withParam(req *http.Request, key, value string) *http.Request {
	tctx := chi.NewRouteContext()
	tctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, tctx))
}

func TestGetHandler_ByShort(t *testing.T) {
	type want struct {
		code     int
		location string
		body     string
	}

	tests := []struct {
		name    string
		code    string
		longURL string
		found   bool
		err     error
		want    want
	}{
		{
			name:    "redirects to the long url",
			code:    "aB3xZ9",
			longURL: "https://example.com/a",
			found:   true,
			want:    want{code: http.StatusFound, location: "https://example.com/a"},
		},
		{
			name: "unknown code",
			code: "nope00",
			want: want{code: http.StatusNotFound, body: "URL not found\n"},
		},
		{
			name: "storage failure",
			code: "aB3xZ9",
			err:  errx.E("service.Resolve", errx.Unavailable, errors.New("db down")),
			want: want{code: http.StatusServiceUnavailable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockURLServiceIface(ctrl)
			svc.EXPECT().Resolve(gomock.Any(), tt.code).Return(tt.longURL, tt.found, tt.err)

			h := NewGet(svc, zap.NewNop())

			req := withParam(httptest.NewRequest(http.MethodGet, "/"+tt.code, nil), "code", tt.code)
			w := httptest.NewRecorder()
			h.ByShort(w, req)

			res := w.Result()
			defer res.Body.Close()

			assert.Equal(t, tt.want.code, res.StatusCode)
			assert.Equal(t, tt.want.location, res.Header.Get("Location"))
			if tt.want.body != "" {
				assert.Equal(t, tt.want.body, w.Body.String())
			}
		})
	}
}

func TestGetHandler_PingDB(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockURLServiceIface(ctrl)
	h := NewGet(svc, zap.NewNop())

	svc.EXPECT().PingContext(gomock.Any()).Return(nil)
	w := httptest.NewRecorder()
	h.PingDB(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	svc.EXPECT().PingContext(gomock.Any()).Return(errors.New("connection refused"))
	w = httptest.NewRecorder()
	h.PingDB(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestGetHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockURLServiceIface(ctrl)
	h := NewGet(svc, zap.NewNop())

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.EXPECT().List(gomock.Any()).Return([]models.URL{
		{ID: 2, ShortCode: "bbbbbb", LongURL: "https://b.example", CreatedAt: created},
		{ID: 1, ShortCode: "aaaaaa", LongURL: "https://a.example", CreatedAt: created},
	}, nil)
	svc.EXPECT().ShortURL(gomock.Any()).DoAndReturn(func(code string) string {
		return "http://localhost:8080/" + code
	}).Times(2)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/links", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got []models.ShortenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, "http://localhost:8080/bbbbbb", got[0].ShortURL)
	assert.Equal(t, "aaaaaa", got[1].ShortCode)
}

func TestGetHandler_ListEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockURLServiceIface(ctrl)
	h := NewGet(svc, zap.NewNop())

	svc.EXPECT().List(gomock.Any()).Return([]models.URL{}, nil)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/links", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetHandler_ByID(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		setup  func(svc *mocks.MockURLServiceIface)
		status int
	}{
		{
			name: "found",
			id:   "7",
			setup: func(svc *mocks.MockURLServiceIface) {
				svc.EXPECT().Get(gomock.Any(), int64(7)).Return(&models.URL{ID: 7, ShortCode: "abc123", LongURL: "https://example.com"}, nil)
				svc.EXPECT().ShortURL("abc123").Return("http://localhost:8080/abc123")
			},
			status: http.StatusOK,
		},
		{
			name: "missing",
			id:   "8",
			setup: func(svc *mocks.MockURLServiceIface) {
				svc.EXPECT().Get(gomock.Any(), int64(8)).Return(nil, nil)
			},
			status: http.StatusNotFound,
		},
		{
			name:   "not a number",
			id:     "abc",
			setup:  func(svc *mocks.MockURLServiceIface) {},
			status: http.StatusBadRequest,
		},
		{
			name:   "zero",
			id:     "0",
			setup:  func(svc *mocks.MockURLServiceIface) {},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockURLServiceIface(ctrl)
			tt.setup(svc)

			h := NewGet(svc, zap.NewNop())
			req := withParam(httptest.NewRequest(http.MethodGet, "/api/links/"+tt.id, nil), "id", tt.id)
			w := httptest.NewRecorder()
			h.ByID(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				var body models.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}

func TestGetHandler_Stats(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockURLServiceIface(ctrl)
	h := NewGet(svc, zap.NewNop())

	svc.EXPECT().List(gomock.Any()).Return([]models.URL{{ID: 1}, {ID: 2}, {ID: 3}}, nil)

	w := httptest.NewRecorder()
	h.Stats(w, httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"urls":3}`, w.Body.String())
}
