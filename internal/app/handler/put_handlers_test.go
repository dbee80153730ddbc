package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/atinyakov/shortlink/internal/errx"
	"github.com/atinyakov/shortlink/internal/middleware"
	"github.com/atinyakov/shortlink/internal/mocks"
	"github.com/atinyakov/shortlink/internal/models"
)

func TestPutHandler_Update(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		body   string
		setup  func(svc *mocks.MockURLServiceIface)
		status int
		want   string
	}{
		{
			name: "updated",
			id:   "3",
			body: `{"short_code":"custom1","long_url":"https://new.example"}`,
			setup: func(svc *mocks.MockURLServiceIface) {
				svc.EXPECT().Update(gomock.Any(), int64(3), "custom1", "https://new.example").
					Return(&models.URL{ID: 3, ShortCode: "custom1", LongURL: "https://new.example"}, nil)
				svc.EXPECT().ShortURL("custom1").Return("http://localhost:8080/custom1")
			},
			status: http.StatusOK,
			want:   `"short_url":"http://localhost:8080/custom1"`,
		},
		{
			name: "invalid code",
			id:   "3",
			body: `{"short_code":"bad code!","long_url":"https://new.example"}`,
			setup: func(svc *mocks.MockURLServiceIface) {
				svc.EXPECT().Update(gomock.Any(), int64(3), "bad code!", "https://new.example").
					Return(nil, errx.Errorf("service.Update", errx.Invalid, "short code may only contain letters and digits"))
			},
			status: http.StatusBadRequest,
			want:   "letters and digits",
		},
		{
			name: "missing record",
			id:   "99",
			body: `{"short_code":"custom1","long_url":"https://new.example"}`,
			setup: func(svc *mocks.MockURLServiceIface) {
				svc.EXPECT().Update(gomock.Any(), int64(99), "custom1", "https://new.example").
					Return(nil, errx.Errorf("service.Update", errx.NotFound, "url 99 not found"))
			},
			status: http.StatusNotFound,
			want:   "url 99 not found",
		},
		{
			name: "code owned by another record",
			id:   "3",
			body: `{"short_code":"taken1","long_url":"https://new.example"}`,
			setup: func(svc *mocks.MockURLServiceIface) {
				svc.EXPECT().Update(gomock.Any(), int64(3), "taken1", "https://new.example").
					Return(nil, errx.E("service.Update", errx.DuplicateCode, errors.New("short code \"taken1\" is already in use")))
			},
			status: http.StatusConflict,
			want:   "already in use",
		},
		{
			name:   "bad id",
			id:     "-1",
			body:   `{"short_code":"custom1","long_url":"https://new.example"}`,
			setup:  func(svc *mocks.MockURLServiceIface) {},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockURLServiceIface(ctrl)
			tt.setup(svc)

			h := NewPut(svc, zap.NewNop())
			req := httptest.NewRequest(http.MethodPut, "/api/links/"+tt.id, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req = middleware.InjectUser(withParam(req, "id", tt.id), "admin")
			w := httptest.NewRecorder()
			h.Update(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.want != "" {
				assert.Contains(t, w.Body.String(), tt.want)
			}
		})
	}
}
