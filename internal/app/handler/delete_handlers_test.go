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
	"github.com/atinyakov/shortlink/internal/mocks"
)

func TestDeleteHandler_Delete(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		deleted bool
		err     error
		call    bool
		status  int
	}{
		{name: "deleted", id: "5", deleted: true, call: true, status: http.StatusNoContent},
		{name: "missing", id: "6", call: true, status: http.StatusNotFound},
		{name: "storage failure", id: "7", call: true, err: errx.E("service.Delete", errx.Unavailable, errors.New("boom")), status: http.StatusServiceUnavailable},
		{name: "bad id", id: "x", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockURLServiceIface(ctrl)
			if tt.call {
				svc.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(tt.deleted, tt.err)
			}

			h := NewDelete(svc, zap.NewNop())
			req := withParam(httptest.NewRequest(http.MethodDelete, "/api/links/"+tt.id, nil), "id", tt.id)
			w := httptest.NewRecorder()
			h.Delete(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestDeleteHandler_DeleteBatch(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockURLServiceIface(ctrl)
		svc.EXPECT().DeleteBatch(gomock.Any(), []int64{1, 2, 3}).Return(nil)

		h := NewDelete(svc, zap.NewNop())
		req := httptest.NewRequest(http.MethodDelete, "/api/links", strings.NewReader(`[1,2,3]`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.DeleteBatch(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("not an array of ids", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockURLServiceIface(ctrl)

		h := NewDelete(svc, zap.NewNop())
		req := httptest.NewRequest(http.MethodDelete, "/api/links", strings.NewReader(`["a","b"]`))
		w := httptest.NewRecorder()
		h.DeleteBatch(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("worker stopped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockURLServiceIface(ctrl)
		svc.EXPECT().DeleteBatch(gomock.Any(), []int64{9}).
			Return(errx.E("service.DeleteBatch", errx.Unavailable, errors.New("delete worker stopped")))

		h := NewDelete(svc, zap.NewNop())
		req := httptest.NewRequest(http.MethodDelete, "/api/links", strings.NewReader(`[9]`))
		w := httptest.NewRecorder()
		h.DeleteBatch(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
