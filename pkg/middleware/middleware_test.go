package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	Setup(router, DefaultConfig("sorter-station-service", slog.New(slog.NewTextHandler(io.Discard, nil))))
	router.NoRoute(NoRoute())
	return router
}

func TestRequestID_PropagatesHeader(t *testing.T) {
	router := newTestRouter()
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(HeaderCorrelationID))
}

func TestNoRoute(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ROUTE_NOT_FOUND", body.Code)
	assert.Equal(t, "/nowhere", body.Path)
}

func TestContentType_RejectsNonJSON(t *testing.T) {
	router := newTestRouter()
	router.POST("/scans", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader("code=8801"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRecovery(t *testing.T) {
	router := newTestRouter()
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestBindAndValidate(t *testing.T) {
	type scanRequest struct {
		Code   string `json:"code" binding:"required,scan_code"`
		GridID string `json:"gridId" binding:"omitempty,grid_id"`
	}

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{name: "valid", body: `{"code":"8801","gridId":"GRID-01"}`},
		{name: "missing code", body: `{}`, wantField: "code"},
		{name: "bad grid", body: `{"code":"8801","gridId":"G1"}`, wantField: "gridId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter()
			router.POST("/bind", func(c *gin.Context) {
				var req scanRequest
				if appErr := BindAndValidate(c, &req); appErr != nil {
					c.JSON(appErr.HTTPStatus, appErr)
					return
				}
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if tt.wantField == "" {
				assert.Equal(t, http.StatusNoContent, w.Code)
				return
			}
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantField)
		})
	}
}
