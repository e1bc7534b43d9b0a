package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func systemRouter(h *SystemHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group(""))
	return r
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestSystemHandler_Info(t *testing.T) {
	r := systemRouter(NewSystemHandler("Pharmacy Backend", "1.2.3", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system/info", nil))

	require.Equal(t, http.StatusOK, w.Code)
	info := decodeData[SystemInfoResponse](t, w)
	assert.Equal(t, "Pharmacy Backend", info.Name)
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestSystemHandler_Ping(t *testing.T) {
	r := systemRouter(NewSystemHandler("x", "1", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", decodeData[PingResponse](t, w).Message)
}

func TestSystemHandler_Health(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("no checks", func(t *testing.T) {
		r := systemRouter(NewSystemHandler("x", "1", nil))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system/health", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", decodeData[HealthResponse](t, w).Status)
	})

	t.Run("all passing", func(t *testing.T) {
		r := systemRouter(NewSystemHandler("x", "1", map[string]HealthCheck{"database": ok}))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system/health", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]string{"database": "ok"}, decodeData[HealthResponse](t, w).Checks)
	})

	t.Run("failing check", func(t *testing.T) {
		r := systemRouter(NewSystemHandler("x", "1", map[string]HealthCheck{"database": ok, "redis": down}))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		health := decodeData[HealthResponse](t, w)
		assert.Equal(t, "degraded", health.Status)
		assert.Equal(t, "connection refused", health.Checks["redis"])
		assert.Equal(t, "ok", health.Checks["database"])
	})
}
