package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchScope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var (
		got       shared.BranchContext
		ctxBranch string
	)
	router := gin.New()
	router.GET("/orgs/:orgId/branches/:branchId/ping", BranchScope(), func(c *gin.Context) {
		got = Branch(c)
		ctxBranch = logger.GetBranchID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	t.Run("stores branch context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orgs/org1/branches/br1/ping", nil)
		req.Header.Set(UserIDHeader, "pharmacist-7")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, shared.BranchContext{OrganizationID: "org1", BranchID: "br1", UserID: "pharmacist-7"}, got)
		assert.Equal(t, "br1", ctxBranch)
	})

	t.Run("blank branch is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orgs/org1/branches/%20/ping", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "MISSING_BRANCH", resp.Error.Code)
	})

	t.Run("no context outside the scope", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.Equal(t, shared.BranchContext{}, Branch(c))
	})
}
