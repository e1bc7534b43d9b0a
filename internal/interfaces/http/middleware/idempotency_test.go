package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsClaimed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

const salesRoute = "/orgs/:orgId/branches/:branchId/sales"

func newGuardedRouter(store *mockIdempotencyStore, status int, seenBody *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	guard := NewIdempotency(store, time.Hour, nil)
	router.POST(salesRoute, BranchScope(), guard.Guard("saleId"), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		if seenBody != nil {
			*seenBody = string(body)
		}
		c.Status(status)
	})
	return router
}

func post(router *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/orgs/org1/branches/br1/sales", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotencyGuard(t *testing.T) {
	headerKey := "org1:br1:" + salesRoute + ":key-1"
	bodyKey := "org1:br1:" + salesRoute + ":sale_42"

	t.Run("header key is claimed and kept on success", func(t *testing.T) {
		store := new(mockIdempotencyStore)
		store.On("Claim", mock.Anything, headerKey, time.Hour).Return(true, nil).Once()

		w := post(newGuardedRouter(store, http.StatusCreated, nil), `{}`, map[string]string{IdempotencyKeyHeader: "key-1"})

		assert.Equal(t, http.StatusCreated, w.Code)
		store.AssertExpectations(t)
		store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})

	t.Run("body id is used and the body stays readable", func(t *testing.T) {
		store := new(mockIdempotencyStore)
		store.On("Claim", mock.Anything, bodyKey, time.Hour).Return(true, nil).Once()

		var seen string
		body := `{"saleId":"sale_42","items":[]}`
		w := post(newGuardedRouter(store, http.StatusCreated, &seen), body, nil)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, body, seen)
		store.AssertExpectations(t)
	})

	t.Run("duplicate is rejected", func(t *testing.T) {
		store := new(mockIdempotencyStore)
		store.On("Claim", mock.Anything, headerKey, time.Hour).Return(false, nil).Once()

		w := post(newGuardedRouter(store, http.StatusCreated, nil), `{}`, map[string]string{IdempotencyKeyHeader: "key-1"})

		require.Equal(t, http.StatusConflict, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeDuplicateRequest, resp.Error.Code)
		store.AssertExpectations(t)
	})

	t.Run("failure releases the key", func(t *testing.T) {
		store := new(mockIdempotencyStore)
		store.On("Claim", mock.Anything, bodyKey, time.Hour).Return(true, nil).Once()
		store.On("Release", mock.Anything, bodyKey).Return(nil).Once()

		w := post(newGuardedRouter(store, http.StatusUnprocessableEntity, nil), `{"saleId":"sale_42"}`, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		store.AssertExpectations(t)
	})

	t.Run("no key passes through", func(t *testing.T) {
		store := new(mockIdempotencyStore)

		w := post(newGuardedRouter(store, http.StatusCreated, nil), `{"items":[]}`, nil)

		assert.Equal(t, http.StatusCreated, w.Code)
		store.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store outage continues unguarded", func(t *testing.T) {
		store := new(mockIdempotencyStore)
		store.On("Claim", mock.Anything, headerKey, time.Hour).Return(false, errors.New("redis down")).Once()

		w := post(newGuardedRouter(store, http.StatusCreated, nil), `{}`, map[string]string{IdempotencyKeyHeader: "key-1"})

		assert.Equal(t, http.StatusCreated, w.Code)
		store.AssertExpectations(t)
	})
}

func TestPeekBodyField(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"present", `{"saleId":" s1 "}`, "s1"},
		{"absent", `{"other":"x"}`, ""},
		{"not a string", `{"saleId":12}`, ""},
		{"invalid json", `{"saleId":`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			assert.Equal(t, tt.want, peekBodyField(c, "saleId"))
			rest, err := io.ReadAll(c.Request.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(rest))
		})
	}
}
