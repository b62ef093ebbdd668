package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedRouter(s *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", s.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString("subject")})
	})
	return r
}

func TestIssueToken(t *testing.T) {
	s := NewService("secret", "key-123")

	token, err := s.IssueToken("key-123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = s.IssueToken("wrong")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestMiddlewareBearerToken(t *testing.T) {
	s := NewService("secret", "key-123")
	r := newProtectedRouter(s)

	token, err := s.IssueToken("key-123")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareAPIKeyHeader(t *testing.T) {
	s := NewService("secret", "key-123")
	r := newProtectedRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-API-Key", "key-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-API-Key", "nope")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsGarbage(t *testing.T) {
	s := NewService("secret", "key-123")
	r := newProtectedRouter(s)

	for _, header := range []string{"", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestMiddlewareRejectsForeignSignature(t *testing.T) {
	issuer := NewService("other-secret", "key-123")
	token, err := issuer.IssueToken("key-123")
	require.NoError(t, err)

	s := NewService("secret", "key-123")
	r := newProtectedRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
