package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() Claims {
	return Claims{
		Email: "field@example.org",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewMiddleware(secret, nil)
	router := gin.New()
	group := router.Group("/api/v1", m.RequireAuth())
	RegisterRoutes(group, NewHandler(m))
	return router
}

func get(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	router := newRouter(testSecret)

	w := get(router, "Bearer "+signToken(t, testSecret, jwt.SigningMethodHS256, validClaims()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"user-42"`)
	assert.Contains(t, w.Body.String(), `"email":"field@example.org"`)

	assert.Equal(t, http.StatusUnauthorized, get(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "Bearer garbage").Code)
	assert.Equal(t, http.StatusUnauthorized,
		get(router, "Bearer "+signToken(t, "another-secret-another-secret-1234", jwt.SigningMethodHS256, validClaims())).Code)
	assert.Equal(t, http.StatusUnauthorized,
		get(router, "Bearer "+signToken(t, testSecret, jwt.SigningMethodHS512, validClaims())).Code)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	assert.Equal(t, http.StatusUnauthorized, get(router, "Bearer "+signToken(t, testSecret, jwt.SigningMethodHS256, expired)).Code)

	noSubject := validClaims()
	noSubject.Subject = ""
	assert.Equal(t, http.StatusUnauthorized, get(router, "Bearer "+signToken(t, testSecret, jwt.SigningMethodHS256, noSubject)).Code)
}

func TestRequireAuthDisabled(t *testing.T) {
	w := get(newRouter(""), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}
