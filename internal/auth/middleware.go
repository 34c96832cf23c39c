// Package auth validates bearer tokens issued by the hosted auth provider.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	ContextUserID = "user_id"
	ContextClaims = "claims"
)

var ErrMissingToken = errors.New("missing bearer token")

// Claims are the token claims the backend reads
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Middleware checks HS256 bearer tokens. With an empty secret every request
// passes through unauthenticated.
type Middleware struct {
	secret []byte
	logger *zap.Logger
}

func NewMiddleware(secret string, logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{secret: []byte(secret), logger: logger}
}

// Enabled reports whether a signing secret is configured
func (m *Middleware) Enabled() bool {
	return len(m.secret) > 0
}

// RequireAuth rejects requests without a valid token and stores the subject
// under ContextUserID.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.Enabled() {
			c.Next()
			return
		}

		claims, err := m.ParseToken(c.GetHeader("Authorization"))
		if err != nil {
			m.logger.Debug("Rejected request", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// ParseToken validates an Authorization header value or a raw token
func (m *Middleware) ParseToken(header string) (*Claims, error) {
	token := strings.TrimSpace(header)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token: missing subject")
	}
	return claims, nil
}
