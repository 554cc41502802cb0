// Package auth implements the Authenticator component (SPEC_FULL §2.A):
// password-based login issuing a JWT, and verification of that JWT from
// either an Authorization header (HTTP) or a query-string token (WS upgrade
// requests, which can't set arbitrary headers from a browser WebSocket
// constructor).
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/playpong/backend/internal/apierr"
	"github.com/playpong/backend/internal/config"
)

const tokenTTL = 24 * time.Hour

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs a JWT carrying the user id, in the same
// jwt.MapClaims/HS256 shape the teacher's VerifyOTP handler uses.
func IssueToken(cfg *config.Config, userID int) (string, error) {
	exp := time.Now().Add(tokenTTL)
	claims := jwt.MapClaims{"user_id": userID, "exp": exp.Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// VerifyToken parses and validates a JWT, returning the embedded user id.
func VerifyToken(cfg *config.Config, tokenString string) (int, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return 0, apierr.Auth("invalid token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, apierr.Auth("invalid token claims")
	}
	idf, ok := claims["user_id"].(float64)
	if !ok {
		return 0, apierr.Auth("invalid token claims")
	}
	return int(idf), nil
}

// Middleware validates a bearer JWT on HTTP requests and sets user_id in context.
func Middleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		userID, err := VerifyToken(cfg, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

// FromQuery validates the `token` query parameter used by all three WS
// upgrade endpoints, since a browser WebSocket() call cannot set headers.
func FromQuery(cfg *config.Config, r *http.Request) (int, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return 0, apierr.Auth("missing token")
	}
	return VerifyToken(cfg, token)
}
