package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/apierr"
	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/store"
)

const minPasswordLength = 8

// Register creates a new user with a username/password and issues a JWT,
// replacing the teacher's phone+OTP signup with direct credentials since
// this spec has no SMS/payment provider to verify a phone number through.
func Register(cfg *config.Config, st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
			return
		}
		username := strings.TrimSpace(req.Username)
		if username == "" || len(req.Password) < minPasswordLength {
			respondErr(c, apierr.Validation("username required, password must be at least 8 characters"))
			return
		}

		if _, err := st.GetUserByUsername(username); err == nil {
			respondErr(c, apierr.Conflict("username already taken"))
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			respondErr(c, apierr.Persistence("lookup user failed", err))
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondErr(c, apierr.Persistence("hash password failed", err))
			return
		}

		user, err := st.CreateUser(username, hash)
		if err != nil {
			respondErr(c, apierr.Persistence("create user failed", err))
			return
		}

		token, err := auth.IssueToken(cfg, user.ID)
		if err != nil {
			respondErr(c, apierr.Persistence("issue token failed", err))
			return
		}

		c.JSON(http.StatusCreated, gin.H{"token": token, "user": gin.H{"id": user.ID, "username": user.Username}})
	}
}

// Login verifies a username/password pair and issues a JWT.
func Login(cfg *config.Config, st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
			return
		}

		user, err := st.GetUserByUsername(strings.TrimSpace(req.Username))
		if err != nil {
			respondErr(c, apierr.Auth("invalid username or password"))
			return
		}
		if !auth.CheckPassword(user.PasswordHash, req.Password) {
			respondErr(c, apierr.Auth("invalid username or password"))
			return
		}

		token, err := auth.IssueToken(cfg, user.ID)
		if err != nil {
			respondErr(c, apierr.Persistence("issue token failed", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "user": gin.H{"id": user.ID, "username": user.Username}})
	}
}
