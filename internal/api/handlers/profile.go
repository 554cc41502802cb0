package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/apierr"
	"github.com/playpong/backend/internal/store"
)

const defaultHistoryLimit = 20

// GetProfile returns the authenticated user's lifetime Pong record.
func GetProfile(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt("user_id")

		profile, err := st.GetProfile(userID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"user_id": userID, "matches_played": 0, "matches_won": 0, "matches_lost": 0, "games_played": 0, "games_won": 0})
			return
		}
		if err != nil {
			respondErr(c, apierr.Persistence("load profile failed", err))
			return
		}

		c.JSON(http.StatusOK, profile)
	}
}

// GetHistory returns the authenticated user's most recent games.
func GetHistory(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt("user_id")

		limit := defaultHistoryLimit
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		games, err := st.ListGamesForUser(userID, limit)
		if err != nil {
			respondErr(c, apierr.Persistence("load history failed", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"games": games})
	}
}

// GetGameMatches returns the per-match scores for one of the caller's games.
func GetGameMatches(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt("user_id")

		gameID, err := strconv.Atoi(c.Param("game_id"))
		if err != nil {
			respondErr(c, apierr.Validation("invalid game id"))
			return
		}

		game, err := st.GetGame(gameID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		if err != nil {
			respondErr(c, apierr.Persistence("load game failed", err))
			return
		}
		if userID != game.Player1ID && userID != game.Player2ID {
			respondErr(c, apierr.Authz("not a player in this game"))
			return
		}

		matches, err := st.ListMatchesForGame(gameID)
		if err != nil {
			respondErr(c, apierr.Persistence("load matches failed", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"game": game, "matches": matches})
	}
}
