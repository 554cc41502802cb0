package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/api/handlers"
	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/bus"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/invitation"
	"github.com/playpong/backend/internal/middleware"
	"github.com/playpong/backend/internal/registry"
	"github.com/playpong/backend/internal/store"
	"github.com/playpong/backend/internal/ws"
)

// SetupRoutes configures every HTTP and WebSocket route.
func SetupRoutes(router *gin.Engine, cfg *config.Config, st *store.Store, hub *bus.Hub, reg *registry.Registry, inv *invitation.Service) {
	// CRITICAL: No-cache middleware MUST be first in development
	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] Aggressive no-cache headers enabled for all routes")
	}

	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.WebSocketCORSCheck(cfg))

	router.GET("/health", handlers.HealthCheck)

	upgrader := ws.NewUpgrader(cfg)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		v1.POST("/auth/register", handlers.Register(cfg, st))
		v1.POST("/auth/login", handlers.Login(cfg, st))

		authed := v1.Group("")
		authed.Use(auth.Middleware(cfg))
		{
			authed.GET("/profile", handlers.GetProfile(st))
			authed.GET("/history", handlers.GetHistory(st))
			authed.GET("/games/:game_id/matches", handlers.GetGameMatches(st))
		}
	}

	router.GET("/ws/matchmaking/", ws.MatchmakingHandler(cfg, st, hub, upgrader))
	router.GET("/ws/game/:game_id/", ws.GameHandler(cfg, st, hub, reg, upgrader))
	router.GET("/ws/invitations/", ws.InvitationHandler(cfg, inv, hub, upgrader))
}
