package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/playpong/backend/internal/api"
	"github.com/playpong/backend/internal/bus"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/invitation"
	"github.com/playpong/backend/internal/matchmaker"
	"github.com/playpong/backend/internal/migrations"
	"github.com/playpong/backend/internal/redis"
	"github.com/playpong/backend/internal/registry"
	"github.com/playpong/backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := store.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	st := store.New(db)
	hub := bus.NewHub()
	relay := bus.NewRedisBus(rdb, hub)
	reg := registry.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay.Subscribe(ctx)

	mm := matchmaker.New(cfg, st, reg, hub, relay)
	go mm.Run(ctx)

	inv := invitation.New(cfg, st, reg, hub, relay)
	go inv.RunExpirySweep(ctx)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	api.SetupRoutes(router, cfg, st, hub, reg, inv)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Pong server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
