package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the server.
type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Physics / room loop
	PhysicsRateHz          int
	BroadcastRateHz        int
	MaxFrameTimeSeconds    float64
	MaxUpdatesPerFrame     int
	InactiveTimeoutSeconds int

	// Matchmaking
	MatchmakingPollIntervalMs     int
	WaitForOpponentTimeoutSeconds int

	// Invitations
	InvitationTTLSeconds int

	// Security
	JWTSecret         string
	SessionTimeoutMin int
}

// Load reads configuration from the environment, falling back to defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	godotenv.Load()

	return &Config{
		Environment: getEnv("APP_ENV", "development"),

		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/pong?sslmode=disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		PhysicsRateHz:          getEnvInt("PHYSICS_RATE_HZ", 240),
		BroadcastRateHz:        getEnvInt("BROADCAST_RATE_HZ", 60),
		MaxFrameTimeSeconds:    getEnvFloat("MAX_FRAME_TIME_SECONDS", 0.25),
		MaxUpdatesPerFrame:     getEnvInt("MAX_UPDATES_PER_FRAME", 5),
		InactiveTimeoutSeconds: getEnvInt("INACTIVE_TIMEOUT_SECONDS", 300),

		MatchmakingPollIntervalMs:     getEnvInt("MATCHMAKING_POLL_INTERVAL_MS", 1500),
		WaitForOpponentTimeoutSeconds: getEnvInt("WAIT_FOR_OPPONENT_TIMEOUT_SECONDS", 300),

		InvitationTTLSeconds: getEnvInt("INVITATION_TTL_SECONDS", 120),

		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 30),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
