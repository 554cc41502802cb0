package config

import "testing"

func TestLoadUsesDefaultsWhenUnset(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "DATABASE_URL", "REDIS_URL", "APP_PORT", "FRONTEND_URL",
		"PHYSICS_RATE_HZ", "BROADCAST_RATE_HZ", "MAX_FRAME_TIME_SECONDS",
		"MAX_UPDATES_PER_FRAME", "INACTIVE_TIMEOUT_SECONDS",
		"MATCHMAKING_POLL_INTERVAL_MS", "WAIT_FOR_OPPONENT_TIMEOUT_SECONDS",
		"INVITATION_TTL_SECONDS", "JWT_SECRET", "SESSION_TIMEOUT_MINUTES",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
	if cfg.PhysicsRateHz != 240 {
		t.Errorf("PhysicsRateHz = %d, want 240", cfg.PhysicsRateHz)
	}
	if cfg.BroadcastRateHz != 60 {
		t.Errorf("BroadcastRateHz = %d, want 60", cfg.BroadcastRateHz)
	}
	if cfg.MaxFrameTimeSeconds != 0.25 {
		t.Errorf("MaxFrameTimeSeconds = %v, want 0.25", cfg.MaxFrameTimeSeconds)
	}
	if cfg.InvitationTTLSeconds != 120 {
		t.Errorf("InvitationTTLSeconds = %d, want 120", cfg.InvitationTTLSeconds)
	}
}

func TestLoadPrefersEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PHYSICS_RATE_HZ", "120")
	t.Setenv("MAX_FRAME_TIME_SECONDS", "0.5")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()

	if cfg.Environment != "production" {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
	if cfg.PhysicsRateHz != 120 {
		t.Errorf("PhysicsRateHz = %d, want 120", cfg.PhysicsRateHz)
	}
	if cfg.MaxFrameTimeSeconds != 0.5 {
		t.Errorf("MaxFrameTimeSeconds = %v, want 0.5", cfg.MaxFrameTimeSeconds)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q, want s3cret", cfg.JWTSecret)
	}
}

func TestLoadIgnoresUnparseableIntAndFallsBackToDefault(t *testing.T) {
	t.Setenv("MAX_UPDATES_PER_FRAME", "not-a-number")

	cfg := Load()

	if cfg.MaxUpdatesPerFrame != 5 {
		t.Errorf("MaxUpdatesPerFrame = %d, want default of 5 on parse failure", cfg.MaxUpdatesPerFrame)
	}
}
