// Package matchmaker implements the Matchmaker component (SPEC_FULL §2.H/4.7):
// a ticker-driven background worker pairing queued players FIFO-per-difficulty
// under Postgres's SELECT ... FOR UPDATE SKIP LOCKED, generalized from
// internal/game/matchmaker_worker.go's stake-bucket pairing loop into
// difficulty buckets with no stakes or SMS involved.
package matchmaker

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/playpong/backend/internal/apierr"
	"github.com/playpong/backend/internal/bus"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/notify"
	"github.com/playpong/backend/internal/registry"
	"github.com/playpong/backend/internal/room"
	"github.com/playpong/backend/internal/store"
)

type Service struct {
	cfg   *config.Config
	store *store.Store
	reg   *registry.Registry
	hub   *bus.Hub
	relay *bus.RedisBus
}

func New(cfg *config.Config, st *store.Store, reg *registry.Registry, hub *bus.Hub, relay *bus.RedisBus) *Service {
	return &Service{cfg: cfg, store: st, reg: reg, hub: hub, relay: relay}
}

// Run polls the queue at MATCHMAKING_POLL_INTERVAL_MS until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.MatchmakingPollIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[MATCHMAKER] starting (poll every %v)", interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("[MATCHMAKER] stopping")
			return
		case <-ticker.C:
			s.processOnce(ctx)
		}
	}
}

func (s *Service) processOnce(ctx context.Context) {
	difficulties, err := s.store.DistinctWaitingDifficulties()
	if err != nil {
		log.Printf("[MATCHMAKER] failed to list waiting difficulties: %v", err)
		return
	}
	for _, d := range difficulties {
		for s.tryPairOnce(ctx, d) {
		}
	}
}

// tryPairOnce claims and pairs at most one pair at the given difficulty,
// reporting whether a pair was made so the caller can keep draining the bucket.
func (s *Service) tryPairOnce(ctx context.Context, difficulty string) bool {
	e1, e2, ok, err := s.store.ClaimQueuePair(ctx, difficulty)
	if err != nil {
		log.Printf("[MATCHMAKER] claim failed for difficulty %s: %v", difficulty, err)
		return false
	}
	if !ok {
		return false
	}

	game, err := s.store.CreateGame(e1.PlayerID, e2.PlayerID, difficulty)
	if err != nil {
		log.Printf("[MATCHMAKER] create game failed for players %d,%d: %v", e1.PlayerID, e2.PlayerID, err)
		return false
	}

	if err := s.store.AttachGameToQueueEntries([]int{e1.ID, e2.ID}, game.ID); err != nil {
		log.Printf("[MATCHMAKER] attach queue entries failed for game %d: %v", game.ID, err)
	}

	s.reg.GetOrCreate(game.ID, func() registry.Room {
		return room.New(s.cfg, s.store, s.hub, s.relay, s.reg, game.ID, e1.PlayerID, e2.PlayerID, difficulty)
	})

	gameURL := s.cfg.FrontendURL + "/game/" + strconv.Itoa(game.ID)

	// opponent_avatar has no backing column: models.User carries no avatar
	// field and avatar URLs are sourced externally to the core (spec.md's
	// User type treats avatar URL as external-to-core), so it ships as null
	// until an avatar service is wired in.
	payload1 := map[string]interface{}{
		"type": "match_found", "game_id": game.ID, "difficulty": difficulty,
		"player1": e1.PlayerID, "player2": e2.PlayerID, "opponent_avatar": nil, "game_url": gameURL,
	}
	payload2 := map[string]interface{}{
		"type": "match_found", "game_id": game.ID, "difficulty": difficulty,
		"player1": e1.PlayerID, "player2": e2.PlayerID, "opponent_avatar": nil, "game_url": gameURL,
	}
	s.publish(ctx, e1.PlayerID, payload1)
	s.publish(ctx, e2.PlayerID, payload2)

	notify.Default.Notify(e1.PlayerID, "match_found", payload1)
	notify.Default.Notify(e2.PlayerID, "match_found", payload2)

	log.Printf("[MATCHMAKER] paired players %d,%d into game %d (difficulty=%s)", e1.PlayerID, e2.PlayerID, game.ID, difficulty)
	return true
}

func (s *Service) publish(ctx context.Context, playerID int, payload interface{}) {
	group := matchmakingGroup(playerID)
	if s.relay != nil {
		if err := s.relay.Publish(ctx, group, payload); err != nil {
			log.Printf("[MATCHMAKER] player %d: %v", playerID, apierr.Transient("relay publish failed", err))
		}
		return
	}
	s.hub.GroupSend(group, payload)
}

// matchmakingGroup is the bus group a player's /ws/matchmaking/ connection
// joins while queued — one player per group, since match_found is personal.
func matchmakingGroup(playerID int) string {
	return "matchmaking:" + strconv.Itoa(playerID)
}
