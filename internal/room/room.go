// Package room implements the Room loop and Game connection components from
// SPEC_FULL §2.F/G: the authoritative state for one running match, whose
// physics is stepped only by the room's own loop goroutine, generalized from the PoolGameState/Hub pairing in
// internal/game/pool_state.go and internal/ws/handler.go into fixed-timestep
// Pong dynamics instead of client-driven shot results.
package room

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/playpong/backend/internal/apierr"
	"github.com/playpong/backend/internal/bus"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/models"
	"github.com/playpong/backend/internal/physics"
	"github.com/playpong/backend/internal/registry"
	"github.com/playpong/backend/internal/store"
)

// GroupName is the bus group a game's connections join, shared by the WS
// handler (group_add on connect) and the Room loop (group_send on broadcast).
func GroupName(gameID int) string { return fmt.Sprintf("game:%d", gameID) }

// ConnID is the connection id a game socket registers under in the bus hub,
// shared between the WS handler (group_add / send_to_channel lookups) and the
// Room (targeted sends, wait-for-opponent close-by-channel).
func ConnID(gameID, userID int) string { return fmt.Sprintf("game:%d:user:%d", gameID, userID) }

// Room owns one running match's authoritative state. Physics steps run only
// on the loop goroutine (Run); other goroutines (the WS read pumps) change
// paddle positions, status, and connection flags directly through the
// exported methods below, which take the lock themselves.
type Room struct {
	gameID     int
	player1ID  int
	player2ID  int
	difficulty string

	cfg   *config.Config
	store *store.Store
	hub   *bus.Hub
	relay *bus.RedisBus // nil on a single-node deployment
	reg   *registry.Registry

	mu                sync.RWMutex
	phys              physics.State
	status            string
	matchWinsP1       int
	matchWinsP2       int
	currentMatch      int
	connected         map[int]bool
	disconnectedSince time.Time
	winnerUserID      int
	waitCancel        context.CancelFunc // cancels waitForOpponent once both players are present

	rng *rand.Rand

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Room in the waiting state with a fresh physics.State;
// callers should immediately call Run in its own goroutine. reg is the
// registry the room unregisters itself from once its loop terminates, so a
// finished or cancelled game does not linger in memory forever.
func New(cfg *config.Config, st *store.Store, hub *bus.Hub, relay *bus.RedisBus, reg *registry.Registry, gameID, player1ID, player2ID int, difficulty string) *Room {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Room{
		gameID:       gameID,
		player1ID:    player1ID,
		player2ID:    player2ID,
		difficulty:   difficulty,
		cfg:          cfg,
		store:        st,
		hub:          hub,
		relay:        relay,
		reg:          reg,
		phys:         physics.NewState(difficulty),
		status:       models.GameStatusWaiting,
		currentMatch: 1,
		connected:    make(map[int]bool),
		rng:          rand.New(rand.NewSource(int64(gameID))),
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	go r.Run(ctx)
	return r
}

func (r *Room) GameID() int { return r.gameID }

// Stop cancels the room's loop goroutine; it is safe to call more than once.
func (r *Room) Stop() { r.cancel() }

// Done is closed once the loop goroutine has fully exited and persisted.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) isPlayer(userID int) bool {
	return userID == r.player1ID || userID == r.player2ID
}

// SetConnected records a player's connection lifecycle transition and resets
// the both-disconnected inactivity clock whenever anyone is present. It is
// the bare state primitive with no side effects, kept for tests that drive
// Room state directly; HandlePlayerConnect/HandlePlayerDisconnect are the
// WS-facing entry points that also run the SPEC_FULL §4.2 connect/disconnect
// choreography (status transitions, player_status/force_disconnect broadcasts).
func (r *Room) SetConnected(userID int, connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected[userID] = connected
	if r.anyConnectedLocked() {
		r.disconnectedSince = time.Time{}
	}
}

func (r *Room) anyConnectedLocked() bool {
	return r.connected[r.player1ID] || r.connected[r.player2ID]
}

// HandlePlayerConnect runs the connect half of SPEC_FULL §4.2: mark
// the player present, and if the opponent is now also present, cancel any
// running wait-for-opponent timer and let a still-"waiting" game advance to
// "menu"; otherwise start the bounded wait for the opponent to show up.
func (r *Room) HandlePlayerConnect(userID int) {
	r.mu.Lock()
	r.connected[userID] = true
	r.disconnectedSince = time.Time{}
	bothConnected := r.connected[r.player1ID] && r.connected[r.player2ID]
	transitioned := false
	if bothConnected {
		if r.waitCancel != nil {
			r.waitCancel()
			r.waitCancel = nil
		}
		if r.status == models.GameStatusWaiting {
			r.status = models.GameStatusMenu
			transitioned = true
		}
	}
	needsWait := r.status == models.GameStatusWaiting && !bothConnected
	r.mu.Unlock()

	r.broadcast(map[string]interface{}{"type": "player_status", "player": r.playerNum(userID), "connected": true})
	if transitioned {
		r.emitStatusChange()
	}
	if needsWait {
		ctx, cancel := context.WithCancel(context.Background())
		r.mu.Lock()
		r.waitCancel = cancel
		r.mu.Unlock()
		go r.waitForOpponent(ctx, userID)
	}
}

// HandlePlayerDisconnect runs the disconnect half of SPEC_FULL §4.2: mark the
// player gone, and if the game was actually "playing", force it to a
// game_over with the remaining player as winner, persist it, and run the
// natural-end close choreography — a dropped connection mid-match forfeits
// rather than leaving the game hanging (testable property 10).
func (r *Room) HandlePlayerDisconnect(userID int) {
	r.mu.Lock()
	r.connected[userID] = false
	if !r.anyConnectedLocked() {
		r.disconnectedSince = time.Now()
	}
	if r.waitCancel != nil {
		r.waitCancel()
		r.waitCancel = nil
	}
	wasPlaying := r.status == models.GameStatusPlaying
	if wasPlaying {
		winner := r.otherPlayer(userID)
		r.winnerUserID = winner
		r.status = models.GameStatusGameOver
		if err := r.store.RecordMatch(r.gameID, r.currentMatch, r.phys.Left.Score, r.phys.Right.Score, r.sideFor(winner), true); err != nil {
			log.Printf("[ROOM] game %d: record match %d failed on disconnect: %v", r.gameID, r.currentMatch, err)
		}
		if err := r.store.FinishGame(r.gameID, models.GameStatusGameOver, winner, r.matchWinsP1, r.matchWinsP2); err != nil {
			log.Printf("[ROOM] game %d: finish game failed on disconnect: %v", r.gameID, err)
		}
		log.Printf("[ROOM] game %d ended by disconnect of user %d, winner=%d", r.gameID, userID, winner)
	}
	r.mu.Unlock()

	r.broadcast(map[string]interface{}{"type": "player_status", "player": r.playerNum(userID), "connected": false})
	if wasPlaying {
		r.broadcast(map[string]interface{}{"type": "force_disconnect", "reason": "opponent_disconnected"})
		r.emitStatusChange()
		go r.finishGameSequence()
	}
}

// waitForOpponent sends periodic waiting_for_opponent updates to the lone
// connected player and, if the opponent never shows up within
// WAIT_FOR_OPPONENT_TIMEOUT_SECONDS, sends a timeout frame, persists the game
// as cancelled, and closes the lone socket with code 4000 (SPEC_FULL §4.2).
// ctx is cancelled by HandlePlayerConnect the moment
// both players are present.
func (r *Room) waitForOpponent(ctx context.Context, lonelyUserID int) {
	timeout := time.Duration(r.cfg.WaitForOpponentTimeoutSeconds) * time.Second
	deadline := time.Now().Add(timeout)
	connID := ConnID(r.gameID, lonelyUserID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	elapsed := 0
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed++
			if !now.Before(deadline) {
				r.mu.Lock()
				r.status = models.GameStatusCancelled
				matchWinsP1, matchWinsP2 := r.matchWinsP1, r.matchWinsP2
				r.mu.Unlock()

				r.send(lonelyUserID, map[string]interface{}{"type": "timeout"})
				if err := r.store.FinishGame(r.gameID, models.GameStatusCancelled, 0, matchWinsP1, matchWinsP2); err != nil {
					log.Printf("[ROOM] game %d: finish game failed on wait timeout: %v", r.gameID, err)
				}
				r.hub.CloseChannel(connID, 4000, "opponent did not join in time")
				r.cancel()
				return
			}
			if elapsed%5 == 0 {
				r.send(lonelyUserID, map[string]interface{}{
					"type":              "waiting_for_opponent",
					"seconds_elapsed":   elapsed,
					"seconds_remaining": int(deadline.Sub(now).Seconds()),
				})
			}
		}
	}
}

func (r *Room) playerNum(userID int) int {
	if userID == r.player1ID {
		return 1
	}
	return 2
}

// sideFor maps a player's user id onto the "player1"/"player2" side label
// used in match/game records and status payloads. player1ID/player2ID never
// change after construction, so this needs no locking.
func (r *Room) sideFor(userID int) string {
	if userID == r.player1ID {
		return "player1"
	}
	return "player2"
}

// HandleStartGame transitions waiting/menu -> playing once both players are
// present; a call from a player alone in the room is a no-op, not an error,
// mirroring the teacher's Initialize() idempotent-skip pattern.
func (r *Room) HandleStartGame(userID int) error {
	if !r.isPlayer(userID) {
		return apierr.Authz("not a player in this game")
	}
	r.mu.Lock()
	if r.status != models.GameStatusWaiting && r.status != models.GameStatusMenu {
		r.mu.Unlock()
		return nil
	}
	if !(r.connected[r.player1ID] && r.connected[r.player2ID]) {
		r.mu.Unlock()
		return nil
	}
	r.status = models.GameStatusPlaying
	r.mu.Unlock()

	log.Printf("[ROOM] game %d starting, match %d", r.gameID, r.currentMatch)
	r.emitStatusChange()
	return nil
}

// HandleNextMatch resets ball/paddles/scores and resumes play after a
// match_over pause, incrementing current_match (SPEC_FULL §4.6).
func (r *Room) HandleNextMatch(userID int) error {
	if !r.isPlayer(userID) {
		return apierr.Authz("not a player in this game")
	}
	r.mu.Lock()
	if r.status != models.GameStatusMatchOver {
		r.mu.Unlock()
		return apierr.Validation("match is not over")
	}
	r.phys = physics.NewState(r.difficulty)
	r.currentMatch++
	r.status = models.GameStatusPlaying
	r.mu.Unlock()

	r.emitStatusChange()
	return nil
}

// ApplyPaddleMove sets the requesting player's paddle Y, clamping server-side
// regardless of the submitted value (testable property 3).
func (r *Room) ApplyPaddleMove(userID int, y float64) error {
	if !r.isPlayer(userID) {
		return apierr.Authz("not a player in this game")
	}
	clamped := physics.ClampPaddle(y)
	r.mu.Lock()
	defer r.mu.Unlock()
	if userID == r.player1ID {
		r.phys.Left.Y = clamped
	} else {
		r.phys.Right.Y = clamped
	}
	return nil
}

// Snapshot returns the state visible to one player, labeling which paddle is
// "mine" vs "opponent's" the way GetGameStateForPlayer does for pool.
func (r *Room) Snapshot(forUserID int) map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked(forUserID)
}

// snapshotLocked is Snapshot's body with no locking of its own, for callers
// (Snapshot, finishGameSequence) that already hold r.mu.
func (r *Room) snapshotLocked(forUserID int) map[string]interface{} {
	mine, opp := r.phys.Left, r.phys.Right
	myConnected, oppConnected := r.connected[r.player1ID], r.connected[r.player2ID]
	if forUserID == r.player2ID {
		mine, opp = r.phys.Right, r.phys.Left
		myConnected, oppConnected = r.connected[r.player2ID], r.connected[r.player1ID]
	}

	return map[string]interface{}{
		"type":              "game_state",
		"game_id":           r.gameID,
		"status":            r.status,
		"difficulty":        r.difficulty,
		"current_match":     r.currentMatch,
		"ball":              r.phys.Ball.Position,
		"my_paddle_y":       mine.Y,
		"opponent_paddle_y": opp.Y,
		"my_score":          mine.Score,
		"opponent_score":    opp.Score,
		"match_wins_mine":   r.matchWinsFor(forUserID),
		"match_wins_opp":    r.matchWinsFor(r.otherPlayer(forUserID)),
		"my_connected":      myConnected,
		"opponent_connected": oppConnected,
	}
}

func (r *Room) otherPlayer(userID int) int {
	if userID == r.player1ID {
		return r.player2ID
	}
	return r.player1ID
}

func (r *Room) matchWinsFor(userID int) int {
	if userID == r.player1ID {
		return r.matchWinsP1
	}
	return r.matchWinsP2
}
