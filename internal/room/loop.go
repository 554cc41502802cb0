package room

import (
	"context"
	"log"
	"time"

	"github.com/playpong/backend/internal/apierr"
	"github.com/playpong/backend/internal/models"
	"github.com/playpong/backend/internal/physics"
)

// Run is the fixed-timestep accumulator loop from SPEC_FULL §4.3, generalized
// from the ticker-driven background-worker idiom of
// internal/game/idle_worker.go and internal/game/matchmaker_worker.go. It is
// the only caller of physics.Step for the room; the connection-facing methods
// in room.go write paddle positions, status, and connection flags under the
// mutex.
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)

	physicsDt := 1.0 / float64(r.cfg.PhysicsRateHz)
	physicsTicker := time.NewTicker(time.Duration(physicsDt * float64(time.Second)))
	defer physicsTicker.Stop()

	broadcastTicker := time.NewTicker(time.Second / time.Duration(r.cfg.BroadcastRateHz))
	defer broadcastTicker.Stop()

	inactivityCheck := time.NewTicker(time.Second)
	defer inactivityCheck.Stop()

	accumulator := 0.0
	lastWake := time.Now()

	log.Printf("[ROOM] game %d loop started (difficulty=%s)", r.gameID, r.difficulty)

	for {
		select {
		case <-ctx.Done():
			r.terminate(models.GameStatusCancelled)
			r.reg.Delete(r.gameID)
			return

		case now := <-physicsTicker.C:
			frameTime := now.Sub(lastWake).Seconds()
			lastWake = now
			if frameTime > r.cfg.MaxFrameTimeSeconds {
				frameTime = r.cfg.MaxFrameTimeSeconds
			}
			accumulator += frameTime
			if transition := r.stepPhysics(physicsDt, &accumulator); transition != "" {
				r.emitStatusChange()
				if transition == models.GameStatusGameOver {
					go r.finishGameSequence()
				}
			}

		case <-broadcastTicker.C:
			r.broadcastState()

		case <-inactivityCheck.C:
			if r.checkInactivity() {
				r.cancel()
			}
		}
	}
}

// stepPhysics runs up to MAX_UPDATES_PER_FRAME physics steps, dropping any
// leftover accumulator past the cap rather than letting debt build across
// frames (anti-spiral-of-death, testable property 2). It returns the status
// the room transitioned to this tick ("" if none), letting the caller emit
// game_status_changed and run the completion sequence after the lock is
// released instead of doing broadcasts/IO while holding r.mu.
func (r *Room) stepPhysics(physicsDt float64, accumulator *float64) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != models.GameStatusPlaying {
		return ""
	}

	updates := 0
	var events []physics.Event
	for *accumulator >= physicsDt && updates < r.cfg.MaxUpdatesPerFrame {
		newState, stepEvents := physics.Step(r.phys, physicsDt, r.rng)
		r.phys = newState
		events = append(events, stepEvents...)
		*accumulator -= physicsDt
		updates++
	}
	if updates == r.cfg.MaxUpdatesPerFrame {
		*accumulator = 0
	}

	transition := ""
	for _, ev := range events {
		if t := r.handleEventLocked(ev); t != "" {
			transition = t
		}
	}
	return transition
}

// handleEventLocked reacts to scoring events, checking match/game end rules
// (SPEC_FULL §4.6). Called with r.mu already held.
func (r *Room) handleEventLocked(ev physics.Event) string {
	switch ev.Type {
	case physics.EventScoreLeft, physics.EventScoreRight:
		if r.phys.Left.Score < physics.PointsToWinMatch && r.phys.Right.Score < physics.PointsToWinMatch {
			return ""
		}
		return r.finishMatchLocked()
	}
	return ""
}

func (r *Room) finishMatchLocked() string {
	winner := "player1"
	if r.phys.Right.Score > r.phys.Left.Score {
		winner = "player2"
		r.matchWinsP2++
	} else {
		r.matchWinsP1++
	}

	if err := r.store.RecordMatch(r.gameID, r.currentMatch, r.phys.Left.Score, r.phys.Right.Score, winner, true); err != nil {
		log.Printf("[ROOM] game %d: record match %d failed: %v", r.gameID, r.currentMatch, err)
	}

	if r.matchWinsP1 >= physics.MatchesToWinGame || r.matchWinsP2 >= physics.MatchesToWinGame {
		r.status = models.GameStatusGameOver
		if r.matchWinsP1 > r.matchWinsP2 {
			r.winnerUserID = r.player1ID
		} else {
			r.winnerUserID = r.player2ID
		}
		if err := r.store.FinishGame(r.gameID, models.GameStatusGameOver, r.winnerUserID, r.matchWinsP1, r.matchWinsP2); err != nil {
			log.Printf("[ROOM] game %d: finish game failed: %v", r.gameID, err)
		}
		log.Printf("[ROOM] game %d over, winner=%d (%d-%d)", r.gameID, r.winnerUserID, r.matchWinsP1, r.matchWinsP2)
		return models.GameStatusGameOver
	}
	r.status = models.GameStatusMatchOver
	return models.GameStatusMatchOver
}

// broadcastState sends each connected player its own personalized snapshot,
// at BROADCAST_RATE independent of how many physics steps ran in between.
func (r *Room) broadcastState() {
	r.send(r.player1ID, r.Snapshot(r.player1ID))
	r.send(r.player2ID, r.Snapshot(r.player2ID))
}

// emitStatusChange broadcasts the status transition event followed by each
// player's fresh snapshot, so game_status_changed is sent before the
// snapshots this call sends.
func (r *Room) emitStatusChange() {
	r.mu.RLock()
	status := r.status
	winner := ""
	if r.winnerUserID != 0 {
		winner = r.sideFor(r.winnerUserID)
	}
	r.mu.RUnlock()

	r.broadcast(map[string]interface{}{"type": "game_status_changed", "status": status, "winner": winner})
	r.send(r.player1ID, r.Snapshot(r.player1ID))
	r.send(r.player2ID, r.Snapshot(r.player2ID))
}

// finishGameSequence runs the game-end close choreography on its own
// goroutine, off the physics loop: announce
// the final state to both players, give clients a couple seconds to render
// it, then close both sockets with code 1000 and stop the room's loop.
func (r *Room) finishGameSequence() {
	r.mu.RLock()
	winner := ""
	if r.winnerUserID != 0 {
		winner = r.sideFor(r.winnerUserID)
	}
	finalP1 := r.snapshotLocked(r.player1ID)
	finalP2 := r.snapshotLocked(r.player2ID)
	r.mu.RUnlock()

	r.send(r.player1ID, map[string]interface{}{"type": "game_completed", "winner": winner, "final_state": finalP1})
	r.send(r.player2ID, map[string]interface{}{"type": "game_completed", "winner": winner, "final_state": finalP2})

	time.Sleep(2 * time.Second)

	r.hub.CloseGroup(GroupName(r.gameID), 1000, "game over")
	r.cancel()
}

// broadcast delivers a message to every connection in the game's group:
// player_status, force_disconnect, game_status_changed, game_completed.
func (r *Room) broadcast(message interface{}) {
	group := GroupName(r.gameID)
	if r.relay != nil {
		if err := r.relay.Publish(context.Background(), group, message); err != nil {
			log.Printf("[ROOM] game %d: %v", r.gameID, apierr.Transient("relay publish failed", err))
		}
		return
	}
	r.hub.GroupSend(group, message)
}

// send delivers a message to exactly one player's own connection — a
// personalized game_state snapshot, waiting_for_opponent, timeout — fanning
// out through Redis when a relay is configured so a reconnect to a different
// process still receives it.
func (r *Room) send(userID int, message interface{}) {
	connID := ConnID(r.gameID, userID)
	if r.relay != nil {
		if err := r.relay.PublishToChannel(context.Background(), connID, message); err != nil {
			log.Printf("[ROOM] game %d: %v", r.gameID, apierr.Transient("relay publish failed", err))
		}
		return
	}
	r.hub.SendToChannel(connID, message)
}

// checkInactivity reports whether both players have been disconnected for at
// least INACTIVE_TIMEOUT, triggering a one-time terminate (testable property 9).
func (r *Room) checkInactivity() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == models.GameStatusGameOver || r.status == models.GameStatusCancelled {
		return false
	}
	if r.anyConnectedLocked() {
		r.disconnectedSince = time.Time{}
		return false
	}
	if r.disconnectedSince.IsZero() {
		r.disconnectedSince = time.Now()
		return false
	}
	return time.Since(r.disconnectedSince) >= time.Duration(r.cfg.InactiveTimeoutSeconds)*time.Second
}

// terminate persists a final Game row exactly once (testable property 9) and
// marks the room cancelled so a racing inactivity check cannot double-fire.
func (r *Room) terminate(status string) {
	r.mu.Lock()
	if r.status == models.GameStatusGameOver || r.status == models.GameStatusCancelled {
		r.mu.Unlock()
		return
	}
	r.status = status
	winsP1, winsP2 := r.matchWinsP1, r.matchWinsP2
	r.mu.Unlock()

	if err := r.store.FinishGame(r.gameID, status, 0, winsP1, winsP2); err != nil {
		log.Printf("[ROOM] game %d: terminate persist failed: %v", r.gameID, err)
	}
	log.Printf("[ROOM] game %d terminated with status %s", r.gameID, status)
}
