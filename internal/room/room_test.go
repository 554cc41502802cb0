package room

import (
	"testing"

	"github.com/playpong/backend/internal/bus"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/models"
	"github.com/playpong/backend/internal/physics"
)

// newTestRoom builds a Room without starting its loop goroutine, so these
// tests exercise the connection-facing methods in isolation from the
// ticker-driven persistence path in loop.go. A real (but emptily-populated)
// Hub is wired in so status-transition methods can safely broadcast into a
// group with no members, without dialing a socket or touching the store; cfg
// carries a real WaitForOpponentTimeoutSeconds so a lone HandlePlayerConnect
// can safely spawn its background wait timer.
func newTestRoom() *Room {
	return &Room{
		gameID:       1,
		player1ID:    10,
		player2ID:    20,
		difficulty:   "medium",
		phys:         physics.NewState("medium"),
		status:       models.GameStatusWaiting,
		currentMatch: 1,
		connected:    make(map[int]bool),
		hub:          bus.NewHub(),
		cfg:          &config.Config{WaitForOpponentTimeoutSeconds: 300},
	}
}

func TestHandleStartGameRequiresBothPlayersConnected(t *testing.T) {
	r := newTestRoom()

	if err := r.HandleStartGame(10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.status != models.GameStatusWaiting {
		t.Errorf("status = %q, want waiting (only one player connected)", r.status)
	}

	r.SetConnected(10, true)
	r.SetConnected(20, true)
	if err := r.HandleStartGame(10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.status != models.GameStatusPlaying {
		t.Errorf("status = %q, want playing", r.status)
	}
}

func TestHandleStartGameRejectsNonPlayer(t *testing.T) {
	r := newTestRoom()
	if err := r.HandleStartGame(999); err == nil {
		t.Error("expected an authz error for a non-player")
	}
}

func TestApplyPaddleMoveClampsAndRoutesBySide(t *testing.T) {
	r := newTestRoom()

	if err := r.ApplyPaddleMove(10, -100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.phys.Left.Y != 0 {
		t.Errorf("left paddle Y = %v, want clamped to 0", r.phys.Left.Y)
	}

	if err := r.ApplyPaddleMove(20, 100000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := physics.BaseHeight - physics.PaddleHeight
	if r.phys.Right.Y != want {
		t.Errorf("right paddle Y = %v, want clamped to %v", r.phys.Right.Y, want)
	}

	if err := r.ApplyPaddleMove(999, 10); err == nil {
		t.Error("expected an authz error for a non-player")
	}
}

func TestHandleNextMatchRequiresMatchOver(t *testing.T) {
	r := newTestRoom()
	if err := r.HandleNextMatch(10); err == nil {
		t.Error("expected validation error when match is not over")
	}

	r.status = models.GameStatusMatchOver
	r.currentMatch = 1
	r.phys.Left.Score = 5

	if err := r.HandleNextMatch(10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.status != models.GameStatusPlaying {
		t.Errorf("status = %q, want playing", r.status)
	}
	if r.currentMatch != 2 {
		t.Errorf("currentMatch = %d, want 2", r.currentMatch)
	}
	if r.phys.Left.Score != 0 {
		t.Errorf("score should reset on next match, got %d", r.phys.Left.Score)
	}
}

func TestHandlePlayerConnectTransitionsWaitingToMenuOnceBothPresent(t *testing.T) {
	r := newTestRoom()

	r.HandlePlayerConnect(10)
	if r.status != models.GameStatusWaiting {
		t.Errorf("status = %q, want waiting with only one player connected", r.status)
	}
	if r.waitCancel == nil {
		t.Error("expected a wait-for-opponent timer to be armed for the lone player")
	}

	r.HandlePlayerConnect(20)
	if r.status != models.GameStatusMenu {
		t.Errorf("status = %q, want menu once both players are connected", r.status)
	}
	if r.waitCancel != nil {
		t.Error("expected the wait-for-opponent timer to be cancelled once both players are present")
	}
}

func TestHandlePlayerDisconnectClearsConnectedWithoutForfeitingOutsidePlay(t *testing.T) {
	r := newTestRoom()
	r.SetConnected(10, true)
	r.SetConnected(20, true)
	r.status = models.GameStatusMenu

	r.HandlePlayerDisconnect(10)

	if r.connected[10] {
		t.Error("expected player 10 to be marked disconnected")
	}
	if r.status != models.GameStatusMenu {
		t.Errorf("status = %q, want menu unchanged (a disconnect outside play is not a forfeit)", r.status)
	}
}

func TestSnapshotLabelsMineAndOpponent(t *testing.T) {
	r := newTestRoom()
	r.phys.Left.Score = 3
	r.phys.Right.Score = 1
	r.matchWinsP1 = 2
	r.SetConnected(10, true)

	fromP1 := r.Snapshot(10)
	if fromP1["my_score"] != 3 || fromP1["opponent_score"] != 1 {
		t.Errorf("player1 snapshot scores wrong: %+v", fromP1)
	}
	if fromP1["my_connected"] != true || fromP1["opponent_connected"] != false {
		t.Errorf("player1 snapshot connection flags wrong: %+v", fromP1)
	}

	fromP2 := r.Snapshot(20)
	if fromP2["my_score"] != 1 || fromP2["opponent_score"] != 3 {
		t.Errorf("player2 snapshot scores wrong: %+v", fromP2)
	}
	if fromP2["match_wins_opp"] != 2 {
		t.Errorf("player2 snapshot match_wins_opp = %v, want 2", fromP2["match_wins_opp"])
	}
}
