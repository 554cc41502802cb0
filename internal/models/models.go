package models

import (
	"database/sql"
	"time"
)

// User is an authenticated account.
type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PlayerProfile aggregates a user's lifetime Pong record. Experience and
// Level are granted on every completed game (500 XP to the winner, 100 to
// the loser); Level is recomputed each time from the new Experience divided
// by 1000 times the previous Level (at least 1). The three achievement flags
// latch true and never reset.
type PlayerProfile struct {
	UserID        int       `db:"user_id" json:"user_id"`
	MatchesPlayed int       `db:"matches_played" json:"matches_played"`
	MatchesWon    int       `db:"matches_won" json:"matches_won"`
	MatchesLost   int       `db:"matches_lost" json:"matches_lost"`
	GamesPlayed   int       `db:"games_played" json:"games_played"`
	GamesWon      int       `db:"games_won" json:"games_won"`
	Experience    int       `db:"experience" json:"experience"`
	Level         int       `db:"level" json:"level"`
	FirstWin      bool      `db:"first_win" json:"first_win"`
	PureWin       bool      `db:"pure_win" json:"pure_win"`
	TripleWin     bool      `db:"triple_win" json:"triple_win"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

const (
	GameStatusWaiting   = "waiting"
	GameStatusMenu      = "menu"
	GameStatusPlaying   = "playing"
	GameStatusPaused    = "paused"
	GameStatusMatchOver = "match_over"
	GameStatusGameOver  = "game_over"
	GameStatusCancelled = "cancelled"
)

// Game is a best-of-MatchesToWinGame series between two players.
type Game struct {
	ID                int           `db:"id" json:"id"`
	Player1ID         int           `db:"player1_id" json:"player1_id"`
	Player2ID         int           `db:"player2_id" json:"player2_id"`
	Difficulty        string        `db:"difficulty" json:"difficulty"`
	Status            string        `db:"status" json:"status"`
	MatchWinsPlayer1  int           `db:"match_wins_player1" json:"match_wins_player1"`
	MatchWinsPlayer2  int           `db:"match_wins_player2" json:"match_wins_player2"`
	CurrentMatch      int           `db:"current_match" json:"current_match"`
	WinnerID          sql.NullInt64 `db:"winner_id" json:"winner_id,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	CompletedAt       sql.NullTime  `db:"completed_at" json:"completed_at,omitempty"`
}

const (
	MatchStatusInProgress = "in_progress"
	MatchStatusCompleted  = "completed"
)

// Match is a single best-of-serves-to-PointsToWinMatch round within a Game.
type Match struct {
	ID            int          `db:"id" json:"id"`
	GameID        int          `db:"game_id" json:"game_id"`
	MatchNumber   int          `db:"match_number" json:"match_number"`
	ScorePlayer1  int          `db:"score_player1" json:"score_player1"`
	ScorePlayer2  int          `db:"score_player2" json:"score_player2"`
	Winner        string       `db:"winner" json:"winner,omitempty"`
	Status        string       `db:"status" json:"status"`
	StartedAt     time.Time    `db:"started_at" json:"started_at"`
	CompletedAt   sql.NullTime `db:"completed_at" json:"completed_at,omitempty"`
}

const (
	QueueStatusWaiting   = "waiting"
	QueueStatusMatched   = "matched"
	QueueStatusExpired   = "expired"
	QueueStatusCancelled = "cancelled"
)

// MatchmakingQueueEntry is a player's pending request to be paired.
type MatchmakingQueueEntry struct {
	ID            int           `db:"id" json:"id"`
	PlayerID      int           `db:"player_id" json:"player_id"`
	Difficulty    string        `db:"difficulty" json:"difficulty"`
	Status        string        `db:"status" json:"status"`
	EnqueuedAt    time.Time     `db:"enqueued_at" json:"enqueued_at"`
	MatchedGameID sql.NullInt64 `db:"matched_game_id" json:"matched_game_id,omitempty"`
}

const (
	InvitationStatusPending   = "pending"
	InvitationStatusAccepted  = "accepted"
	InvitationStatusDeclined  = "declined"
	InvitationStatusCancelled = "cancelled"
	InvitationStatusExpired   = "expired"
)

// Invitation is a direct user-to-user challenge outside the matchmaking queue.
type Invitation struct {
	ID          int           `db:"id" json:"id"`
	InviterID   int           `db:"inviter_id" json:"inviter_id"`
	InviteeID   int           `db:"invitee_id" json:"invitee_id"`
	Difficulty  string        `db:"difficulty" json:"difficulty"`
	Status      string        `db:"status" json:"status"`
	GameID      sql.NullInt64 `db:"game_id" json:"game_id,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	RespondedAt sql.NullTime  `db:"responded_at" json:"responded_at,omitempty"`
}
