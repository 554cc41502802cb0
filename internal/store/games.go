package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playpong/backend/internal/models"
)

// CreateGame inserts a fresh Game row for two paired players.
func (s *Store) CreateGame(player1ID, player2ID int, difficulty string) (*models.Game, error) {
	var g models.Game
	err := s.DB.Get(&g, `
		INSERT INTO games (player1_id, player2_id, difficulty, status, current_match, created_at)
		VALUES ($1, $2, $3, $4, 1, NOW())
		RETURNING id, player1_id, player2_id, difficulty, status, match_wins_player1,
		          match_wins_player2, current_match, winner_id, created_at, completed_at
	`, player1ID, player2ID, difficulty, models.GameStatusWaiting)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) GetGame(id int) (*models.Game, error) {
	var g models.Game
	err := s.DB.Get(&g, `
		SELECT id, player1_id, player2_id, difficulty, status, match_wins_player1,
		       match_wins_player2, current_match, winner_id, created_at, completed_at
		FROM games WHERE id=$1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// RecordMatch inserts the row for one completed or in-progress match, or, if
// a row for that match number already exists, overwrites its scores, winner,
// status, and completed_at. It does not touch the games row; the match-win
// counters there are written by FinishGame. Unlike the original
// implementation this records every match as it actually ends rather than
// reconstructing earlier scores after the fact — see SPEC_FULL §9.
func (s *Store) RecordMatch(gameID, matchNumber, scoreP1, scoreP2 int, winner string, completed bool) error {
	status := models.MatchStatusInProgress
	var completedAt sql.NullTime
	if completed {
		status = models.MatchStatusCompleted
		completedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}

	_, err := s.DB.Exec(`
		INSERT INTO matches (game_id, match_number, score_player1, score_player2, winner, status, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), $7)
		ON CONFLICT (game_id, match_number) DO UPDATE
		SET score_player1 = EXCLUDED.score_player1,
		    score_player2 = EXCLUDED.score_player2,
		    winner = EXCLUDED.winner,
		    status = EXCLUDED.status,
		    completed_at = EXCLUDED.completed_at
	`, gameID, matchNumber, scoreP1, scoreP2, nullableString(winner), status, completedAt)
	return err
}

// FinishGame writes the terminal Game row plus both PlayerProfiles'
// aggregate counters in one transaction, grounded in accounts.Transfer's
// lock-then-update-then-commit idiom.
func (s *Store) FinishGame(gameID int, status string, winnerUserID int, matchWinsP1, matchWinsP2 int) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var g models.Game
	if err := tx.Get(&g, `SELECT id, player1_id, player2_id FROM games WHERE id=$1 FOR UPDATE`, gameID); err != nil {
		return err
	}

	var winner sql.NullInt64
	if winnerUserID > 0 {
		winner = sql.NullInt64{Int64: int64(winnerUserID), Valid: true}
	}

	if _, err := tx.Exec(`
		UPDATE games
		SET status=$1, match_wins_player1=$2, match_wins_player2=$3, winner_id=$4, completed_at=NOW()
		WHERE id=$5
	`, status, matchWinsP1, matchWinsP2, winner, gameID); err != nil {
		return err
	}

	if status == models.GameStatusGameOver {
		p1Won := winnerUserID == g.Player1ID
		if err := bumpProfile(tx, g.Player1ID, p1Won, matchWinsP2); err != nil {
			return err
		}
		if err := bumpProfile(tx, g.Player2ID, !p1Won, matchWinsP1); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// bumpProfile grants XP and re-derives level for one player on game
// completion (500 XP for a win, 100 for a loss; level = floor(experience /
// (1000 * max(level, 1))) using the level held before this update — see
// SPEC_FULL §3, grounded in original_source/pong_game/game_logic.py's
// post-game profile update), and latches the three achievement flags
// (first_win, pure_win on a shutout, triple_win on the third career win),
// mirroring original_source/pong_game/models.py's update_achievements.
// opponentMatchWins is the losing side's match-win count within the just
// finished game; a winner facing zero opponent match wins earns pure_win.
func bumpProfile(tx *sqlx.Tx, userID int, won bool, opponentMatchWins int) error {
	var p models.PlayerProfile
	err := tx.Get(&p, `
		SELECT user_id, matches_played, matches_won, matches_lost, games_played, games_won,
		       experience, level, first_win, pure_win, triple_win, updated_at
		FROM player_profiles WHERE user_id=$1 FOR UPDATE
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		p = models.PlayerProfile{UserID: userID, Level: 1}
	} else if err != nil {
		return err
	}

	xpGain := 100
	if won {
		xpGain = 500
	}
	p.Experience += xpGain
	factor := p.Level
	if factor < 1 {
		factor = 1
	}
	p.Level = p.Experience / (1000 * factor)

	p.MatchesPlayed++
	p.GamesPlayed++
	if won {
		p.MatchesWon++
		p.GamesWon++
		p.FirstWin = true
		if opponentMatchWins == 0 {
			p.PureWin = true
		}
		if p.MatchesWon == 3 {
			p.TripleWin = true
		}
	} else {
		p.MatchesLost++
	}

	_, err = tx.Exec(`
		INSERT INTO player_profiles (user_id, matches_played, matches_won, matches_lost, games_played, games_won,
			experience, level, first_win, pure_win, triple_win, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			matches_played = $2, matches_won = $3, matches_lost = $4, games_played = $5, games_won = $6,
			experience = $7, level = $8, first_win = $9, pure_win = $10, triple_win = $11, updated_at = NOW()
	`, userID, p.MatchesPlayed, p.MatchesWon, p.MatchesLost, p.GamesPlayed, p.GamesWon,
		p.Experience, p.Level, p.FirstWin, p.PureWin, p.TripleWin)
	return err
}

// UserInActiveGame reports whether a user is a player in a still-live game —
// SPEC_FULL §4.8's precondition that a user already in a game can't be sent
// another invitation.
func (s *Store) UserInActiveGame(userID int) (bool, error) {
	var exists bool
	err := s.DB.Get(&exists, `
		SELECT EXISTS(
			SELECT 1 FROM games
			WHERE (player1_id=$1 OR player2_id=$1)
			  AND status NOT IN ($2, $3)
		)
	`, userID, models.GameStatusGameOver, models.GameStatusCancelled)
	return exists, err
}

// ListGamesForUser returns a user's most recent games, newest first, for
// the profile/history endpoint.
func (s *Store) ListGamesForUser(userID, limit int) ([]models.Game, error) {
	games := []models.Game{}
	err := s.DB.Select(&games, `
		SELECT id, player1_id, player2_id, difficulty, status, match_wins_player1,
		       match_wins_player2, current_match, winner_id, created_at, completed_at
		FROM games WHERE player1_id=$1 OR player2_id=$1
		ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return games, nil
}

// ListMatchesForGame returns every match row recorded for a game, in order.
func (s *Store) ListMatchesForGame(gameID int) ([]models.Match, error) {
	matches := []models.Match{}
	err := s.DB.Select(&matches, `
		SELECT id, game_id, match_number, score_player1, score_player2, winner, status, started_at, completed_at
		FROM matches WHERE game_id=$1 ORDER BY match_number ASC
	`, gameID)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
