package store

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playpong/backend/internal/models"
)

// Enqueue adds a player to the matchmaking queue at a difficulty level.
func (s *Store) Enqueue(playerID int, difficulty string) (*models.MatchmakingQueueEntry, error) {
	var e models.MatchmakingQueueEntry
	err := s.DB.Get(&e, `
		INSERT INTO matchmaking_queue (player_id, difficulty, status, enqueued_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, player_id, difficulty, status, enqueued_at, matched_game_id
	`, playerID, difficulty, models.QueueStatusWaiting)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CancelQueueEntry marks a still-waiting entry cancelled; a no-op if it has
// already been matched or expired.
func (s *Store) CancelQueueEntry(playerID int) error {
	_, err := s.DB.Exec(`
		UPDATE matchmaking_queue SET status=$1
		WHERE player_id=$2 AND status=$3
	`, models.QueueStatusCancelled, playerID, models.QueueStatusWaiting)
	return err
}

// ClaimQueuePair atomically claims the two oldest waiting entries at a given
// difficulty using SELECT ... FOR UPDATE SKIP LOCKED, so two Matchmaker
// instances racing on the same difficulty never pair the same entry twice.
// Returns (nil, nil, false, nil) when fewer than two entries are available.
func (s *Store) ClaimQueuePair(ctx context.Context, difficulty string) (*models.MatchmakingQueueEntry, *models.MatchmakingQueueEntry, bool, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, false, err
	}
	defer tx.Rollback()

	var entries []models.MatchmakingQueueEntry
	err = tx.Select(&entries, `
		SELECT id, player_id, difficulty, status, enqueued_at, matched_game_id
		FROM matchmaking_queue
		WHERE difficulty = $1 AND status = $2
		ORDER BY enqueued_at
		FOR UPDATE SKIP LOCKED
		LIMIT 2
	`, difficulty, models.QueueStatusWaiting)
	if err != nil {
		return nil, nil, false, err
	}
	if len(entries) < 2 {
		return nil, nil, false, nil
	}
	if entries[0].PlayerID == entries[1].PlayerID {
		log.Printf("[STORE] skipping self-match for player %d at difficulty %s", entries[0].PlayerID, difficulty)
		return nil, nil, false, nil
	}

	if _, err := tx.Exec(`
		UPDATE matchmaking_queue SET status=$1 WHERE id IN ($2, $3)
	`, models.QueueStatusMatched, entries[0].ID, entries[1].ID); err != nil {
		return nil, nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, false, err
	}

	return &entries[0], &entries[1], true, nil
}

// AttachGameToQueueEntries links the now-matched entries to the created game.
func (s *Store) AttachGameToQueueEntries(entryIDs []int, gameID int) error {
	query, args, err := sqlx.In(`UPDATE matchmaking_queue SET matched_game_id=? WHERE id IN (?)`, gameID, entryIDs)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(s.DB.Rebind(query), args...)
	return err
}

// UserInMatchmakingQueue reports whether a user has a still-waiting queue
// entry — SPEC_FULL §4.8's precondition that a queued player can't also be
// sent an invitation.
func (s *Store) UserInMatchmakingQueue(userID int) (bool, error) {
	var exists bool
	err := s.DB.Get(&exists, `
		SELECT EXISTS(SELECT 1 FROM matchmaking_queue WHERE player_id=$1 AND status=$2)
	`, userID, models.QueueStatusWaiting)
	return exists, err
}

// QueuePosition returns 1-based position of a player's waiting entry within
// its difficulty bucket, FIFO by enqueued_at (SPEC_FULL §4.7's
// request_status/queue_status query), or 0 if the player has no waiting entry.
func (s *Store) QueuePosition(userID int) (int, error) {
	var entry models.MatchmakingQueueEntry
	err := s.DB.Get(&entry, `
		SELECT id, player_id, difficulty, status, enqueued_at, matched_game_id
		FROM matchmaking_queue WHERE player_id=$1 AND status=$2
	`, userID, models.QueueStatusWaiting)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var earlier int
	err = s.DB.Get(&earlier, `
		SELECT COUNT(*) FROM matchmaking_queue
		WHERE difficulty=$1 AND status=$2 AND enqueued_at < $3
	`, entry.Difficulty, models.QueueStatusWaiting, entry.EnqueuedAt)
	if err != nil {
		return 0, err
	}
	return earlier + 1, nil
}

// DistinctWaitingDifficulties returns difficulty levels with at least one
// waiting entry, mirroring matchPairsAtStake's per-bucket pairing loop.
func (s *Store) DistinctWaitingDifficulties() ([]string, error) {
	var out []string
	err := s.DB.Select(&out, `
		SELECT DISTINCT difficulty FROM matchmaking_queue WHERE status=$1
	`, models.QueueStatusWaiting)
	return out, err
}

// ExpireStaleQueueEntries marks waiting entries older than the given age as expired.
func (s *Store) ExpireStaleQueueEntries(maxAge time.Duration) (int64, error) {
	res, err := s.DB.Exec(`
		UPDATE matchmaking_queue SET status=$1
		WHERE status=$2 AND enqueued_at < NOW() - ($3 || ' seconds')::interval
	`, models.QueueStatusExpired, models.QueueStatusWaiting, int(maxAge.Seconds()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
