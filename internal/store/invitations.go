package store

import (
	"database/sql"
	"errors"

	"github.com/playpong/backend/internal/models"
)

func (s *Store) CreateInvitation(inviterID, inviteeID int, difficulty string) (*models.Invitation, error) {
	var inv models.Invitation
	err := s.DB.Get(&inv, `
		INSERT INTO invitations (inviter_id, invitee_id, difficulty, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, inviter_id, invitee_id, difficulty, status, game_id, created_at, responded_at
	`, inviterID, inviteeID, difficulty, models.InvitationStatusPending)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ErrNotInvitee is returned by AcceptInvitation when the caller is not the
// invitation's invitee.
var ErrNotInvitee = errors.New("not the invitee")

// ErrInvitationResolved is returned by AcceptInvitation when the invitation
// already left pending in a way that can't be reused (declined, cancelled,
// expired).
var ErrInvitationResolved = errors.New("invitation already resolved")

func (s *Store) GetInvitation(id int) (*models.Invitation, error) {
	var inv models.Invitation
	err := s.DB.Get(&inv, `
		SELECT id, inviter_id, invitee_id, difficulty, status, game_id, created_at, responded_at
		FROM invitations WHERE id=$1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ResolveInvitation transitions a pending invitation to a terminal state.
// The WHERE status='pending' guard makes this safe against double-resolution
// races (property 8 in SPEC_FULL §8): only the first caller wins.
func (s *Store) ResolveInvitation(id int, newStatus string, gameID *int) (bool, error) {
	var res sql.Result
	var err error
	if gameID != nil {
		res, err = s.DB.Exec(`
			UPDATE invitations SET status=$1, game_id=$2, responded_at=NOW()
			WHERE id=$3 AND status=$4
		`, newStatus, *gameID, id, models.InvitationStatusPending)
	} else {
		res, err = s.DB.Exec(`
			UPDATE invitations SET status=$1, responded_at=NOW()
			WHERE id=$2 AND status=$3
		`, newStatus, id, models.InvitationStatusPending)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// AcceptInvitation resolves a pending invitation and creates its Game in one
// transaction (SPEC_FULL §4.8), so a losing or duplicate accept can never
// insert an orphan Game row. If the invitation was already accepted, it
// returns the Game created by the first accept with created=false instead of
// erroring — a second accept of the same code is idempotent (testable
// property 8). Any other non-pending status is
// ErrInvitationResolved.
func (s *Store) AcceptInvitation(invitationID, userID int) (*models.Game, *models.Invitation, bool, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return nil, nil, false, err
	}
	defer tx.Rollback()

	var inv models.Invitation
	if err := tx.Get(&inv, `
		SELECT id, inviter_id, invitee_id, difficulty, status, game_id, created_at, responded_at
		FROM invitations WHERE id=$1 FOR UPDATE
	`, invitationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, false, ErrNotFound
		}
		return nil, nil, false, err
	}
	if inv.InviteeID != userID {
		return nil, nil, false, ErrNotInvitee
	}

	if inv.Status == models.InvitationStatusAccepted {
		if !inv.GameID.Valid {
			return nil, nil, false, errors.New("invitation marked accepted with no game_id")
		}
		var g models.Game
		if err := tx.Get(&g, `
			SELECT id, player1_id, player2_id, difficulty, status, match_wins_player1,
			       match_wins_player2, current_match, winner_id, created_at, completed_at
			FROM games WHERE id=$1
		`, inv.GameID.Int64); err != nil {
			return nil, nil, false, err
		}
		return &g, &inv, false, tx.Commit()
	}
	if inv.Status != models.InvitationStatusPending {
		return nil, nil, false, ErrInvitationResolved
	}

	var g models.Game
	if err := tx.Get(&g, `
		INSERT INTO games (player1_id, player2_id, difficulty, status, current_match, created_at)
		VALUES ($1, $2, $3, $4, 1, NOW())
		RETURNING id, player1_id, player2_id, difficulty, status, match_wins_player1,
		          match_wins_player2, current_match, winner_id, created_at, completed_at
	`, inv.InviterID, inv.InviteeID, inv.Difficulty, models.GameStatusWaiting); err != nil {
		return nil, nil, false, err
	}

	if _, err := tx.Exec(`
		UPDATE invitations SET status=$1, game_id=$2, responded_at=NOW() WHERE id=$3
	`, models.InvitationStatusAccepted, g.ID, invitationID); err != nil {
		return nil, nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, false, err
	}

	inv.Status = models.InvitationStatusAccepted
	inv.GameID = sql.NullInt64{Int64: int64(g.ID), Valid: true}
	return &g, &inv, true, nil
}

// ListSentPendingInvitations returns a user's still-pending invitations as
// inviter, for the active_invitations frame sent on an invitations socket
// connect (SPEC_FULL §4.8).
func (s *Store) ListSentPendingInvitations(userID int) ([]models.Invitation, error) {
	out := []models.Invitation{}
	err := s.DB.Select(&out, `
		SELECT id, inviter_id, invitee_id, difficulty, status, game_id, created_at, responded_at
		FROM invitations WHERE inviter_id=$1 AND status=$2 ORDER BY created_at DESC
	`, userID, models.InvitationStatusPending)
	return out, err
}

// ListReceivedPendingInvitations returns a user's still-pending invitations
// as invitee, the other half of the active_invitations frame.
func (s *Store) ListReceivedPendingInvitations(userID int) ([]models.Invitation, error) {
	out := []models.Invitation{}
	err := s.DB.Select(&out, `
		SELECT id, inviter_id, invitee_id, difficulty, status, game_id, created_at, responded_at
		FROM invitations WHERE invitee_id=$1 AND status=$2 ORDER BY created_at DESC
	`, userID, models.InvitationStatusPending)
	return out, err
}

func (s *Store) ExpirePendingInvitations(maxAgeSeconds int) ([]models.Invitation, error) {
	var expired []models.Invitation
	err := s.DB.Select(&expired, `
		UPDATE invitations SET status=$1, responded_at=NOW()
		WHERE status=$2 AND created_at < NOW() - ($3 || ' seconds')::interval
		RETURNING id, inviter_id, invitee_id, difficulty, status, game_id, created_at, responded_at
	`, models.InvitationStatusExpired, models.InvitationStatusPending, maxAgeSeconds)
	return expired, err
}
