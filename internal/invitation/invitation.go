// Package invitation implements the Invitation service (SPEC_FULL §2.I/4.8):
// a send/accept/decline/cancel/expire state machine for direct challenges
// between two known users, grounded in internal/api/handlers/game.go's
// match-code invite/decline flow but generalized from phone-number invites
// into user-id invites with a ticker-driven TTL sweep in the idiom of
// internal/game/idle_worker.go.
package invitation

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/playpong/backend/internal/apierr"
	"github.com/playpong/backend/internal/bus"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/models"
	"github.com/playpong/backend/internal/notify"
	"github.com/playpong/backend/internal/physics"
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

// Group is the bus group a user's /ws/invitations/ connection joins.
func Group(userID int) string { return "invitations:" + strconv.Itoa(userID) }

// Send creates a pending Invitation and notifies the invitee, after checking
// the invitee isn't already tied up in a live game or the matchmaking queue
// (SPEC_FULL §4.8's send preconditions).
func (s *Service) Send(ctx context.Context, inviterID, inviteeID int, difficulty string) (*models.Invitation, error) {
	if inviterID == inviteeID {
		return nil, apierr.Validation("cannot invite yourself")
	}
	if !physics.ValidDifficulty(difficulty) {
		return nil, apierr.Validation("unknown difficulty")
	}

	inGame, err := s.store.UserInActiveGame(inviteeID)
	if err != nil {
		return nil, apierr.Persistence("check active game failed", err)
	}
	if inGame {
		return nil, apierr.Conflict("invitee is already in an active game")
	}
	inQueue, err := s.store.UserInMatchmakingQueue(inviteeID)
	if err != nil {
		return nil, apierr.Persistence("check matchmaking queue failed", err)
	}
	if inQueue {
		return nil, apierr.Conflict("invitee is already in the matchmaking queue")
	}

	inv, err := s.store.CreateInvitation(inviterID, inviteeID, difficulty)
	if err != nil {
		return nil, apierr.Persistence("create invitation failed", err)
	}
	payload := map[string]interface{}{"type": "invitation_received", "invitation": inv}
	s.publish(ctx, inviteeID, payload)
	notify.Default.Notify(inviteeID, "invitation_received", payload)
	return inv, nil
}

// Accept resolves a pending invitation, creates the Game and its Room, and
// notifies both users. It is atomic (store.AcceptInvitation runs the
// resolve-and-create in a single transaction) and idempotent: re-accepting
// an already-accepted invitation returns the original game with
// already_accepted=true instead of erroring (SPEC_FULL §4.8, property 8).
// Any other non-pending status is still a Conflict.
func (s *Service) Accept(ctx context.Context, invitationID, userID int) (*models.Game, error) {
	game, inv, created, err := s.store.AcceptInvitation(invitationID, userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, apierr.Validation("invitation not found")
		case errors.Is(err, store.ErrNotInvitee):
			return nil, apierr.Authz("not the invitee")
		case errors.Is(err, store.ErrInvitationResolved):
			return nil, apierr.Conflict("invitation already resolved")
		default:
			return nil, apierr.Persistence("accept invitation failed", err)
		}
	}

	if created {
		s.reg.GetOrCreate(game.ID, func() registry.Room {
			return room.New(s.cfg, s.store, s.hub, s.relay, s.reg, game.ID, inv.InviterID, inv.InviteeID, inv.Difficulty)
		})
	}

	payload := map[string]interface{}{
		"type": "invitation_resolved", "invitation_id": invitationID,
		"status": models.InvitationStatusAccepted, "game_id": game.ID, "already_accepted": !created,
	}
	s.publish(ctx, inv.InviterID, payload)
	s.publish(ctx, inv.InviteeID, payload)
	return game, nil
}

// Decline resolves a pending invitation as declined by its invitee.
func (s *Service) Decline(ctx context.Context, invitationID, userID int) error {
	return s.resolveByInvitee(ctx, invitationID, userID, models.InvitationStatusDeclined)
}

// Cancel resolves a pending invitation as cancelled by its inviter.
func (s *Service) Cancel(ctx context.Context, invitationID, userID int) error {
	inv, err := s.store.GetInvitation(invitationID)
	if err != nil {
		return apierr.Validation("invitation not found")
	}
	if inv.InviterID != userID {
		return apierr.Authz("not the inviter")
	}
	ok, err := s.store.ResolveInvitation(invitationID, models.InvitationStatusCancelled, nil)
	if err != nil {
		return apierr.Persistence("resolve invitation failed", err)
	}
	if !ok {
		return apierr.Conflict("invitation already resolved")
	}
	s.publish(ctx, inv.InviteeID, map[string]interface{}{"type": "invitation_resolved", "invitation_id": invitationID, "status": models.InvitationStatusCancelled})
	return nil
}

func (s *Service) resolveByInvitee(ctx context.Context, invitationID, userID int, status string) error {
	inv, err := s.store.GetInvitation(invitationID)
	if err != nil {
		return apierr.Validation("invitation not found")
	}
	if inv.InviteeID != userID {
		return apierr.Authz("not the invitee")
	}
	ok, err := s.store.ResolveInvitation(invitationID, status, nil)
	if err != nil {
		return apierr.Persistence("resolve invitation failed", err)
	}
	if !ok {
		return apierr.Conflict("invitation already resolved")
	}
	s.publish(ctx, inv.InviterID, map[string]interface{}{"type": "invitation_resolved", "invitation_id": invitationID, "status": status})
	return nil
}

// ActiveInvitations returns a user's still-pending invitations split by
// direction, for the active_invitations frame sent on an invitations socket
// connect (SPEC_FULL §4.8).
func (s *Service) ActiveInvitations(userID int) (sent, received []models.Invitation, err error) {
	sent, err = s.store.ListSentPendingInvitations(userID)
	if err != nil {
		return nil, nil, apierr.Persistence("list sent invitations failed", err)
	}
	received, err = s.store.ListReceivedPendingInvitations(userID)
	if err != nil {
		return nil, nil, apierr.Persistence("list received invitations failed", err)
	}
	return sent, received, nil
}

func (s *Service) publish(ctx context.Context, userID int, payload interface{}) {
	group := Group(userID)
	if s.relay != nil {
		if err := s.relay.Publish(ctx, group, payload); err != nil {
			log.Printf("[INVITE] user %d: %v", userID, apierr.Transient("relay publish failed", err))
		}
		return
	}
	s.hub.GroupSend(group, payload)
}

// RunExpirySweep periodically expires invitations past INVITATION_TTL_SECONDS,
// mirroring internal/game/idle_worker.go's ticker-driven sweep idiom.
func (s *Service) RunExpirySweep(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	log.Printf("[INVITE] expiry sweep started (ttl=%ds)", s.cfg.InvitationTTLSeconds)

	for {
		select {
		case <-ctx.Done():
			log.Println("[INVITE] expiry sweep stopping")
			return
		case <-ticker.C:
			expired, err := s.store.ExpirePendingInvitations(s.cfg.InvitationTTLSeconds)
			if err != nil {
				log.Printf("[INVITE] expiry sweep failed: %v", err)
				continue
			}
			for _, inv := range expired {
				payload := map[string]interface{}{"type": "invitation_resolved", "invitation_id": inv.ID, "status": models.InvitationStatusExpired}
				s.publish(ctx, inv.InviterID, payload)
				s.publish(ctx, inv.InviteeID, payload)
			}
		}
	}
}
