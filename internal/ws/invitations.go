package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/bus"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/invitation"
)

type sendInvitationData struct {
	InviteeID  int    `json:"invitee_id"`
	Difficulty string `json:"difficulty"`
}

type invitationIDData struct {
	InvitationID int `json:"invitation_id"`
}

// InvitationHandler serves /ws/invitations/ (SPEC_FULL §6): send/accept/
// decline/cancel direct challenges, with invitation_received/resolved
// delivered to this socket via the invitation.Service's per-user bus group.
func InvitationHandler(cfg *config.Config, inv *invitation.Service, hub *bus.Hub, upgrader websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := auth.FromQuery(cfg, c.Request)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] invitations upgrade error for user %d: %v", userID, err)
			return
		}

		connID := fmt.Sprintf("invitations:user:%d", userID)
		client := bus.NewClient(connID, conn)
		group := invitation.Group(userID)
		hub.GroupAdd(group, client)

		log.Printf("[WS] user %d connected to invitations", userID)

		go client.WritePump()
		client.Send(map[string]interface{}{"type": "connection_established"})

		sent, received, err := inv.ActiveInvitations(userID)
		if err != nil {
			log.Printf("[WS] active invitations lookup failed for user %d: %v", userID, err)
		} else {
			client.Send(map[string]interface{}{"type": "active_invitations", "sent": sent, "received": received})
		}

		ctx := c.Request.Context()
		conn.SetReadLimit(2048)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var msg InboundMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				continue
			}
			dispatchInvitationMessage(ctx, inv, client, userID, msg)
		}

		hub.GroupDiscard(group, client)
		client.Close()
		log.Printf("[WS] user %d disconnected from invitations", userID)
	}
}

func dispatchInvitationMessage(ctx context.Context, inv *invitation.Service, client *bus.Client, userID int, msg InboundMessage) {
	switch msg.Type {
	case "send":
		var data sendInvitationData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			client.Send(map[string]interface{}{"type": "error", "message": "invalid send payload"})
			return
		}
		created, err := inv.Send(ctx, userID, data.InviteeID, data.Difficulty)
		if err != nil {
			client.Send(map[string]interface{}{"type": "error", "message": err.Error()})
			return
		}
		client.Send(map[string]interface{}{"type": "invitation_sent", "invitation": created})

	case "accept":
		var data invitationIDData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			client.Send(map[string]interface{}{"type": "error", "message": "invalid accept payload"})
			return
		}
		if _, err := inv.Accept(ctx, data.InvitationID, userID); err != nil {
			client.Send(map[string]interface{}{"type": "error", "message": err.Error()})
		}

	case "decline":
		var data invitationIDData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			client.Send(map[string]interface{}{"type": "error", "message": "invalid decline payload"})
			return
		}
		if err := inv.Decline(ctx, data.InvitationID, userID); err != nil {
			client.Send(map[string]interface{}{"type": "error", "message": err.Error()})
		}

	case "cancel":
		var data invitationIDData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			client.Send(map[string]interface{}{"type": "error", "message": "invalid cancel payload"})
			return
		}
		if err := inv.Cancel(ctx, data.InvitationID, userID); err != nil {
			client.Send(map[string]interface{}{"type": "error", "message": err.Error()})
		}

	case "ping":

	default:
		client.Send(map[string]interface{}{"type": "error", "message": "unknown message type: " + msg.Type})
	}
}
