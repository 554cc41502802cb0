package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/bus"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/physics"
	"github.com/playpong/backend/internal/store"
)

type joinQueueData struct {
	Difficulty string `json:"difficulty"`
}

// MatchmakingHandler serves /ws/matchmaking/ (SPEC_FULL §6): a connection
// joins a per-user bus group so the Matchmaker's match_found notification
// reaches exactly this socket, and accepts join_queue/leave_queue messages.
func MatchmakingHandler(cfg *config.Config, st *store.Store, hub *bus.Hub, upgrader websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := auth.FromQuery(cfg, c.Request)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] matchmaking upgrade error for user %d: %v", userID, err)
			return
		}

		connID := fmt.Sprintf("matchmaking:user:%d", userID)
		client := bus.NewClient(connID, conn)
		group := fmt.Sprintf("matchmaking:%d", userID)
		hub.GroupAdd(group, client)

		log.Printf("[WS] user %d connected to matchmaking", userID)

		go client.WritePump()
		client.Send(map[string]interface{}{"type": "connection_established"})

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
			switch msg.Type {
			case "join_queue":
				var data joinQueueData
				if err := json.Unmarshal(msg.Data, &data); err != nil || !physics.ValidDifficulty(data.Difficulty) {
					client.Send(map[string]interface{}{"type": "error", "message": "invalid difficulty"})
					continue
				}
				if _, err := st.Enqueue(userID, data.Difficulty); err != nil {
					log.Printf("[WS] enqueue failed for user %d: %v", userID, err)
					client.Send(map[string]interface{}{"type": "error", "message": "failed to join queue"})
					continue
				}
				client.Send(map[string]interface{}{"type": "queue_joined", "difficulty": data.Difficulty})
			case "leave_queue":
				if err := st.CancelQueueEntry(userID); err != nil {
					log.Printf("[WS] cancel queue entry failed for user %d: %v", userID, err)
				}
				client.Send(map[string]interface{}{"type": "queue_left"})
			case "request_status":
				position, err := st.QueuePosition(userID)
				if err != nil {
					log.Printf("[WS] queue position lookup failed for user %d: %v", userID, err)
					client.Send(map[string]interface{}{"type": "error", "message": "failed to look up queue status"})
					continue
				}
				client.Send(map[string]interface{}{"type": "queue_status", "position": position})
			case "ping":
			default:
				client.Send(map[string]interface{}{"type": "error", "message": "unknown message type: " + msg.Type})
			}
		}

		hub.GroupDiscard(group, client)
		client.Close()
		if err := st.CancelQueueEntry(userID); err != nil {
			log.Printf("[WS] cancel queue entry on disconnect failed for user %d: %v", userID, err)
		}
		log.Printf("[WS] user %d disconnected from matchmaking", userID)
	}
}
