package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/playpong/backend/internal/apierr"
	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/bus"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/models"
	"github.com/playpong/backend/internal/registry"
	"github.com/playpong/backend/internal/room"
	"github.com/playpong/backend/internal/store"
)

// Close codes from SPEC_FULL §4.2 that the handler uses directly rather than
// through apierr.WSCloseCode (not a player vs. game-not-found vs.
// game-already-finished are all distinct reasons a player can't join, not
// one generic authorization failure).
const (
	gameNotFoundCode  = 4004
	gameFinishedCode  = 4003
)

type paddleMoveData struct {
	Position float64 `json:"position"`
}

// GameHandler serves /ws/game/:game_id/ (SPEC_FULL §4.2): authenticates,
// verifies the caller is one of the game's two players, joins the room's
// bus group, and dispatches inbound paddle_move/start_game/next_match/ping
// messages for the lifetime of the connection.
func GameHandler(cfg *config.Config, st *store.Store, hub *bus.Hub, reg *registry.Registry, upgrader websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, err := strconv.Atoi(c.Param("game_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] game %d upgrade error: %v", gameID, err)
			return
		}

		userID, err := auth.FromQuery(cfg, c.Request)
		if err != nil {
			closeWithCode(conn, apierr.WSCloseCode(apierr.KindAuth), "authentication failed")
			return
		}

		game, err := st.GetGame(gameID)
		if err != nil {
			closeWithCode(conn, gameNotFoundCode, "game not found")
			return
		}
		if userID != game.Player1ID && userID != game.Player2ID {
			closeWithCode(conn, apierr.WSCloseCode(apierr.KindAuthz), "not a player in this game")
			return
		}
		if game.Status == models.GameStatusGameOver || game.Status == models.GameStatusCancelled {
			closeWithCode(conn, gameFinishedCode, "game already finished")
			return
		}

		r, ok := reg.Get(gameID)
		if !ok {
			closeWithCode(conn, gameNotFoundCode, "game room no longer active")
			return
		}
		activeRoom, ok := r.(*room.Room)
		if !ok {
			closeWithCode(conn, apierr.WSCloseCode(apierr.KindPersistence), "internal error")
			return
		}

		connID := room.ConnID(gameID, userID)
		client := bus.NewClient(connID, conn)
		group := room.GroupName(gameID)
		hub.GroupAdd(group, client)
		activeRoom.HandlePlayerConnect(userID)

		log.Printf("[WS] user %d connected to game %d", userID, gameID)

		go client.WritePump()
		client.Send(map[string]interface{}{"type": "connection_established", "game_id": gameID})
		client.Send(activeRoom.Snapshot(userID))

		readGameConn(conn, client, activeRoom, userID, gameID)

		hub.GroupDiscard(group, client)
		activeRoom.HandlePlayerDisconnect(userID)
		client.Close()
		log.Printf("[WS] user %d disconnected from game %d", userID, gameID)
	}
}

func readGameConn(conn *websocket.Conn, client *bus.Client, r *room.Room, userID, gameID int) {
	conn.SetReadLimit(4096)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			client.Send(map[string]interface{}{"type": "pong"})
			continue
		}
		if err := dispatchGameMessage(r, userID, msg); err != nil {
			if apierr.KindOf(err) != apierr.KindValidation {
				log.Printf("[WS] game %d user %d error: %v", gameID, userID, err)
			}
			client.Send(map[string]interface{}{"type": "error", "message": err.Error()})
		}
	}
}

func dispatchGameMessage(r *room.Room, userID int, msg InboundMessage) error {
	switch msg.Type {
	case "paddle_move":
		var data paddleMoveData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return apierr.Validation("invalid paddle_move data")
		}
		return r.ApplyPaddleMove(userID, data.Position)
	case "start_game":
		return r.HandleStartGame(userID)
	case "next_match":
		return r.HandleNextMatch(userID)
	case "ping":
		return nil
	default:
		return apierr.Validation("unknown message type: " + msg.Type)
	}
}
