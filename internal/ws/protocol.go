// Package ws implements the Game connection component (SPEC_FULL §2.G/4.2)
// and the matchmaking/invitation WS endpoints from §6: one goroutine per
// connection dispatching inbound message types and relaying outbound
// broadcasts, generalized from internal/ws/pool_handler.go's connect/
// dispatch/disconnect lifecycle.
package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/playpong/backend/internal/config"
)

// InboundMessage is the envelope every inbound WS frame is unmarshaled into
// first, mirroring internal/ws/handler.go's WSMessage.
type InboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewUpgrader builds a gorilla upgrader whose CheckOrigin is a second origin
// check at the library boundary, since Upgrade bypasses gin's own origin
// handling. In production it applies the same rule as
// internal/middleware.WebSocketCORSCheck (missing Origin or exactly
// FrontendURL); in development it accepts any origin, leaving the
// localhost-only restriction to the gin middleware that runs first.
func NewUpgrader(cfg *config.Config) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.Environment == "development" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || origin == cfg.FrontendURL
		},
	}
}

func closeWithCode(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
	conn.Close()
}
