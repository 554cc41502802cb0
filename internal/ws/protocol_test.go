package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playpong/backend/internal/config"
)

func TestInboundMessageUnmarshalsTypeAndRawData(t *testing.T) {
	raw := []byte(`{"type":"paddle_move","data":{"y":0.5}}`)
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "paddle_move" {
		t.Errorf("Type = %q, want paddle_move", msg.Type)
	}
	var data struct {
		Y float64 `json:"y"`
	}
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Y != 0.5 {
		t.Errorf("Y = %v, want 0.5", data.Y)
	}
}

func TestNewUpgraderCheckOriginAllowsAnyOriginInDevelopment(t *testing.T) {
	cfg := &config.Config{Environment: "development"}
	upgrader := NewUpgrader(cfg)

	req := httptest.NewRequest(http.MethodGet, "/ws/game/1/", nil)
	req.Header.Set("Origin", "https://anything.example.com")

	if !upgrader.CheckOrigin(req) {
		t.Error("development CheckOrigin should allow any origin")
	}
}

func TestNewUpgraderCheckOriginMatchesFrontendInProduction(t *testing.T) {
	cfg := &config.Config{Environment: "production", FrontendURL: "https://play.example.com"}
	upgrader := NewUpgrader(cfg)

	matching := httptest.NewRequest(http.MethodGet, "/ws/game/1/", nil)
	matching.Header.Set("Origin", "https://play.example.com")
	if !upgrader.CheckOrigin(matching) {
		t.Error("production CheckOrigin should allow the configured frontend origin")
	}

	mismatched := httptest.NewRequest(http.MethodGet, "/ws/game/1/", nil)
	mismatched.Header.Set("Origin", "https://evil.example.com")
	if upgrader.CheckOrigin(mismatched) {
		t.Error("production CheckOrigin should reject an unrecognized origin")
	}

	noOrigin := httptest.NewRequest(http.MethodGet, "/ws/game/1/", nil)
	if !upgrader.CheckOrigin(noOrigin) {
		t.Error("production CheckOrigin should allow a request with no Origin header")
	}
}
