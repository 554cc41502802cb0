package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/playpong/backend/internal/config"
)

func newUpgradeRequest(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ws/game/1/", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func runCheck(cfg *config.Config, req *http.Request) int {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws/game/1/", WebSocketCORSCheck(cfg), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestWebSocketCORSCheckIgnoresNonUpgradeRequests(t *testing.T) {
	cfg := &config.Config{Environment: "production", FrontendURL: "https://play.example.com"}
	req := httptest.NewRequest(http.MethodGet, "/ws/game/1/", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	if code := runCheck(cfg, req); code != http.StatusOK {
		t.Errorf("non-upgrade request: status = %d, want %d", code, http.StatusOK)
	}
}

func TestWebSocketCORSCheckAllowsLocalhostInDevelopment(t *testing.T) {
	cfg := &config.Config{Environment: "development"}
	req := newUpgradeRequest("http://localhost:5173")

	if code := runCheck(cfg, req); code != http.StatusOK {
		t.Errorf("dev localhost origin: status = %d, want %d", code, http.StatusOK)
	}
}

func TestWebSocketCORSCheckRejectsUnknownOriginInDevelopment(t *testing.T) {
	cfg := &config.Config{Environment: "development"}
	req := newUpgradeRequest("https://evil.example.com")

	if code := runCheck(cfg, req); code != http.StatusForbidden {
		t.Errorf("dev unknown origin: status = %d, want %d", code, http.StatusForbidden)
	}
}

func TestWebSocketCORSCheckOnlyAllowsConfiguredFrontendInProduction(t *testing.T) {
	cfg := &config.Config{Environment: "production", FrontendURL: "https://play.example.com"}

	if code := runCheck(cfg, newUpgradeRequest("https://play.example.com")); code != http.StatusOK {
		t.Errorf("matching frontend origin: status = %d, want %d", code, http.StatusOK)
	}
	if code := runCheck(cfg, newUpgradeRequest("https://evil.example.com")); code != http.StatusForbidden {
		t.Errorf("mismatched origin: status = %d, want %d", code, http.StatusForbidden)
	}
}

func TestWebSocketCORSCheckAllowsMissingOriginHeader(t *testing.T) {
	cfg := &config.Config{Environment: "production", FrontendURL: "https://play.example.com"}
	req := newUpgradeRequest("")

	if code := runCheck(cfg, req); code != http.StatusOK {
		t.Errorf("missing Origin header: status = %d, want %d", code, http.StatusOK)
	}
}
