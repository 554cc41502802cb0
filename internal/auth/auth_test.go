package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/playpong/backend/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret"}
}

func TestHashAndCheckPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse battery staple") {
		t.Error("CheckPassword should accept the password it was hashed from")
	}
	if CheckPassword(hash, "wrong password") {
		t.Error("CheckPassword should reject a mismatched password")
	}
}

func TestIssueAndVerifyTokenRoundTrip(t *testing.T) {
	cfg := testConfig()

	token, err := IssueToken(cfg, 42)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	userID, err := VerifyToken(cfg, token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if userID != 42 {
		t.Errorf("VerifyToken returned user_id %d, want 42", userID)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	cfg := testConfig()
	token, _ := IssueToken(cfg, 1)

	otherCfg := &config.Config{JWTSecret: "a-different-secret"}
	if _, err := VerifyToken(otherCfg, token); err == nil {
		t.Error("VerifyToken should reject a token signed with a different secret")
	}
}

func TestVerifyTokenRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	claims := jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(-time.Hour).Unix()}
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := expired.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("signing expired token: %v", err)
	}

	if _, err := VerifyToken(cfg, signed); err == nil {
		t.Error("VerifyToken should reject an expired token")
	}
}

func TestVerifyTokenRejectsUnsupportedSigningMethod(t *testing.T) {
	cfg := testConfig()
	claims := jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(time.Hour).Unix()}
	none := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none-alg token: %v", err)
	}

	if _, err := VerifyToken(cfg, signed); err == nil {
		t.Error("VerifyToken should reject a token signed with alg=none")
	}
}

func TestMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	router := gin.New()
	router.GET("/protected", Middleware(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt("user_id")})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing header: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewareAcceptsValidBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	token, _ := IssueToken(cfg, 7)

	router := gin.New()
	router.GET("/protected", Middleware(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt("user_id")})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestFromQueryReadsTokenParam(t *testing.T) {
	cfg := testConfig()
	token, _ := IssueToken(cfg, 9)

	req := httptest.NewRequest(http.MethodGet, "/ws/game/1/?token="+token, nil)
	userID, err := FromQuery(cfg, req)
	if err != nil {
		t.Fatalf("FromQuery: %v", err)
	}
	if userID != 9 {
		t.Errorf("FromQuery user_id = %d, want 9", userID)
	}
}

func TestFromQueryRejectsMissingToken(t *testing.T) {
	cfg := testConfig()
	req := httptest.NewRequest(http.MethodGet, "/ws/game/1/", nil)
	if _, err := FromQuery(cfg, req); err == nil {
		t.Error("FromQuery should reject a request with no token param")
	}
}
