package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tenantgate/tenantgate/internal/config"
	"github.com/tenantgate/tenantgate/internal/security"
)

func newAuthEngine(jwtCfg config.JWTConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Auth(jwtCfg))
	engine.GET("/whoami", func(c *gin.Context) {
		principal, ok := Principal(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no principal"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": principal.Username})
	})
	return engine
}

func TestAuthRejectsMissingToken(t *testing.T) {
	engine := newAuthEngine(config.JWTConfig{Secret: "s", Expiry: time.Hour})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	engine := newAuthEngine(config.JWTConfig{Secret: "s", Expiry: time.Hour})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestAuthAcceptsValidToken(t *testing.T) {
	engine := newAuthEngine(config.JWTConfig{Secret: "s", Expiry: time.Hour})

	token, errToken := security.GenerateToken("s", time.Hour, security.Principal{
		UserID: 1, TenantID: 1, Username: "alice", Role: security.RoleUser,
	})
	if errToken != nil {
		t.Fatalf("generate token: %v", errToken)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestRequestIDAssignsAndEchoes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	var seen string
	engine.GET("/", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Fatalf("expected request id assigned")
	}
	if got := recorder.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("expected response header %q, got %q", seen, got)
	}
}

func TestRequestIDKeepsInboundID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	if got := recorder.Header().Get("X-Request-ID"); got != "upstream-id" {
		t.Fatalf("expected inbound id kept, got %q", got)
	}
}
