package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tenantgate/tenantgate/internal/config"
	"github.com/tenantgate/tenantgate/internal/db"
	"github.com/tenantgate/tenantgate/internal/models"
	"github.com/tenantgate/tenantgate/internal/ratelimit"
	"github.com/tenantgate/tenantgate/internal/security"
	"github.com/tenantgate/tenantgate/internal/settings"

	"gorm.io/gorm"
)

const testSecret = "test-secret"

type testEnv struct {
	conn   *gorm.DB
	engine *gin.Engine
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := db.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	env := &testEnv{
		conn: conn,
		now:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	limiter := ratelimit.NewManager(func() config.RedisConfig {
		return config.RedisConfig{}
	}, settings.RateLimitWindow, func() time.Time { return env.now }, nil)

	jwtCfg := config.JWTConfig{Secret: testSecret, Expiry: time.Hour}
	proxyCfg := config.ProxyConfig{Timeout: 5 * time.Second}
	env.engine = NewRouter(conn, jwtCfg, proxyCfg, limiter)
	return env
}

func (e *testEnv) createUser(t *testing.T, tenantID uint64, username string, role security.Role) *models.User {
	t.Helper()
	hash, errHash := security.HashPassword("Str0ng&pass")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	user := models.User{
		Username: username,
		Password: hash,
		Role:     role.String(),
		TenantID: tenantID,
		Active:   true,
	}
	if errCreate := e.conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	return &user
}

func (e *testEnv) createService(t *testing.T, tenantID uint64, version, name, target string, rateLimit int) *models.Service {
	t.Helper()
	service := models.Service{
		TenantID:  tenantID,
		Version:   version,
		Name:      name,
		Target:    target,
		RateLimit: rateLimit,
	}
	if errCreate := e.conn.Create(&service).Error; errCreate != nil {
		t.Fatalf("create service: %v", errCreate)
	}
	return &service
}

func (e *testEnv) grant(t *testing.T, tenantID, userID, serviceID uint64) {
	t.Helper()
	permission := models.Permission{TenantID: tenantID, UserID: userID, ServiceID: serviceID}
	if errCreate := e.conn.Create(&permission).Error; errCreate != nil {
		t.Fatalf("create permission: %v", errCreate)
	}
}

func (e *testEnv) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	role, _ := security.ParseRole(user.Role)
	token, errToken := security.GenerateToken(testSecret, time.Hour, security.Principal{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Username: user.Username,
		Role:     role,
	})
	if errToken != nil {
		t.Fatalf("generate token: %v", errToken)
	}
	return token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	e.engine.ServeHTTP(recorder, req)
	return recorder
}

func TestGatewayRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodGet, "/api/v1/orders/items", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestGatewayUnknownService(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 1, "alice", security.RoleUser)

	resp := env.do(http.MethodGet, "/api/v1/orders/items", env.tokenFor(t, user), nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestGatewayDeniesWithoutPermission(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 1, "alice", security.RoleUser)
	env.createService(t, 1, "v1", "orders", "http://127.0.0.1:1", 100)

	resp := env.do(http.MethodGet, "/api/v1/orders/items", env.tokenFor(t, user), nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestGatewayForwardsWithPermission(t *testing.T) {
	env := newTestEnv(t)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "upstream saw %s", r.URL.Path)
	}))
	defer upstream.Close()

	user := env.createUser(t, 1, "alice", security.RoleUser)
	service := env.createService(t, 1, "v1", "orders", upstream.URL, 100)
	env.grant(t, 1, user.ID, service.ID)

	resp := env.do(http.MethodGet, "/api/v1/orders/items/5", env.tokenFor(t, user), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Body.String() != "upstream saw /items/5" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
}

func TestGatewayEnforcesRateLimit(t *testing.T) {
	env := newTestEnv(t)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	user := env.createUser(t, 1, "alice", security.RoleUser)
	service := env.createService(t, 1, "v1", "orders", upstream.URL, 2)
	env.grant(t, 1, user.ID, service.ID)
	token := env.tokenFor(t, user)

	for i := 0; i < 2; i++ {
		resp := env.do(http.MethodGet, "/api/v1/orders/items", token, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected request %d allowed, got %d", i+1, resp.Code)
		}
	}

	resp := env.do(http.MethodGet, "/api/v1/orders/items", token, nil)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on 429")
	}

	// The next window restores the full quota.
	env.now = env.now.Add(settings.RateLimitWindow)
	resp = env.do(http.MethodGet, "/api/v1/orders/items", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected fresh window allowed, got %d", resp.Code)
	}
}

func TestGatewayOverrideReplacesServiceDefault(t *testing.T) {
	env := newTestEnv(t)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	user := env.createUser(t, 1, "alice", security.RoleUser)
	service := env.createService(t, 1, "v1", "orders", upstream.URL, 100)
	env.grant(t, 1, user.ID, service.ID)
	override := models.RateLimitOverride{TenantID: 1, UserID: user.ID, ServiceID: service.ID, RateLimit: 1}
	if errCreate := env.conn.Create(&override).Error; errCreate != nil {
		t.Fatalf("create override: %v", errCreate)
	}
	token := env.tokenFor(t, user)

	if resp := env.do(http.MethodGet, "/api/v1/orders/items", token, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", resp.Code)
	}
	if resp := env.do(http.MethodGet, "/api/v1/orders/items", token, nil); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected override of 1 to reject second request, got %d", resp.Code)
	}
}

func TestGatewayDenialDoesNotConsumeQuota(t *testing.T) {
	env := newTestEnv(t)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	user := env.createUser(t, 1, "alice", security.RoleUser)
	service := env.createService(t, 1, "v1", "orders", upstream.URL, 1)
	token := env.tokenFor(t, user)

	// Denied before the rate gate; must not touch the counter.
	for i := 0; i < 3; i++ {
		resp := env.do(http.MethodGet, "/api/v1/orders/items", token, nil)
		if resp.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", resp.Code)
		}
	}

	// With the grant in place the full limit of 1 is still available.
	env.grant(t, 1, user.ID, service.ID)
	resp := env.do(http.MethodGet, "/api/v1/orders/items", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected denied requests not to consume quota, got %d", resp.Code)
	}
}

func TestGatewayPrivilegedBypass(t *testing.T) {
	env := newTestEnv(t)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	admin := env.createUser(t, 1, "boss", security.RoleAdmin)
	env.createService(t, 1, "v1", "orders", upstream.URL, 1)
	token := env.tokenFor(t, admin)

	// No grant, and far more requests than the limit.
	for i := 0; i < 5; i++ {
		resp := env.do(http.MethodGet, "/api/v1/orders/items", token, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected admin request %d to pass, got %d", i+1, resp.Code)
		}
	}
}

func TestGatewayDisabledTenant(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 1, "alice", security.RoleUser)
	env.createService(t, 1, "v1", "orders", "http://127.0.0.1:1", 100)
	token := env.tokenFor(t, user)

	if errUpdate := env.conn.Model(&models.Tenant{}).Where("id = ?", 1).Update("active", false).Error; errUpdate != nil {
		t.Fatalf("disable tenant: %v", errUpdate)
	}
	resp := env.do(http.MethodGet, "/api/v1/orders/items", token, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for disabled tenant, got %d", resp.Code)
	}
}

func TestGatewayUpstreamUnreachable(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 1, "alice", security.RoleUser)
	service := env.createService(t, 1, "v1", "orders", "http://127.0.0.1:1", 100)
	env.grant(t, 1, user.ID, service.ID)

	resp := env.do(http.MethodGet, "/api/v1/orders/items", env.tokenFor(t, user), nil)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestDocsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 1, "alice", security.RoleUser)
	token := env.tokenFor(t, user)

	env.createService(t, 1, "v1", "bare", "http://127.0.0.1:1", 100)
	resp := env.do(http.MethodGet, "/api/docs/v1/bare/swagger.json", token, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing doc, got %d", resp.Code)
	}

	corrupt := env.createService(t, 1, "v1", "corrupt", "http://127.0.0.1:1", 100)
	if errUpdate := env.conn.Model(corrupt).Update("swagger", "{not json").Error; errUpdate != nil {
		t.Fatalf("update swagger: %v", errUpdate)
	}
	resp = env.do(http.MethodGet, "/api/docs/v1/corrupt/swagger.json", token, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for corrupt doc, got %d", resp.Code)
	}

	documented := env.createService(t, 1, "v1", "documented", "http://127.0.0.1:1", 100)
	if errUpdate := env.conn.Model(documented).Update("swagger", `{"openapi":"3.0.0"}`).Error; errUpdate != nil {
		t.Fatalf("update swagger: %v", errUpdate)
	}
	resp = env.do(http.MethodGet, "/api/docs/v1/documented/swagger.json", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var doc map[string]any
	if errUnmarshal := json.Unmarshal(resp.Body.Bytes(), &doc); errUnmarshal != nil {
		t.Fatalf("expected valid JSON body, got %v", errUnmarshal)
	}
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, "alice", security.RoleUser)

	resp := env.do(http.MethodPost, "/auth/login", "", gin.H{
		"username": "alice", "password": "Str0ng&pass", "tenant": "default",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	if errUnmarshal := json.Unmarshal(resp.Body.Bytes(), &body); errUnmarshal != nil || body.Token == "" {
		t.Fatalf("expected token in response, got %s", resp.Body.String())
	}

	claims, errParse := security.ParseToken(testSecret, body.Token)
	if errParse != nil {
		t.Fatalf("expected issued token to verify, got %v", errParse)
	}
	principal, errPrincipal := claims.Principal()
	if errPrincipal != nil {
		t.Fatalf("expected principal, got %v", errPrincipal)
	}
	if principal.Username != "alice" || principal.TenantID != 1 || principal.Role != security.RoleUser {
		t.Fatalf("unexpected principal %+v", principal)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, "alice", security.RoleUser)

	resp := env.do(http.MethodPost, "/auth/login", "", gin.H{
		"username": "alice", "password": "wrong", "tenant": "default",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	resp = env.do(http.MethodPost, "/auth/login", "", gin.H{
		"username": "alice", "password": "Str0ng&pass", "tenant": "nowhere",
	})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown tenant, got %d", resp.Code)
	}

	resp = env.do(http.MethodPost, "/auth/login", "", gin.H{"username": "alice"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", resp.Code)
	}
}

func TestSeededSuperadminCanLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPost, "/auth/login", "", gin.H{
		"username": settings.DefaultSuperAdminUsername,
		"password": "supersecretpassword",
		"tenant":   settings.DefaultTenantName,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected seeded superadmin login, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRegisterRequiresSuperadmin(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, 1, "boss", security.RoleAdmin)

	resp := env.do(http.MethodPost, "/auth/register", env.tokenFor(t, admin), gin.H{
		"username": "newbie", "password": "Str0ng&pass", "role": "user",
	})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin, got %d", resp.Code)
	}
}

func TestRegisterCreatesUser(t *testing.T) {
	env := newTestEnv(t)
	super := env.createUser(t, 1, "root-1", security.RoleSuperAdmin)
	token := env.tokenFor(t, super)

	resp := env.do(http.MethodPost, "/auth/register", token, gin.H{
		"username": "newbie", "password": "Str0ng&pass", "role": "user",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = env.do(http.MethodPost, "/auth/register", token, gin.H{
		"username": "Newbie", "password": "Str0ng&pass", "role": "user",
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for case-insensitive duplicate, got %d", resp.Code)
	}

	resp = env.do(http.MethodPost, "/auth/register", token, gin.H{
		"username": "x", "password": "weak", "role": "boss",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for validation failure, got %d", resp.Code)
	}
}
