package audit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tenantgate/tenantgate/internal/http/middleware"
	"github.com/tenantgate/tenantgate/internal/models"
	"github.com/tenantgate/tenantgate/internal/security"
)

func newAuditEngine(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.AuditLog{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(NewRecorder(conn).Middleware())
	engine.Use(func(c *gin.Context) {
		middleware.SetPrincipal(c, security.Principal{
			UserID: 4, TenantID: 2, Username: "boss", Role: security.RoleAdmin,
		})
		c.Next()
	})
	engine.POST("/admin/tenants", func(c *gin.Context) { c.JSON(http.StatusCreated, gin.H{}) })
	engine.GET("/admin/tenants", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
	engine.POST("/api/v1/orders/items", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
	return conn, engine
}

func TestAuditRecordsMutatingRequest(t *testing.T) {
	conn, engine := newAuditEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/tenants", strings.NewReader("{}"))
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)

	var entries []models.AuditLog
	if errFind := conn.Find(&entries).Error; errFind != nil {
		t.Fatalf("find entries: %v", errFind)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Action != "create" || entry.Resource != "admin" || entry.Method != http.MethodPost {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Status != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", entry.Status)
	}
	if entry.Username != "boss" || entry.UserID == nil || *entry.UserID != 4 {
		t.Fatalf("expected acting user recorded, got %+v", entry)
	}
	if entry.RequestID == "" {
		t.Fatalf("expected request id recorded")
	}
}

func TestAuditSkipsReadsAndProxiedTraffic(t *testing.T) {
	conn, engine := newAuditEngine(t)

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/tenants", nil))
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/orders/items", strings.NewReader("{}")))

	var count int64
	conn.Model(&models.AuditLog{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no audit entries, got %d", count)
	}
}
