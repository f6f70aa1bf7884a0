// Package audit persists a trail of mutating administrative requests.
package audit

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tenantgate/tenantgate/internal/http/middleware"
	"github.com/tenantgate/tenantgate/internal/models"
	"github.com/tenantgate/tenantgate/internal/settings"

	log "github.com/sirupsen/logrus"
)

// Recorder writes audit log rows.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Middleware records every mutating request after its handler finishes.
// Reads pass through untouched. A failed insert is logged and never
// affects the response; the trail is best effort.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Proxied traffic is not administrative; only the management
		// surfaces leave a trail.
		if strings.HasPrefix(c.Request.URL.Path, settings.GatewayRoutePrefix+"/") {
			c.Next()
			return
		}
		if !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		entry := models.AuditLog{
			RequestID:  middleware.GetRequestID(c),
			Username:   "guest",
			Action:     actionForMethod(c.Request.Method),
			Resource:   resourceFromPath(c.Request.URL.Path),
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			Status:     c.Writer.Status(),
			DurationMS: time.Since(start).Milliseconds(),
			ClientIP:   c.ClientIP(),
		}
		if principal, ok := middleware.Principal(c); ok {
			tenantID := principal.TenantID
			userID := principal.UserID
			entry.TenantID = &tenantID
			entry.UserID = &userID
			entry.Username = principal.Username
		}
		if detail := detailFor(c); detail != nil {
			entry.Detail = datatypes.JSON(detail)
		}

		if errCreate := r.db.WithContext(c.Request.Context()).Create(&entry).Error; errCreate != nil {
			log.WithError(errCreate).WithField("path", entry.Path).Warn("audit: insert failed")
		}
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func actionForMethod(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	return strings.ToLower(method)
}

// resourceFromPath returns the first path segment, e.g. "admin" for
// /admin/tenants.
func resourceFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}

func detailFor(c *gin.Context) []byte {
	detail := map[string]string{
		"route": c.FullPath(),
	}
	if query := c.Request.URL.RawQuery; query != "" {
		detail["query"] = query
	}
	raw, errMarshal := json.Marshal(detail)
	if errMarshal != nil {
		return nil
	}
	return raw
}
