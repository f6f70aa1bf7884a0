package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tenantgate/tenantgate/internal/config"
	"github.com/tenantgate/tenantgate/internal/security"
)

// principalKey is the gin context key holding the authenticated principal.
const principalKey = "tenantgate.principal"

// Auth validates the Bearer token on every request and stores the
// authenticated principal in the gin context. Requests without a valid
// token are rejected with 401 before any handler runs.
func Auth(jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, errParse := security.ParseToken(jwtCfg.Secret, raw)
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		principal, errPrincipal := claims.Principal()
		if errPrincipal != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// Principal returns the authenticated principal stored by Auth.
func Principal(c *gin.Context) (security.Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return security.Principal{}, false
	}
	principal, ok := value.(security.Principal)
	return principal, ok
}

// SetPrincipal injects a principal directly, bypassing token validation.
// Intended for tests.
func SetPrincipal(c *gin.Context, principal security.Principal) {
	c.Set(principalKey, principal)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
