package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nakatash/pokeca-search/internal/config"
)

// RequireCronSecret guards the trigger endpoints. A request passes with
// "Authorization: Bearer <cron_secret>", from a loopback address when
// allow_local is set, or outside production when no secret is configured.
func RequireCronSecret(auth config.AuthConfig, production bool, logger *zap.Logger) gin.HandlerFunc {
	secret := strings.TrimSpace(auth.CronSecret)
	return func(c *gin.Context) {
		if secret != "" && validBearer(c.GetHeader("Authorization"), secret) {
			c.Next()
			return
		}
		if auth.AllowLocal && isLoopback(c.RemoteIP()) {
			c.Next()
			return
		}
		if secret == "" && !production {
			c.Next()
			return
		}
		if logger != nil {
			logger.Warn("unauthorized trigger request",
				zap.String("path", c.Request.URL.Path),
				zap.String("remote_ip", c.RemoteIP()),
			)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}

func validBearer(header, secret string) bool {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

func isLoopback(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	return parsed != nil && parsed.IsLoopback()
}
