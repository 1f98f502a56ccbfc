package jwt

import (
	"strings"

	"SurfSense/internal/config"
	"SurfSense/pkg/back"
	"SurfSense/pkg/util/myjwt"
	"SurfSense/pkg/xerr"
	"SurfSense/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Auth 校验 Bearer token，并把 uuid / username 写入 gin.Context
func Auth(conf config.JwtConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			back.Error(c, xerr.Unauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}

		claims, err := myjwt.ParseToken(conf, strings.TrimSpace(tokenString))
		if err != nil {
			zlog.Debug("reject token", zap.String("path", c.FullPath()), zap.Error(err))
			back.Error(c, xerr.Unauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("uuid", claims.Uuid)
		c.Set("username", claims.Username)
		c.Next()
	}
}
