package http

import (
	"SurfSense/internal/config"
	jwtMiddleware "SurfSense/internal/middleware/jwt"
	indexingHandler "SurfSense/internal/modules/indexing/interface/http"
	"SurfSense/pkg/ssl"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewEngine 组装 gin 路由；文档与检索接口均需要 JWT
func NewEngine(conf *config.Config, documentH *indexingHandler.DocumentHandler) *gin.Engine {
	ge := gin.New()
	ge.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	ge.Use(cors.New(corsConfig))
	if conf.MainConfig.EnableTLS {
		ge.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))
	}

	ge.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authed := ge.Group("/")
	authed.Use(jwtMiddleware.Auth(conf.JwtConfig))
	authed.GET("/auth/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"uuid":     c.GetString("uuid"),
			"username": c.GetString("username"),
		})
	})
	documentH.RegisterRoutes(authed)
	return ge
}
