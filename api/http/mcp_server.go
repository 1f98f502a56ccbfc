package http

import (
	"net/http"

	"SurfSense/internal/config"
	jwtMiddleware "SurfSense/internal/middleware/jwt"

	"github.com/gin-gonic/gin"
)

// MCP SSE 默认端点
const (
	mcpSSEPath     = "/sse"
	mcpMessagePath = "/message"
)

// NewMCPEngine 把 MCP SSE 端点挂到 JWT 之后，与文档接口使用同一套 token
func NewMCPEngine(conf *config.Config, sse http.Handler) *gin.Engine {
	ge := gin.New()
	ge.Use(gin.Recovery())

	authed := ge.Group("/")
	authed.Use(jwtMiddleware.Auth(conf.JwtConfig))
	authed.GET(mcpSSEPath, gin.WrapH(sse))
	authed.POST(mcpMessagePath, gin.WrapH(sse))
	return ge
}
