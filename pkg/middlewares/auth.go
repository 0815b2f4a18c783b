package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/InviteTracker/internal/services"
	"github.com/Gopher0727/InviteTracker/middleware/jwt"
)

// AuthMiddleware JWT 认证中间件
// 用于 WebSocket 握手与 Key 管理接口
func AuthMiddleware(tm *jwt.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		// 1. 尝试从请求头获取 token
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			// 解析 Bearer token
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}

		// 2. 如果请求头没有，尝试从 Query 参数获取 (主要用于 WebSocket)
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			c.JSON(
				http.StatusUnauthorized,
				gin.H{"error": "未提供认证 Token"},
			)
			c.Abort()
			return
		}

		claims, err := tm.ParseToken(token)
		if err != nil {
			c.JSON(
				http.StatusUnauthorized,
				gin.H{"error": "无效或过期的 Token"},
			)
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_name", claims.UserName)
		c.Next()
	}
}

// APIKeyMiddleware API Key 认证中间件
// 数据查询接口走 X-API-Key 头认证
func APIKeyMiddleware(keyService *services.KeyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		plain := c.GetHeader("X-API-Key")
		if plain == "" {
			c.JSON(
				http.StatusUnauthorized,
				gin.H{"error": "未提供 API Key"},
			)
			c.Abort()
			return
		}

		key, err := keyService.Verify(plain)
		if err != nil {
			status := http.StatusUnauthorized
			msg := "无效的 API Key"
			if err == services.ErrExpiredKey {
				msg = "API Key 已过期"
			}
			c.JSON(status, gin.H{"error": msg})
			c.Abort()
			return
		}

		c.Set("user_id", key.UserID)
		c.Set("api_key_id", key.ID)
		c.Next()
	}
}
