package routers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appconfig "github.com/Gopher0727/InviteTracker/config"
	"github.com/Gopher0727/InviteTracker/internal/handlers"
	"github.com/Gopher0727/InviteTracker/internal/services"
	"github.com/Gopher0727/InviteTracker/middleware/jwt"
	"github.com/Gopher0727/InviteTracker/pkg/middlewares"
	"github.com/Gopher0727/InviteTracker/pkg/ws"
	"github.com/Gopher0727/InviteTracker/utils/ratelimit"
)

// SetupRoutes 设置所有路由
func SetupRoutes(r *gin.Engine, cfg *appconfig.Config,
	inviteHandler *handlers.InviteHandler,
	keyHandler *handlers.KeyHandler,
	keyService *services.KeyService,
	tokenManager *jwt.TokenManager,
	limiter ratelimit.Limiter,
	hub *ws.Hub,
	logger *zap.Logger,
) {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-API-Key"}
	r.Use(cors.New(config))

	// WebSocket 路由，JWT 认证后升级连接
	r.GET("/ws", middlewares.AuthMiddleware(tokenManager), func(c *gin.Context) {
		ws.ServeWs(hub, logger, c)
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"Status": "OK",
		})
	})

	// 接口限流
	window := time.Duration(cfg.RateLimit.WindowSec) * time.Second
	r.Use(middlewares.RateLimitMiddleware(limiter, cfg.RateLimit.Limit, window))

	RegisterInviteRoutes(r, inviteHandler, keyService)
	RegisterKeyRoutes(r, keyHandler, tokenManager)
}

// InviteHandler 接口定义，数据查询统一走 API Key 认证
func RegisterInviteRoutes(r *gin.Engine, inviteHandler *handlers.InviteHandler, keyService *services.KeyService) {
	guildGroup := r.Group("/api/v1/guilds")
	guildGroup.Use(middlewares.APIKeyMiddleware(keyService))
	{
		guildGroup.GET("/:guild_id/invites", inviteHandler.ListInvites)                    // 实时邀请列表
		guildGroup.GET("/:guild_id/invites/:code", inviteHandler.GetInvite)                // 单条邀请信息
		guildGroup.GET("/:guild_id/leaderboard", inviteHandler.Leaderboard)                // 邀请排行榜
		guildGroup.GET("/:guild_id/members/:user_id/invites", inviteHandler.MemberInvites) // 成员邀请统计
		guildGroup.GET("/:guild_id/joins", inviteHandler.RecentJoins)                      // 最近加入记录
	}
}

// KeyHandler 接口定义，Key 管理走 JWT 认证
func RegisterKeyRoutes(r *gin.Engine, keyHandler *handlers.KeyHandler, tokenManager *jwt.TokenManager) {
	keyGroup := r.Group("/api/v1/keys")
	keyGroup.Use(middlewares.AuthMiddleware(tokenManager))
	{
		keyGroup.POST("", keyHandler.CreateKey)       // 签发新 Key
		keyGroup.GET("", keyHandler.ListKeys)         // 列出 Key
		keyGroup.DELETE("/:id", keyHandler.RevokeKey) // 吊销单条 Key
		keyGroup.DELETE("", keyHandler.RevokeAllKeys) // 吊销全部 Key
	}
}
