package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/InviteTracker/internal/platform"
	"github.com/Gopher0727/InviteTracker/internal/services"
)

type InviteHandler struct {
	InviteService *services.InviteService
}

func NewInviteHandler(inviteService *services.InviteService) *InviteHandler {
	return &InviteHandler{
		InviteService: inviteService,
	}
}

// ListInvites 获取某 Guild 的实时邀请列表
func (h *InviteHandler) ListInvites(c *gin.Context) {
	guildID := c.Param("guild_id")
	if guildID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的服务器ID"})
		return
	}

	infos, err := h.InviteService.ListInvites(c.Request.Context(), guildID)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "服务器不存在"})
		} else {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"guild_id": guildID, "invites": infos})
}

// GetInvite 按邀请码获取单条邀请信息
func (h *InviteHandler) GetInvite(c *gin.Context) {
	guildID := c.Param("guild_id")
	code := c.Param("code")
	if guildID == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	info, err := h.InviteService.GetInvite(c.Request.Context(), guildID, code)
	if err != nil {
		if errors.Is(err, services.ErrInviteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else if errors.Is(err, platform.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "服务器不存在"})
		} else {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, info)
}

// Leaderboard 获取邀请排行榜
func (h *InviteHandler) Leaderboard(c *gin.Context) {
	guildID := c.Param("guild_id")
	if guildID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的服务器ID"})
		return
	}

	entries, err := h.InviteService.TopInviters(c.Request.Context(), guildID)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "服务器不存在"})
		} else {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"guild_id": guildID, "leaderboard": entries})
}

// MemberInvites 统计某成员的邀请码和总使用次数
func (h *InviteHandler) MemberInvites(c *gin.Context) {
	guildID := c.Param("guild_id")
	userID := c.Param("user_id")
	if guildID == "" || userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	resp, err := h.InviteService.MemberInvites(c.Request.Context(), guildID, userID)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "服务器不存在"})
		} else {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RecentJoins 获取某 Guild 最近的加入归因记录，支持分页
func (h *InviteHandler) RecentJoins(c *gin.Context) {
	guildID := c.Param("guild_id")
	if guildID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的服务器ID"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	events, err := h.InviteService.RecentJoins(guildID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"guild_id": guildID, "joins": events})
}
