package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/InviteTracker/internal/services"
)

type KeyHandler struct {
	KeyService *services.KeyService
}

func NewKeyHandler(keyService *services.KeyService) *KeyHandler {
	return &KeyHandler{
		KeyService: keyService,
	}
}

// CreateKey 为当前用户签发一个新的 API Key，明文只在响应中出现一次
func (h *KeyHandler) CreateKey(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未授权访问"})
		return
	}

	var req struct {
		Name   string `json:"name" binding:"required"`
		Prefix string `json:"prefix" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	plain, key, err := h.KeyService.Create(userID.(string), req.Name, req.Prefix)
	if err != nil {
		if errors.Is(err, services.ErrTooManyKeys) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		} else if errors.Is(err, services.ErrInvalidPrefix) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         key.ID,
		"name":       key.Name,
		"prefix":     key.Prefix,
		"key":        plain,
		"expires_at": key.ExpiresAt,
	})
}

// ListKeys 列出当前用户的全部 Key（不含明文和哈希）
func (h *KeyHandler) ListKeys(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未授权访问"})
		return
	}

	keys, err := h.KeyService.List(userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type keyView struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Prefix    string `json:"prefix"`
		ExpiresAt any    `json:"expires_at"`
		CreatedAt any    `json:"created_at"`
	}
	views := make([]keyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, keyView{
			ID:        k.ID,
			Name:      k.Name,
			Prefix:    k.Prefix,
			ExpiresAt: k.ExpiresAt,
			CreatedAt: k.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"keys": views})
}

// RevokeKey 吊销当前用户的一条 Key
func (h *KeyHandler) RevokeKey(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未授权访问"})
		return
	}

	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 Key ID"})
		return
	}

	if err := h.KeyService.Revoke(userID.(string), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "已吊销"})
}

// RevokeAllKeys 吊销当前用户的全部 Key
func (h *KeyHandler) RevokeAllKeys(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未授权访问"})
		return
	}

	if err := h.KeyService.RevokeAll(userID.(string)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "已全部吊销"})
}
