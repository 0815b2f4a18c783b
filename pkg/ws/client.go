package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second    // 允许写入消息到对端的最大时间
	pongWait       = 60 * time.Second    // 允许读取下一个 pong 消息的最大时间
	pingPeriod     = (pongWait * 9) / 10 // 发送 ping 到对端的周期。必须小于 pongWait
	maxMessageSize = 4096                // 允许来自对端的最大消息大小
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client 代表一个订阅归因通知的 WebSocket 连接
type Client struct {
	hub      *Hub
	conn     *websocket.Conn        // WebSocket 连接
	send     chan *BroadcastMessage // 缓冲通道，用于发送消息
	userID   string                 // 用户 ID
	guildIDs []string               // 已订阅的 Guild ID 列表，由 Hub 的 subscribe 分支维护
	logger   *zap.Logger
}

// readPump 读取客户端发来的订阅请求并转交给 Hub
// 客户端发送 JSON: {"guild_ids": ["123", "456"]}
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", zap.String("user_id", c.userID), zap.Error(err))
			}
			break
		}

		var req struct {
			GuildIDs []string `json:"guild_ids"`
		}
		if err := json.Unmarshal(message, &req); err != nil {
			c.logger.Warn("invalid subscribe payload", zap.String("user_id", c.userID), zap.Error(err))
			continue
		}

		c.hub.subscribe <- &subscription{client: c, guildIDs: req.GuildIDs}
	}
}

// writePump 将 Hub 分发的通知写入 WebSocket 连接
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			json.NewEncoder(w).Encode(msg)

			// 批量写出队列中剩余的消息（如果有）
			n := len(c.send)
			for range n {
				json.NewEncoder(w).Encode(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs 处理 WebSocket 升级请求，要求上游中间件已注入 user_id
func ServeWs(hub *Hub, logger *zap.Logger, c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未授权"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan *BroadcastMessage, 256),
		userID: userID.(string),
		logger: logger,
	}
	client.hub.register <- client
	go client.writePump()
	go client.readPump()
}
