package ws

import (
	"context"
	"encoding/json"
	"sync"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisChannelName = "invites:broadcast"
)

// Hub 维护活跃的客户端连接并按 Guild 推送归因通知
type Hub struct {
	// 注册的客户端
	clients map[*Client]bool

	// 房间对应的客户端集合 GuildID -> Client -> bool
	rooms map[string]map[*Client]bool

	// 互斥锁，保护 map 的并发读写
	mu sync.RWMutex

	// 注册请求通道
	register chan *Client

	// 注销请求通道
	unregister chan *Client

	// 广播消息通道（内部使用）
	broadcast chan *BroadcastMessage

	// 订阅变更通道
	subscribe chan *subscription

	// Redis 客户端，用于分布式广播
	redis *redis.Client

	logger *zap.Logger
}

// BroadcastMessage 广播消息结构
type BroadcastMessage struct {
	GuildID string `json:"guild_id"`
	Message any    `json:"message"`
}

type subscription struct {
	client   *Client
	guildIDs []string
}

func NewHub(redisClient *redis.Client, logger *zap.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan *BroadcastMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan *subscription),
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		redis:      redisClient,
		logger:     logger,
	}
}

func (h *Hub) Run() {
	// 启动 Redis 订阅协程
	if h.redis != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.removeFromRooms(client)
			}
			h.mu.Unlock()

		case sub := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[sub.client]; ok {
				// 先清空旧订阅，再按新列表入房
				h.removeFromRooms(sub.client)
				sub.client.guildIDs = sub.guildIDs
				for _, guildID := range sub.guildIDs {
					if _, ok := h.rooms[guildID]; !ok {
						h.rooms[guildID] = make(map[*Client]bool)
					}
					h.rooms[guildID][sub.client] = true
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			// 收集需要关闭的客户端，避免在 RLock 中修改 map
			var closedClients []*Client

			if clients, ok := h.rooms[msg.GuildID]; ok {
				for client := range clients {
					select {
					case client.send <- msg:
					default:
						// 发送缓冲区满，标记为需要关闭
						closedClients = append(closedClients, client)
					}
				}
			}
			h.mu.RUnlock()

			if len(closedClients) > 0 {
				h.mu.Lock()
				for _, client := range closedClients {
					// Double check，防止已经处理过
					if _, ok := h.clients[client]; ok {
						close(client.send)
						delete(h.clients, client)
						h.removeFromRooms(client)
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// removeFromRooms 将客户端从其订阅的所有房间移除，调用方需持有写锁
func (h *Hub) removeFromRooms(client *Client) {
	for _, guildID := range client.guildIDs {
		if room, ok := h.rooms[guildID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, guildID)
			}
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.redis.Subscribe(ctx, redisChannelName)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for msg := range ch {
		var broadcastMsg BroadcastMessage
		if err := json.Unmarshal([]byte(msg.Payload), &broadcastMsg); err == nil {
			// 将从 Redis 收到的消息送入本地广播通道
			// 注意：这里不再 Publish 回 Redis，否则会死循环
			h.broadcast <- &broadcastMsg
		}
	}
}

// BroadcastToGuild 发送消息到指定 Guild 的所有订阅者
func (h *Hub) BroadcastToGuild(guildID string, message any) {
	msg := &BroadcastMessage{
		GuildID: guildID,
		Message: message,
	}

	if h.redis != nil {
		// 发布到 Redis，让所有实例（包括自己）通过订阅收到消息
		payload, err := json.Marshal(msg)
		if err == nil {
			h.redis.Publish(context.Background(), redisChannelName, payload)
		}
	} else {
		// 如果没有 Redis，回退到仅本地广播
		h.broadcast <- msg
	}
}
