// Package realtime 通过 WebSocket 向客户端推送新落库的消息
//
// 每个连接订阅一个会话；落库的 INSERT 先发布到 Redis 频道，
// 各实例的 Hub 订阅后再分发给本实例上匹配的连接，
// 多实例部署下每个连接恰好收到一次
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"brandchat/internal/model"
	"brandchat/internal/store"
)

// 事件类型
const (
	EventInsert   = "insert"   // 新消息落库
	EventSnapshot = "snapshot" // 订阅/重同步后的全量视图
	EventTitle    = "title"    // 会话标题更新（侧栏观察者）
)

// redis 频道前缀
const channelPrefix = "chat:events:"

// Event 推送负载
type Event struct {
	Type    string          `json:"type"`
	ChatID  string          `json:"chat_id"`
	Message *model.Message  `json:"message,omitempty"`
	Items   []model.Message `json:"items,omitempty"`
	Title   string          `json:"title,omitempty"`
}

// Hub 连接管理器
type Hub struct {
	mu         sync.Mutex
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	redis      *redis.Client
	log        *logrus.Logger
}

// NewHub 创建 Hub
// redisClient 为 nil 时事件只在本实例内分发（测试场景）
func NewHub(redisClient *redis.Client, log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		redis:      redisClient,
		log:        log,
	}
}

// Run 事件循环，ctx 取消后退出
func (h *Hub) Run(ctx context.Context) {
	if h.redis != nil {
		go h.consumeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// PublishInsert 发布一条新落库的消息
// 经 Redis 广播到所有实例；无 Redis 时直接走本地分发
func (h *Hub) PublishInsert(ctx context.Context, msg *model.Message) {
	event := Event{Type: EventInsert, ChatID: msg.ChatID, Message: msg}
	h.publish(ctx, event)
}

// PublishTitle 通知订阅者会话标题已更新
func (h *Hub) PublishTitle(ctx context.Context, chatID, title string) {
	event := Event{Type: EventTitle, ChatID: chatID, Title: title}
	h.publish(ctx, event)
}

func (h *Hub) publish(ctx context.Context, event Event) {
	if h.redis == nil {
		h.broadcast <- event
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal realtime event")
		return
	}
	if err := h.redis.Publish(ctx, channelPrefix+event.ChatID, payload).Err(); err != nil {
		// 发布失败退化为本地分发，本实例上的订阅者仍能收到
		h.log.WithError(err).Warn("redis publish failed, delivering locally")
		h.broadcast <- event
	}
}

// consumeRedis 订阅 Redis 频道并转入本地分发
func (h *Hub) consumeRedis(ctx context.Context) {
	pubsub := h.redis.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.log.WithError(err).Warn("dropping malformed realtime event")
				continue
			}
			if event.ChatID == "" {
				event.ChatID = strings.TrimPrefix(msg.Channel, channelPrefix)
			}
			h.broadcast <- event
		}
	}
}

// deliver 把事件分发给订阅了对应会话的本地连接
func (h *Hub) deliver(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.ChatID() != event.ChatID {
			continue
		}

		out := event
		if event.Type == EventInsert && event.Message != nil {
			// 合并进该连接的视图，重复推送在这里被吸收
			client.View().MergeRealtimeInsert(*event.Message)
		}

		payload, err := json.Marshal(out)
		if err != nil {
			continue
		}

		select {
		case client.send <- payload:
		default:
			// 写不进去的连接视为死连接
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// Register 注册连接
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销连接
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ViewFor 返回某用户订阅指定会话的连接视图，没有则为 nil
// 发送方走 HTTP 提交时，乐观插入写进它自己的 WebSocket 视图
func (h *Hub) ViewFor(userID, chatID string) *store.Store {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.UserID == userID && client.ChatID() == chatID {
			return client.View()
		}
	}
	return nil
}

// LocalClients 当前本实例上的连接数
func (h *Hub) LocalClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
