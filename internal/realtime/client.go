package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"brandchat/internal/model"
	"brandchat/internal/store"
)

// MessageLister 按会话读取服务端消息列表
type MessageLister interface {
	ListByChat(chatID string) ([]*model.Message, error)
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client 一个 WebSocket 连接及其消息视图
type Client struct {
	UserID string

	mu     sync.RWMutex
	chatID string
	view   *store.Store

	hub      *Hub
	messages MessageLister
	conn     *websocket.Conn
	send     chan []byte
}

// NewClient 创建连接会话
func NewClient(hub *Hub, messages MessageLister, conn *websocket.Conn, userID string) *Client {
	return &Client{
		UserID:   userID,
		hub:      hub,
		messages: messages,
		conn:     conn,
		send:     make(chan []byte, 64),
		view:     store.New(""),
	}
}

// ChatID 当前订阅的会话
func (c *Client) ChatID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chatID
}

// View 当前视图
func (c *Client) View() *store.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// clientCommand 客户端指令
type clientCommand struct {
	Type   string `json:"type"` // subscribe, resync
	ChatID string `json:"chat_id"`
}

// Subscribe 切换订阅会话：换新视图并以服务端列表为基础重建
// 切换隐含对旧会话的退订
func (c *Client) Subscribe(chatID string) error {
	serverMessages, err := c.messages.ListByChat(chatID)
	if err != nil {
		return err
	}

	view := store.New(chatID)
	view.ReconcileFull(deref(serverMessages))

	c.mu.Lock()
	c.chatID = chatID
	c.view = view
	c.mu.Unlock()

	c.sendSnapshot(chatID, view)
	return nil
}

// Resync 对当前会话做全量重同步，在途占位保留
func (c *Client) Resync() error {
	c.mu.RLock()
	chatID := c.chatID
	view := c.view
	c.mu.RUnlock()

	if chatID == "" {
		return nil
	}

	serverMessages, err := c.messages.ListByChat(chatID)
	if err != nil {
		return err
	}

	view.ReconcileFull(deref(serverMessages))
	c.sendSnapshot(chatID, view)
	return nil
}

// sendSnapshot 发送当前视图快照
func (c *Client) sendSnapshot(chatID string, view *store.Store) {
	payload, err := json.Marshal(Event{
		Type:   EventSnapshot,
		ChatID: chatID,
		Items:  view.Messages(),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// ReadPump 读取客户端指令，连接断开时注销
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			continue
		}

		switch cmd.Type {
		case "subscribe":
			if cmd.ChatID != "" {
				_ = c.Subscribe(cmd.ChatID)
			}
		case "resync":
			_ = c.Resync()
		}
	}
}

// WritePump 把待发送数据写入连接，并维持心跳
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deref 仓库返回指针切片，视图接受值切片
func deref(in []*model.Message) []model.Message {
	out := make([]model.Message, 0, len(in))
	for _, m := range in {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out
}
