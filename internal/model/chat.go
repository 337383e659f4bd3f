package model

import (
	"strings"
	"time"
)

// DefaultChatTitle 新会话的占位标题，首次对话后由标题生成替换
const DefaultChatTitle = "New Chat"

// Chat 聊天会话
type Chat struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;size:36;not null" json:"user_id"`
	Title     string    `gorm:"size:255;default:New Chat" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Messages  []Message `gorm:"foreignKey:ChatID" json:"messages,omitempty"`
}

// TableName 指定表名
func (Chat) TableName() string {
	return "chats"
}

// HasDefaultTitle 标题是否仍为占位标题
func (c *Chat) HasDefaultTitle() bool {
	return c.Title == "" || c.Title == DefaultChatTitle
}

// 消息角色
const (
	RoleMessageUser      = "user"
	RoleMessageAssistant = "assistant"
)

// TempIDPrefix 乐观消息的占位 ID 前缀
// 带此前缀的消息尚未持久化，等待同 (role, content) 的持久化行替换
const TempIDPrefix = "temp-"

// Message 聊天消息
type Message struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	ChatID    string    `gorm:"index;size:36;not null" json:"chat_id"`
	UserID    string    `gorm:"index;size:36" json:"user_id"`
	Role      string    `gorm:"size:20;index" json:"role"` // user, assistant
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}

// IsPlaceholder 是否为尚未持久化的占位消息
func (m *Message) IsPlaceholder() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}
