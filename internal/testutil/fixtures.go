// Package testutil 提供测试辅助工具
package testutil

import (
	"time"

	"github.com/google/uuid"

	"brandchat/internal/model"
)

// UserMessage 构造一条已落库的用户消息
func UserMessage(chatID, content string, at time.Time) model.Message {
	return model.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      model.RoleMessageUser,
		Content:   content,
		CreatedAt: at,
	}
}

// AssistantMessage 构造一条已落库的助手消息
func AssistantMessage(chatID, content string, at time.Time) model.Message {
	return model.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      model.RoleMessageAssistant,
		Content:   content,
		CreatedAt: at,
	}
}
