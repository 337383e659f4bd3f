package repository

import (
	"gorm.io/gorm"

	"brandchat/internal/model"
)

// MessageRepository 消息数据访问
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息仓库
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create 创建消息
func (r *MessageRepository) Create(msg *model.Message) error {
	return r.db.Create(msg).Error
}

// GetByID 获取单条消息
func (r *MessageRepository) GetByID(id string) (*model.Message, error) {
	var msg model.Message
	err := r.db.Where("id = ?", id).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByChat 获取会话的全部消息，按时间升序
func (r *MessageRepository) ListByChat(chatID string) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.Where("chat_id = ?", chatID).Order("created_at ASC").Find(&messages).Error
	return messages, err
}

// ListRecentByChat 获取会话最近的 N 条消息，结果按时间升序
func (r *MessageRepository) ListRecentByChat(chatID string, limit int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// 翻转为时间升序
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Delete 删除消息
func (r *MessageRepository) Delete(id string) error {
	return r.db.Delete(&model.Message{}, "id = ?", id).Error
}
