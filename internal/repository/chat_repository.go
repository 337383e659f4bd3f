package repository

import (
	"time"

	"gorm.io/gorm"

	"brandchat/internal/model"
)

// ChatRepository 会话数据访问
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建会话仓库
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create 创建会话
func (r *ChatRepository) Create(chat *model.Chat) error {
	return r.db.Create(chat).Error
}

// GetByID 获取会话
func (r *ChatRepository) GetByID(id string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.Where("id = ?", id).First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetByIDWithMessages 获取会话及其消息（按时间升序）
func (r *ChatRepository) GetByIDWithMessages(id string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Where("id = ?", id).First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListByUser 列出某用户的会话，最近更新的在前
func (r *ChatRepository) ListByUser(userID string, offset, limit int) ([]*model.Chat, error) {
	var chats []*model.Chat
	err := r.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&chats).Error
	return chats, err
}

// ListAll 列出所有会话（管理端，跨用户）
func (r *ChatRepository) ListAll(offset, limit int) ([]*model.Chat, int64, error) {
	var chats []*model.Chat
	var total int64
	if err := r.db.Model(&model.Chat{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&chats).Error
	return chats, total, err
}

// Update 更新会话
func (r *ChatRepository) Update(chat *model.Chat) error {
	return r.db.Save(chat).Error
}

// UpdateTitle 更新标题
func (r *ChatRepository) UpdateTitle(id, title string) error {
	return r.db.Model(&model.Chat{}).Where("id = ?", id).Update("title", title).Error
}

// Touch 将 updated_at 置为当前时间
func (r *ChatRepository) Touch(id string) error {
	return r.db.Model(&model.Chat{}).Where("id = ?", id).Update("updated_at", time.Now()).Error
}

// Delete 删除会话，级联删除其消息
func (r *ChatRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Message{}, "chat_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Chat{}, "id = ?", id).Error
	})
}
