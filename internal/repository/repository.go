package repository

import "gorm.io/gorm"

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB       *gorm.DB // 直接访问数据库
	Auth     *AuthRepository
	Profile  *ProfileRepository
	Chat     *ChatRepository
	Message  *MessageRepository
	Document *DocumentRepository
	Setting  *SettingRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:       db,
		Auth:     NewAuthRepository(db),
		Profile:  NewProfileRepository(db),
		Chat:     NewChatRepository(db),
		Message:  NewMessageRepository(db),
		Document: NewDocumentRepository(db),
		Setting:  NewSettingRepository(db),
	}
}
