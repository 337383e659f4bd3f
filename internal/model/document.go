package model

import "time"

// Document 已索引文档的元数据，内容本身由 RAG 后端的向量库持有
type Document struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Filename   string    `gorm:"size:255;not null;index" json:"filename"`
	FileSize   int64     `gorm:"default:0" json:"file_size"`
	ChunkCount int       `gorm:"default:0" json:"chunk_count"`
	FileType   string    `gorm:"size:100" json:"file_type"`
	UploadedBy string    `gorm:"index;size:36" json:"uploaded_by"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Document) TableName() string {
	return "documents"
}

// SystemSetting 全局设置（如系统提示词）
type SystemSetting struct {
	SettingKey   string    `gorm:"primaryKey;size:100" json:"setting_key"`
	SettingValue string    `gorm:"type:text" json:"setting_value"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (SystemSetting) TableName() string {
	return "system_settings"
}

// SettingKeySystemPrompt 系统提示词的设置键
const SettingKeySystemPrompt = "system_prompt"
