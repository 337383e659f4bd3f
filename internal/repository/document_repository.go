package repository

import (
	"gorm.io/gorm"

	"brandchat/internal/model"
)

// DocumentRepository 文档元数据访问
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建文档仓库
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create 记录已索引的文档
func (r *DocumentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

// GetByID 获取文档
func (r *DocumentRepository) GetByID(id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// List 列出文档，最近上传的在前
func (r *DocumentRepository) List(offset, limit int) ([]*model.Document, int64, error) {
	var docs []*model.Document
	var total int64
	if err := r.db.Model(&model.Document{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&docs).Error
	return docs, total, err
}

// Delete 删除文档记录
func (r *DocumentRepository) Delete(id string) error {
	return r.db.Delete(&model.Document{}, "id = ?", id).Error
}
