package repository

import (
	"gorm.io/gorm"

	"brandchat/internal/model"
)

// ProfileRepository 用户档案数据访问
// 持有服务级连接，角色查询不经过任何按行授权检查，
// 避免授权判定本身再触发授权判定
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository 创建档案仓库
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create 创建档案
func (r *ProfileRepository) Create(profile *model.Profile) error {
	return r.db.Create(profile).Error
}

// GetByID 按用户 ID 获取档案
func (r *ProfileRepository) GetByID(id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetRole 获取用户角色
func (r *ProfileRepository) GetRole(id string) (string, error) {
	profile, err := r.GetByID(id)
	if err != nil {
		return "", err
	}
	return profile.Role, nil
}

// Update 更新档案
func (r *ProfileRepository) Update(profile *model.Profile) error {
	return r.db.Save(profile).Error
}

// List 列出所有档案
func (r *ProfileRepository) List(offset, limit int) ([]*model.Profile, error) {
	var profiles []*model.Profile
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&profiles).Error
	return profiles, err
}
