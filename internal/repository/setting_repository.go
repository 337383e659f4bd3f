package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"brandchat/internal/model"
)

// SettingRepository 全局设置数据访问
type SettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建设置仓库
func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get 获取设置值
func (r *SettingRepository) Get(key string) (string, error) {
	var setting model.SystemSetting
	err := r.db.Where("setting_key = ?", key).First(&setting).Error
	if err != nil {
		return "", err
	}
	return setting.SettingValue, nil
}

// Set 写入设置值（存在则覆盖）
func (r *SettingRepository) Set(key, value string) error {
	setting := &model.SystemSetting{
		SettingKey:   key,
		SettingValue: value,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
	}).Create(setting).Error
}
