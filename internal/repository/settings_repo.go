// Package repository 提供数据访问层的实现
package repository

import (
	"context"

	"gorm.io/gorm"

	"psa-server/internal/model"
)

// SettingsRepository 设置数据访问层
// settings 表是单例行，id 固定为 singleton
type SettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository 创建 SettingsRepository 实例
func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get 获取设置，单例行不存在时先用默认值创建
// 返回:
//   - *model.Settings: 设置对象
//   - error: 数据库错误
func (r *SettingsRepository) Get(ctx context.Context) (*model.Settings, error) {
	settings := model.Settings{
		ID:                     model.SettingsID,
		Tone:                   "Gentle",
		Theme:                  "dark",
		SleepStartHour:         22,
		SleepEndHour:           8,
		Density:                "comfortable",
		AutoRefreshEnabled:     true,
		AutoRefreshIntervalSec: 7,
	}
	err := r.db.WithContext(ctx).
		Where("id = ?", model.SettingsID).
		FirstOrCreate(&settings).Error
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Update 更新设置的部分字段
// 参数:
//   - ctx: 上下文
//   - fields: 列名到新值的映射，只更新给出的列
func (r *SettingsRepository) Update(ctx context.Context, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	// 确保单例行存在再更新
	if _, err := r.Get(ctx); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&model.Settings{}).
		Where("id = ?", model.SettingsID).
		Updates(fields).Error
}
