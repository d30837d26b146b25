// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"psa-server/internal/model"
)

// RitualRepository 仪式定义数据访问层
// rituals 表是读多写少的：触发时按 id 查找，设置页偶尔增删改
type RitualRepository struct {
	db *gorm.DB
}

// NewRitualRepository 创建 RitualRepository 实例
func NewRitualRepository(db *gorm.DB) *RitualRepository {
	return &RitualRepository{db: db}
}

// GetByID 根据 id 获取仪式定义
// 返回:
//   - *model.Ritual: 仪式定义，未找到返回 nil
//   - error: 数据库错误
func (r *RitualRepository) GetByID(ctx context.Context, id string) (*model.Ritual, error) {
	var ritual model.Ritual
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ritual).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ritual, nil
}

// CreateIfAbsent 插入仪式定义，id 已存在时静默跳过
// plans 仪式触发时用它落一行对应的定义
func (r *RitualRepository) CreateIfAbsent(ctx context.Context, ritual *model.Ritual) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ritual).Error
}

// Upsert 插入或整行覆盖仪式定义
// 设置页保存时使用
// Select("*") 强制把零值字段也写进语句：active 带 default 标签，
// 不这样做的话 false 会被 GORM 省略，停用操作变成静默的重新启用
func (r *RitualRepository) Upsert(ctx context.Context, ritual *model.Ritual) error {
	return r.db.WithContext(ctx).
		Select("*").
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(ritual).Error
}

// List 获取所有仪式定义
// 按更新时间倒序
func (r *RitualRepository) List(ctx context.Context) ([]model.Ritual, error) {
	var rituals []model.Ritual
	err := r.db.WithContext(ctx).Order("updated_at DESC").Find(&rituals).Error
	return rituals, err
}

// ListActive 获取所有启用的仪式定义
// 调度器每分钟扫描一次，匹配 schedule 触发器
func (r *RitualRepository) ListActive(ctx context.Context) ([]model.Ritual, error) {
	var rituals []model.Ritual
	err := r.db.WithContext(ctx).Where("active = ?", true).Find(&rituals).Error
	return rituals, err
}

// Delete 删除仪式定义
func (r *RitualRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Ritual{}).Error
}
