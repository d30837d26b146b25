// Package repository 提供数据访问层的实现
package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"psa-server/internal/model"
)

// WinddownRepository winddown 会话/答案/挂念的数据访问层
type WinddownRepository struct {
	db *gorm.DB
}

// NewWinddownRepository 创建 WinddownRepository 实例
func NewWinddownRepository(db *gorm.DB) *WinddownRepository {
	return &WinddownRepository{db: db}
}

// CreateSession 创建新会话
// "Start winddown" 动作触发时调用；两次点击会创建两个会话，这是接受的行为，
// 幂等只按 id 保证，不做额外加锁
func (r *WinddownRepository) CreateSession(ctx context.Context, session *model.WinddownSession) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(session).Error
}

// ListSessions 获取会话列表
// 按开始时间倒序，历史页展示用
// 参数:
//   - ctx: 上下文
//   - limit: 返回上限
func (r *WinddownRepository) ListSessions(ctx context.Context, limit int) ([]model.WinddownSession, error) {
	var sessions []model.WinddownSession
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// DeleteSession 删除会话并级联删除其答案
// 只有历史页的显式删除会走到这里，会话没有自动过期
func (r *WinddownRepository) DeleteSession(ctx context.Context, id string) error {
	// 外键的级联删除依赖建表参数，这里显式删两步，行为在所有方言下一致
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&model.WinddownAnswer{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.WinddownSession{}).Error
	})
}

// CreateAnswerIfAbsent 插入答案，id 已存在时静默跳过
// 同一答案的重复提交（双击、重试）是无操作
func (r *WinddownRepository) CreateAnswerIfAbsent(ctx context.Context, answer *model.WinddownAnswer) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(answer).Error
}

// ListAnswers 获取答案列表
// 按记录时间倒序，历史页展示用
func (r *WinddownRepository) ListAnswers(ctx context.Context, limit int) ([]model.WinddownAnswer, error) {
	var answers []model.WinddownAnswer
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&answers).Error
	return answers, err
}

// DeleteAnswer 删除单条答案
func (r *WinddownRepository) DeleteAnswer(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.WinddownAnswer{}).Error
}

// CreateThoughtIfAbsent 插入睡前挂念，id 已存在时静默跳过
func (r *WinddownRepository) CreateThoughtIfAbsent(ctx context.Context, thought *model.WinddownThought) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(thought).Error
}

// ListThoughts 获取睡前挂念列表
func (r *WinddownRepository) ListThoughts(ctx context.Context, limit int) ([]model.WinddownThought, error) {
	var thoughts []model.WinddownThought
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&thoughts).Error
	return thoughts, err
}

// DeleteThought 删除睡前挂念
func (r *WinddownRepository) DeleteThought(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.WinddownThought{}).Error
}
