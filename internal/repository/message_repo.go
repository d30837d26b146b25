// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"psa-server/internal/model"
	"psa-server/pkg/util"
)

// MessageRepository 消息数据访问层
// 负责聊天时间线的所有数据库操作
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建 MessageRepository 实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateIfAbsent 插入消息，id 已存在时静默跳过
// 幂等语义支撑客户端 at-least-once 重试：重复 append 不产生副本，也不改动已有行
// 参数:
//   - ctx: 上下文
//   - message: 消息对象，Seq 为 0 时自动取号
//
// 返回:
//   - error: 数据库错误
func (r *MessageRepository) CreateIfAbsent(ctx context.Context, message *model.Message) error {
	if message.Seq == 0 {
		message.Seq = util.NextSeq()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(message).Error
}

// Patch 更新消息的部分字段
// id 不存在时是无操作，不报错——调用方允许补丁与裁剪竞争
// 参数:
//   - ctx: 上下文
//   - id: 消息 id
//   - fields: 列名到新值的映射，只更新给出的列
//
// 返回:
//   - error: 数据库错误
func (r *MessageRepository) Patch(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// GetByID 根据 id 获取消息
// 返回:
//   - *model.Message: 消息对象，未找到返回 nil
//   - error: 数据库错误
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	var message model.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// ListAll 获取完整时间线
// 按 timestamp_ms 正序排列，时间戳并列时按插入序号 seq 决定先后
// 参数:
//   - ctx: 上下文
//   - limit: 返回上限，0 表示不限制
//
// 返回:
//   - []model.Message: 消息列表
//   - error: 数据库错误
func (r *MessageRepository) ListAll(ctx context.Context, limit int) ([]model.Message, error) {
	var messages []model.Message
	query := r.db.WithContext(ctx).Order("timestamp_ms ASC, seq ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&messages).Error
	return messages, err
}

// LatestByDemo 取 metadata.demo 等于指定值的最新一条消息
// 晚安卡片去重时用它检查时间线里是否已有 goodnightCard
// json_extract 在 MySQL 和 SQLite 下都可用
// 返回:
//   - *model.Message: 消息对象，没有返回 nil
//   - error: 数据库错误
func (r *MessageRepository) LatestByDemo(ctx context.Context, demo string) (*model.Message, error) {
	var message model.Message
	err := r.db.WithContext(ctx).
		Where("json_extract(metadata, '$.demo') = ?", demo).
		Order("timestamp_ms DESC, seq DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// TrimNonSticky 滚动裁剪：非置顶消息只保留最新的 keep 条
// 置顶消息（未回答的问题卡片等）不计入上限、永不被裁掉
// 参数:
//   - ctx: 上下文
//   - keep: 非置顶消息的保留数量
//
// 返回:
//   - int64: 删除的行数
//   - error: 数据库错误
func (r *MessageRepository) TrimNonSticky(ctx context.Context, keep int) (int64, error) {
	// 子查询：最新的 keep 条非置顶消息
	// 外层再包一层派生表，绕开 MySQL 不允许 DELETE 的目标表直接出现在子查询里的限制
	sub := r.db.Model(&model.Message{}).
		Select("id").
		Where("sticky = ?", false).
		Order("timestamp_ms DESC, seq DESC").
		Limit(keep)
	keepIDs := r.db.Table("(?) as t", sub).Select("id")

	result := r.db.WithContext(ctx).
		Where("sticky = ? AND id NOT IN (?)", false, keepIDs).
		Delete(&model.Message{})
	return result.RowsAffected, result.Error
}

// CountSticky 统计置顶消息数量
// 置顶集合没有上限（见裁剪策略），只用于超阈值时打告警日志
func (r *MessageRepository) CountSticky(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("sticky = ?", true).
		Count(&count).Error
	return count, err
}

// Clear 清空整个时间线
// 这是时间线唯一的批量删除操作，没有逐条删除
func (r *MessageRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&model.Message{}).Error
}
