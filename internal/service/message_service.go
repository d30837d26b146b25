// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"errors"
	"log"

	"psa-server/internal/cache"
	"psa-server/internal/model"
	"psa-server/internal/repository"
	"psa-server/pkg/util"
)

// TimelineNotifier 时间线变更通知接口
// WebSocket hub 实现它，向在线客户端广播刷新提示
type TimelineNotifier interface {
	NotifyTimelineChanged(ts int64)
}

// 消息服务相关错误
var (
	ErrRoleRequired = errors.New("role required")
	ErrIDRequired   = errors.New("id required")
)

// 滚动裁剪参数
const (
	// nonStickyKeep 非置顶消息的保留上限
	nonStickyKeep = 100

	// stickyWarnThreshold 置顶消息的告警阈值
	// 置顶集合按设计没有上限，只在数量异常时打日志
	stickyWarnThreshold = 200
)

// MessageService 消息服务
// 时间线的唯一写入口：追加、补丁、读取、清空都从这里走，
// 每次追加后执行滚动裁剪并通知在线客户端
type MessageService struct {
	messageRepo *repository.MessageRepository // 消息数据访问层
	cache       *cache.RedisCache             // Redis 缓存，可以为 nil
	notifier    TimelineNotifier              // 时间线变更通知器，可以为 nil
}

// NewMessageService 创建 MessageService 实例
func NewMessageService(messageRepo *repository.MessageRepository, cache *cache.RedisCache) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		cache:       cache,
	}
}

// SetNotifier 设置时间线变更通知器
func (s *MessageService) SetNotifier(n TimelineNotifier) {
	s.notifier = n
}

// AppendMessageRequest 追加消息请求
// Echo 缺省为 true：不显式关掉时，追加用户消息后会补一条机械的 Echo 回复
type AppendMessageRequest struct {
	ID          string                 `json:"id"`
	Role        string                 `json:"role"`
	Text        *string                `json:"text"`
	Timestamp   int64                  `json:"timestamp"`
	RitualID    string                 `json:"ritualId"`
	Buttons     []string               `json:"buttons"`
	Metadata    map[string]interface{} `json:"metadata"`
	EmotionID   string                 `json:"emotionId"`
	EmotionTone string                 `json:"emotionTone"`
	Sticky      bool                   `json:"sticky"`
	Saved       bool                   `json:"saved"`
	Echo        *bool                  `json:"echo"`
}

// Append 追加一条消息到时间线
// 幂等：id 已存在时不产生副本，也不改动已有行
// 参数:
//   - ctx: 上下文
//   - req: 追加请求
//
// 返回:
//   - string: echo 回复文本，未开启 echo 时为空
//   - error: 校验或数据库错误
func (s *MessageService) Append(ctx context.Context, req *AppendMessageRequest) (string, error) {
	if req.Role == "" {
		return "", ErrRoleRequired
	}

	id := req.ID
	if id == "" {
		id = util.UID("m")
	}
	ts := req.Timestamp
	if ts == 0 {
		ts = util.NowMs()
	}

	message := &model.Message{
		ID:          id,
		Role:        req.Role,
		TimestampMs: ts,
		Metadata:    model.JSONMap(req.Metadata),
		Buttons:     model.StringList(req.Buttons),
		Saved:       req.Saved,
	}
	if req.Text != nil {
		message.Text = *req.Text
	}
	if req.RitualID != "" {
		message.RitualID = util.StringPtr(req.RitualID)
	}
	if req.EmotionID != "" {
		message.EmotionID = util.StringPtr(req.EmotionID)
	}
	if req.EmotionTone != "" {
		message.EmotionTone = util.StringPtr(req.EmotionTone)
	}
	message.Sticky = model.ComputeSticky(message.Metadata, req.Sticky)

	if err := s.Persist(ctx, message); err != nil {
		return "", err
	}

	// echo 缺省开启，机械回显是调试用的演示功能，与仪式逻辑无关
	if req.Echo == nil || *req.Echo {
		text := "(empty)"
		if req.Text != nil {
			text = *req.Text
		}
		reply := &model.Message{
			ID:          util.UID("m"),
			Role:        model.MessageRoleAssistant,
			Text:        "Echo: " + text,
			TimestampMs: util.NowMs(),
		}
		if err := s.Persist(ctx, reply); err != nil {
			return "", err
		}
		return reply.Text, nil
	}

	return "", nil
}

// Persist 落库一条已经构造好的消息并执行追加后的固定动作：
// 滚动裁剪、置顶数量告警、快照失效、变更广播
// 仪式引擎生成的消息也统一走这里
func (s *MessageService) Persist(ctx context.Context, message *model.Message) error {
	if message.TimestampMs == 0 {
		message.TimestampMs = util.NowMs()
	}
	if err := s.messageRepo.CreateIfAbsent(ctx, message); err != nil {
		return err
	}

	if _, err := s.messageRepo.TrimNonSticky(ctx, nonStickyKeep); err != nil {
		// 裁剪失败不阻断追加，下次追加会再试
		log.Printf("[WARN] timeline trim failed: %v", err)
	}
	if count, err := s.messageRepo.CountSticky(ctx); err == nil && count > stickyWarnThreshold {
		log.Printf("[WARN] sticky message count %d exceeds %d, unanswered question cards are piling up", count, stickyWarnThreshold)
	}

	s.cache.InvalidateTimeline(ctx)
	s.cache.BumpActivity(ctx)
	if s.notifier != nil {
		s.notifier.NotifyTimelineChanged(message.TimestampMs)
	}
	return nil
}

// Patch 更新消息的可变字段
// 只接受 text / metadata / buttons / saved / ritualId / role / emotionId /
// emotionTone / timestamp；id 不存在时是无操作
// 参数:
//   - ctx: 上下文
//   - id: 消息 id
//   - fields: 请求体里出现的字段（未出现的键不更新）
func (s *MessageService) Patch(ctx context.Context, id string, fields map[string]interface{}) error {
	if id == "" {
		return ErrIDRequired
	}

	updates := make(map[string]interface{})
	if v, ok := fields["text"]; ok {
		text, _ := v.(string)
		updates["text"] = text
	}
	if v, ok := fields["role"]; ok {
		role, _ := v.(string)
		if role == "" {
			role = model.MessageRoleAssistant
		}
		updates["role"] = role
	}
	if v, ok := fields["metadata"]; ok {
		if m, ok := v.(map[string]interface{}); ok {
			updates["metadata"] = model.JSONMap(m)
		} else {
			updates["metadata"] = nil
		}
	}
	if v, ok := fields["buttons"]; ok {
		if arr, ok := v.([]interface{}); ok {
			buttons := make(model.StringList, 0, len(arr))
			for _, item := range arr {
				if s, ok := item.(string); ok {
					buttons = append(buttons, s)
				}
			}
			updates["buttons"] = buttons
		} else {
			updates["buttons"] = nil
		}
	}
	if v, ok := fields["ritualId"]; ok {
		if s, ok := v.(string); ok && s != "" {
			updates["ritual_id"] = s
		} else {
			updates["ritual_id"] = nil
		}
	}
	if v, ok := fields["emotionId"]; ok {
		updates["emotion_id"] = v
	}
	if v, ok := fields["emotionTone"]; ok {
		updates["emotion_tone"] = v
	}
	if v, ok := fields["timestamp"]; ok {
		if f, ok := v.(float64); ok && f > 0 {
			updates["timestamp_ms"] = int64(f)
		} else {
			updates["timestamp_ms"] = util.NowMs()
		}
	}
	if v, ok := fields["saved"]; ok {
		b, _ := v.(bool)
		updates["saved"] = b
	}

	if err := s.messageRepo.Patch(ctx, id, updates); err != nil {
		return err
	}

	s.cache.InvalidateTimeline(ctx)
	s.cache.BumpActivity(ctx)
	if s.notifier != nil {
		s.notifier.NotifyTimelineChanged(util.NowMs())
	}
	return nil
}

// List 获取完整时间线
// 优先读 Redis 快照，未命中时查库并回填
func (s *MessageService) List(ctx context.Context) ([]model.Message, error) {
	if messages, ok := s.cache.GetTimeline(ctx); ok {
		return messages, nil
	}
	messages, err := s.messageRepo.ListAll(ctx, 0)
	if err != nil {
		return nil, err
	}
	s.cache.SetTimeline(ctx, messages)
	return messages, nil
}

// GetByID 根据 id 获取消息
func (s *MessageService) GetByID(ctx context.Context, id string) (*model.Message, error) {
	return s.messageRepo.GetByID(ctx, id)
}

// Clear 清空整个时间线
func (s *MessageService) Clear(ctx context.Context) error {
	if err := s.messageRepo.Clear(ctx); err != nil {
		return err
	}
	s.cache.InvalidateTimeline(ctx)
	s.cache.BumpActivity(ctx)
	if s.notifier != nil {
		s.notifier.NotifyTimelineChanged(util.NowMs())
	}
	return nil
}

// EnsureGoodnightCard 保证时间线里有且只有一张晚安卡片
// 已存在时返回现有的那张；不存在时插入一张新的
// 插入窗口用 Redis SETNX 锁护住；没有 Redis 时退化为先查再插
// 返回:
//   - *model.Message: 晚安卡片
//   - bool: 是否新插入
//   - error: 数据库错误
func (s *MessageService) EnsureGoodnightCard(ctx context.Context) (*model.Message, bool, error) {
	existing, err := s.messageRepo.LatestByDemo(ctx, model.DemoGoodnightCard)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if s.cache.AcquireGoodnightLock(ctx) {
		defer s.cache.ReleaseGoodnightLock(ctx)
	} else {
		// 锁在别的请求手里：重查一次，没查到就退化为先查再插。
		// 不能释放锁，那是持有者的
		if again, err := s.messageRepo.LatestByDemo(ctx, model.DemoGoodnightCard); err == nil && again != nil {
			return again, false, nil
		}
	}

	card := &model.Message{
		ID:          util.UID("m"),
		Role:        model.MessageRoleAssistant,
		Text:        "",
		Metadata:    model.JSONMap{"demo": model.DemoGoodnightCard},
		TimestampMs: util.NowMs(),
	}
	if err := s.Persist(ctx, card); err != nil {
		return nil, false, err
	}
	return card, true, nil
}
