// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"errors"
	"time"

	"psa-server/internal/model"
	"psa-server/internal/repository"
	"psa-server/pkg/util"
)

// winddown 服务相关错误
var (
	ErrSessionIDRequired = errors.New("sessionId required")
	ErrQuestionRequired  = errors.New("question required")
	ErrAnswerRequired    = errors.New("text required")
)

// WinddownSubmitResult 提交答案的结果
// 最后一题落库后附带晚安卡片，客户端可以直接渲染而不必等下一次拉取
type WinddownSubmitResult struct {
	Goodnight bool
	Message   *model.Message
}

// WinddownService 睡前复盘服务
// 管理复盘会话、三连问答案和睡前挂念
type WinddownService struct {
	winddownRepo   *repository.WinddownRepository
	messageService *MessageService
}

// NewWinddownService 创建 WinddownService 实例
func NewWinddownService(winddownRepo *repository.WinddownRepository, messageService *MessageService) *WinddownService {
	return &WinddownService{
		winddownRepo:   winddownRepo,
		messageService: messageService,
	}
}

// SubmitAnswerRequest 提交答案请求
// CreatedAt 是客户端带的毫秒时间戳，离线补交时保留原始作答时间；缺省用服务端时间
type SubmitAnswerRequest struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Question  string `json:"question"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// SubmitAnswer 落库一条复盘答案
// 幂等：id 已存在时不产生副本
// 最后一题（one_thing_learned）落库后补发晚安卡片，时间线里至多保留一张
// 参数:
//   - ctx: 上下文
//   - req: 提交请求
//
// 返回:
//   - *WinddownSubmitResult: 提交结果
//   - error: 校验或数据库错误
func (s *WinddownService) SubmitAnswer(ctx context.Context, req *SubmitAnswerRequest) (*WinddownSubmitResult, error) {
	if req.ID == "" {
		return nil, ErrIDRequired
	}
	if req.SessionID == "" {
		return nil, ErrSessionIDRequired
	}
	if req.Question == "" {
		return nil, ErrQuestionRequired
	}
	if req.Text == "" {
		return nil, ErrAnswerRequired
	}

	createdAt := time.Now()
	if req.CreatedAt > 0 {
		createdAt = time.UnixMilli(req.CreatedAt)
	}
	answer := &model.WinddownAnswer{
		ID:        req.ID,
		SessionID: req.SessionID,
		Question:  req.Question,
		Answer:    req.Text,
		CreatedAt: createdAt,
	}
	if err := s.winddownRepo.CreateAnswerIfAbsent(ctx, answer); err != nil {
		return nil, err
	}

	if req.Question == model.QuestionOneThingLearned {
		card, _, err := s.messageService.EnsureGoodnightCard(ctx)
		if err != nil {
			return nil, err
		}
		return &WinddownSubmitResult{Goodnight: true, Message: card}, nil
	}
	return &WinddownSubmitResult{Goodnight: false}, nil
}

// SaveThought 落库一条睡前挂念
// 幂等：id 已存在时不产生副本；id 为空时自动生成
func (s *WinddownService) SaveThought(ctx context.Context, id, text string) (*model.WinddownThought, error) {
	if text == "" {
		return nil, ErrAnswerRequired
	}
	if id == "" {
		id = util.UID("th")
	}
	thought := &model.WinddownThought{
		ID:        id,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if err := s.winddownRepo.CreateThoughtIfAbsent(ctx, thought); err != nil {
		return nil, err
	}
	return thought, nil
}

// History 获取复盘历史：最近的会话和答案，时间倒序
// 返回:
//   - []model.WinddownSession: 会话列表
//   - []model.WinddownAnswer: 答案列表
//   - error: 数据库错误
func (s *WinddownService) History(ctx context.Context) ([]model.WinddownSession, []model.WinddownAnswer, error) {
	sessions, err := s.winddownRepo.ListSessions(ctx, 60)
	if err != nil {
		return nil, nil, err
	}
	answers, err := s.winddownRepo.ListAnswers(ctx, 500)
	if err != nil {
		return nil, nil, err
	}
	return sessions, answers, nil
}

// DeleteSession 删除会话及其全部答案
func (s *WinddownService) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	return s.winddownRepo.DeleteSession(ctx, id)
}

// DeleteAnswer 删除单条答案
func (s *WinddownService) DeleteAnswer(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	return s.winddownRepo.DeleteAnswer(ctx, id)
}

// ListThoughts 获取睡前挂念列表，时间倒序
func (s *WinddownService) ListThoughts(ctx context.Context) ([]model.WinddownThought, error) {
	return s.winddownRepo.ListThoughts(ctx, 200)
}

// DeleteThought 删除单条睡前挂念
func (s *WinddownService) DeleteThought(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	return s.winddownRepo.DeleteThought(ctx, id)
}
