// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"psa-server/internal/config"
	"psa-server/internal/model"
	"psa-server/internal/repository"
	"psa-server/pkg/util"
)

// 仪式服务相关错误
var (
	ErrRitualIDRequired = errors.New("ritualId required")
	ErrMessageNotFound  = errors.New("message not found")
	ErrTextRequired     = errors.New("text required")
)

// 特殊仪式标识
// 这些仪式由引擎硬编码处理，在通用 webhook 查找之前解析
const (
	RitualWinddown       = "winddown"
	RitualMorning        = "morning"
	RitualWakeupV1       = "wakeup_v1"
	RitualImpulseControl = "impulse_control_v1"
	RitualPlans          = "plans"
)

// winddown 仪式的按钮动作
const (
	ActionStartWinddown = "Start winddown"
	ActionMindOnMind    = "I have something on my mind"
)

// 各端点路径，写进问题卡片的 saveTo 字段
const (
	saveToWinddownAnswer  = "/api/v1/winddown/answer"
	saveToWinddownThought = "/api/v1/winddown/thoughts"
	saveToSleepHours      = "/api/v1/sleep/hours"
	saveToImpulseAnswer   = "/api/v1/impulse/answer"
)

// RitualService 仪式步进引擎
// 接收 (ritualId, action?) 决定下一步要发出哪些消息；
// 引擎自己不持有消息状态，续作所需的一切都放在发出消息的 metadata.next 里，
// 服务端在两步之间是无状态的
type RitualService struct {
	cfg            *config.Config
	messageService *MessageService
	ritualRepo     *repository.RitualRepository
	winddownRepo   *repository.WinddownRepository
	settingsRepo   *repository.SettingsRepository
	relay          *RelayService
	ai             *AIService
}

// NewRitualService 创建 RitualService 实例
func NewRitualService(
	cfg *config.Config,
	messageService *MessageService,
	ritualRepo *repository.RitualRepository,
	winddownRepo *repository.WinddownRepository,
	settingsRepo *repository.SettingsRepository,
	relay *RelayService,
	ai *AIService,
) *RitualService {
	return &RitualService{
		cfg:            cfg,
		messageService: messageService,
		ritualRepo:     ritualRepo,
		winddownRepo:   winddownRepo,
		settingsRepo:   settingsRepo,
		relay:          relay,
		ai:             ai,
	}
}

// TriggerRequest 触发仪式的请求
// Webhook/Buttons 允许客户端直接提供，数据库里没有该仪式时兜底使用
type TriggerRequest struct {
	RitualID string      `json:"ritualId"`
	Action   string      `json:"action"`
	Context  interface{} `json:"context"`
	Tone     string      `json:"tone"`
	Webhook  string      `json:"webhook"`
	Buttons  []string    `json:"buttons"`
}

// TriggerResult 触发仪式的结果
// 特殊仪式返回 Messages；通用仪式返回 Text/Buttons 或透传的 webhook JSON；
// 失败路径返回 Status + Error，绝不让请求本身失败
type TriggerResult struct {
	OK       bool
	Messages []model.Message
	Text     string
	Buttons  []string
	Data     map[string]interface{}
	Status   int
	Error    string
}

// Trigger 执行一次仪式触发
// 解析顺序：特殊仪式 -> 通用仪式（有 webhook 走代理，没有返回本地 mock）
// 参数:
//   - ctx: 上下文
//   - req: 触发请求
//
// 返回:
//   - *TriggerResult: 触发结果
//   - error: 校验或数据库错误（代理失败不算错误，见 TriggerResult）
func (s *RitualService) Trigger(ctx context.Context, req *TriggerRequest) (*TriggerResult, error) {
	if req.RitualID == "" {
		return nil, ErrRitualIDRequired
	}

	switch req.RitualID {
	case RitualWinddown:
		return s.triggerWinddown(ctx, req.Action)
	case RitualMorning:
		return s.triggerMorning(ctx, req)
	case RitualWakeupV1:
		return s.triggerWakeup(ctx)
	case RitualImpulseControl:
		return s.triggerImpulseControl(ctx)
	case RitualPlans:
		return s.triggerPlans(ctx)
	}
	return s.triggerGeneric(ctx, req)
}

// ==================== winddown ====================

// triggerWinddown 处理 winddown 仪式的各个动作
func (s *RitualService) triggerWinddown(ctx context.Context, action string) (*TriggerResult, error) {
	switch action {
	case "":
		intro, err := s.emitWinddownIntro(ctx)
		if err != nil {
			return nil, err
		}
		return &TriggerResult{OK: true, Messages: []model.Message{*intro}}, nil

	case ActionStartWinddown:
		return s.startWinddown(ctx)

	case ActionMindOnMind:
		// 单独的问题卡片，答案存到睡前挂念，回答后回到开场卡片
		q := &model.Message{
			ID:   util.UID("m"),
			Role: model.MessageRoleAssistant,
			Metadata: model.JSONMap{
				"demo":   model.DemoQuestionSave,
				"prompt": "What's on your mind that will prevent you from sleeping?",
				"saveTo": saveToWinddownThought,
				"next":   model.JSONMap{"type": model.NextWinddownIntro},
			},
			TimestampMs: util.NowMs(),
		}
		q.Sticky = model.ComputeSticky(q.Metadata, false)
		if err := s.messageService.Persist(ctx, q); err != nil {
			return nil, err
		}
		return &TriggerResult{OK: true, Messages: []model.Message{*q}}, nil

	default:
		// 未知动作不报错，回一句确认让 UI 有东西可渲染
		return &TriggerResult{OK: true, Text: fmt.Sprintf("Action '%s' received (winddown).", action)}, nil
	}
}

// emitWinddownIntro 发出 winddown 开场卡片
func (s *RitualService) emitWinddownIntro(ctx context.Context) (*model.Message, error) {
	ritualID := RitualWinddown
	intro := &model.Message{
		ID:          util.UID("m"),
		Role:        model.MessageRoleRitual,
		Text:        "It's time to start your windown. Shut down blue lights, and take sleeping supplements.",
		Buttons:     model.StringList{ActionStartWinddown, ActionMindOnMind},
		RitualID:    &ritualID,
		Metadata:    model.JSONMap{"demo": model.DemoWinddownIntro},
		TimestampMs: util.NowMs(),
	}
	if err := s.messageService.Persist(ctx, intro); err != nil {
		return nil, err
	}
	return intro, nil
}

// startWinddown 创建会话并发出确认消息 + 三连问的第一题
// 整条链通过 metadata.next 嵌套携带：每张问题卡片都内嵌下一题的定义，
// 最里层以 {type:"goodnight"} 终结
func (s *RitualService) startWinddown(ctx context.Context) (*TriggerResult, error) {
	startedTs := util.NowMs()
	sessionID := util.UID("wd")
	if err := s.winddownRepo.CreateSession(ctx, &model.WinddownSession{
		ID:        sessionID,
		StartedAt: time.UnixMilli(startedTs),
	}); err != nil {
		return nil, err
	}

	confirm := &model.Message{
		ID:          util.UID("m"),
		Role:        model.MessageRoleAssistant,
		Text:        fmt.Sprintf("Winddown started at %s.", time.UnixMilli(startedTs).Format("3:04:05 PM")),
		TimestampMs: startedTs,
	}

	q1 := &model.Message{
		ID:   util.UID("m"),
		Role: model.MessageRoleAssistant,
		Metadata: model.JSONMap{
			"demo":      model.DemoQuestionSave,
			"prompt":    "What went well today?",
			"saveTo":    saveToWinddownAnswer,
			"sessionId": sessionID,
			"question":  model.QuestionWhatWentWell,
			"next": model.JSONMap{
				"type":      model.NextQuestionSave,
				"prompt":    "What felt unstable/impulsive?",
				"saveTo":    saveToWinddownAnswer,
				"sessionId": sessionID,
				"question":  model.QuestionUnstableOrImpulsive,
				"next": model.JSONMap{
					"type":      model.NextQuestionSave,
					"prompt":    "What's one thing you have learned?",
					"saveTo":    saveToWinddownAnswer,
					"sessionId": sessionID,
					"question":  model.QuestionOneThingLearned,
					"next":      model.JSONMap{"type": model.NextGoodnight},
				},
			},
		},
		TimestampMs: startedTs + 1,
	}
	q1.Sticky = model.ComputeSticky(q1.Metadata, false)

	if err := s.messageService.Persist(ctx, confirm); err != nil {
		return nil, err
	}
	if err := s.messageService.Persist(ctx, q1); err != nil {
		return nil, err
	}
	return &TriggerResult{OK: true, Messages: []model.Message{*confirm, *q1}}, nil
}

// ==================== morning ====================

// triggerMorning 把请求原样转发给内部的 morning 处理器
// morning 仪式由独立协作方实现，这里只做代理；失败固定映射为 502
func (s *RitualService) triggerMorning(ctx context.Context, req *TriggerRequest) (*TriggerResult, error) {
	payload := map[string]interface{}{
		"ritualId": req.RitualID,
		"action":   req.Action,
		"context":  req.Context,
		"tone":     req.Tone,
		"ts":       util.NowMs(),
	}
	result := s.relay.Post(ctx, s.cfg.Webhook.MorningURL, payload)
	if !result.OK {
		msg := result.Error
		if msg == "" {
			msg = "internal morning error"
		}
		return &TriggerResult{OK: false, Status: 502, Error: msg}, nil
	}
	return &TriggerResult{OK: true, Data: result.Data}, nil
}

// ==================== wakeup_v1 ====================

// triggerWakeup 起床仪式：欢迎卡片 + 紧急事项 + 今日任务 + 睡眠时长提问
// 欢迎语和格言找文本生成协作方要，拿不到就用本地兜底
func (s *RitualService) triggerWakeup(ctx context.Context) (*TriggerResult, error) {
	greeting := s.ai.GenerateWakeGreeting(ctx)
	base := util.NowMs()

	wakeCard := &model.Message{
		ID:   util.UID("m"),
		Role: model.MessageRoleAssistant,
		Metadata: model.JSONMap{
			"demo":    model.DemoWakeupCard,
			"welcome": greeting.Welcome,
			"quest":   "A new quest begins.",
			"quote":   greeting.Quote,
		},
		TimestampMs: base,
	}
	urgents := &model.Message{
		ID:          util.UID("m"),
		Role:        model.MessageRoleAssistant,
		Metadata:    model.JSONMap{"demo": model.DemoUrgentGrid},
		TimestampMs: base + 1,
	}
	today := &model.Message{
		ID:          util.UID("m"),
		Role:        model.MessageRoleAssistant,
		Metadata:    model.JSONMap{"demo": model.DemoTodayList},
		TimestampMs: base + 2,
	}
	askSleep := &model.Message{
		ID:   util.UID("m"),
		Role: model.MessageRoleAssistant,
		Metadata: model.JSONMap{
			"demo":   model.DemoQuestionSave,
			"prompt": "How many hours did you sleep?",
			"saveTo": saveToSleepHours,
		},
		TimestampMs: base + 3,
	}
	askSleep.Sticky = model.ComputeSticky(askSleep.Metadata, false)

	messages := []*model.Message{wakeCard, urgents, today, askSleep}
	out := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if err := s.messageService.Persist(ctx, m); err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return &TriggerResult{OK: true, Messages: out}, nil
}

// ==================== impulse_control_v1 ====================

// triggerImpulseControl 发出一张问题卡片，答案提交到冲动建议端点
func (s *RitualService) triggerImpulseControl(ctx context.Context) (*TriggerResult, error) {
	q := &model.Message{
		ID:   util.UID("m"),
		Role: model.MessageRoleAssistant,
		Metadata: model.JSONMap{
			"demo":   model.DemoQuestionSave,
			"prompt": "What is your current impulse?",
			"saveTo": saveToImpulseAnswer,
		},
		TimestampMs: util.NowMs(),
	}
	q.Sticky = model.ComputeSticky(q.Metadata, false)
	if err := s.messageService.Persist(ctx, q); err != nil {
		return nil, err
	}
	return &TriggerResult{OK: true, Messages: []model.Message{*q}}, nil
}

// AnswerImpulse 处理冲动控制的答案：生成建议卡片并追加到时间线
// 参数:
//   - ctx: 上下文
//   - text: 用户描述的当前冲动
//
// 返回:
//   - *model.Message: 建议卡片
//   - error: 校验或数据库错误
func (s *RitualService) AnswerImpulse(ctx context.Context, text string) (*model.Message, error) {
	if text == "" {
		return nil, ErrTextRequired
	}
	advice := s.ai.AdviseImpulse(ctx, text)
	msg := &model.Message{
		ID:          util.UID("m"),
		Role:        model.MessageRoleAssistant,
		Metadata:    advice,
		TimestampMs: util.NowMs(),
	}
	if err := s.messageService.Persist(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ==================== plans ====================

// triggerPlans 发出开场白 + 紧急事项 + 今日任务
// 同时保证 rituals 表里有对应的定义行，设置页能看到这个仪式
func (s *RitualService) triggerPlans(ctx context.Context) (*TriggerResult, error) {
	if err := s.ritualRepo.CreateIfAbsent(ctx, &model.Ritual{
		ID:      RitualPlans,
		Name:    "Plans",
		Trigger: model.RitualTrigger{Type: model.TriggerTypeChat, ChatKeyword: "/plans"},
		Active:  true,
	}); err != nil {
		// 定义行落库失败不阻断消息发出
		log.Printf("[WARN] failed to persist plans ritual definition: %v", err)
	}

	base := util.NowMs()
	intro := &model.Message{
		ID:          util.UID("m"),
		Role:        model.MessageRoleAssistant,
		Text:        "Mortal.. here are your urgents and tasks for today.",
		TimestampMs: base,
	}
	m1 := &model.Message{
		ID:          util.UID("m"),
		Role:        model.MessageRoleAssistant,
		Metadata:    model.JSONMap{"demo": model.DemoUrgentGrid},
		TimestampMs: base + 1,
	}
	m2 := &model.Message{
		ID:          util.UID("m"),
		Role:        model.MessageRoleAssistant,
		Metadata:    model.JSONMap{"demo": model.DemoTodayList},
		TimestampMs: base + 2,
	}

	out := make([]model.Message, 0, 3)
	for _, m := range []*model.Message{intro, m1, m2} {
		if err := s.messageService.Persist(ctx, m); err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return &TriggerResult{OK: true, Messages: out}, nil
}

// ==================== 通用仪式 ====================

// triggerGeneric 通用仪式：查库取 webhook/按钮，没有时接受客户端提供的；
// 有 webhook 走代理，失败映射为固定 502；没有 webhook 返回本地 mock，
// UI 永远能拿到一个响应
func (s *RitualService) triggerGeneric(ctx context.Context, req *TriggerRequest) (*TriggerResult, error) {
	webhook := ""
	var buttons []string

	ritual, err := s.ritualRepo.GetByID(ctx, req.RitualID)
	if err != nil {
		// 数据库不可用时继续用客户端提供的字段
		log.Printf("[WARN] ritual lookup failed: %v", err)
	} else if ritual != nil {
		webhook = ritual.Webhook
		buttons = ritual.Buttons
	}
	if webhook == "" {
		webhook = req.Webhook
	}
	if buttons == nil {
		buttons = req.Buttons
	}

	if webhook == "" {
		text := fmt.Sprintf("Started ritual '%s' (mock).", req.RitualID)
		if req.Action != "" {
			text = fmt.Sprintf("Action '%s' received for ritual '%s' (mock).", req.Action, req.RitualID)
		}
		if buttons == nil {
			buttons = []string{}
		}
		return &TriggerResult{OK: true, Text: text, Buttons: buttons}, nil
	}

	payload := map[string]interface{}{
		"ritualId": req.RitualID,
		"action":   req.Action,
		"context":  req.Context,
		"tone":     req.Tone,
		"ts":       util.NowMs(),
	}
	result := s.relay.Post(ctx, webhook, payload)
	if !result.OK {
		return &TriggerResult{OK: false, Status: 502, Error: result.Error}, nil
	}
	return &TriggerResult{OK: true, Data: result.Data}, nil
}

// ==================== 仪式定义 CRUD ====================

// ListRituals 获取全部仪式定义
func (s *RitualService) ListRituals(ctx context.Context) ([]model.Ritual, error) {
	return s.ritualRepo.List(ctx)
}

// SaveRitual 新建或整行覆盖仪式定义
func (s *RitualService) SaveRitual(ctx context.Context, ritual *model.Ritual) error {
	if ritual.ID == "" {
		return ErrRitualIDRequired
	}
	if ritual.Name == "" {
		ritual.Name = ritual.ID
	}
	return s.ritualRepo.Upsert(ctx, ritual)
}

// DeleteRitual 删除仪式定义
func (s *RitualService) DeleteRitual(ctx context.Context, id string) error {
	if id == "" {
		return ErrRitualIDRequired
	}
	return s.ritualRepo.Delete(ctx, id)
}

// ==================== next 转移 ====================

// AdvanceResult 应用一次转移的结果
type AdvanceResult struct {
	Advanced bool            // 是否实际执行了转移（幂等护栏拦下时为 false）
	Messages []model.Message // 转移发出的消息
}

// ApplyNext 应用消息上挂载的 next 转移
// 这是交互卡片状态机的服务端形态：问题答完、倒计时走完之后，
// 客户端带着消息 id 来请求下一步
// 幂等护栏：执行前把源消息的 metadata.advanced 置位，已置位的调用是无操作，
// 防止完成检查被重复执行（如重复渲染）时重复发消息
// 参数:
//   - ctx: 上下文
//   - messageID: 源消息 id
//   - override: 覆盖用的转移描述，nil 时用源消息 metadata.next
//
// 返回:
//   - *AdvanceResult: 转移结果
//   - error: 源消息不存在或数据库错误
func (s *RitualService) ApplyNext(ctx context.Context, messageID string, override model.JSONMap) (*AdvanceResult, error) {
	origin, err := s.messageService.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if origin == nil {
		return nil, ErrMessageNotFound
	}
	if origin.Metadata.Bool("advanced") {
		return &AdvanceResult{Advanced: false}, nil
	}

	next := override
	if next == nil {
		next = origin.Metadata.Map("next")
	}

	// 先置位护栏再执行转移
	marked := origin.Metadata.Clone()
	if marked == nil {
		marked = model.JSONMap{}
	}
	marked["advanced"] = true
	if err := s.messageService.Patch(ctx, origin.ID, map[string]interface{}{
		"metadata": map[string]interface{}(marked),
	}); err != nil {
		return nil, err
	}

	if next == nil {
		return &AdvanceResult{Advanced: true}, nil
	}

	switch next.String("type") {
	case model.NextQuestionSave:
		q := s.buildNextQuestion(origin, next)
		if err := s.messageService.Persist(ctx, q); err != nil {
			return nil, err
		}
		return &AdvanceResult{Advanced: true, Messages: []model.Message{*q}}, nil

	case model.NextWinddownIntro:
		intro, err := s.emitWinddownIntro(ctx)
		if err != nil {
			return nil, err
		}
		return &AdvanceResult{Advanced: true, Messages: []model.Message{*intro}}, nil

	case model.NextGoodnight:
		card, _, err := s.messageService.EnsureGoodnightCard(ctx)
		if err != nil {
			return nil, err
		}
		return &AdvanceResult{Advanced: true, Messages: []model.Message{*card}}, nil

	case model.NextWebhookPost:
		return s.applyWebhookPost(ctx, next)
	}

	// 未知转移类型：护栏已置位，静默完成
	return &AdvanceResult{Advanced: true}, nil
}

// buildNextQuestion 按转移描述构造下一张问题卡片
// saveTo/sessionId 缺省从源卡片继承，链内问题不用重复携带
func (s *RitualService) buildNextQuestion(origin *model.Message, next model.JSONMap) *model.Message {
	meta := model.JSONMap{
		"demo":   model.DemoQuestionSave,
		"prompt": next.String("prompt"),
	}

	saveTo := next.String("saveTo")
	if saveTo == "" {
		saveTo = origin.Metadata.String("saveTo")
	}
	if saveTo != "" {
		meta["saveTo"] = saveTo
	}

	sessionID := next.String("sessionId")
	if sessionID == "" {
		sessionID = origin.Metadata.String("sessionId")
	}
	if sessionID != "" {
		meta["sessionId"] = sessionID
	}

	if q := next.String("question"); q != "" {
		meta["question"] = q
	}
	if nested := next.Map("next"); nested != nil {
		meta["next"] = nested
	}

	q := &model.Message{
		ID:          util.UID("m"),
		Role:        model.MessageRoleAssistant,
		Metadata:    meta,
		TimestampMs: util.NowMs(),
	}
	q.Sticky = model.ComputeSticky(meta, false)
	return q
}

// applyWebhookPost 执行 webhookPost 转移：向通知 webhook 发一次性 POST
// 尽力而为、不重试；失败时向时间线追加一条助手消息说明情况，
// 聊天界面不会出现无声的死角
func (s *RitualService) applyWebhookPost(ctx context.Context, next model.JSONMap) (*AdvanceResult, error) {
	target := ""
	if settings, err := s.settingsRepo.Get(ctx); err == nil && settings.NotificationsWebhook != "" {
		target = settings.NotificationsWebhook
	}
	if target == "" {
		target = s.cfg.Webhook.NotificationsURL
	}

	payload := next.Map("payload")
	if payload == nil {
		payload = model.JSONMap{"text": "How do you feel about your impulse now?"}
	}

	var note *model.Message
	if target == "" {
		note = &model.Message{
			ID:          util.UID("m"),
			Role:        model.MessageRoleAssistant,
			Text:        "No notifications webhook configured; skipped the follow-up ping.",
			TimestampMs: util.NowMs(),
		}
	} else if result := s.relay.Post(ctx, target, payload); !result.OK {
		note = &model.Message{
			ID:          util.UID("m"),
			Role:        model.MessageRoleAssistant,
			Text:        "Follow-up webhook failed: " + result.Error,
			TimestampMs: util.NowMs(),
		}
	} else if text, _ := result.Data["text"].(string); text != "" {
		note = &model.Message{
			ID:          util.UID("m"),
			Role:        model.MessageRoleAssistant,
			Text:        text,
			TimestampMs: util.NowMs(),
		}
	}

	if note == nil {
		return &AdvanceResult{Advanced: true}, nil
	}
	if err := s.messageService.Persist(ctx, note); err != nil {
		return nil, err
	}
	return &AdvanceResult{Advanced: true, Messages: []model.Message{*note}}, nil
}
