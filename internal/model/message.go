// Package model 定义了与数据库表对应的数据结构
package model

// MessageRole 消息角色常量
const (
	MessageRoleUser      = "user"      // 用户输入
	MessageRoleAssistant = "assistant" // 助手响应
	MessageRoleRitual    = "ritual"    // 仪式引擎生成的消息
	MessageRoleSystem    = "system"    // 系统消息
)

// metadata.demo 取值常量
// demo 字段是判别器，决定客户端用哪种卡片渲染这条消息
const (
	DemoQuestionSave  = "questionSave"  // 提问卡片，答案提交到 saveTo 指定的端点
	DemoQuestionInput = "questionInput" // 提问卡片（自由输入）
	DemoGoodnightCard = "goodnightCard" // 晚安卡片，winddown 链的终点
	DemoWinddownIntro = "winddownIntro" // winddown 开场卡片
	DemoWakeupCard    = "wakeupCard"    // 起床欢迎卡片
	DemoUrgentGrid    = "urgentGrid"    // 紧急事项网格
	DemoTodayList     = "todayList"     // 今日任务列表
	DemoListSection   = "listSection"   // 分节列表（冲动控制建议）
	DemoCountdown     = "countdown"     // 倒计时卡片
)

// metadata.next 转移类型常量
// next 描述当前交互卡片完成后应执行的下一步
const (
	NextQuestionSave  = "questionSave"
	NextGoodnight     = "goodnight"
	NextWinddownIntro = "winddownIntro"
	NextWebhookPost   = "webhookPost"
)

// Message 消息模型
// 对应数据库表 messages
// 聊天时间线的原子单位，一旦写入 id/role/timestamp 不再变更
type Message struct {
	// ID 消息唯一标识，创建时由客户端或服务端生成，形如 m_xxx
	ID string `gorm:"primaryKey;size:64" json:"id"`

	// Seq 插入序号，单调递增
	// timestamp 相同时按 Seq 决定先后，使"时间戳并列按到达顺序稳定排序"成为显式规则
	Seq int64 `gorm:"index;not null" json:"-"`

	// Role 消息角色: user / assistant / ritual / system
	Role string `gorm:"size:20;not null" json:"role"`

	// Text 消息文本，允许为空
	// 很多卡片消息不带文本，内容全部在 metadata 里
	Text string `gorm:"type:text;not null" json:"text"`

	// RitualID 产生这条消息的仪式，可选
	RitualID *string `gorm:"size:64" json:"ritualId,omitempty"`

	// Buttons 快捷回复按钮标签，可选
	Buttons StringList `gorm:"type:json" json:"buttons,omitempty"`

	// Metadata 开放式键值包
	// demo 字段决定渲染方式，next 字段携带状态机转移
	Metadata JSONMap `gorm:"type:json" json:"metadata,omitempty"`

	// EmotionID / EmotionTone 情绪日志消息的标签，可选
	EmotionID   *string `gorm:"size:32" json:"emotionId,omitempty"`
	EmotionTone *string `gorm:"size:16" json:"emotionTone,omitempty"`

	// TimestampMs 毫秒时间戳，时间线的唯一排序键
	TimestampMs int64 `gorm:"column:timestamp_ms;not null;index" json:"timestamp"`

	// Sticky 置顶标记，创建时计算，置顶消息不参与滚动裁剪
	Sticky bool `gorm:"not null;default:false" json:"sticky"`

	// Saved 用户手动"保留"标记，创建后可修改
	Saved bool `gorm:"not null;default:false" json:"saved"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}

// ComputeSticky 计算消息是否置顶
// 规则：metadata.demo 是 questionSave/questionInput，
// 或 metadata 带非空 question/prompt 字段，或创建方显式传入 sticky=true
// 未回答的问题卡片必须留在时间线里，所以它们豁免于滚动裁剪
func ComputeSticky(metadata JSONMap, explicit bool) bool {
	if explicit {
		return true
	}
	if metadata == nil {
		return false
	}
	demo := metadata.String("demo")
	if demo == DemoQuestionSave || demo == DemoQuestionInput {
		return true
	}
	if metadata.String("question") != "" || metadata.String("prompt") != "" {
		return true
	}
	return false
}
