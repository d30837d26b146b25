// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// winddown 链的问题键常量
// 三个问题按固定顺序串联，最后一个是终点问题，回答后发晚安卡片
const (
	QuestionWhatWentWell        = "what_went_well"
	QuestionUnstableOrImpulsive = "unstable_or_impulsive"
	QuestionOneThingLearned     = "one_thing_learned"
)

// WinddownSession 一次 winddown 仪式的会话
// 对应数据库表 winddown_sessions
// "Start winddown" 动作触发时创建，只会被新答案追加，不会自动过期
type WinddownSession struct {
	// ID 会话标识，形如 wd_xxx
	ID string `gorm:"primaryKey;size:64" json:"id"`

	// StartedAt 开始时间
	StartedAt time.Time `gorm:"autoCreateTime" json:"started_at"`

	// Answers 会话内的所有答案（一对多关系）
	Answers []WinddownAnswer `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
}

// TableName 指定表名
func (WinddownSession) TableName() string {
	return "winddown_sessions"
}

// WinddownAnswer 一条 winddown 答案
// 对应数据库表 winddown_answers
// 按 id 幂等插入；同一会话同一问题重复提交是无操作
type WinddownAnswer struct {
	// ID 答案标识，由客户端生成，重试时复用
	ID string `gorm:"primaryKey;size:64" json:"id"`

	// SessionID 所属会话，外键关联 winddown_sessions.id
	SessionID string `gorm:"size:64;index;not null" json:"session_id"`

	// Question 问题键，如 what_went_well
	Question string `gorm:"size:64;not null" json:"question"`

	// Answer 答案文本
	Answer string `gorm:"type:text;not null" json:"answer"`

	// CreatedAt 记录时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (WinddownAnswer) TableName() string {
	return "winddown_answers"
}

// WinddownThought 睡前挂念
// 对应数据库表 winddown_thoughts
// "I have something on my mind" 分支的答案单独存这里，不挂在会话下
type WinddownThought struct {
	// ID 标识，由客户端生成
	ID string `gorm:"primaryKey;size:64" json:"id"`

	// Text 内容
	Text string `gorm:"type:text;not null" json:"text"`

	// CreatedAt 记录时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (WinddownThought) TableName() string {
	return "winddown_thoughts"
}
