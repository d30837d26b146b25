// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// SettingsID 单例行主键
// 系统是单用户的，settings 表只有这一行
const SettingsID = "singleton"

// Settings 服务端存储的用户设置
// 对应数据库表 settings
// 回退聊天和通知的 webhook 地址优先从这里读，没有再用环境变量
type Settings struct {
	// ID 固定为 singleton
	ID string `gorm:"primaryKey;size:32" json:"-"`

	// Tone 助手语气: Gentle / Strict / Playful / Neutral
	Tone string `gorm:"size:20;not null;default:Gentle" json:"tone"`

	// FallbackWebhook 回退聊天 webhook 地址
	FallbackWebhook string `gorm:"size:500;not null;default:''" json:"fallbackWebhook"`

	// NotificationsWebhook 通知 webhook 地址（webhookPost 转移的目标）
	NotificationsWebhook string `gorm:"size:500;not null;default:''" json:"notificationsWebhook"`

	// Theme 界面主题: light / dark
	Theme string `gorm:"size:16;not null;default:dark" json:"theme"`

	// Name 用户偏好的称呼
	Name string `gorm:"size:128;not null;default:''" json:"name"`

	// ProfileNotes 用于个性化的自由文本
	ProfileNotes string `gorm:"type:text" json:"profileNotes"`

	// 日程网格的睡眠时段配置
	HideSleepingHours bool `gorm:"not null;default:false" json:"hideSleepingHours"`
	SleepStartHour    int  `gorm:"not null;default:22" json:"sleepStartHour"`
	SleepEndHour      int  `gorm:"not null;default:8" json:"sleepEndHour"`

	// Density 界面密度: comfortable / compact / ultra
	Density string `gorm:"size:16;not null;default:comfortable" json:"density"`

	// 聊天自动刷新配置
	AutoRefreshEnabled     bool `gorm:"not null;default:true" json:"autoRefreshEnabled"`
	AutoRefreshIntervalSec int  `gorm:"not null;default:7" json:"autoRefreshIntervalSec"`

	// UpdatedAt 更新时间
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName 指定表名
func (Settings) TableName() string {
	return "settings"
}
