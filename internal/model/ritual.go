// Package model 定义了与数据库表对应的数据结构
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TriggerType 仪式触发方式常量
const (
	TriggerTypeSchedule = "schedule" // 定时触发，按 Time (HH:mm) 匹配
	TriggerTypeChat     = "chat"     // 聊天关键字触发，如 "/check"
)

// RitualTrigger 仪式触发描述
// 以 JSON 形式存储在 rituals.trigger_cfg 列
type RitualTrigger struct {
	Type        string `json:"type"`                  // schedule / chat
	Time        string `json:"time,omitempty"`        // HH:mm，仅 schedule
	Repeat      string `json:"repeat,omitempty"`      // daily / weekdays / weekends，空等同 daily
	ChatKeyword string `json:"chatKeyword,omitempty"` // 仅 chat
}

// Value 实现 driver.Valuer
func (t RitualTrigger) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan 实现 sql.Scanner
func (t *RitualTrigger) Scan(value interface{}) error {
	if value == nil {
		*t = RitualTrigger{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported RitualTrigger source type %T", value)
	}
}

// Ritual 通用仪式定义
// 对应数据库表 rituals
// 特殊仪式（winddown、wakeup_v1 等）由步进引擎硬编码处理，不依赖这张表；
// 这里存的是 webhook 驱动的通用仪式，按 id 查找
type Ritual struct {
	// ID 仪式标识，如 "evening_review"
	ID string `gorm:"primaryKey;size:64" json:"id"`

	// Name 展示名称
	Name string `gorm:"size:128;not null" json:"name"`

	// Webhook 外部 webhook 地址，为空表示未配置（触发时返回本地 mock）
	Webhook string `gorm:"size:500;not null;default:''" json:"webhook"`

	// Trigger 触发描述
	Trigger RitualTrigger `gorm:"column:trigger_cfg;type:json;not null" json:"trigger"`

	// Buttons 触发后展示的按钮标签
	Buttons StringList `gorm:"type:json" json:"buttons,omitempty"`

	// Active 是否启用，停用的仪式不会被调度器触发
	Active bool `gorm:"not null;default:true" json:"active"`

	// UpdatedAt 更新时间，由 GORM 自动维护
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Ritual) TableName() string {
	return "rituals"
}
