// Package service 提供业务逻辑层的实现
package service

import (
	"context"

	"psa-server/internal/model"
	"psa-server/internal/repository"
)

// SettingsService 用户设置服务
// 单例行的读写，PATCH 语义：只更新请求里出现的字段
type SettingsService struct {
	settingsRepo *repository.SettingsRepository
}

// NewSettingsService 创建 SettingsService 实例
func NewSettingsService(settingsRepo *repository.SettingsRepository) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo}
}

// Get 获取设置
func (s *SettingsService) Get(ctx context.Context) (*model.Settings, error) {
	return s.settingsRepo.Get(ctx)
}

// settingsColumns JSON 字段名到数据库列名的白名单映射
// 不在表里的键直接忽略
var settingsColumns = map[string]string{
	"tone":                   "tone",
	"fallbackWebhook":        "fallback_webhook",
	"notificationsWebhook":   "notifications_webhook",
	"theme":                  "theme",
	"name":                   "name",
	"profileNotes":           "profile_notes",
	"hideSleepingHours":      "hide_sleeping_hours",
	"sleepStartHour":         "sleep_start_hour",
	"sleepEndHour":           "sleep_end_hour",
	"density":                "density",
	"autoRefreshEnabled":     "auto_refresh_enabled",
	"autoRefreshIntervalSec": "auto_refresh_interval_sec",
}

// Update 按白名单更新设置字段并返回更新后的完整设置
// 参数:
//   - ctx: 上下文
//   - fields: 请求体里出现的字段
//
// 返回:
//   - *model.Settings: 更新后的设置
//   - error: 数据库错误
func (s *SettingsService) Update(ctx context.Context, fields map[string]interface{}) (*model.Settings, error) {
	updates := make(map[string]interface{})
	for key, column := range settingsColumns {
		if v, ok := fields[key]; ok {
			// JSON 数字统一是 float64，整数列需要转换
			if f, isFloat := v.(float64); isFloat {
				updates[column] = int(f)
			} else {
				updates[column] = v
			}
		}
	}
	if err := s.settingsRepo.Update(ctx, updates); err != nil {
		return nil, err
	}
	return s.settingsRepo.Get(ctx)
}
