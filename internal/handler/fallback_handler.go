// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"psa-server/internal/config"
	"psa-server/internal/service"
	"psa-server/pkg/response"
)

// FallbackHandler 回退聊天代理处理器
// 仪式引擎接不住的消息走这里，转发给外部的通用聊天 webhook
type FallbackHandler struct {
	cfg             *config.Config
	relayService    *service.RelayService
	settingsService *service.SettingsService
}

// NewFallbackHandler 创建 FallbackHandler 实例
func NewFallbackHandler(cfg *config.Config, relayService *service.RelayService, settingsService *service.SettingsService) *FallbackHandler {
	return &FallbackHandler{
		cfg:             cfg,
		relayService:    relayService,
		settingsService: settingsService,
	}
}

// Relay 转发请求体到回退 webhook
// @Summary 回退聊天代理
// @Description 地址解析顺序：请求体 url > 设置页配置 > 环境变量；强制 HTTPS。
// @Description 响应体原样透传；失败时附带 target / source 便于诊断
// @Tags 回退代理
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/fallback [post]
func (h *FallbackHandler) Relay(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	// 按优先级解析目标地址
	target := ""
	source := "body"
	if u, _ := body["url"].(string); u != "" {
		target = u
	}
	if target == "" {
		if settings, err := h.settingsService.Get(c.Request.Context()); err == nil && settings.FallbackWebhook != "" {
			target = settings.FallbackWebhook
			source = "settings"
		}
	}
	if target == "" && h.cfg.Webhook.FallbackURL != "" {
		target = h.cfg.Webhook.FallbackURL
		source = "env"
	}

	if err := h.relayService.ValidateFallbackURL(target); err != nil {
		if errors.Is(err, service.ErrNoWebhookURL) {
			response.Err(c, http.StatusBadRequest, err.Error())
			return
		}
		response.ErrWith(c, http.StatusBadRequest, err.Error(), gin.H{"target": target, "source": source})
		return
	}

	// url 只是寻址用的，不转发给目标
	payload := make(map[string]interface{}, len(body))
	for k, v := range body {
		if k != "url" {
			payload[k] = v
		}
	}

	result := h.relayService.Post(c.Request.Context(), target, payload)
	if !result.OK {
		status := result.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		response.ErrWith(c, status, result.Error, gin.H{"target": result.Target, "source": source})
		return
	}

	extra := gin.H{}
	for k, v := range result.Data {
		if k != "ok" {
			extra[k] = v
		}
	}
	response.OK(c, extra)
}
