// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"psa-server/internal/service"
	"psa-server/pkg/response"
)

// SettingsHandler 用户设置请求处理器
type SettingsHandler struct {
	settingsService *service.SettingsService
}

// NewSettingsHandler 创建 SettingsHandler 实例
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// GetSettings 获取设置
// @Summary 获取用户设置
// @Tags 设置
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.Get(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to load settings")
		return
	}
	response.OK(c, gin.H{"settings": settings})
}

// PatchSettings 更新设置
// @Summary 更新用户设置
// @Description 只更新请求体里出现的字段，返回更新后的完整设置
// @Tags 设置
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/settings [patch]
func (h *SettingsHandler) PatchSettings(c *gin.Context) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	settings, err := h.settingsService.Update(c.Request.Context(), fields)
	if err != nil {
		response.InternalError(c, "failed to update settings")
		return
	}
	response.OK(c, gin.H{"settings": settings})
}
