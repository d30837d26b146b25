// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"psa-server/internal/model"
	"psa-server/internal/service"
	"psa-server/pkg/response"
	"psa-server/pkg/util"
)

// MessageHandler 消息时间线请求处理器
type MessageHandler struct {
	messageService *service.MessageService
}

// NewMessageHandler 创建 MessageHandler 实例
func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// ListMessages 获取完整时间线
// @Summary 获取消息时间线
// @Description 返回全部消息，按时间戳升序
// @Tags 消息
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/messages [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	messages, err := h.messageService.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to load messages")
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	response.OK(c, gin.H{"messages": messages})
}

// AppendMessage 追加一条消息
// @Summary 追加消息
// @Description 幂等追加：同 id 重复提交不产生副本。echo 缺省开启
// @Tags 消息
// @Accept json
// @Produce json
// @Param body body service.AppendMessageRequest true "消息内容"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/messages [post]
func (h *MessageHandler) AppendMessage(c *gin.Context) {
	var req service.AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	reply, err := h.messageService.Append(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrRoleRequired) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "failed to append message")
		return
	}

	if reply != "" {
		response.OK(c, gin.H{"text": reply})
		return
	}
	response.OK(c, nil)
}

// GetMessage 获取单条消息
// @Summary 获取单条消息
// @Tags 消息
// @Produce json
// @Param id path string true "消息 id"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/messages/{id} [get]
func (h *MessageHandler) GetMessage(c *gin.Context) {
	message, err := h.messageService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, "failed to load message")
		return
	}
	if message == nil {
		response.NotFound(c, "message not found")
		return
	}
	response.OK(c, gin.H{"message": message})
}

// PatchMessage 更新消息的可变字段
// @Summary 更新消息
// @Description 只更新请求体里出现的字段；id 不存在时是无操作
// @Tags 消息
// @Accept json
// @Produce json
// @Param id path string true "消息 id"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/messages/{id} [patch]
func (h *MessageHandler) PatchMessage(c *gin.Context) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := h.messageService.Patch(c.Request.Context(), c.Param("id"), fields); err != nil {
		if errors.Is(err, service.ErrIDRequired) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "failed to patch message")
		return
	}
	response.OK(c, nil)
}

// UpdateMessage 更新消息的可变字段，id 放在请求体里
// @Summary 更新消息（id 在请求体）
// @Description 与 PATCH /messages/{id} 等价；只更新请求体里出现的字段
// @Tags 消息
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/messages [put]
func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	id, _ := fields["id"].(string)
	delete(fields, "id")

	if err := h.messageService.Patch(c.Request.Context(), id, fields); err != nil {
		if errors.Is(err, service.ErrIDRequired) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "failed to patch message")
		return
	}
	response.OK(c, nil)
}

// ClearMessages 清空整个时间线
// @Summary 清空时间线
// @Tags 消息
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/messages [delete]
func (h *MessageHandler) ClearMessages(c *gin.Context) {
	if err := h.messageService.Clear(c.Request.Context()); err != nil {
		response.InternalError(c, "failed to clear messages")
		return
	}
	response.OK(c, nil)
}

// sleepHoursRequest 睡眠时长提交请求
type sleepHoursRequest struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Hours string `json:"hours"`
}

// SubmitSleepHours 记录睡眠时长
// @Summary 记录睡眠时长
// @Description 起床仪式问题卡片的提交目标，落一条确认消息到时间线
// @Tags 消息
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/sleep/hours [post]
func (h *MessageHandler) SubmitSleepHours(c *gin.Context) {
	var req sleepHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	hours := req.Text
	if hours == "" {
		hours = req.Hours
	}
	if hours == "" {
		response.BadRequest(c, "text required")
		return
	}

	note := &model.Message{
		ID:          util.UID("m"),
		Role:        model.MessageRoleAssistant,
		Text:        fmt.Sprintf("Logged %s hours of sleep. Rest matters.", hours),
		TimestampMs: util.NowMs(),
	}
	if err := h.messageService.Persist(c.Request.Context(), note); err != nil {
		response.InternalError(c, "failed to save sleep hours")
		return
	}
	response.OK(c, gin.H{"message": note})
}
