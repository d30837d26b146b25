// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"psa-server/internal/model"
	"psa-server/internal/service"
	"psa-server/pkg/response"
)

// RitualHandler 仪式请求处理器
type RitualHandler struct {
	ritualService *service.RitualService
}

// NewRitualHandler 创建 RitualHandler 实例
func NewRitualHandler(ritualService *service.RitualService) *RitualHandler {
	return &RitualHandler{ritualService: ritualService}
}

// TriggerRitual 触发一次仪式
// @Summary 触发仪式
// @Description 特殊仪式返回 messages；通用仪式返回 webhook 透传数据或本地 mock 文本；
// @Description 代理失败固定返回 502，请求本身不报错
// @Tags 仪式
// @Accept json
// @Produce json
// @Param body body service.TriggerRequest true "触发请求"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/rituals/trigger [post]
func (h *RitualHandler) TriggerRitual(c *gin.Context) {
	var req service.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	result, err := h.ritualService.Trigger(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrRitualIDRequired) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "failed to trigger ritual")
		return
	}

	if !result.OK {
		status := result.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		response.ErrWith(c, status, result.Error, gin.H{"status": status})
		return
	}

	body := gin.H{}
	if result.Messages != nil {
		body["messages"] = result.Messages
	}
	if result.Text != "" {
		body["text"] = result.Text
	}
	if result.Buttons != nil {
		body["buttons"] = result.Buttons
	}
	for k, v := range result.Data {
		if k != "ok" {
			body[k] = v
		}
	}
	response.OK(c, body)
}

// advanceRequest 转移请求
type advanceRequest struct {
	MessageID string        `json:"messageId"`
	Next      model.JSONMap `json:"next"`
}

// AdvanceRitual 应用消息上挂载的 next 转移
// @Summary 应用卡片转移
// @Description 幂等：同一消息的转移只执行一次，重复调用返回 advanced:false
// @Tags 仪式
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/rituals/advance [post]
func (h *RitualHandler) AdvanceRitual(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.MessageID == "" {
		response.BadRequest(c, "messageId required")
		return
	}

	result, err := h.ritualService.ApplyNext(c.Request.Context(), req.MessageID, req.Next)
	if err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.InternalError(c, "failed to advance")
		return
	}

	body := gin.H{"advanced": result.Advanced}
	if result.Messages != nil {
		body["messages"] = result.Messages
	}
	response.OK(c, body)
}

// ListRituals 获取全部仪式定义
// @Summary 获取仪式列表
// @Tags 仪式
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/rituals [get]
func (h *RitualHandler) ListRituals(c *gin.Context) {
	rituals, err := h.ritualService.ListRituals(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to load rituals")
		return
	}
	if rituals == nil {
		rituals = []model.Ritual{}
	}
	response.OK(c, gin.H{"rituals": rituals})
}

// SaveRitual 新建或覆盖仪式定义
// @Summary 保存仪式定义
// @Tags 仪式
// @Accept json
// @Produce json
// @Param body body model.Ritual true "仪式定义"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/rituals [post]
func (h *RitualHandler) SaveRitual(c *gin.Context) {
	var ritual model.Ritual
	if err := c.ShouldBindJSON(&ritual); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := h.ritualService.SaveRitual(c.Request.Context(), &ritual); err != nil {
		if errors.Is(err, service.ErrRitualIDRequired) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "failed to save ritual")
		return
	}
	response.OK(c, gin.H{"ritual": ritual})
}

// DeleteRitual 删除仪式定义
// @Summary 删除仪式定义
// @Tags 仪式
// @Produce json
// @Param id path string true "仪式 id"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/rituals/{id} [delete]
func (h *RitualHandler) DeleteRitual(c *gin.Context) {
	if err := h.ritualService.DeleteRitual(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrRitualIDRequired) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "failed to delete ritual")
		return
	}
	response.OK(c, nil)
}

// impulseAnswerRequest 冲动答案提交请求
type impulseAnswerRequest struct {
	Text string `json:"text"`
}

// AnswerImpulse 提交当前冲动，返回建议卡片
// @Summary 提交冲动答案
// @Description 生成 Reaction / Consequences / Better alternatives 三节建议卡片
// @Tags 仪式
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/impulse/answer [post]
func (h *RitualHandler) AnswerImpulse(c *gin.Context) {
	var req impulseAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	message, err := h.ritualService.AnswerImpulse(c.Request.Context(), req.Text)
	if err != nil {
		if errors.Is(err, service.ErrTextRequired) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "failed to answer impulse")
		return
	}
	response.OK(c, gin.H{"message": message})
}
