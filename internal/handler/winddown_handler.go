// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"psa-server/internal/model"
	"psa-server/internal/service"
	"psa-server/pkg/response"
)

// WinddownHandler 睡前复盘请求处理器
type WinddownHandler struct {
	winddownService *service.WinddownService
}

// NewWinddownHandler 创建 WinddownHandler 实例
func NewWinddownHandler(winddownService *service.WinddownService) *WinddownHandler {
	return &WinddownHandler{winddownService: winddownService}
}

// History 获取复盘历史
// @Summary 获取复盘历史
// @Description 返回最近的会话和答案，时间倒序
// @Tags 睡前复盘
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/winddown [get]
func (h *WinddownHandler) History(c *gin.Context) {
	sessions, answers, err := h.winddownService.History(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to load winddown history")
		return
	}
	if sessions == nil {
		sessions = []model.WinddownSession{}
	}
	if answers == nil {
		answers = []model.WinddownAnswer{}
	}
	response.OK(c, gin.H{"sessions": sessions, "answers": answers})
}

// SubmitAnswer 提交一条复盘答案
// @Summary 提交复盘答案
// @Description 幂等落库；最后一题落库后返回 goodnight:true 和晚安卡片
// @Tags 睡前复盘
// @Accept json
// @Produce json
// @Param body body service.SubmitAnswerRequest true "答案"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/winddown/answer [post]
func (h *WinddownHandler) SubmitAnswer(c *gin.Context) {
	var req service.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	result, err := h.winddownService.SubmitAnswer(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIDRequired),
			errors.Is(err, service.ErrSessionIDRequired),
			errors.Is(err, service.ErrQuestionRequired),
			errors.Is(err, service.ErrAnswerRequired):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, "failed to save answer")
		}
		return
	}

	body := gin.H{"goodnight": result.Goodnight}
	if result.Message != nil {
		body["message"] = result.Message
	}
	response.OK(c, body)
}

// DeleteSession 删除会话及其答案
// @Summary 删除复盘会话
// @Tags 睡前复盘
// @Produce json
// @Param id path string true "会话 id"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/winddown/sessions/{id} [delete]
func (h *WinddownHandler) DeleteSession(c *gin.Context) {
	if err := h.winddownService.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		response.InternalError(c, "failed to delete session")
		return
	}
	response.OK(c, nil)
}

// DeleteAnswer 删除单条答案
// @Summary 删除复盘答案
// @Tags 睡前复盘
// @Produce json
// @Param id path string true "答案 id"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/winddown/answers/{id} [delete]
func (h *WinddownHandler) DeleteAnswer(c *gin.Context) {
	if err := h.winddownService.DeleteAnswer(c.Request.Context(), c.Param("id")); err != nil {
		response.InternalError(c, "failed to delete answer")
		return
	}
	response.OK(c, nil)
}

// thoughtRequest 睡前挂念提交请求
type thoughtRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SaveThought 记录一条睡前挂念
// @Summary 记录睡前挂念
// @Tags 睡前复盘
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/winddown/thoughts [post]
func (h *WinddownHandler) SaveThought(c *gin.Context) {
	var req thoughtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	thought, err := h.winddownService.SaveThought(c.Request.Context(), req.ID, req.Text)
	if err != nil {
		if errors.Is(err, service.ErrAnswerRequired) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "failed to save thought")
		return
	}
	response.OK(c, gin.H{"thought": thought})
}

// ListThoughts 获取睡前挂念列表
// @Summary 获取睡前挂念
// @Tags 睡前复盘
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/winddown/thoughts [get]
func (h *WinddownHandler) ListThoughts(c *gin.Context) {
	thoughts, err := h.winddownService.ListThoughts(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to load thoughts")
		return
	}
	if thoughts == nil {
		thoughts = []model.WinddownThought{}
	}
	response.OK(c, gin.H{"thoughts": thoughts})
}

// DeleteThought 删除单条睡前挂念
// @Summary 删除睡前挂念
// @Tags 睡前复盘
// @Produce json
// @Param id path string true "挂念 id"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/winddown/thoughts/{id} [delete]
func (h *WinddownHandler) DeleteThought(c *gin.Context) {
	if err := h.winddownService.DeleteThought(c.Request.Context(), c.Param("id")); err != nil {
		response.InternalError(c, "failed to delete thought")
		return
	}
	response.OK(c, nil)
}
