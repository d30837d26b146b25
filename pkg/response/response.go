// Package response 提供统一的 HTTP 响应格式
// 所有 API 都使用 { ok: true, ... } / { ok: false, error: ... } 的响应结构，
// 与消费这些接口的聊天前端约定一致
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OK 返回成功响应
// 在 data 基础上合并 ok:true，调用方可以继续往 data 里放 messages、text 等字段
// 参数:
//   - c: Gin 上下文
//   - data: 附加字段，可以为 nil
func OK(c *gin.Context, data gin.H) {
	body := gin.H{"ok": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Err 返回错误响应
// 参数:
//   - c: Gin 上下文
//   - httpCode: HTTP 状态码
//   - message: 错误信息
func Err(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, gin.H{"ok": false, "error": message})
}

// ErrWith 返回错误响应并附加字段
// 回退代理失败时要带 target / source 等诊断字段
func ErrWith(c *gin.Context, httpCode int, message string, extra gin.H) {
	body := gin.H{"ok": false, "error": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(httpCode, body)
}

// BadRequest 返回 400 错误（请求参数错误）
func BadRequest(c *gin.Context, message string) {
	Err(c, http.StatusBadRequest, message)
}

// NotFound 返回 404 错误（资源不存在）
func NotFound(c *gin.Context, message string) {
	Err(c, http.StatusNotFound, message)
}

// InternalError 返回 500 错误（服务器内部错误）
func InternalError(c *gin.Context, message string) {
	Err(c, http.StatusInternalServerError, message)
}
