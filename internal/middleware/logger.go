// Package middleware 提供 HTTP 请求的中间件
package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggerMiddleware 创建请求日志中间件
// 记录每个请求的方法、路径、状态码和耗时
// 返回:
//   - gin.HandlerFunc: Gin 中间件函数
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		latency := time.Since(start).Truncate(time.Microsecond)
		statusCode := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		line := "| " + clientIP + " | " + method + " " + path
		if errorMessage != "" {
			line += " | " + errorMessage
		}

		// 按状态码分级：5xx 错误、4xx 警告、其余信息
		switch {
		case statusCode >= 500:
			log.Printf("[ERROR] %d %v %s", statusCode, latency, line)
		case statusCode >= 400:
			log.Printf("[WARN] %d %v %s", statusCode, latency, line)
		default:
			log.Printf("[INFO] %d %v %s", statusCode, latency, line)
		}
	}
}

// RecoveryMiddleware 创建 panic 恢复中间件
// 捕获处理器中的 panic，防止进程崩溃
// 返回:
//   - gin.HandlerFunc: Gin 中间件函数
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"ok":    false,
					"error": "internal server error",
				})
			}
		}()

		c.Next()
	}
}
