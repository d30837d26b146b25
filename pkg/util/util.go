// Package util 提供通用工具函数
package util

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// UID 生成带前缀的唯一标识
// 格式与前端一致：<prefix>_<随机十六进制>，如 m_1f2e3d...
// 参数:
//   - prefix: 标识前缀，消息用 "m"，winddown 会话用 "wd"
//
// 返回:
//   - string: 唯一标识
func UID(prefix string) string {
	// uuid.New() 生成 UUID v4，去掉连字符使其更紧凑
	return prefix + "_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NowMs 返回当前毫秒时间戳
// 消息时间线的排序键统一用毫秒
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// seqCounter 全局插入序号计数器
var seqCounter int64

// NextSeq 返回单调递增的插入序号
// 以纳秒时钟为基准；并发取号时 CAS 保证严格递增，
// 这样同一毫秒内到达的两条消息也有确定的先后顺序
func NextSeq() int64 {
	now := time.Now().UnixNano()
	for {
		prev := atomic.LoadInt64(&seqCounter)
		next := now
		if next <= prev {
			next = prev + 1
		}
		if atomic.CompareAndSwapInt64(&seqCounter, prev, next) {
			return next
		}
	}
}

// StringPtr 返回字符串的指针
// 用于可选字段的赋值
func StringPtr(s string) *string {
	return &s
}

// BoolPtr 返回 bool 的指针
func BoolPtr(b bool) *bool {
	return &b
}

// TruncateString 截断字符串到指定长度
// 如果字符串超过指定长度，截断并添加 "..."
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
