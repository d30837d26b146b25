// Package websocket 提供 WebSocket 通信功能
package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"psa-server/internal/cache"
)

// Hub 是 WebSocket 连接的中心管理器
// 单用户场景：所有连接都属于同一个人（桌面端 + 手机端 WebView），
// 任何时间线变更都向全部连接广播同一条刷新提示
type Hub struct {
	// 当前在线的客户端集合
	clients map[*Client]struct{}

	// 注册通道
	register chan *Client

	// 注销通道
	unregister chan *Client

	// 广播通道
	broadcast chan []byte

	// 主循环退出后关闭；注册/注销靠它避免向没人读的通道发送
	done chan struct{}

	// 互斥锁，保护并发访问
	mu sync.RWMutex

	cache *cache.RedisCache

	// 上次广播时见到的活动计数，跨实例变更靠它兜底
	lastActivity int64
}

// NewHub 创建 Hub 实例
func NewHub(cache *cache.RedisCache) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		cache:      cache,
	}
}

// Run 启动 Hub 的主循环
// 应该在单独的 goroutine 中运行；ctx 取消时退出
func (h *Hub) Run(ctx context.Context) {
	// 活动计数轮询：别的进程写库时本进程不会收到 NotifyTimelineChanged，
	// 靠 Redis 计数的变化补发广播
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			log.Printf("[INFO] websocket client connected, total=%d", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mu.Unlock()
			log.Printf("[INFO] websocket client disconnected, total=%d", h.ClientCount())

		case data := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				client.Send(data)
			}
			h.mu.RUnlock()

		case <-ticker.C:
			if n := h.cache.GetActivity(ctx); n != h.lastActivity {
				h.lastActivity = n
				h.enqueue(time.Now().UnixMilli())
			}

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]struct{})
			h.mu.Unlock()
			return
		}
	}
}

// NotifyTimelineChanged 时间线变更通知
// 由消息服务在每次 append / patch / clear 后调用
func (h *Hub) NotifyTimelineChanged(ts int64) {
	h.enqueue(ts)
}

// enqueue 序列化刷新提示并投入广播通道
// 通道满时丢弃：提示只是"该拉取了"的信号，不携带数据，丢一条无伤大雅
func (h *Hub) enqueue(ts int64) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "messages",
		"ts":   ts,
	})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// Register 注册客户端（供外部调用）
// 主循环已退出时直接关掉连接，不能卡在没人读的通道上
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister 注销客户端（供外部调用）
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.Close()
	}
}

// ClientCount 当前在线的客户端数量
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
