// Package service 提供业务逻辑层的实现
package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"psa-server/internal/config"
)

// 回退代理相关错误
var (
	ErrNoWebhookURL = errors.New("No fallback webhook URL configured.")
	ErrNotHTTPS     = errors.New("Invalid webhook URL. Must start with https://")
)

// RelayService 出站 webhook 代理
// 所有对外 HTTP 调用都从服务端发出：绕开浏览器 CORS，凭据不下发到客户端
// 单次尝试、不重试；超时沿用 http.Client 的默认策略，不额外设定
type RelayService struct {
	cfg          *config.Config
	client       *http.Client
	extraHeaders map[string]string // 从配置解析好的附加请求头
}

// NewRelayService 创建 RelayService 实例
func NewRelayService(cfg *config.Config) *RelayService {
	s := &RelayService{
		cfg:    cfg,
		client: &http.Client{},
	}
	if raw := cfg.Webhook.ExtraHeaders; raw != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(raw), &headers); err != nil {
			log.Printf("[WARN] invalid webhook.extra_headers, ignoring: %v", err)
		} else {
			s.extraHeaders = headers
		}
	}
	return s
}

// RelayResult 一次代理调用的归一化结果
// 网络层失败、非 2xx、解析失败都落在这里，绝不向上抛未处理异常
type RelayResult struct {
	OK     bool                   // 是否成功（2xx）
	Status int                    // 目标返回的状态码，网络层失败时为 0
	Data   map[string]interface{} // 解析后的响应体；非 JSON 时为 {text: 原文}
	Error  string                 // 失败描述
	Target string                 // 实际请求的地址（已剥离内嵌凭据），诊断用
}

// ValidateFallbackURL 校验回退聊天 webhook 地址
// 回退代理强制 HTTPS；通用仪式代理不做此限制（两条路径的既有差异，按原样保留）
func (s *RelayService) ValidateFallbackURL(rawURL string) error {
	if rawURL == "" {
		return ErrNoWebhookURL
	}
	if !strings.HasPrefix(strings.ToLower(rawURL), "https://") {
		return ErrNotHTTPS
	}
	return nil
}

// Post 向目标地址发送一次 JSON POST
// 凭据优先级：URL 内嵌 user:pass > 配置的 basic 配对 > 配置的 bearer token > 无；
// 附加请求头始终生效。内嵌凭据会从实际请求地址和回显的 target 中剥离
// 参数:
//   - ctx: 上下文
//   - rawURL: 目标地址
//   - payload: 请求体，序列化为 JSON
//
// 返回:
//   - *RelayResult: 归一化结果，永不为 nil
func (s *RelayService) Post(ctx context.Context, rawURL string, payload interface{}) *RelayResult {
	target := rawURL
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range s.extraHeaders {
		headers[k] = v
	}

	// 解析 URL，提取并剥离内嵌凭据
	if u, err := url.Parse(rawURL); err == nil {
		if u.User != nil {
			user := u.User.Username()
			pass, _ := u.User.Password()
			creds := user + ":" + pass
			headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
			u.User = nil
			target = u.String()
		}
	}

	// 没有内嵌凭据时按优先级尝试配置凭据
	if _, ok := headers["Authorization"]; !ok {
		if s.cfg.Webhook.BasicUser != "" && s.cfg.Webhook.BasicPass != "" {
			creds := s.cfg.Webhook.BasicUser + ":" + s.cfg.Webhook.BasicPass
			headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
		} else if s.cfg.Webhook.BearerToken != "" {
			headers["Authorization"] = "Bearer " + s.cfg.Webhook.BearerToken
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &RelayResult{OK: false, Error: "failed to encode payload: " + err.Error(), Target: target}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return &RelayResult{OK: false, Error: "invalid webhook URL: " + err.Error(), Target: target}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// DNS、超时、连接拒绝等网络层失败统一归一化，附上目标地址便于诊断
		return &RelayResult{OK: false, Error: "Fetch to webhook failed: " + err.Error(), Target: target}
	}
	defer resp.Body.Close()

	// 响应体只读一次：先按 JSON 解析，失败则包成 {text: 原文}
	raw, _ := io.ReadAll(resp.Body)
	data := map[string]interface{}{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			data = map[string]interface{}{"text": string(raw)}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := data["error"].(string)
		if msg == "" {
			msg = "webhook error"
		}
		return &RelayResult{OK: false, Status: resp.StatusCode, Data: data, Error: msg, Target: target}
	}

	return &RelayResult{OK: true, Status: resp.StatusCode, Data: data, Target: target}
}
