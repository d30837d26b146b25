// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"psa-server/internal/config"
	"psa-server/internal/model"
	"psa-server/pkg/util"
)

// AIService 文本生成协作方的封装
// 未配置 API Key 或调用/解析失败都是预期情况，每个调用点都有本地兜底文案，
// 系统离线时功能完整可用
type AIService struct {
	client *openai.Client // 未配置时为 nil
	model  string
}

// NewAIService 创建 AIService 实例
func NewAIService(cfg *config.Config) *AIService {
	s := &AIService{model: cfg.AI.Model}
	if cfg.AI.APIKey != "" {
		conf := openai.DefaultConfig(cfg.AI.APIKey)
		if cfg.AI.BaseURL != "" {
			conf.BaseURL = cfg.AI.BaseURL
		}
		s.client = openai.NewClientWithConfig(conf)
	}
	return s
}

// Available 文本生成服务是否已配置
func (s *AIService) Available() bool {
	return s.client != nil
}

// complete 发起一次 system+user 的对话补全，返回原始文本
func (s *AIService) complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32, maxTokens int) (string, error) {
	if s.client == nil {
		return "", errors.New("ai service not configured")
	}
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ai returned no content")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ==================== 起床欢迎语 ====================

// 风格指令，随机选取一条放进提示词，避免多次运行输出雷同
var wakeStyles = []string{
	"high fantasy dawn (mythic, luminous, noble)",
	"space opera sunrise (vast cosmos, hopeful, triumphant)",
	"solarpunk morning (renewal, nature, gentle tech)",
	"cyberpunk daybreak (resilience, neon-fading, determined)",
	"mythic sci-fi prologue (hero's awakening, starlit horizon)",
}

// API 不可用或返回无法解析时的本地兜底文案，均匀随机选取
var fallbackWelcomes = []string{
	"Good morning, brave soul. New light, new chances.",
	"Morning, adventurer—today's chapter is yours to write.",
	"Rise and greet the day—your path brightens ahead.",
	"Welcome back to the realm of doing—let's make it count.",
	"Dawn salutes you—courage and clarity at your side.",
}

var fallbackQuotes = []string{
	"In the tapestry of existence, each thread hums with becoming.",
	"The cosmos tilts toward those who dare to begin.",
	"Every sunrise is a portal; step through with intent.",
	"From stardust to stride—today, you are the spark.",
	"On the edge of dawn, possibility unsheathes its light.",
}

// WakeGreeting 起床卡片的生成结果
type WakeGreeting struct {
	Welcome string `json:"welcome"`
	Quote   string `json:"quote"`
}

// GenerateWakeGreeting 为 wakeup_v1 仪式生成欢迎语和史诗格言
// 要求模型只返回严格 JSON；解析不出来就用本地兜底，永不返回错误
func (s *AIService) GenerateWakeGreeting(ctx context.Context) WakeGreeting {
	nonce := util.UID("wake")
	nowISO := time.Now().UTC().Format(time.RFC3339)
	style := wakeStyles[rand.Intn(len(wakeStyles))]
	systemPrompt := strings.Join([]string{
		"You are the WakeUp ritual narrator.",
		"Return STRICT JSON ONLY with: { welcome: string, quote: string }.",
		"Guidelines:",
		"- 'welcome' is a short, heartwarming message (1-2 sentences) as if greeting a hero at dawn.",
		"- 'quote' is a short, powerful sci-fi/fantasy style line about how epic life is/can be.",
		"- Keep both uplifting and succinct.",
		"- Make it fresh and varied; avoid repeating phrasing you have used before.",
		"- Style: " + style + ".",
		fmt.Sprintf("- Context nonce: %s; current_time: %s. Use this to diversify output.", nonce, nowISO),
	}, "\n")
	userPrompt := fmt.Sprintf("Return JSON now. Request: %s at %s", nonce, nowISO)

	greeting := WakeGreeting{
		Welcome: fallbackWelcomes[rand.Intn(len(fallbackWelcomes))],
		Quote:   fallbackQuotes[rand.Intn(len(fallbackQuotes))],
	}

	raw, err := s.complete(ctx, systemPrompt, userPrompt, 0.9, 180)
	if err != nil {
		return greeting
	}
	var parsed WakeGreeting
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return greeting
	}
	if v := strings.TrimSpace(parsed.Welcome); v != "" {
		greeting.Welcome = v
	}
	if v := strings.TrimSpace(parsed.Quote); v != "" {
		greeting.Quote = v
	}
	return greeting
}

// ==================== 冲动控制建议 ====================

// impulseReply 模型返回的结构化建议
type impulseReply struct {
	Reaction     string   `json:"reaction"`
	Consequences []string `json:"consequences"`
	Alternatives []string `json:"alternatives"`
}

// AdviseImpulse 为冲动控制仪式生成建议
// 返回 listSection 卡片的 metadata：Reaction / Consequences / Better alternatives 三节
// 模型不可用或输出不合法时，从固定兜底文案解析出同样结构的卡片
func (s *AIService) AdviseImpulse(ctx context.Context, impulse string) model.JSONMap {
	systemPrompt := strings.Join([]string{
		"You are the Impulse Control service.",
		"User's current impulse: " + impulse,
		"Respond concisely with STRICT JSON ONLY, no extra text.",
		"JSON schema:",
		"{",
		`  "reaction": string,`,
		`  "consequences": string[],`,
		`  "alternatives": string[]`,
		"}",
		"Guidelines:",
		"- Keep 'reaction' to one short sentence.",
		"- Provide 3-5 concrete 'consequences'.",
		"- Provide 3-5 practical 'alternatives'.",
	}, "\n")

	raw, err := s.complete(ctx, systemPrompt, "Respond concisely per the system instructions.", 0.2, 220)
	if err == nil {
		var parsed impulseReply
		if json.Unmarshal([]byte(raw), &parsed) == nil &&
			(len(parsed.Consequences) > 0 || len(parsed.Alternatives) > 0) {
			sections := make([]model.JSONMap, 0, 3)
			if r := strings.TrimSpace(parsed.Reaction); r != "" {
				sections = append(sections, model.JSONMap{"header": "Reaction", "items": []string{r}})
			}
			if items := cleanLines(parsed.Consequences); len(items) > 0 {
				sections = append(sections, model.JSONMap{"header": "Consequences", "items": items})
			}
			if items := cleanLines(parsed.Alternatives); len(items) > 0 {
				sections = append(sections, model.JSONMap{"header": "Better alternatives", "items": items})
			}
			return listSectionMeta(impulse, sections)
		}
	}

	// 兜底：从固定文案解析出分节结构，移动端渲染保持一致
	return listSectionMeta(impulse, parseAdviceSections(mockAdvice(impulse)))
}

// listSectionMeta 组装 listSection 卡片的 metadata
func listSectionMeta(impulse string, sections []model.JSONMap) model.JSONMap {
	return model.JSONMap{
		"demo":           model.DemoListSection,
		"title":          "Impulse Control",
		"sections":       sections,
		"currentImpulse": impulse,
	}
}

// cleanLines 去掉空白项并修剪空格
func cleanLines(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// mockAdvice 固定的兜底建议文案
func mockAdvice(impulse string) string {
	trimmed := strings.TrimSpace(impulse)
	if trimmed == "" {
		trimmed = "(unspecified)"
	}
	return strings.Join([]string{
		"Impulse noted: " + trimmed + ".",
		"Possible consequences:",
		"- Regret or loss of time/focus",
		"- Financial/health downside",
		"- Derailing current goals",
		"Better alternatives:",
		"- Pause 2 minutes; breathe and re-evaluate",
		"- Do one tiny productive task (2-5 min)",
		"- Replace with a healthy micro-reward (tea, short walk)",
	}, "\n")
}

// parseAdviceSections 把兜底文案解析成分节结构
// 行首冒号结尾的是节标题，"-"开头的是列表项，其余并入 Reaction
func parseAdviceSections(text string) []model.JSONMap {
	var sections []model.JSONMap
	var current model.JSONMap
	flush := func() {
		if current != nil {
			if items, ok := current["items"].([]string); ok && len(items) > 0 {
				sections = append(sections, current)
			}
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "possible consequences:"):
			flush()
			current = model.JSONMap{"header": "Consequences", "items": []string{}}
		case strings.HasPrefix(lower, "better alternatives:"):
			flush()
			current = model.JSONMap{"header": "Better alternatives", "items": []string{}}
		case strings.HasPrefix(lower, "impulse noted:") || strings.HasPrefix(lower, "reaction:"):
			flush()
			current = model.JSONMap{"header": "Reaction", "items": []string{line}}
		case strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•"):
			item := strings.TrimSpace(strings.TrimLeft(line, "-• "))
			if current == nil {
				current = model.JSONMap{"header": "Reaction", "items": []string{}}
			}
			if item != "" {
				current["items"] = append(current["items"].([]string), item)
			}
		default:
			if current == nil {
				current = model.JSONMap{"header": "Reaction", "items": []string{}}
			}
			current["items"] = append(current["items"].([]string), line)
		}
	}
	flush()
	return sections
}
