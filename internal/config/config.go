// Package config 负责加载和管理应用程序的配置
// 使用 viper 库支持 YAML 配置文件和环境变量覆盖
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config 是应用程序的根配置结构
// 包含所有子配置模块
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`  // 服务器配置
	MySQL   MySQLConfig   `mapstructure:"mysql"`   // MySQL 配置
	Redis   RedisConfig   `mapstructure:"redis"`   // Redis 配置
	Webhook WebhookConfig `mapstructure:"webhook"` // 出站 webhook 配置
	AI      AIConfig      `mapstructure:"ai"`      // 文本生成服务配置
	Log     LogConfig     `mapstructure:"log"`     // 日志配置
}

// ServerConfig 服务器相关配置
type ServerConfig struct {
	Port int      `mapstructure:"port"` // 监听端口，默认 8080
	Mode string   `mapstructure:"mode"` // 运行模式: debug / release
	CORS []string `mapstructure:"cors"` // CORS 允许的域名
}

// MySQLConfig MySQL 数据库连接配置
type MySQLConfig struct {
	Host         string `mapstructure:"host"`           // 数据库主机地址
	Port         int    `mapstructure:"port"`           // 数据库端口
	Username     string `mapstructure:"username"`       // 数据库用户名
	Password     string `mapstructure:"password"`       // 数据库密码
	Database     string `mapstructure:"database"`       // 数据库名称
	Charset      string `mapstructure:"charset"`        // 字符集
	MaxIdleConns int    `mapstructure:"max_idle_conns"` // 最大空闲连接数
	MaxOpenConns int    `mapstructure:"max_open_conns"` // 最大打开连接数
	MaxLifetime  int    `mapstructure:"max_lifetime"`   // 连接最大生命周期（秒）
}

// RedisConfig Redis 连接配置
// Host 为空表示不启用 Redis，各服务降级为只走数据库
type RedisConfig struct {
	Host     string `mapstructure:"host"`      // Redis 主机地址
	Port     int    `mapstructure:"port"`      // Redis 端口
	Username string `mapstructure:"username"`  // Redis 用户名
	Password string `mapstructure:"password"`  // Redis 密码
	DB       int    `mapstructure:"db"`        // 数据库索引 (0-15)
	PoolSize int    `mapstructure:"pool_size"` // 连接池大小
}

// WebhookConfig 出站 webhook 相关配置
// 凭据优先级：URL 内嵌 user:pass > basic 配对 > bearer token > 无
type WebhookConfig struct {
	FallbackURL      string `mapstructure:"fallback_url"`      // 回退聊天 webhook（设置里没配时的兜底）
	NotificationsURL string `mapstructure:"notifications_url"` // 通知 webhook 兜底
	MorningURL       string `mapstructure:"morning_url"`       // morning 仪式的内部处理器地址
	BasicUser        string `mapstructure:"basic_user"`        // Basic 认证用户名
	BasicPass        string `mapstructure:"basic_pass"`        // Basic 认证密码
	BearerToken      string `mapstructure:"bearer_token"`      // Bearer token
	ExtraHeaders     string `mapstructure:"extra_headers"`     // 附加请求头，JSON 编码的对象
}

// AIConfig 文本生成服务配置
// APIKey 为空表示未配置，所有调用点走本地兜底文案
type AIConfig struct {
	APIKey  string `mapstructure:"api_key"`  // OpenAI 兼容 API Key
	BaseURL string `mapstructure:"base_url"` // API 地址，为空用官方默认
	Model   string `mapstructure:"model"`    // 模型名
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug/info/warn/error
	Format string `mapstructure:"format"` // 日志格式: json/text
}

// Load 从指定路径加载配置文件
// 支持环境变量覆盖配置项
// 参数:
//   - configPath: 配置文件目录路径 (如 "./configs")
//
// 返回:
//   - *Config: 配置对象
//   - error: 如果加载失败则返回错误
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// 启用环境变量，WEBHOOK_FALLBACK_URL -> webhook.fallback_url
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVariables(v)
	setDefaults(v)

	// 配置文件不存在时继续使用默认值和环境变量
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindEnvVariables 绑定环境变量到配置项
func bindEnvVariables(v *viper.Viper) {
	// 服务器配置
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// MySQL 配置
	v.BindEnv("mysql.host", "MYSQL_HOST")
	v.BindEnv("mysql.port", "MYSQL_PORT")
	v.BindEnv("mysql.username", "MYSQL_USERNAME")
	v.BindEnv("mysql.password", "MYSQL_PASSWORD")
	v.BindEnv("mysql.database", "MYSQL_DATABASE")

	// Redis 配置
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.username", "REDIS_USERNAME")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// webhook 配置
	v.BindEnv("webhook.fallback_url", "FALLBACK_WEBHOOK")
	v.BindEnv("webhook.notifications_url", "NOTIFY_WEBHOOK_URL")
	v.BindEnv("webhook.morning_url", "MORNING_WEBHOOK_URL")
	v.BindEnv("webhook.basic_user", "FALLBACK_BASIC_USER")
	v.BindEnv("webhook.basic_pass", "FALLBACK_BASIC_PASS")
	v.BindEnv("webhook.bearer_token", "FALLBACK_BEARER_TOKEN")
	v.BindEnv("webhook.extra_headers", "FALLBACK_EXTRA_HEADERS")

	// AI 配置
	v.BindEnv("ai.api_key", "OPENAI_API_KEY")
	v.BindEnv("ai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("ai.model", "OPENAI_MODEL")
}

// setDefaults 设置配置项的默认值
// 当配置文件中没有指定某个值时，将使用这里设置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors", []string{"http://localhost:3000", "http://localhost:5173"})

	// MySQL 默认配置
	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.charset", "utf8mb4")
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.max_open_conns", 100)
	v.SetDefault("mysql.max_lifetime", 3600)

	// Redis 默认不启用
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 100)

	// morning 仪式默认走本地内部处理器
	v.SetDefault("webhook.morning_url", "http://localhost:3000/api/morning")

	// AI 默认模型
	v.SetDefault("ai.model", "gpt-4o-mini")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
